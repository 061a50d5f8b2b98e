package content

import "errors"

// Store errors reported to the orchestrator.
var (
	// ErrNotFound is returned by lookups for URLs with no record.
	ErrNotFound = errors.New("content: record not found")

	// ErrAlreadyExists is returned by Create when a record for the canonical
	// URL is already present. The orchestrator dedupes before creating, so
	// hitting this means two ingests raced; the loser treats it as a no-op.
	ErrAlreadyExists = errors.New("content: record already exists")
)
