// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/C41M50N/readr-convex-hackathon/internal/content"
)

// Generator creates UUID v7 strings. They sort by creation time, which keeps
// run IDs and request IDs readable in logs.
type Generator struct{}

var _ content.IDGenerator = (*Generator)(nil)

// NewUUIDGenerator creates a new Generator.
func NewUUIDGenerator() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
