package content

import (
	"context"
	"time"
)

// Store persists content records keyed by canonical URL. Merge operations are
// atomic per record: each one is a single read-modify-write under a per-key
// critical section, recomputes status through the lattice, and upserts a
// partial record when no row exists yet. MergeMetadata followed by MergeBody
// must yield the same record as the reverse order.
type Store interface {
	GetByURL(ctx context.Context, url string) (Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Create(ctx context.Context, url string, kind Kind) error
	MergeMetadata(ctx context.Context, url string, patch MetadataPatch) (Record, error)
	MergeBody(ctx context.Context, url string, patch BodyPatch) (Record, error)
	MarkFailed(ctx context.Context, url string) (Record, error)
}

// MetadataPatch carries the metadata half of a record. Exactly one of
// Article/Video is set, matching Kind.
type MetadataPatch struct {
	Kind    Kind
	Article *ArticleMetadata
	Video   *VideoMetadata
}

// BodyPatch carries the body half of a record. Summary is only meaningful for
// videos.
type BodyPatch struct {
	Kind    Kind
	Body    string
	Summary string
}

// DocumentCleaner returns the cleaned HTML body of a page.
type DocumentCleaner interface {
	CleanDocument(ctx context.Context, url string) (string, error)
}

// TranscriptFetcher returns the raw transcript for a video URL.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, url string) (string, error)
}

// TextRequest describes one model call.
type TextRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	LogKey       string
}

// TextGenerator produces free-form text and schema-shaped structured data.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	ExtractStructured(ctx context.Context, req TextRequest, out any) error
}

// PageMetadata is the auxiliary metadata a scraper recovers from a page.
type PageMetadata struct {
	Title      string
	OGImage    string
	Favicon    string
	UploadDate string
	Summary    string
}

// PageScraper fetches auxiliary page metadata the model does not reliably
// produce (og:image, favicon, upload date).
type PageScraper interface {
	ScrapePage(ctx context.Context, url string) (PageMetadata, error)
}

// Publisher pushes convergence events to an event bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// RunState is the lifecycle state of a retried task run.
type RunState string

// Run states reported by the retrier.
const (
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
	RunCanceled  RunState = "canceled"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	return s != RunRunning
}

// RunResult captures the terminal outcome of a run.
type RunResult struct {
	State RunState
	Err   error
}

// TaskFunc is one retryable unit of work. The retrier knows nothing about
// what it does; any non-nil error counts as a failed attempt.
type TaskFunc func(ctx context.Context) error

// RunOptions tunes a single run.
type RunOptions struct {
	// OnComplete is invoked exactly once when the run reaches a terminal
	// state. It must be idempotent with respect to sibling runs.
	OnComplete func(runID string, result RunResult)
}

// Retrier executes named tasks with bounded exponential-backoff retry. It
// operates purely on run identity and task invocation; it never inspects
// records or URLs.
type Retrier interface {
	Run(ctx context.Context, name string, task TaskFunc, opts RunOptions) (string, error)
	Cancel(runID string) bool
	Status(runID string) (RunResult, bool)
}
