package bid

import (
	"context"
	"time"
)

// Fetcher retrieves a page snapshot for a URL. Implementations may use a
// plain HTTP client or a headless browser; callers cannot tell the
// difference and must not depend on it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// BatchResult reports a sink publish outcome per record, not all-or-nothing.
type BatchResult struct {
	Succeeded []Record
	Failed    []Record
	Errors    []string
}

// Sink accepts canonical records. Implementations chunk internally when the
// downstream service limits batch sizes.
type Sink interface {
	Publish(ctx context.Context, records []Record) (BatchResult, error)
}

// Tag is the outcome of the relevance classification pass.
type Tag struct {
	Relevant   bool
	Confidence float64
	Rationale  string
}

// Classifier tags a record with domain relevance. A failing classifier must
// be treated as a not-relevant tag by callers, never as a fatal error.
type Classifier interface {
	Classify(ctx context.Context, record Record) (Tag, error)
}

// ArchiveStore persists raw page snapshots for later inspection.
type ArchiveStore interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
