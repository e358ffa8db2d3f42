// Package memory provides an in-memory Sink for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/govharvest/bidsweep/internal/bid"
)

// Sink records every published record in memory. FailAll makes Publish mark
// everything failed, for exercising error paths.
type Sink struct {
	mu      sync.Mutex
	records []bid.Record

	FailAll bool
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{}
}

// Publish stores publishable records and reports unpublishable ones failed.
func (s *Sink) Publish(_ context.Context, records []bid.Record) (bid.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result bid.BatchResult
	for _, rec := range records {
		if s.FailAll || !rec.Publishable() {
			result.Failed = append(result.Failed, rec)
			result.Errors = append(result.Errors, "rejected by memory sink")
			continue
		}
		s.records = append(s.records, rec)
		result.Succeeded = append(result.Succeeded, rec)
	}
	return result, nil
}

// Records returns a copy of everything published so far.
func (s *Sink) Records() []bid.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bid.Record, len(s.records))
	copy(out, s.records)
	return out
}
