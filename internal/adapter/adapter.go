// Package adapter implements the per-portal scraping contract. Every portal,
// whatever its markup or rendering model, is driven by the same parameterized
// Portal type configured with a SiteConfig data table; the orchestrator only
// ever sees the Source interface.
package adapter

import (
	"context"
	"time"

	"github.com/govharvest/bidsweep/internal/bid"
)

// Source is the uniform per-portal entry point. Run scrapes one portal and
// returns its canonical records plus the stats it accumulated. A non-nil
// error means the listing itself could not be loaded and the result set is
// empty; row-level failures never surface here, they live in the stats.
type Source interface {
	Name() string
	Run(ctx context.Context, cutoff time.Time) ([]bid.Record, bid.SourceStats, error)
}

// HeadlessLoader renders a page in a browser and waits for a readiness
// selector. Satisfied by fetch.HeadlessLoader.
type HeadlessLoader interface {
	Load(ctx context.Context, rawURL, waitSelector string) (bid.Page, error)
}
