// Package normalize maps scraped listing rows and detail extractions onto the
// canonical five-field record. All portal-specific variance stops here: every
// adapter produces RawListingRow/DetailRecord pairs, and this package decides
// field precedence, date formatting, and fallbacks uniformly.
package normalize

import (
	"strings"
	"time"

	"github.com/govharvest/bidsweep/internal/bid"
	"github.com/govharvest/bidsweep/internal/dates"
)

const (
	// DefaultMaxSummaryLen bounds summaries before they hit downstream
	// sinks with cell-size limits.
	DefaultMaxSummaryLen = 1000

	unnamedProject = "Unnamed Project"
	noDescription  = "No description available"
	ellipsis       = "..."
)

// Options controls normalization for one site.
type Options struct {
	// MaxSummaryLen caps the summary in runes; zero means
	// DefaultMaxSummaryLen.
	MaxSummaryLen int
	// FallbackLink is used when neither the listing row nor the detail
	// record carries a URL, typically the site's listing page.
	FallbackLink string
	// Now anchors yearless dates. Zero means time.Now().
	Now time.Time
}

func (o Options) maxSummary() int {
	if o.MaxSummaryLen > 0 {
		return o.MaxSummaryLen
	}
	return DefaultMaxSummaryLen
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Normalize resolves one row into a canonical record. Precedence per field:
// detail extraction first, listing row second, then the documented fallback
// constant. Dates that cannot be parsed become empty strings rather than
// passing raw text downstream.
func Normalize(raw bid.RawListingRow, detail bid.DetailRecord, opts Options) bid.Record {
	ref := opts.now()
	return bid.Record{
		ProjectName:   resolveName(raw, detail),
		Summary:       Truncate(resolveSummary(raw, detail), opts.maxSummary()),
		PublishedDate: dates.ToISO(firstNonEmpty(detail.PostedDateRaw, raw.PostedDateText), ref),
		DueDate:       dates.ToISO(firstNonEmpty(detail.DueDateRaw, raw.DueDateText), ref),
		Link:          firstNonEmpty(raw.DetailLink, detail.SourceURL, opts.FallbackLink),
	}
}

func resolveName(raw bid.RawListingRow, detail bid.DetailRecord) string {
	if name := strings.TrimSpace(detail.Title); name != "" {
		return name
	}
	if name := strings.TrimSpace(raw.Title); name != "" {
		return name
	}
	return unnamedProject
}

func resolveSummary(raw bid.RawListingRow, detail bid.DetailRecord) string {
	if s := strings.TrimSpace(detail.SummaryText); s != "" {
		return s
	}
	if s := strings.TrimSpace(strings.Join(raw.Cells, " ")); s != "" {
		return s
	}
	if s := strings.TrimSpace(raw.Title); s != "" {
		return s
	}
	return noDescription
}

// Truncate cuts s to max runes and appends an ellipsis marker when anything
// was removed.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
