// Package report aggregates per-source stats into the run summary. Pure
// accumulation and formatting; nothing here affects control flow.
package report

import (
	"fmt"
	"strings"

	"github.com/govharvest/bidsweep/internal/bid"
)

// DefaultPreviewLimit bounds how many failure lines the rendered summary
// shows before truncating.
const DefaultPreviewLimit = 10

// Summary is the aggregate of one full run.
type Summary struct {
	PerSource []bid.SourceStats
	Combined  bid.SourceStats
	Records   int
}

// Aggregate merges the per-source stats without mutating them.
func Aggregate(perSource []bid.SourceStats, records int) Summary {
	combined := bid.NewSourceStats("all")
	for _, s := range perSource {
		combined.Merge(s)
	}
	return Summary{PerSource: perSource, Combined: combined, Records: records}
}

// FailedURLs flattens every failed or skipped URL across all sources, in
// source order, for the failure log and manual follow-up.
func (s Summary) FailedURLs() []string {
	var urls []string
	for _, src := range s.PerSource {
		urls = append(urls, src.FailedURLs()...)
	}
	return urls
}

// Render formats the human-readable run summary: successful sources first,
// then failures truncated to previewLimit with an explicit remainder count.
func Render(s Summary, previewLimit int) string {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run summary: %d/%d sources succeeded, %d records collected\n",
		s.Combined.SitesSucceeded, s.Combined.SitesAttempted, s.Records)

	if len(s.Combined.SuccessfulSites) > 0 {
		b.WriteString("\nSuccessful sources:\n")
		for _, site := range s.Combined.SuccessfulSites {
			fmt.Fprintf(&b, "  %s (%s): %d records\n", site.Name, site.URL, site.Count)
		}
	}

	writeFailures(&b, "Failed pages", s.Combined.FailedPages, previewLimit)
	writeFailures(&b, "Skipped sites", s.Combined.SkippedSites, previewLimit)
	return b.String()
}

func writeFailures(b *strings.Builder, label string, failures []bid.PageFailure, limit int) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", label, len(failures))
	shown := failures
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, f := range shown {
		fmt.Fprintf(b, "  %s: %s\n", f.URL, f.Reason)
	}
	if rest := len(failures) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ...and %d more\n", rest)
	}
}
