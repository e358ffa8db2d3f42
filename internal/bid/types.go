// Package bid defines the core types shared across the ingestion pipeline.
package bid

import (
	"time"
)

// RawListingRow is one entry parsed from a portal's listing view. It carries
// free-form text exactly as scraped; nothing is parsed or validated yet.
type RawListingRow struct {
	Title          string
	DetailLink     string // empty means no detail page exists for this row
	StatusText     string
	PostedDateText string
	DueDateText    string
	// Cells holds the full row text in column order for portals whose
	// listing layout does not map cleanly onto the named fields.
	Cells []string
}

// DetailRecord is the structured extraction from a single detail page.
// ErrorReason is mutually exclusive with the content fields: when set, the
// page could not be processed at all.
type DetailRecord struct {
	SourceURL     string
	Title         string
	SummaryText   string
	PostedDateRaw string
	DueDateRaw    string
	BidNumber     string
	StatusText    string
	ErrorReason   string
}

// Failed reports whether extraction failed outright.
func (d DetailRecord) Failed() bool {
	return d.ErrorReason != ""
}

// Record is the canonical five-field bid record that crosses the system
// boundary. ProjectName and Link are required; dates are ISO (YYYY-MM-DD)
// or empty, never a partially parsed string.
type Record struct {
	ProjectName   string
	Summary       string
	PublishedDate string
	DueDate       string
	Link          string
}

// Publishable reports whether the record satisfies the sink invariant:
// non-empty ProjectName and Link.
func (r Record) Publishable() bool {
	return r.ProjectName != "" && r.Link != ""
}

// CSVHeader is the exact column order downstream consumers depend on.
var CSVHeader = []string{"Project Name", "Summary", "Published Date", "Due Date", "Link"}

// CSVRow renders the record in CSVHeader order.
func (r Record) CSVRow() []string {
	return []string{r.ProjectName, r.Summary, r.PublishedDate, r.DueDate, r.Link}
}

// SiteResult summarizes one successfully scraped site within an adapter run.
type SiteResult struct {
	Name  string
	URL   string
	Count int
}

// PageFailure records one URL that could not be processed, with the reason.
type PageFailure struct {
	URL    string
	Reason string
}

// SourceStats accumulates per-adapter counters. An adapter owns and mutates
// its own SourceStats during a run; the orchestrator only merges afterwards.
type SourceStats struct {
	Source          string
	SitesAttempted  int
	SitesSucceeded  int
	PagesAttempted  int
	PagesFailed     int
	PagesFiltered   int
	SuccessfulSites []SiteResult
	FailedPages     []PageFailure
	SkippedSites    []PageFailure
}

// NewSourceStats returns stats scoped to the named source.
func NewSourceStats(source string) SourceStats {
	return SourceStats{Source: source}
}

// RecordSiteSuccess marks one site scraped successfully with count records.
func (s *SourceStats) RecordSiteSuccess(name, url string, count int) {
	s.SitesSucceeded++
	s.SuccessfulSites = append(s.SuccessfulSites, SiteResult{Name: name, URL: url, Count: count})
}

// RecordPageFailure records a detail page that failed.
func (s *SourceStats) RecordPageFailure(url, reason string) {
	s.PagesFailed++
	s.FailedPages = append(s.FailedPages, PageFailure{URL: url, Reason: reason})
}

// RecordSkippedSite records a site that was skipped entirely.
func (s *SourceStats) RecordSkippedSite(url, reason string) {
	s.SkippedSites = append(s.SkippedSites, PageFailure{URL: url, Reason: reason})
}

// Merge folds other into s without mutating other. Used by the orchestrator
// after each adapter returns.
func (s *SourceStats) Merge(other SourceStats) {
	s.SitesAttempted += other.SitesAttempted
	s.SitesSucceeded += other.SitesSucceeded
	s.PagesAttempted += other.PagesAttempted
	s.PagesFailed += other.PagesFailed
	s.PagesFiltered += other.PagesFiltered
	s.SuccessfulSites = append(s.SuccessfulSites, other.SuccessfulSites...)
	s.FailedPages = append(s.FailedPages, other.FailedPages...)
	s.SkippedSites = append(s.SkippedSites, other.SkippedSites...)
}

// FailedURLs returns every failed or skipped URL, flattened for the failure
// log. Order follows insertion order: failed pages first, then skipped sites.
func (s SourceStats) FailedURLs() []string {
	urls := make([]string, 0, len(s.FailedPages)+len(s.SkippedSites))
	for _, p := range s.FailedPages {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	for _, p := range s.SkippedSites {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// Page is a fetched page snapshot handed to extraction and detection.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	FetchedAt  time.Time
}

// Text returns the body as a string. Convenience for pattern matching.
func (p Page) Text() string {
	return string(p.Body)
}
