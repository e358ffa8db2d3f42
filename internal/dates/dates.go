// Package dates parses the free-form date strings municipal portals emit and
// implements the recency cutoff applied to every scraped bid.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// Policy decides how the recency filter treats an empty or unparseable date.
// The choice is per-adapter and must be explicit in the site configuration:
// filtering out a live bid is usually worse than including a stale one, but
// a few portals list years of archives where fail-open would flood the run.
type Policy int

const (
	// FailOpen includes records whose date cannot be parsed.
	FailOpen Policy = iota
	// FailClosed excludes records whose date cannot be parsed.
	FailClosed
)

var (
	weekdayPrefix = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday),?\s*`)
	timeSuffix    = regexp.MustCompile(`(?i)\s+\d{1,2}:\d{2}\s*(a\.?m\.?|p\.?m\.?).*$`)
	atTimeSuffix  = regexp.MustCompile(`(?i)\s+at\s+.*$`)
	trailingComma = regexp.MustCompile(`,\s*$`)
	slashForm     = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	monthDayYear  = regexp.MustCompile(`(?i)^[a-z]+\s+\d{1,2},?\s+\d{4}$`)
	monthDayOnly  = regexp.MustCompile(`(?i)^[a-z]+\s+\d{1,2}$`)
	hasYear       = regexp.MustCompile(`\d{4}`)
)

// Clean strips weekday prefixes, time-of-day suffixes, and trailing
// punctuation, leaving only the calendar-date portion of the text.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = weekdayPrefix.ReplaceAllString(s, "")
	s = atTimeSuffix.ReplaceAllString(s, "")
	s = timeSuffix.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse interprets a portal date string as a calendar date. It accepts
// MM/DD/YYYY (optionally followed by a time and AM/PM marker), Month DD, YYYY
// (optionally prefixed by a weekday name), ISO YYYY-MM-DD, and a bare
// Month DD, which assumes the year of ref. The boolean is false when no form
// matches.
func Parse(s string, ref time.Time) (time.Time, bool) {
	clean := Clean(s)
	if clean == "" {
		return time.Time{}, false
	}

	switch {
	case slashForm.MatchString(clean):
		if t, err := time.Parse("1/2/2006", clean); err == nil {
			return t, true
		}
	case monthDayYear.MatchString(clean):
		normalized := strings.ReplaceAll(clean, ",", "")
		if t, err := time.Parse("January 2 2006", normalized); err == nil {
			return t, true
		}
	case monthDayOnly.MatchString(clean) && !hasYear.MatchString(clean):
		// Portals that omit the year always mean the current cycle.
		withYear := clean + " " + ref.Format("2006")
		if t, err := time.Parse("January 2 2006", withYear); err == nil {
			return t, true
		}
	}

	if t, err := time.Parse("2006-01-02", clean); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ToISO re-emits a portal date string as YYYY-MM-DD. Any parse failure yields
// the empty string rather than a partially normalized value.
func ToISO(s string, ref time.Time) string {
	t, ok := Parse(s, ref)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// IsRecent reports whether dateText falls on or after the cutoff calendar
// date. The boundary is inclusive: a date equal to cutoff is recent. Empty or
// unparseable input is decided by the policy.
func IsRecent(dateText string, cutoff time.Time, policy Policy) bool {
	t, ok := Parse(dateText, cutoff)
	if !ok {
		return policy == FailOpen
	}
	return !truncate(t).Before(truncate(cutoff))
}

// Cutoff computes the recency boundary as now minus the lookback window.
func Cutoff(now time.Time, lookbackDays int) time.Time {
	return truncate(now.AddDate(0, 0, -lookbackDays))
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
