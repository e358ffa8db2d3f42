package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/govharvest/bidsweep/internal/bid"
)

var ref = time.Date(2025, time.November, 6, 12, 0, 0, 0, time.UTC)

func TestNormalize_DetailFieldsWin(t *testing.T) {
	t.Parallel()
	raw := bid.RawListingRow{
		Title:          "Sidewalk Repair (listing)",
		DetailLink:     "https://example.gov/bid/17",
		PostedDateText: "10/02/2025",
		DueDateText:    "11/07/2025",
	}
	detail := bid.DetailRecord{
		SourceURL:     "https://example.gov/bid/17",
		Title:         "Citywide Sidewalk Repair",
		SummaryText:   "Full scope of work.",
		PostedDateRaw: "October 1, 2025",
		DueDateRaw:    "November 6, 2025",
	}
	rec := Normalize(raw, detail, Options{Now: ref})

	require.Equal(t, "Citywide Sidewalk Repair", rec.ProjectName)
	require.Equal(t, "Full scope of work.", rec.Summary)
	require.Equal(t, "2025-10-01", rec.PublishedDate)
	require.Equal(t, "2025-11-06", rec.DueDate)
	require.Equal(t, "https://example.gov/bid/17", rec.Link)
	require.True(t, rec.Publishable())
}

func TestNormalize_FallbackChain(t *testing.T) {
	t.Parallel()
	rec := Normalize(bid.RawListingRow{}, bid.DetailRecord{}, Options{
		Now:          ref,
		FallbackLink: "https://example.gov/bids",
	})
	require.Equal(t, "Unnamed Project", rec.ProjectName)
	require.Equal(t, "No description available", rec.Summary)
	require.Empty(t, rec.PublishedDate)
	require.Empty(t, rec.DueDate)
	require.Equal(t, "https://example.gov/bids", rec.Link)

	// Listing title backs both name and summary when nothing else exists.
	rec = Normalize(bid.RawListingRow{Title: "Well No. 4 Rehab"}, bid.DetailRecord{}, Options{Now: ref})
	require.Equal(t, "Well No. 4 Rehab", rec.ProjectName)
	require.Equal(t, "Well No. 4 Rehab", rec.Summary)
	require.False(t, rec.Publishable()) // no link anywhere
}

func TestNormalize_RowCellsBackSummary(t *testing.T) {
	t.Parallel()
	raw := bid.RawListingRow{
		Title: "Slurry Seal",
		Cells: []string{"Slurry Seal", "Open", "Due 11/07/2025"},
	}
	rec := Normalize(raw, bid.DetailRecord{}, Options{Now: ref})
	require.Equal(t, "Slurry Seal Open Due 11/07/2025", rec.Summary)
}

func TestNormalize_UnparseableDatesBecomeEmpty(t *testing.T) {
	t.Parallel()
	detail := bid.DetailRecord{PostedDateRaw: "see addendum", DueDateRaw: "TBD"}
	rec := Normalize(bid.RawListingRow{}, detail, Options{Now: ref})
	require.Empty(t, rec.PublishedDate)
	require.Empty(t, rec.DueDate)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", 1200)
	got := Truncate(long, DefaultMaxSummaryLen)
	require.Len(t, got, DefaultMaxSummaryLen+len("..."))
	require.True(t, strings.HasSuffix(got, "..."))

	// At or under the cap nothing changes.
	require.Equal(t, "short", Truncate("short", DefaultMaxSummaryLen))
	exact := strings.Repeat("b", DefaultMaxSummaryLen)
	require.Equal(t, exact, Truncate(exact, DefaultMaxSummaryLen))

	// Rune-counted, not byte-counted.
	require.Equal(t, "日本語"+"...", Truncate("日本語の要約", 3))
}

// Running a normalized record's fields back through normalization must not
// change them further.
func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()
	raw := bid.RawListingRow{Title: "Paving", DetailLink: "https://example.gov/1"}
	detail := bid.DetailRecord{SummaryText: strings.Repeat("x", 1500), DueDateRaw: "11/07/2025"}
	first := Normalize(raw, detail, Options{Now: ref})

	again := Normalize(
		bid.RawListingRow{Title: first.ProjectName, DetailLink: first.Link},
		bid.DetailRecord{SummaryText: first.Summary, DueDateRaw: first.DueDate, PostedDateRaw: first.PublishedDate},
		Options{Now: ref, MaxSummaryLen: len([]rune(first.Summary))},
	)
	require.Equal(t, first, again)
}
