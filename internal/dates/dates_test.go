package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ref = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestToISO_AcceptedForms(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"11/06/2025 2:00 PM", "2025-11-06"},
		{"November 6, 2025", "2025-11-06"},
		{"Thursday, November 6, 2025", "2025-11-06"},
		{"11/06/2025", "2025-11-06"},
		{"2025-11-06", "2025-11-06"},
		{"OCTOBER 23, 2025", "2025-10-23"},
		{"Monday, November 17, 2025 at 2:00 p.m.", "2025-11-17"},
		{"1/5/2025", "2025-01-05"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ToISO(tc.in, ref), "input %q", tc.in)
	}
}

func TestToISO_YearlessAssumesReferenceYear(t *testing.T) {
	t.Parallel()
	require.Equal(t, "2025-11-04", ToISO("November 4", ref))
}

func TestToISO_UnparseableYieldsEmpty(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "TBD", "see notice", "13/45/20"} {
		require.Empty(t, ToISO(in, ref), "input %q", in)
	}
}

func TestIsRecent_BoundaryInclusive(t *testing.T) {
	t.Parallel()
	cutoff := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, IsRecent("01/01/2025", cutoff, FailClosed))
	require.True(t, IsRecent("01/02/2025", cutoff, FailClosed))
	require.False(t, IsRecent("12/31/2024", cutoff, FailClosed))
}

func TestIsRecent_TimeOfDayDiscarded(t *testing.T) {
	t.Parallel()
	cutoff := time.Date(2025, time.November, 6, 23, 59, 0, 0, time.UTC)
	require.True(t, IsRecent("11/06/2025 2:00 PM", cutoff, FailClosed))
}

func TestIsRecent_PolicyDecidesUnparseable(t *testing.T) {
	t.Parallel()
	cutoff := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, IsRecent("", cutoff, FailOpen))
	require.False(t, IsRecent("", cutoff, FailClosed))
	require.True(t, IsRecent("no date listed", cutoff, FailOpen))
	require.False(t, IsRecent("no date listed", cutoff, FailClosed))
}

func TestCutoff(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.November, 6, 15, 4, 5, 0, time.UTC)
	require.Equal(t, time.Date(2025, time.September, 25, 0, 0, 0, 0, time.UTC), Cutoff(now, 42))
}
