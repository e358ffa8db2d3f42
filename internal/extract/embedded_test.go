package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const embeddedBlob = `<script>window.__data = {"govProjects":{"rows":[
{"id": 101, "title": "Library HVAC Replacement", "status": "open"},
{"id": 102, "title": "Park Restroom {Phase 2} Renovation", "status": "open"},
{"id": 103, "status": "open"},
{"id": 104, "title": "Annual Street Slurry Seal"}
]}};</script>`

func TestScanEmbeddedProjects(t *testing.T) {
	t.Parallel()
	projects := ScanEmbeddedProjects(embeddedBlob)
	require.Len(t, projects, 3)

	byID := map[int64]string{}
	for _, p := range projects {
		byID[p.ID] = p.Title
	}
	require.Equal(t, "Library HVAC Replacement", byID[101])
	// Braces inside string values must not derail bracket matching.
	require.Equal(t, "Park Restroom {Phase 2} Renovation", byID[102])
	require.Equal(t, "Annual Street Slurry Seal", byID[104])
	// id 103 has no title and is not a project object.
	require.NotContains(t, byID, int64(103))
}

func TestScanEmbeddedProjects_MalformedFallsBackToRegex(t *testing.T) {
	t.Parallel()
	// Trailing comma makes this invalid JSON; the field-level fallback
	// still recovers id and title.
	blob := `{"id": 7, "title": "Sewer Lining", "extra": [1,2,],}`
	projects := ScanEmbeddedProjects(blob)
	require.Len(t, projects, 1)
	require.Equal(t, int64(7), projects[0].ID)
	require.Equal(t, "Sewer Lining", projects[0].Title)
}

func TestMatchProjectID(t *testing.T) {
	t.Parallel()
	projects := []EmbeddedProject{
		{ID: 1, Title: "Library HVAC Replacement"},
		{ID: 2, Title: "Annual Street Slurry Seal Project FY 2025-26"},
	}

	id, ok := MatchProjectID("  library   hvac REPLACEMENT ", projects)
	require.True(t, ok)
	require.Equal(t, int64(1), id)

	// Truncated listing title matches by substring.
	id, ok = MatchProjectID("Annual Street Slurry Seal", projects)
	require.True(t, ok)
	require.Equal(t, int64(2), id)

	_, ok = MatchProjectID("Completely Different", projects)
	require.False(t, ok)
	_, ok = MatchProjectID("", projects)
	require.False(t, ok)
}
