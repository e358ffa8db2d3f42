package adapter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/govharvest/bidsweep/internal/bid"
	"github.com/govharvest/bidsweep/internal/dates"
)

func testSite() SiteConfig {
	return SiteConfig{
		Name:          "testville",
		ListingURL:    "https://testville.gov/bids",
		Mode:          ModeStatic,
		RowSelector:   "table tr",
		RecencyField:  RecencyPosted,
		RecencyPolicy: dates.FailOpen,
	}
}

const listingHTML = `<html><body><table>
<tr><th>Project</th><th>Posted</th></tr>
<tr><td><a href="/bid/1">Sidewalk Repair</a></td><td>10/01/2025</td></tr>
<tr><td><a href="https://other.gov/bid/2">Well Rehab</a></td><td>10/02/2025</td></tr>
<tr><td>Slurry Seal (walk-in only)</td><td>10/03/2025</td></tr>
<tr><td></td><td></td></tr>
</table></body></html>`

func TestParseListing(t *testing.T) {
	t.Parallel()
	page := bid.Page{URL: "https://testville.gov/bids", Body: []byte(listingHTML)}
	rows, err := ParseListing(page, testSite())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, "Sidewalk Repair", rows[0].Title)
	require.Equal(t, "https://testville.gov/bid/1", rows[0].DetailLink)
	require.Equal(t, []string{"Sidewalk Repair", "10/01/2025"}, rows[0].Cells)

	// Absolute links pass through untouched.
	require.Equal(t, "https://other.gov/bid/2", rows[1].DetailLink)

	// Rows without links still surface, title taken from the first cell.
	require.Equal(t, "Slurry Seal (walk-in only)", rows[2].Title)
	require.Empty(t, rows[2].DetailLink)
}

func TestParseListing_DateSelectors(t *testing.T) {
	t.Parallel()
	cfg := testSite()
	cfg.PostedDateSelector = "td.posted"
	cfg.DueDateSelector = "td.due"
	page := bid.Page{URL: "https://testville.gov/bids", Body: []byte(`<html><body><table>
<tr><td><a href="/b/1">Paving</a></td><td class="posted">10/01/2025</td><td class="due">11/01/2025</td></tr>
</table></body></html>`)}

	rows, err := ParseListing(page, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "10/01/2025", rows[0].PostedDateText)
	require.Equal(t, "11/01/2025", rows[0].DueDateText)
}

func TestAbsolutizeURL(t *testing.T) {
	t.Parallel()
	base := "https://testville.gov/bids/list"
	require.Equal(t, "https://testville.gov/bid/1", AbsolutizeURL(base, "/bid/1"))
	require.Equal(t, "https://testville.gov/bids/detail?id=2", AbsolutizeURL(base, "detail?id=2"))
	require.Equal(t, "https://other.gov/x", AbsolutizeURL(base, "https://other.gov/x"))
	require.Empty(t, AbsolutizeURL(base, "#top"))
	require.Empty(t, AbsolutizeURL(base, "javascript:void(0)"))
	require.Empty(t, AbsolutizeURL(base, ""))
}

func TestSiteConfigValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, testSite().Validate())

	cfg := testSite()
	cfg.ListingURL = "ftp://x"
	require.Error(t, cfg.Validate())

	cfg = testSite()
	cfg.Mode = "browser"
	require.Error(t, cfg.Validate())

	cfg = testSite()
	cfg.EmbeddedProjects = true
	require.Error(t, cfg.Validate()) // template missing
	cfg.DetailURLTemplate = "https://x/projects/%d"
	require.NoError(t, cfg.Validate())
}

// Every registry entry must validate; a bad data-table edit should fail here,
// not at runtime.
func TestSitesRegistryValid(t *testing.T) {
	t.Parallel()
	sites := Sites()
	require.NotEmpty(t, sites)
	seen := map[string]bool{}
	byName := map[string]SiteConfig{}
	for _, s := range sites {
		require.NoError(t, s.Validate(), s.Name)
		require.False(t, seen[s.Name], "duplicate site name %s", s.Name)
		seen[s.Name] = true
		byName[s.Name] = s
	}

	// PlanetBids renders client-side and challenges hard; the entry has to
	// run headless, wait on the summary table, and carry extra cycles.
	pb, ok := byName["torrance-planetbids"]
	require.True(t, ok)
	require.Equal(t, ModeHeadless, pb.Mode)
	require.Contains(t, pb.ListingURL, "vendors.planetbids.com/portal/")
	require.Equal(t, "table.pb-datatable.data", pb.WaitSelector)
	require.Equal(t, RecencyPosted, pb.RecencyField)
	require.Greater(t, pb.MaxChallengeCycles, 3)
}
