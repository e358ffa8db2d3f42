package adapter

import "github.com/govharvest/bidsweep/internal/dates"

// Sites returns the configured portal roster in run order. Order is fixed and
// meaningful: sources always run in this sequence.
//
// Per-site recency choices are deliberate, documented here rather than
// defaulted: CivicEngage-style portals publish reliable posted dates, so
// those filter on posted; portals that only surface a closing date filter on
// due. FailOpen is the norm because dropping a live bid costs more than
// keeping a stale one.
func Sites() []SiteConfig {
	return []SiteConfig{
		{
			Name:               "artesia",
			ListingURL:         "https://www.cityofartesia.us/Bids.aspx",
			Mode:               ModeStatic,
			RowSelector:        "table.listtable tr",
			LinkSelector:       "td a[href*='bid']",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
		{
			Name:               "inglewood",
			ListingURL:         "https://www.cityofinglewood.org/Bids.aspx",
			Mode:               ModeStatic,
			RowSelector:        "table.listtable tr",
			LinkSelector:       "td a[href*='bid']",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
		{
			Name:          "bell-gardens",
			ListingURL:    "https://www.bellgardens.org/i-want-to/view-bids-rfps/rfps-and-bids",
			Mode:          ModeStatic,
			RowSelector:   "div.bid-listing article, table tbody tr",
			RecencyField:  RecencyDue,
			RecencyPolicy: dates.FailOpen,
		},
		{
			Name:          "compton",
			ListingURL:    "https://www.comptoncity.org/departments/city-clerk/rfps-and-bids",
			Mode:          ModeStatic,
			RowSelector:   "div.content_area table tr",
			RecencyField:  RecencyDue,
			RecencyPolicy: dates.FailOpen,
		},
		{
			Name:          "el-segundo",
			ListingURL:    "https://www.elsegundo.org/government/departments/city-clerk/bid-rfp",
			Mode:          ModeStatic,
			RowSelector:   "div.content_area table tr",
			RecencyField:  RecencyDue,
			RecencyPolicy: dates.FailOpen,
		},
		{
			Name:          "lomita",
			ListingURL:    "https://lomitacity.com/current-bids-rfps/",
			Mode:          ModeStatic,
			RowSelector:   "article .entry-content li",
			RecencyField:  RecencyDue,
			RecencyPolicy: dates.FailOpen,
		},
		{
			Name:          "paramount",
			ListingURL:    "https://www.paramountcity.gov/services/bid-opportunities/",
			Mode:          ModeStatic,
			RowSelector:   "main table tr",
			RecencyField:  RecencyDue,
			RecencyPolicy: dates.FailOpen,
		},
		{
			Name:               "calabasas",
			ListingURL:         "https://www.cityofcalabasas.com/services/public-notices",
			Mode:               ModeHeadless,
			WaitSelector:       "div.public-notice-list",
			RowSelector:        "div.public-notice-list .notice-row",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailClosed,
			MaxChallengeCycles: 3,
		},
		{
			Name:               "monterey-park",
			ListingURL:         "https://qcpi.questcdn.com/cdn/posting/?projType=all&provider=6486888&group=6486888",
			Mode:               ModeHeadless,
			WaitSelector:       "table#posting-table",
			RowSelector:        "table#posting-table tbody tr",
			RecencyField:       RecencyDue,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
		{
			Name:               "santa-clarita-bidnet",
			ListingURL:         "https://www.bidnetdirect.com/california/cityofsantaclarita",
			Mode:               ModeHeadless,
			WaitSelector:       "div.solicitations-container",
			RowSelector:        "div.solicitations-container .solicitation-row",
			TitleSelector:      "a.solicitation-link",
			LinkSelector:       "a.solicitation-link",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 5,
		},
		{
			// PlanetBids vendor portals render the summary table
			// client-side and challenge aggressively; the filter runs on
			// the posting date the table exposes in its first column.
			Name:               "torrance-planetbids",
			ListingURL:         "https://vendors.planetbids.com/portal/47426/bo/bo-search",
			Mode:               ModeHeadless,
			WaitSelector:       "table.pb-datatable.data",
			RowSelector:        "table.pb-datatable.data tbody tr",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 5,
		},
		{
			Name:               "earc-planroom",
			ListingURL:         "https://customer.e-arc.com/arcEOC/Secures/PWELL_PrivateList.aspx?PrjType=pub",
			Mode:               ModeHeadless,
			WaitSelector:       "table#GridViewProjects",
			RowSelector:        "table#GridViewProjects tr",
			RecencyField:       RecencyDue,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
		{
			// OpenGov portals ship listings as an embedded state blob;
			// detail URLs are reconstructed from matched project ids.
			Name:               "san-fernando",
			ListingURL:         "https://procurement.opengov.com/portal/ci-san-fernando-ca",
			Mode:               ModeHeadless,
			WaitSelector:       "div[class*='project-list']",
			RowSelector:        "div[class*='project-list'] [class*='project-card']",
			EmbeddedProjects:   true,
			DetailURLTemplate:  "https://procurement.opengov.com/portal/ci-san-fernando-ca/projects/%d",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
		{
			Name:               "san-gabriel",
			ListingURL:         "https://procurement.opengov.com/portal/sangabrielcity",
			Mode:               ModeHeadless,
			WaitSelector:       "div[class*='project-list']",
			RowSelector:        "div[class*='project-list'] [class*='project-card']",
			EmbeddedProjects:   true,
			DetailURLTemplate:  "https://procurement.opengov.com/portal/sangabrielcity/projects/%d",
			RecencyField:       RecencyPosted,
			RecencyPolicy:      dates.FailOpen,
			MaxChallengeCycles: 3,
		},
	}
}
