package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/govharvest/bidsweep/internal/dates"
)

// Mode selects how a portal's pages are loaded.
type Mode string

const (
	// ModeStatic fetches plain HTML over HTTP.
	ModeStatic Mode = "static"
	// ModeHeadless renders the page in headless Chrome first.
	ModeHeadless Mode = "headless"
)

// RecencyField selects which normalized date the recency filter reads first.
// Whichever field is primary, the other is consulted when the primary is
// empty; a record with neither date falls to the site's RecencyPolicy.
type RecencyField string

const (
	RecencyPosted RecencyField = "posted"
	RecencyDue    RecencyField = "due"
)

// SiteConfig is the per-portal data table. Selector strings and URL templates
// are configuration, not code: adding a portal whose markup fits the listing
// model means adding an entry here, not writing a new adapter.
type SiteConfig struct {
	Name       string
	ListingURL string
	Mode       Mode

	// WaitSelector gates headless readiness. Empty means "body".
	WaitSelector string

	// RowSelector locates listing entries. The remaining selectors are
	// evaluated inside each row and are all optional.
	RowSelector        string
	TitleSelector      string
	LinkSelector       string
	PostedDateSelector string
	DueDateSelector    string
	StatusSelector     string

	// EmbeddedProjects marks portals that ship their listing as a JS state
	// blob; rows without anchor links are resolved to detail URLs through
	// DetailURLTemplate (fmt verb %d for the project id).
	EmbeddedProjects  bool
	DetailURLTemplate string

	// RecencyField and RecencyPolicy are explicit per-site choices, never
	// silent defaults. FailOpen keeps bids whose dates cannot be parsed.
	RecencyField  RecencyField
	RecencyPolicy dates.Policy

	MaxSummaryLen      int
	MaxChallengeCycles int
}

// Validate checks the config for entries that would make a run misbehave.
func (c SiteConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("site: name must not be empty")
	}
	if !strings.HasPrefix(c.ListingURL, "http://") && !strings.HasPrefix(c.ListingURL, "https://") {
		return fmt.Errorf("site %s: listing url %q is not absolute", c.Name, c.ListingURL)
	}
	switch c.Mode {
	case ModeStatic, ModeHeadless:
	default:
		return fmt.Errorf("site %s: unknown mode %q", c.Name, c.Mode)
	}
	if strings.TrimSpace(c.RowSelector) == "" {
		return fmt.Errorf("site %s: row selector must not be empty", c.Name)
	}
	if c.EmbeddedProjects {
		if c.DetailURLTemplate == "" {
			return fmt.Errorf("site %s: embedded projects require a detail url template", c.Name)
		}
		if !strings.Contains(c.DetailURLTemplate, "%d") {
			return fmt.Errorf("site %s: detail url template %q has no %%d verb", c.Name, c.DetailURLTemplate)
		}
	}
	switch c.RecencyField {
	case RecencyPosted, RecencyDue:
	default:
		return fmt.Errorf("site %s: unknown recency field %q", c.Name, c.RecencyField)
	}
	return nil
}
