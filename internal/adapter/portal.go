package adapter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
	"github.com/govharvest/bidsweep/internal/dates"
	"github.com/govharvest/bidsweep/internal/extract"
	"github.com/govharvest/bidsweep/internal/hash/sha256"
	"github.com/govharvest/bidsweep/internal/normalize"
	"github.com/govharvest/bidsweep/internal/verify"
)

// Deps carries the collaborators a Portal runs on. Static is required;
// Headless may be nil, in which case headless-mode sites fail their listing
// load and are skipped.
type Deps struct {
	Static    bid.Fetcher
	Headless  HeadlessLoader
	Detector  *verify.Detector
	Resolver  verify.Resolver
	Extractor *extract.Extractor
	Clock     bid.Clock
	Archive   bid.ArchiveStore
	Logger    *zap.Logger
}

// Portal scrapes one configured site. All portal-to-portal variance lives in
// the SiteConfig; the run algorithm below is shared.
type Portal struct {
	cfg  SiteConfig
	deps Deps
}

// NewPortal validates the config and wires a portal.
func NewPortal(cfg SiteConfig, deps Deps) (*Portal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Static == nil {
		return nil, fmt.Errorf("site %s: static fetcher is required", cfg.Name)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.DefaultRuleSet(), deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Portal{cfg: cfg, deps: deps}, nil
}

// Name returns the configured site name.
func (p *Portal) Name() string { return p.cfg.Name }

// Run scrapes the portal. Listing-load failure aborts this source only and
// returns an error; every row-level failure is recorded in stats and
// iteration continues. Rows are processed strictly in listing order.
func (p *Portal) Run(ctx context.Context, cutoff time.Time) ([]bid.Record, bid.SourceStats, error) {
	stats := bid.NewSourceStats(p.cfg.Name)
	stats.SitesAttempted = 1
	log := p.deps.Logger.With(zap.String("site", p.cfg.Name))

	gate := verify.NewGate(p.deps.Detector, p.deps.Resolver, p.cfg.MaxChallengeCycles, p.deps.Clock, log)

	listing, err := gate.Clear(ctx, p.cfg.ListingURL, p.loader(p.cfg.ListingURL))
	if err != nil {
		stats.RecordSkippedSite(p.cfg.ListingURL, err.Error())
		return nil, stats, fmt.Errorf("load listing %s: %w", p.cfg.ListingURL, err)
	}
	p.archive(ctx, "listing", listing, log)

	rows, err := ParseListing(listing, p.cfg)
	if err != nil {
		stats.RecordSkippedSite(p.cfg.ListingURL, err.Error())
		return nil, stats, err
	}
	if len(rows) == 0 {
		// A portal with no open bids is a successful empty run.
		log.Info("no listing rows found")
		stats.RecordSiteSuccess(p.cfg.Name, p.cfg.ListingURL, 0)
		return nil, stats, nil
	}

	var embedded []extract.EmbeddedProject
	if p.cfg.EmbeddedProjects {
		embedded = extract.ScanEmbeddedProjects(listing.Text())
		log.Debug("scanned embedded projects", zap.Int("count", len(embedded)))
	}

	var records []bid.Record
	for _, row := range rows {
		stats.PagesAttempted++
		rec, failure := p.processRow(ctx, gate, row, embedded, log)
		if failure != nil {
			stats.RecordPageFailure(failure.URL, failure.Reason)
			continue
		}
		if !p.recent(*rec, cutoff) {
			stats.PagesFiltered++
			log.Info("record outside recency window, dropped",
				zap.String("project", rec.ProjectName),
				zap.String("published", rec.PublishedDate),
				zap.String("due", rec.DueDate),
				zap.Time("cutoff", cutoff),
			)
			continue
		}
		records = append(records, *rec)
	}

	stats.RecordSiteSuccess(p.cfg.Name, p.cfg.ListingURL, len(records))
	log.Info("site scraped",
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
		zap.Int("filtered", stats.PagesFiltered),
		zap.Int("failed_pages", stats.PagesFailed),
	)
	return records, stats, nil
}

// processRow resolves one listing row to a canonical record. It never panics
// or returns an error type: a failure is a structured (url, reason) pair and
// the caller moves on.
func (p *Portal) processRow(ctx context.Context, gate *verify.Gate, row bid.RawListingRow, embedded []extract.EmbeddedProject, log *zap.Logger) (*bid.Record, *bid.PageFailure) {
	link := row.DetailLink
	if link == "" && p.cfg.EmbeddedProjects {
		if id, ok := extract.MatchProjectID(row.Title, embedded); ok {
			link = fmt.Sprintf(p.cfg.DetailURLTemplate, id)
		}
	}

	if link == "" {
		// Terminal listing-only case: the row itself is all this portal
		// exposes.
		rec := normalize.Normalize(row, bid.DetailRecord{}, p.normOpts())
		return &rec, nil
	}

	page, err := gate.Clear(ctx, link, p.loader(link))
	if err != nil {
		return nil, &bid.PageFailure{URL: link, Reason: err.Error()}
	}
	p.archive(ctx, "detail", page, log)

	detail := p.deps.Extractor.Extract(page)
	if detail.Failed() {
		return nil, &bid.PageFailure{URL: link, Reason: detail.ErrorReason}
	}

	rec := normalize.Normalize(row, detail, p.normOpts())
	if !rec.Publishable() {
		return nil, &bid.PageFailure{URL: link, Reason: "record missing project name or link"}
	}
	return &rec, nil
}

func (p *Portal) loader(rawURL string) verify.Loader {
	if p.cfg.Mode == ModeHeadless {
		return func(ctx context.Context) (bid.Page, error) {
			if p.deps.Headless == nil {
				return bid.Page{}, fmt.Errorf("site %s requires headless loading", p.cfg.Name)
			}
			return p.deps.Headless.Load(ctx, rawURL, p.cfg.WaitSelector)
		}
	}
	return func(ctx context.Context) (bid.Page, error) {
		return p.deps.Static.Fetch(ctx, rawURL)
	}
}

// recent applies the site's recency choice: the configured primary date
// field, falling back to the other when the primary is empty, then the
// site's fail-open/fail-closed policy when neither parses.
func (p *Portal) recent(rec bid.Record, cutoff time.Time) bool {
	primary, secondary := rec.PublishedDate, rec.DueDate
	if p.cfg.RecencyField == RecencyDue {
		primary, secondary = rec.DueDate, rec.PublishedDate
	}
	date := primary
	if date == "" {
		date = secondary
	}
	return dates.IsRecent(date, cutoff, p.cfg.RecencyPolicy)
}

func (p *Portal) normOpts() normalize.Options {
	opts := normalize.Options{
		MaxSummaryLen: p.cfg.MaxSummaryLen,
		FallbackLink:  p.cfg.ListingURL,
	}
	if p.deps.Clock != nil {
		opts.Now = p.deps.Clock.Now()
	}
	return opts
}

// archive stores the raw page for audit. Best-effort: archive failures are
// logged and never affect the run.
func (p *Portal) archive(ctx context.Context, kind string, page bid.Page, log *zap.Logger) {
	if p.deps.Archive == nil || len(page.Body) == 0 {
		return
	}
	ts := page.FetchedAt
	if ts.IsZero() && p.deps.Clock != nil {
		ts = p.deps.Clock.Now()
	}
	// Content hash in the name dedupes re-archived pages at a glance.
	digest, err := sha256.New().Hash(page.Body)
	if err != nil || len(digest) < 12 {
		digest = "nohash000000"
	}
	name := fmt.Sprintf("%s/%s-%s-%s.html",
		p.cfg.Name, kind, ts.UTC().Format("20060102T150405.000"), digest[:12])
	if err := p.deps.Archive.Save(ctx, name, page.Body); err != nil {
		log.Warn("archive write failed", zap.String("object", name), zap.Error(err))
	}
}
