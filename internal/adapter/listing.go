package adapter

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/govharvest/bidsweep/internal/bid"
)

// ParseListing extracts RawListingRow entries from a loaded listing page.
// Rows yielding neither a title nor a link are dropped: header rows, filler
// rows, and "no current bids" placeholders all look like that.
func ParseListing(page bid.Page, cfg SiteConfig) ([]bid.RawListingRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", page.URL, err)
	}

	base := page.FinalURL
	if base == "" {
		base = page.URL
	}

	var rows []bid.RawListingRow
	doc.Find(cfg.RowSelector).Each(func(_ int, sel *goquery.Selection) {
		row := parseRow(sel, cfg, base)
		if row.Title == "" && row.DetailLink == "" {
			return
		}
		rows = append(rows, row)
	})
	return rows, nil
}

func parseRow(sel *goquery.Selection, cfg SiteConfig, base string) bid.RawListingRow {
	row := bid.RawListingRow{}

	// Header rows carry th cells only; the whole-row-text fallback below
	// would otherwise turn them into phantom listings.
	if sel.Find("th").Length() > 0 && sel.Find("td").Length() == 0 {
		return row
	}

	linkSel := cfg.LinkSelector
	if linkSel == "" {
		linkSel = "a"
	}
	link := sel.Find(linkSel).First()
	if href, ok := link.Attr("href"); ok {
		row.DetailLink = AbsolutizeURL(base, href)
	}

	if cfg.TitleSelector != "" {
		row.Title = cleanCell(sel.Find(cfg.TitleSelector).First().Text())
	}
	if row.Title == "" {
		row.Title = cleanCell(link.Text())
	}

	sel.Find("td").Each(func(_ int, td *goquery.Selection) {
		row.Cells = append(row.Cells, cleanCell(td.Text()))
	})
	if len(row.Cells) == 0 {
		row.Cells = []string{cleanCell(sel.Text())}
	}
	if row.Title == "" && len(row.Cells) > 0 {
		row.Title = row.Cells[0]
	}

	if cfg.PostedDateSelector != "" {
		row.PostedDateText = cleanCell(sel.Find(cfg.PostedDateSelector).First().Text())
	}
	if cfg.DueDateSelector != "" {
		row.DueDateText = cleanCell(sel.Find(cfg.DueDateSelector).First().Text())
	}
	if cfg.StatusSelector != "" {
		row.StatusText = cleanCell(sel.Find(cfg.StatusSelector).First().Text())
	}
	return row
}

// AbsolutizeURL resolves href against the page it was found on. Anchors and
// javascript pseudo-links resolve to empty: they are not detail pages.
func AbsolutizeURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
