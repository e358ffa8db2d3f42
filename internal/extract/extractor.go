package extract

import (
	"bytes"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
)

// Extractor turns a fetched detail page into a DetailRecord. Field lookup is
// two-phase: every table on the page is scanned independently first (a field
// found in any table is accepted, first table wins), then the full page text
// is used as a fallback for fields no table yielded. Absence of a field is
// not an error; only markup that cannot be processed at all sets ErrorReason.
type Extractor struct {
	rules     RuleSet
	converter *md.Converter
	logger    *zap.Logger
}

// New builds an Extractor for the given rule set.
func New(rules RuleSet, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	conv := md.NewConverter("", true, nil)
	return &Extractor{rules: rules, converter: conv, logger: logger}
}

// Extract processes one detail page.
func (e *Extractor) Extract(page bid.Page) bid.DetailRecord {
	rec := bid.DetailRecord{SourceURL: page.URL}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		rec.ErrorReason = "unparseable markup: " + err.Error()
		return rec
	}

	// Chrome/navigation furniture pollutes both the summary and the
	// pattern scan.
	doc.Find("script, style, nav, header, footer").Remove()

	tableTexts := e.tableTexts(doc)
	fullText := normalizeText(doc.Text())

	rec.Title = e.lookup(e.rules.Title, tableTexts, fullText)
	rec.BidNumber = e.lookup(e.rules.BidNumber, tableTexts, fullText)
	rec.PostedDateRaw = e.lookup(e.rules.PostedDate, tableTexts, fullText)
	rec.DueDateRaw = e.lookup(e.rules.DueDate, tableTexts, fullText)
	rec.StatusText = e.lookup(e.rules.Status, tableTexts, fullText)
	rec.SummaryText = e.summary(page, fullText)
	return rec
}

// lookup applies the rule list to each table text in document order, then to
// the full page text.
func (e *Extractor) lookup(rules FieldRules, tableTexts []string, fullText string) string {
	if len(rules) == 0 {
		return ""
	}
	for _, text := range tableTexts {
		if v, ok := rules.Apply(text); ok {
			return v
		}
	}
	if v, ok := rules.Apply(fullText); ok {
		return v
	}
	return ""
}

func (e *Extractor) tableTexts(doc *goquery.Document) []string {
	var texts []string
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		if text := normalizeText(sel.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts
}

// summary renders the page body as readable text. Markdown conversion keeps
// list and heading structure that plain text extraction flattens; when the
// converter chokes on a page the normalized text is good enough.
func (e *Extractor) summary(page bid.Page, fallback string) string {
	out, err := e.converter.ConvertString(string(page.Body))
	if err != nil || strings.TrimSpace(out) == "" {
		if err != nil {
			e.logger.Debug("markdown conversion failed, using plain text",
				zap.String("url", page.URL), zap.Error(err))
		}
		return fallback
	}
	return strings.TrimSpace(out)
}

// normalizeText collapses runs of blank lines and trims each line, matching
// what the pattern rules expect ("Label:\n value" becomes matchable).
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
