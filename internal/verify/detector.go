package verify

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/govharvest/bidsweep/internal/bid"
)

// Detection names the layer and signal that flagged a page.
type Detection struct {
	Layer  string // "widget", "phrase", or "spinner"
	Signal string
}

// Detector inspects a fetched page for verification interstitials. Three
// independent layers are checked and any single hit suffices: widget
// selectors catch embedded challenge frames, phrases catch interstitial copy,
// and spinner markers catch the in-progress "checking" page that carries
// neither a widget nor the final copy.
type Detector struct {
	widgetSelectors []string
	phrases         [][]byte
	spinnerMarkers  [][]byte
}

// NewDetector builds a detector from raw signal lists. Empty entries are
// dropped; phrase and spinner matching is case-insensitive.
func NewDetector(widgetSelectors, phrases, spinnerMarkers []string) *Detector {
	return &Detector{
		widgetSelectors: compactStrings(widgetSelectors),
		phrases:         lowerBytes(phrases),
		spinnerMarkers:  lowerBytes(spinnerMarkers),
	}
}

// NewDefaultDetector carries the signal lists observed across the configured
// portals. Site configs can still swap in a narrower detector.
func NewDefaultDetector() *Detector {
	return NewDetector(
		[]string{
			`iframe[src*="challenges.cloudflare.com"]`,
			`iframe[src*="recaptcha"]`,
			`div.g-recaptcha`,
			`div.h-captcha`,
			`#challenge-form`,
			`#challenge-stage`,
		},
		[]string{
			"verifying you are human",
			"verify you are human",
			"checking your browser",
			"just a moment",
			"please complete the security check",
			"enable javascript and cookies to continue",
			"unusual traffic from your computer network",
		},
		[]string{
			"cf-spinner",
			"challenge-spinner",
			"lds-ring",
			"main-wrapper\" role=\"main",
		},
	)
}

// Detect reports whether the page is a verification interstitial rather than
// portal content.
func (d *Detector) Detect(page bid.Page) (Detection, bool) {
	if d == nil || len(page.Body) == 0 {
		return Detection{}, false
	}
	if sel, ok := d.matchWidget(page.Body); ok {
		return Detection{Layer: "widget", Signal: sel}, true
	}
	lowerBody := bytes.ToLower(page.Body)
	for _, p := range d.phrases {
		if bytes.Contains(lowerBody, p) {
			return Detection{Layer: "phrase", Signal: string(p)}, true
		}
	}
	for _, m := range d.spinnerMarkers {
		if bytes.Contains(lowerBody, m) {
			return Detection{Layer: "spinner", Signal: string(m)}, true
		}
	}
	return Detection{}, false
}

func (d *Detector) matchWidget(body []byte) (string, bool) {
	if len(d.widgetSelectors) == 0 {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// Unparseable markup is an extraction problem, not a challenge.
		return "", false
	}
	for _, sel := range d.widgetSelectors {
		if doc.Find(sel).Length() > 0 {
			return sel, true
		}
	}
	return "", false
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lowerBytes(in []string) [][]byte {
	out := make([][]byte, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, bytes.ToLower([]byte(s)))
	}
	return out
}
