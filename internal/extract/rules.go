// Package extract pulls structured bid fields out of detail-page markup
// using ordered pattern rules and best-effort embedded-data scanning.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is a single extraction pattern. The first capture group is the field
// value; patterns are matched case-insensitively.
type Rule struct {
	re *regexp.Regexp
}

// MustRule compiles a pattern, panicking on error. Rule tables are static
// configuration, so a bad pattern is a programming mistake.
func MustRule(pattern string) Rule {
	return Rule{re: regexp.MustCompile(`(?i)` + pattern)}
}

// Apply returns the first capture group of the first match in text.
func (r Rule) Apply(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	val := strings.TrimSpace(m[1])
	if val == "" {
		return "", false
	}
	return val, true
}

// FieldRules is an ordered rule list for one field. Order matters: more
// specific patterns come first so that a bare-date rule cannot swallow a
// substring of a richer "up to HH:MM, <date>" phrase. First match wins and
// later rules are not evaluated.
type FieldRules []Rule

// Apply evaluates the rules in order against text.
func (fr FieldRules) Apply(text string) (string, bool) {
	for _, r := range fr {
		if v, ok := r.Apply(text); ok {
			return v, true
		}
	}
	return "", false
}

// Rules compiles a pattern list into FieldRules.
func Rules(patterns ...string) FieldRules {
	out := make(FieldRules, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, MustRule(p))
	}
	return out
}

// RuleSet names the per-field rule lists a portal's detail pages need.
// Zero-value lists simply leave the field unset.
type RuleSet struct {
	Title      FieldRules
	BidNumber  FieldRules
	PostedDate FieldRules
	DueDate    FieldRules
	Status     FieldRules
}

// DefaultRuleSet covers the label conventions most CivicEngage-style city
// portals share. Portal configs override individual lists as needed.
func DefaultRuleSet() RuleSet {
	const monthDate = `([A-Za-z]+\s+\d{1,2},?\s*\d{4})`
	const slashDate = `(\d{1,2}/\d{1,2}/\d{4})`
	return RuleSet{
		Title:     Rules(`Bid Title:\s*([^\n]+)`, `Project Title:\s*([^\n]+)`),
		BidNumber: Rules(`Bid Number:\s*([^\n]+)`, `Bid No\.?:?\s*([^\n]+)`),
		PostedDate: Rules(
			`Publication\s+Date[:/]Time[:/]\s*`+monthDate,
			`Publication\s+Date[:/]Time[:/]\s*`+slashDate,
			`Publication\s+Date[:/]\s*`+monthDate,
			`Publication\s+Date[:/]\s*`+slashDate,
			`Posted\s+on:?\s*`+monthDate,
			`Posted\s+on:?\s*`+slashDate,
			`(?s)NOTICE IS HEREBY GIVEN\s+that.*?on\s+`+monthDate,
		),
		DueDate: Rules(
			`up to\s+\d{1,2}:\d{2}\s*[AP]\.?M\.?,?\s*`+monthDate,
			`until\s+\d{1,2}:\d{2}\s*[AP]\.?M\.?,?\s*`+monthDate,
			`\d{1,2}:\d{2}\s*[AP]\.?M\.?,?\s*`+monthDate,
			`([A-Za-z]+\s+\d{1,2},\s*\d{4})`,
			slashDate,
		),
		Status: Rules(`Status:\s*([^\n]+)`),
	}
}

func (rs RuleSet) validate() error {
	if len(rs.Title) == 0 && len(rs.DueDate) == 0 && len(rs.PostedDate) == 0 {
		return fmt.Errorf("rule set has no usable field rules")
	}
	return nil
}
