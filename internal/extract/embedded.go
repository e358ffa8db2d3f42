package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Some portals render their listing data as a JavaScript state object inside
// the page rather than in the DOM. The scanner below recovers project
// id/title pairs from that blob opportunistically: it locates every "id"
// field, walks brackets outward to isolate the enclosing object literal, and
// parses it, falling back to field-level regexes when the literal is not
// valid JSON on its own. Scan windows are bounded so a pathological page
// cannot make this quadratic.
const (
	backScanWindow    = 5000
	forwardScanWindow = 10000
)

var (
	idFieldRe    = regexp.MustCompile(`"id":\s*(\d+)`)
	titleFieldRe = regexp.MustCompile(`"title":\s*"([^"]*)"`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// EmbeddedProject is one project object recovered from an embedded blob.
type EmbeddedProject struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ScanEmbeddedProjects extracts project objects from raw page content.
// Objects without a title are dropped: ids appear on many unrelated embedded
// objects and the title is what proves this one is a project.
func ScanEmbeddedProjects(content string) []EmbeddedProject {
	var projects []EmbeddedProject
	seen := make(map[int64]struct{})

	for _, loc := range idFieldRe.FindAllStringSubmatchIndex(content, -1) {
		idPos := loc[0]
		start, ok := scanBack(content, idPos)
		if !ok {
			continue
		}
		end, ok := scanForward(content, start)
		if !ok {
			continue
		}

		literal := content[start:end]
		proj, ok := parseProjectLiteral(literal)
		if !ok {
			continue
		}
		if _, dup := seen[proj.ID]; dup {
			continue
		}
		seen[proj.ID] = struct{}{}
		projects = append(projects, proj)
	}
	return projects
}

// scanBack walks backwards from an "id" field to the opening brace of its
// enclosing object. The reverse walk counts braces without string awareness;
// that is tolerable because the fallback parse absorbs the rare miss.
func scanBack(content string, from int) (int, bool) {
	depth := 0
	low := from - backScanWindow
	if low < 0 {
		low = 0
	}
	for i := from; i >= low; i-- {
		switch content[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

// scanForward walks from the opening brace to the matching close, tracking
// string literals and escapes so braces inside titles do not break matching.
func scanForward(content string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	high := start + forwardScanWindow
	if high > len(content) {
		high = len(content)
	}
	for i := start; i < high; i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func parseProjectLiteral(literal string) (EmbeddedProject, bool) {
	var proj EmbeddedProject
	if err := json.Unmarshal([]byte(literal), &proj); err == nil {
		if proj.Title != "" && proj.ID != 0 {
			return proj, true
		}
		return EmbeddedProject{}, false
	}

	// Malformed JSON; recover the two fields we need individually.
	idMatch := idFieldRe.FindStringSubmatch(literal)
	titleMatch := titleFieldRe.FindStringSubmatch(literal)
	if idMatch == nil || titleMatch == nil || titleMatch[1] == "" {
		return EmbeddedProject{}, false
	}
	var id int64
	for _, c := range idMatch[1] {
		id = id*10 + int64(c-'0')
	}
	return EmbeddedProject{ID: id, Title: titleMatch[1]}, true
}

// MatchProjectID resolves a listing title to an embedded project id.
// Exact normalized match is tried first, then a substring match in either
// direction: portals truncate long titles in one place or the other.
func MatchProjectID(title string, projects []EmbeddedProject) (int64, bool) {
	want := NormalizeTitle(title)
	if want == "" {
		return 0, false
	}
	for _, p := range projects {
		if NormalizeTitle(p.Title) == want {
			return p.ID, true
		}
	}
	for _, p := range projects {
		have := NormalizeTitle(p.Title)
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return p.ID, true
		}
	}
	return 0, false
}

// NormalizeTitle lowercases and collapses whitespace for title comparison.
func NormalizeTitle(s string) string {
	return spaceRunRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}
