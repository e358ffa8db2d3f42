// Package faillog maintains the plain-text failure log: one URL per line,
// cleared with a timestamp header at the start of each run, append-only
// afterwards. The file exists for manual follow-up, so the format stays
// trivially greppable.
package faillog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Log writes failed URLs to a single file.
type Log struct {
	path string
}

// New points the log at path. The file is not touched until Clear.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Clear truncates the log and writes the run's timestamp header.
func (l *Log) Clear(now time.Time) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	header := fmt.Sprintf("# Failed URLs - run started %s\n", now.UTC().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(header), 0o644); err != nil {
		return fmt.Errorf("clear failure log %s: %w", l.path, err)
	}
	return nil
}

// Append adds URLs to the log, one per line. Empty entries are skipped.
func (l *Log) Append(urls []string) error {
	var b strings.Builder
	for _, u := range urls {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		b.WriteString(u)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log %s: %w", l.path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("append failure log %s: %w", l.path, err)
	}
	return f.Close()
}
