// Package csvfile writes canonical records to CSV files, one per source plus
// a combined file. Files are written whole and renamed into place so a kill
// mid-run never leaves a truncated CSV behind.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
)

// Writer persists per-source and combined CSV output under one directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// New creates the output directory if needed.
func New(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// WriteSource writes one source's records to <dir>/<name>.csv.
func (w *Writer) WriteSource(name string, records []bid.Record) error {
	return w.write(name+".csv", records)
}

// WriteCombined writes the full run's records to <dir>/combined.csv.
func (w *Writer) WriteCombined(records []bid.Record) error {
	return w.write("combined.csv", records)
}

func (w *Writer) write(filename string, records []bid.Record) error {
	path := filepath.Join(w.dir, filename)
	tmp, err := os.CreateTemp(w.dir, filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := cw.Write(bid.CSVHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	skipped := 0
	for _, rec := range records {
		if !rec.Publishable() {
			skipped++
			continue
		}
		if err := cw.Write(rec.CSVRow()); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	if skipped > 0 {
		w.logger.Warn("dropped unpublishable records from csv",
			zap.String("file", filename), zap.Int("count", skipped))
	}
	return nil
}
