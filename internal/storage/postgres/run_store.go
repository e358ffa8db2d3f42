// Package postgres provides Postgres-backed persistence for run history.
// Each pipeline run inserts one row of aggregate stats plus the canonical
// records it collected, giving an audit trail independent of the CSV output.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/govharvest/bidsweep/internal/bid"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunStoreConfig controls the Postgres connection pool.
type RunStoreConfig struct {
	DSN             string
	RunsTable       string
	RecordsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// RunRecord is one completed pipeline run.
type RunRecord struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	SourcesAttempted int
	SourcesSucceeded int
	PagesFailed      int
	RecordCount      int
	Stats            []bid.SourceStats
}

// RunStore writes run history into Postgres.
type RunStore struct {
	pool         execCloser
	runsTable    string
	recordsTable string
}

// NewRunStore creates a Postgres-backed RunStore.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newRunStore(pool, cfg.RunsTable, cfg.RecordsTable)
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewRunStoreWithPool(pool execCloser, runsTable, recordsTable string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newRunStore(pool, runsTable, recordsTable)
}

func newRunStore(pool execCloser, runsTable, recordsTable string) (*RunStore, error) {
	if runsTable == "" {
		runsTable = "runs"
	}
	if recordsTable == "" {
		recordsTable = "bid_records"
	}
	for _, table := range []string{runsTable, recordsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &RunStore{pool: pool, runsTable: runsTable, recordsTable: recordsTable}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreRun inserts one run-history row.
func (s *RunStore) StoreRun(ctx context.Context, run RunRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	started_at,
	finished_at,
	sources_attempted,
	sources_succeeded,
	pages_failed,
	record_count,
	stats
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.runsTable)
	if _, err := s.pool.Exec(ctx, query,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.SourcesAttempted,
		run.SourcesSucceeded,
		run.PagesFailed,
		run.RecordCount,
		statsJSON,
	); err != nil {
		return fmt.Errorf("insert run row: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (s *RunStore) LatestRun(ctx context.Context) (RunRecord, error) {
	if s == nil || s.pool == nil {
		return RunRecord{}, fmt.Errorf("run store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, started_at, finished_at, sources_attempted, sources_succeeded,
	pages_failed, record_count, stats
FROM %s
ORDER BY started_at DESC
LIMIT 1`, s.runsTable)

	var run RunRecord
	var statsJSON []byte
	if err := s.pool.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.SourcesAttempted,
		&run.SourcesSucceeded,
		&run.PagesFailed,
		&run.RecordCount,
		&statsJSON,
	); err != nil {
		return RunRecord{}, fmt.Errorf("query latest run: %w", err)
	}
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
			return RunRecord{}, fmt.Errorf("decode run stats: %w", err)
		}
	}
	return run, nil
}

// StoreRecords inserts the run's canonical records, one row each.
func (s *RunStore) StoreRecords(ctx context.Context, runID string, records []bid.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	project_name,
	summary,
	published_date,
	due_date,
	link
) VALUES ($1, $2, $3, $4, $5, $6)`, s.recordsTable)
	for _, rec := range records {
		if _, err := s.pool.Exec(ctx, query,
			runID,
			rec.ProjectName,
			rec.Summary,
			rec.PublishedDate,
			rec.DueDate,
			rec.Link,
		); err != nil {
			return fmt.Errorf("insert record %q: %w", rec.ProjectName, err)
		}
	}
	return nil
}
