package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/govharvest/bidsweep/internal/bid"
)

func TestStoreRunInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock, "runs", "bid_records")
	require.NoError(t, err)

	started := time.Unix(1760000000, 0).UTC()
	stats := []bid.SourceStats{{Source: "artesia", SitesAttempted: 1, SitesSucceeded: 1}}
	statsJSON, err := json.Marshal(stats)
	require.NoError(t, err)

	run := RunRecord{
		ID:               "run-uuid",
		StartedAt:        started,
		FinishedAt:       started.Add(5 * time.Minute),
		SourcesAttempted: 13,
		SourcesSucceeded: 11,
		PagesFailed:      4,
		RecordCount:      87,
		Stats:            stats,
	}

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(
			run.ID,
			run.StartedAt,
			run.FinishedAt,
			run.SourcesAttempted,
			run.SourcesSucceeded,
			run.PagesFailed,
			run.RecordCount,
			statsJSON,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.StoreRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRunRequiresID(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock, "", "")
	require.NoError(t, err)
	require.Error(t, store.StoreRun(context.Background(), RunRecord{}))
}

func TestStoreRecordsInsertsEachRow(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock, "runs", "bid_records")
	require.NoError(t, err)

	records := []bid.Record{
		{ProjectName: "Sidewalk Repair", Summary: "scope", PublishedDate: "2025-10-01", DueDate: "2025-11-06", Link: "https://a.gov/1"},
		{ProjectName: "Well Rehab", Link: "https://a.gov/2"},
	}
	for _, rec := range records {
		mock.ExpectExec("INSERT INTO bid_records").
			WithArgs("run-uuid", rec.ProjectName, rec.Summary, rec.PublishedDate, rec.DueDate, rec.Link).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.StoreRecords(context.Background(), "run-uuid", records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRunDecodesStats(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock, "runs", "bid_records")
	require.NoError(t, err)

	started := time.Unix(1760000000, 0).UTC()
	stats := []bid.SourceStats{{Source: "compton", SitesAttempted: 1, PagesFailed: 2}}
	statsJSON, err := json.Marshal(stats)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{
		"id", "started_at", "finished_at", "sources_attempted",
		"sources_succeeded", "pages_failed", "record_count", "stats",
	}).AddRow("run-uuid", started, started.Add(time.Minute), 13, 12, 2, 40, statsJSON)

	mock.ExpectQuery("SELECT id, started_at").WillReturnRows(rows)

	run, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-uuid", run.ID)
	require.Equal(t, 40, run.RecordCount)
	require.Equal(t, stats, run.Stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRunStoreRejectsBadTableNames(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewRunStoreWithPool(mock, "runs; drop table", "")
	require.Error(t, err)
}
