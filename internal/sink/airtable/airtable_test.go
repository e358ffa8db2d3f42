package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/govharvest/bidsweep/internal/bid"
)

func makeRecords(n int) []bid.Record {
	records := make([]bid.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, bid.Record{
			ProjectName: fmt.Sprintf("Project %d", i),
			Summary:     "scope",
			Link:        fmt.Sprintf("https://a.gov/%d", i),
		})
	}
	return records
}

func newTestSink(t *testing.T, endpoint string) *Sink {
	t.Helper()
	s, err := New(Config{
		APIKey:     "key-test",
		BaseID:     "appBase",
		Table:      "Bids",
		Endpoint:   endpoint,
		BatchPause: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return s
}

func TestPublish_ChunksBatchesOfTen(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	var batchSizes []int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key-test", r.Header.Get("Authorization"))
		require.Equal(t, "/appBase/Bids", r.URL.Path)

		var req createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		batchSizes = append(batchSizes, len(req.Records))
		mu.Unlock()
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	s := newTestSink(t, srv.URL)
	result, err := s.Publish(context.Background(), makeRecords(23))
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 23)
	require.Empty(t, result.Failed)
	require.Equal(t, []int{10, 10, 3}, batchSizes)
}

func TestPublish_FieldNamesMatchCanonicalColumns(t *testing.T) {
	t.Parallel()
	var got createRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	s := newTestSink(t, srv.URL)
	_, err := s.Publish(context.Background(), []bid.Record{{
		ProjectName:   "Sidewalk Repair",
		Summary:       "scope",
		PublishedDate: "2025-10-01",
		DueDate:       "2025-11-06",
		Link:          "https://a.gov/1",
	}})
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	require.Equal(t, map[string]string{
		"Project Name":   "Sidewalk Repair",
		"Summary":        "scope",
		"Published Date": "2025-10-01",
		"Due Date":       "2025-11-06",
		"Link":           "https://a.gov/1",
	}, got.Records[0].Fields)
}

// A failed middle batch must not poison its neighbors: records report as
// succeeded or failed per batch, never all-or-nothing.
func TestPublish_PartialBatchFailure(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		fail := calls == 2
		mu.Unlock()
		if fail {
			http.Error(w, `{"error":"INVALID_REQUEST"}`, http.StatusUnprocessableEntity)
			return
		}
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	s := newTestSink(t, srv.URL)
	result, err := s.Publish(context.Background(), makeRecords(25))
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 15)
	require.Len(t, result.Failed, 10)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "422")

	// The failed batch is the second chunk.
	require.Equal(t, "Project 10", result.Failed[0].ProjectName)
	require.Equal(t, "Project 19", result.Failed[9].ProjectName)
}

func TestPublish_DropsUnpublishableUpFront(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	s := newTestSink(t, srv.URL)
	records := append(makeRecords(2), bid.Record{Summary: "nameless"})
	result, err := s.Publish(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	require.Error(t, Config{BaseID: "b", Table: "t"}.Validate())
	require.Error(t, Config{APIKey: "k", Table: "t"}.Validate())
	require.Error(t, Config{APIKey: "k", BaseID: "b"}.Validate())
	require.NoError(t, Config{APIKey: "k", BaseID: "b", Table: "t"}.Validate())
}
