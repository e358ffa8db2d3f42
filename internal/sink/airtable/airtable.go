// Package airtable publishes canonical records to an Airtable base. The API
// caps batches at 10 records per request; batches are chunked accordingly and
// paced so a large run stays under the rate limit. A failed batch marks only
// its own records failed, earlier and later batches stand on their own.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
)

// MaxBatchSize is Airtable's per-request record cap.
const MaxBatchSize = 10

const defaultEndpoint = "https://api.airtable.com/v0"

// Config holds connection settings.
type Config struct {
	APIKey  string
	BaseID  string
	Table   string
	// Endpoint overrides the API host, for tests.
	Endpoint string
	// BatchPause spaces consecutive batch requests. Zero means 200ms.
	BatchPause time.Duration
	Timeout    time.Duration
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("airtable: api key is required")
	}
	if c.BaseID == "" {
		return fmt.Errorf("airtable: base id is required")
	}
	if c.Table == "" {
		return fmt.Errorf("airtable: table name is required")
	}
	return nil
}

// Sink implements bid.Sink against the Airtable REST API.
type Sink struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Sink.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.BatchPause == 0 {
		cfg.BatchPause = 200 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type createRequest struct {
	Records []recordEnvelope `json:"records"`
}

type recordEnvelope struct {
	Fields map[string]string `json:"fields"`
}

// Publish uploads records in chunks of MaxBatchSize. Unpublishable records
// are dropped up front and counted as failed. The returned error is non-nil
// only for cancellation; batch-level HTTP failures are reported through
// BatchResult so the caller sees exactly which records did not land.
func (s *Sink) Publish(ctx context.Context, records []bid.Record) (bid.BatchResult, error) {
	var result bid.BatchResult

	publishable := make([]bid.Record, 0, len(records))
	for _, rec := range records {
		if !rec.Publishable() {
			result.Failed = append(result.Failed, rec)
			result.Errors = append(result.Errors, "record missing project name or link")
			continue
		}
		publishable = append(publishable, rec)
	}

	for start := 0; start < len(publishable); start += MaxBatchSize {
		if start > 0 {
			if err := s.pause(ctx); err != nil {
				return result, err
			}
		}
		end := start + MaxBatchSize
		if end > len(publishable) {
			end = len(publishable)
		}
		batch := publishable[start:end]

		if err := s.sendBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			s.logger.Warn("airtable batch failed",
				zap.Int("offset", start), zap.Int("size", len(batch)), zap.Error(err))
			result.Failed = append(result.Failed, batch...)
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Succeeded = append(result.Succeeded, batch...)
	}
	return result, nil
}

func (s *Sink) sendBatch(ctx context.Context, batch []bid.Record) error {
	payload := createRequest{Records: make([]recordEnvelope, 0, len(batch))}
	for _, rec := range batch {
		payload.Records = append(payload.Records, recordEnvelope{Fields: map[string]string{
			"Project Name":   rec.ProjectName,
			"Summary":        rec.Summary,
			"Published Date": rec.PublishedDate,
			"Due Date":       rec.DueDate,
			"Link":           rec.Link,
		}})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.cfg.Endpoint, s.cfg.BaseID, s.cfg.Table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("airtable returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

func (s *Sink) pause(ctx context.Context) error {
	t := time.NewTimer(s.cfg.BatchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
