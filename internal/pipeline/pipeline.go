// Package pipeline runs the full scrape: every configured source in order,
// normalization and filtering inside the adapters, then classification,
// output, persistence, and the run-summary event. Sources are isolated from
// each other; one portal's worst day costs that portal's records and nothing
// else.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/adapter"
	"github.com/govharvest/bidsweep/internal/bid"
	"github.com/govharvest/bidsweep/internal/dates"
	"github.com/govharvest/bidsweep/internal/metrics"
	"github.com/govharvest/bidsweep/internal/report"
	"github.com/govharvest/bidsweep/internal/storage/postgres"
)

// Config holds orchestrator settings.
type Config struct {
	// LookbackDays defines the recency window: cutoff = now - lookback.
	LookbackDays int
	// PreviewLimit bounds failure lists in the rendered summary.
	PreviewLimit int
	// Topic names the run-event topic for the publisher.
	Topic string
}

// Validate checks the orchestrator configuration.
func (c Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("pipeline: lookback days must be positive, got %d", c.LookbackDays)
	}
	return nil
}

// CSVWriter persists per-source and combined CSV output.
type CSVWriter interface {
	WriteSource(name string, records []bid.Record) error
	WriteCombined(records []bid.Record) error
}

// FailureLog is the shared failed-URL log.
type FailureLog interface {
	Clear(now time.Time) error
	Append(urls []string) error
}

// Publisher emits run-completion events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunStore persists run history for audit.
type RunStore interface {
	StoreRun(ctx context.Context, run postgres.RunRecord) error
	StoreRecords(ctx context.Context, runID string, records []bid.Record) error
}

// IDGenerator mints run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps carries the orchestrator's collaborators. CSV and FailLog are
// required; everything else is optional and skipped when nil.
type Deps struct {
	CSV        CSVWriter
	FailLog    FailureLog
	Sink       bid.Sink
	Classifier bid.Classifier
	Publisher  Publisher
	Store      RunStore
	IDs        IDGenerator
	Clock      bid.Clock
	Logger     *zap.Logger
}

// TaggedRecord pairs a canonical record with its classification.
type TaggedRecord struct {
	bid.Record
	Tag bid.Tag
}

// RunEvent is the payload published after a completed run.
type RunEvent struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	SourcesAttempted int       `json:"sources_attempted"`
	SourcesSucceeded int       `json:"sources_succeeded"`
	PagesFailed      int       `json:"pages_failed"`
	Records          int       `json:"records"`
}

// Result is everything a completed run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []bid.Record
	Tagged     []TaggedRecord
	PerSource  []bid.SourceStats
	Summary    report.Summary
	Published  bid.BatchResult
}

// Orchestrator drives one full run.
type Orchestrator struct {
	cfg     Config
	sources []adapter.Source
	deps    Deps
}

// New wires an orchestrator.
func New(cfg Config, sources []adapter.Source, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.CSV == nil {
		return nil, fmt.Errorf("pipeline: csv writer is required")
	}
	if deps.FailLog == nil {
		return nil, fmt.Errorf("pipeline: failure log is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{cfg: cfg, sources: sources, deps: deps}, nil
}

// RunAll executes every source strictly sequentially, in registry order,
// then the downstream passes. Returns an error only when the run as a whole
// could not proceed; individual source failures are folded into the result.
func (o *Orchestrator) RunAll(ctx context.Context) (Result, error) {
	metrics.Init()
	start := o.now()
	cutoff := dates.Cutoff(start, o.cfg.LookbackDays)
	runID := o.newRunID()
	log := o.deps.Logger.With(zap.String("run_id", runID))

	log.Info("run starting",
		zap.Int("sources", len(o.sources)),
		zap.Time("cutoff", cutoff),
	)

	if err := o.deps.FailLog.Clear(start); err != nil {
		return Result{}, fmt.Errorf("clear failure log: %w", err)
	}

	var combined []bid.Record
	perSource := make([]bid.SourceStats, 0, len(o.sources))

	for _, src := range o.sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		records, stats, err := o.runSource(ctx, src, cutoff)
		if err != nil {
			log.Error("source failed", zap.String("source", src.Name()), zap.Error(err))
			metrics.ObserveSource("failed")
		} else {
			metrics.ObserveSource("succeeded")
			if werr := o.deps.CSV.WriteSource(src.Name(), records); werr != nil {
				log.Warn("per-source csv write failed",
					zap.String("source", src.Name()), zap.Error(werr))
			}
		}

		// Both outcomes carry the source name so one site never splits
		// across two label values.
		metrics.ObservePages(src.Name(), "succeeded", stats.PagesAttempted-stats.PagesFailed)
		metrics.ObservePages(src.Name(), "failed", stats.PagesFailed)

		perSource = append(perSource, stats)
		if aerr := o.deps.FailLog.Append(stats.FailedURLs()); aerr != nil {
			log.Warn("failure log append failed", zap.Error(aerr))
		}
		combined = append(combined, records...)
	}

	tagged := o.classify(ctx, combined, log)

	if err := o.deps.CSV.WriteCombined(combined); err != nil {
		log.Warn("combined csv write failed", zap.Error(err))
	}

	published := o.publish(ctx, combined, log)

	finished := o.now()
	summary := report.Aggregate(perSource, len(combined))
	metrics.ObserveRunDuration(finished.Sub(start).Seconds())

	o.persist(ctx, runID, start, finished, summary, combined, log)
	o.announce(ctx, runID, start, finished, summary, log)

	log.Info("run finished",
		zap.Int("records", len(combined)),
		zap.Int("sources_succeeded", summary.Combined.SitesSucceeded),
		zap.Int("pages_failed", summary.Combined.PagesFailed),
	)

	return Result{
		RunID:      runID,
		StartedAt:  start,
		FinishedAt: finished,
		Records:    combined,
		Tagged:     tagged,
		PerSource:  perSource,
		Summary:    summary,
		Published:  published,
	}, nil
}

// runSource invokes one adapter behind a panic boundary. A source that blows
// up before its own error handling engages is recorded as a zero-record,
// all-failed outcome and the run moves on.
func (o *Orchestrator) runSource(ctx context.Context, src adapter.Source, cutoff time.Time) (records []bid.Record, stats bid.SourceStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			stats = bid.NewSourceStats(src.Name())
			stats.SitesAttempted = 1
			stats.RecordSkippedSite(src.Name(), fmt.Sprintf("source panicked: %v", r))
			err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
		}
	}()

	records, stats, err = src.Run(ctx, cutoff)
	if stats.Source == "" {
		stats = bid.NewSourceStats(src.Name())
		stats.SitesAttempted = 1
		if err != nil {
			stats.RecordSkippedSite(src.Name(), err.Error())
		}
	}
	return records, stats, err
}

// classify tags records when a classifier is wired. Per-record failures
// default to a not-relevant zero-confidence tag; the pass never aborts.
func (o *Orchestrator) classify(ctx context.Context, records []bid.Record, log *zap.Logger) []TaggedRecord {
	if o.deps.Classifier == nil || len(records) == 0 {
		return nil
	}
	tagged := make([]TaggedRecord, 0, len(records))
	for _, rec := range records {
		tag, err := o.deps.Classifier.Classify(ctx, rec)
		if err != nil {
			log.Warn("classification failed, defaulting to not relevant",
				zap.String("project", rec.ProjectName), zap.Error(err))
			tag = bid.Tag{}
		}
		tagged = append(tagged, TaggedRecord{Record: rec, Tag: tag})
	}
	return tagged
}

func (o *Orchestrator) publish(ctx context.Context, records []bid.Record, log *zap.Logger) bid.BatchResult {
	if o.deps.Sink == nil || len(records) == 0 {
		return bid.BatchResult{}
	}
	result, err := o.deps.Sink.Publish(ctx, records)
	if err != nil {
		log.Error("sink publish aborted", zap.Error(err))
	}
	metrics.ObservePublish("sink", "succeeded", len(result.Succeeded))
	metrics.ObservePublish("sink", "failed", len(result.Failed))
	if len(result.Failed) > 0 {
		log.Warn("sink rejected records",
			zap.Int("failed", len(result.Failed)),
			zap.Strings("errors", result.Errors),
		)
	}
	return result
}

func (o *Orchestrator) persist(ctx context.Context, runID string, start, finished time.Time, summary report.Summary, records []bid.Record, log *zap.Logger) {
	if o.deps.Store == nil {
		return
	}
	run := postgres.RunRecord{
		ID:               runID,
		StartedAt:        start,
		FinishedAt:       finished,
		SourcesAttempted: summary.Combined.SitesAttempted,
		SourcesSucceeded: summary.Combined.SitesSucceeded,
		PagesFailed:      summary.Combined.PagesFailed,
		RecordCount:      len(records),
		Stats:            summary.PerSource,
	}
	if err := o.deps.Store.StoreRun(ctx, run); err != nil {
		log.Warn("store run failed", zap.Error(err))
		return
	}
	if err := o.deps.Store.StoreRecords(ctx, runID, records); err != nil {
		log.Warn("store records failed", zap.Error(err))
	}
}

func (o *Orchestrator) announce(ctx context.Context, runID string, start, finished time.Time, summary report.Summary, log *zap.Logger) {
	if o.deps.Publisher == nil {
		return
	}
	event := RunEvent{
		RunID:            runID,
		StartedAt:        start,
		FinishedAt:       finished,
		SourcesAttempted: summary.Combined.SitesAttempted,
		SourcesSucceeded: summary.Combined.SitesSucceeded,
		PagesFailed:      summary.Combined.PagesFailed,
		Records:          summary.Records,
	}
	if _, err := o.deps.Publisher.Publish(ctx, o.cfg.Topic, event); err != nil {
		log.Warn("run event publish failed", zap.Error(err))
	}
}

func (o *Orchestrator) now() time.Time {
	if o.deps.Clock != nil {
		return o.deps.Clock.Now()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newRunID() string {
	if o.deps.IDs != nil {
		if id, err := o.deps.IDs.NewID(); err == nil {
			return id
		}
	}
	return fmt.Sprintf("run-%d", o.now().UnixNano())
}
