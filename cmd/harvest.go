package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/adapter"
	"github.com/govharvest/bidsweep/internal/classify"
	"github.com/govharvest/bidsweep/internal/clock/system"
	appconfig "github.com/govharvest/bidsweep/internal/config"
	"github.com/govharvest/bidsweep/internal/fetch"
	"github.com/govharvest/bidsweep/internal/id/uuid"
	"github.com/govharvest/bidsweep/internal/logging"
	"github.com/govharvest/bidsweep/internal/pipeline"
	pubsubpublisher "github.com/govharvest/bidsweep/internal/publisher/pubsub"
	"github.com/govharvest/bidsweep/internal/report"
	"github.com/govharvest/bidsweep/internal/resolver"
	"github.com/govharvest/bidsweep/internal/sink/airtable"
	"github.com/govharvest/bidsweep/internal/sink/csvfile"
	"github.com/govharvest/bidsweep/internal/sink/faillog"
	"github.com/govharvest/bidsweep/internal/storage"
	"github.com/govharvest/bidsweep/internal/storage/gcs"
	"github.com/govharvest/bidsweep/internal/storage/local"
	"github.com/govharvest/bidsweep/internal/storage/postgres"
	"github.com/govharvest/bidsweep/internal/verify"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs the full
// scrape: every registered portal in order, then classification, sinks, and
// the run report.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs a full scrape of every registered portal",
		Long: `Scrapes each registered municipal portal sequentially, normalizes and
filters the postings, writes per-source and combined CSVs, appends failed
URLs to the failure log, and pushes records to any configured sinks.`,
		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, restore, err := logging.Install(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer restore()
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	ids := uuid.New()

	fetchCfg := fetch.Config{
		UserAgent:           cfg.Fetch.UserAgent,
		RequestTimeout:      cfg.FetchTimeout(),
		MaxRetries:          cfg.Fetch.MaxRetries,
		RetryDelay:          cfg.RetryDelay(),
		HeadlessEnabled:     cfg.Headless.Enabled,
		HeadlessTimeout:     cfg.HeadlessTimeout(),
		HeadlessConcurrency: cfg.Headless.MaxParallel,
		DomainQPS:           cfg.Headless.DomainQPS,
	}
	if err := fetchCfg.Validate(); err != nil {
		return err
	}

	static, err := fetch.NewStaticFetcher(fetchCfg, clock, logger.Named("fetch"))
	if err != nil {
		return fmt.Errorf("init static fetcher: %w", err)
	}
	retryPolicy := fetch.NewFixedRetryPolicy(fetchCfg.MaxRetries, fetchCfg.RetryDelay)
	fetcher := fetch.WithRetries(static, retryPolicy, logger.Named("fetch"))

	headless, err := buildHeadless(fetchCfg, clock, logger)
	if err != nil {
		return err
	}
	if headless != nil {
		defer func() {
			if cerr := headless.Close(); cerr != nil {
				logger.Warn("headless close failed", zap.Error(cerr))
			}
		}()
	}

	archive, closeArchive, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	challengeResolver, stopConsole, err := buildResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer stopConsole()

	deps := adapter.Deps{
		Static:   fetcher,
		Detector: verify.NewDefaultDetector(),
		Resolver: challengeResolver,
		Clock:    clock,
		Archive:  archive,
		Logger:   logger,
	}
	if headless != nil {
		deps.Headless = headless
	}

	var sources []adapter.Source
	for _, site := range withCycleDefault(adapter.Sites(), cfg.Run.MaxChallengeCycles) {
		portal, perr := adapter.NewPortal(site, deps)
		if perr != nil {
			return fmt.Errorf("configure portal %s: %w", site.Name, perr)
		}
		sources = append(sources, portal)
	}

	csvWriter, err := csvfile.New(cfg.Output.Dir, logger.Named("csv"))
	if err != nil {
		return fmt.Errorf("init csv writer: %w", err)
	}

	pipeDeps := pipeline.Deps{
		CSV:     csvWriter,
		FailLog: faillog.New(cfg.Output.FailLogPath),
		IDs:     ids,
		Clock:   clock,
		Logger:  logger.Named("pipeline"),
	}

	if cfg.Airtable.Enabled {
		sink, serr := airtable.New(airtable.Config{
			APIKey:     cfg.Airtable.APIKey,
			BaseID:     cfg.Airtable.BaseID,
			Table:      cfg.Airtable.Table,
			BatchPause: cfg.BatchPause(),
		}, logger.Named("airtable"))
		if serr != nil {
			return fmt.Errorf("init airtable sink: %w", serr)
		}
		pipeDeps.Sink = sink
	}

	if cfg.Classifier.Enabled {
		classifier, cerr := classify.New(classify.Config{
			APIKey:    cfg.Classifier.APIKey,
			MaxTokens: cfg.Classifier.MaxTokens,
		})
		if cerr != nil {
			return fmt.Errorf("init classifier: %w", cerr)
		}
		pipeDeps.Classifier = classifier
	}

	if cfg.DB.Enabled {
		store, serr := postgres.NewRunStore(ctx, postgres.RunStoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if serr != nil {
			return fmt.Errorf("init run store: %w", serr)
		}
		defer store.Close()
		pipeDeps.Store = store
	}

	if cfg.PubSub.Enabled {
		client, perr := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if perr != nil {
			return fmt.Errorf("init pubsub client: %w", perr)
		}
		defer func() {
			if cerr := client.Close(); cerr != nil {
				logger.Warn("pubsub close failed", zap.Error(cerr))
			}
		}()
		topic := client.Topic(cfg.PubSub.TopicName)
		defer topic.Stop()
		pipeDeps.Publisher = pubsubpublisher.New(topic)
	}

	orc, err := pipeline.New(pipeline.Config{
		LookbackDays: cfg.Run.LookbackDays,
		PreviewLimit: cfg.Run.PreviewLimit,
		Topic:        cfg.PubSub.TopicName,
	}, sources, pipeDeps)
	if err != nil {
		return err
	}

	result, err := orc.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	cmd.Println(report.Render(result.Summary, cfg.Run.PreviewLimit))
	return nil
}

// withCycleDefault fills the run-level challenge cycle budget into sites
// that did not set their own; per-site overrides win.
func withCycleDefault(sites []adapter.SiteConfig, cycles int) []adapter.SiteConfig {
	out := make([]adapter.SiteConfig, len(sites))
	for i, site := range sites {
		if site.MaxChallengeCycles == 0 {
			site.MaxChallengeCycles = cycles
		}
		out[i] = site
	}
	return out
}

func buildHeadless(fetchCfg fetch.Config, clock *system.Clock, logger *zap.Logger) (*fetch.HeadlessLoader, error) {
	if !fetchCfg.HeadlessEnabled {
		return nil, nil
	}
	headless, err := fetch.NewHeadlessLoader(fetchCfg, clock, logger.Named("headless"))
	switch {
	case err == nil:
		return headless, nil
	case errors.Is(err, fetch.ErrHeadlessDisabled):
		logger.Warn("headless loader unavailable; headless portals will be skipped")
		return nil, nil
	default:
		return nil, fmt.Errorf("init headless loader: %w", err)
	}
}

func buildArchive(ctx context.Context, cfg appconfig.Config) (storage.Provider, func(), error) {
	switch cfg.Archive.Backend {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Archive.Dir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, func() {}, nil
	case "gcs":
		store, err := gcs.New(ctx, gcs.Config{Bucket: cfg.Archive.Bucket})
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, func() {
			if cerr := store.Close(); cerr != nil {
				zap.L().Warn("gcs archive close failed", zap.Error(cerr))
			}
		}, nil
	default:
		return &storage.NoOpProvider{}, func() {}, nil
	}
}

// buildResolver returns the challenge resolver: the operator console when
// enabled, otherwise a plain timed reload.
func buildResolver(cfg appconfig.Config, logger *zap.Logger) (verify.Resolver, func(), error) {
	if !cfg.Resolver.Enabled {
		return verify.AutoReloadResolver{Delay: 10 * time.Second}, func() {}, nil
	}

	console := resolver.New(uuid.New(), logger.Named("resolver"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Resolver.Port),
		Handler:           console.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("resolver console started", zap.Int("port", cfg.Resolver.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("resolver console error", zap.Error(err))
		}
	}()

	stopConsole := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("resolver console shutdown failed", zap.Error(err))
		}
	}
	return console, stopConsole, nil
}
