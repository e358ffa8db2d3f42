package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govharvest/bidsweep/internal/report"
	"github.com/govharvest/bidsweep/internal/storage/postgres"
)

// newReportCmd creates the 'report' subcommand, which renders the most
// recent run's stats from the run-history store.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Renders the most recent run's summary from the run-history store",
		RunE:  runReportCommand,
	}
}

func runReportCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.DB.Enabled {
		return fmt.Errorf("report requires the run-history store; set db.enabled and db.dsn")
	}

	store, err := postgres.NewRunStore(cmd.Context(), postgres.RunStoreConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	defer store.Close()

	run, err := store.LatestRun(cmd.Context())
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}

	cmd.Printf("Run %s (started %s, finished %s)\n",
		run.ID,
		run.StartedAt.Format("2006-01-02 15:04:05 MST"),
		run.FinishedAt.Format("2006-01-02 15:04:05 MST"),
	)
	summary := report.Aggregate(run.Stats, run.RecordCount)
	cmd.Println(report.Render(summary, cfg.Run.PreviewLimit))
	return nil
}
