// Package cmd defines and implements the CLI commands for the bidsweep
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appconfig "github.com/govharvest/bidsweep/internal/config"
	"github.com/govharvest/bidsweep/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bidsweep",
		Short: "Collects open bid solicitations from municipal procurement portals.",
		Long: `bidsweep scrapes a fixed registry of municipal procurement portals,
normalizes every posting into one canonical record shape, filters to the
recency window, and writes the results to CSV and any configured sinks.
Each portal is isolated: one failing site never costs another site's
records.`,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., /etc/bidsweep, $HOME/.bidsweep)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

// initConfig primes the process-global Viper before any RunE fires.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	config.InitConfig()
}

// loadConfig materializes the typed configuration from the global Viper.
func loadConfig() (appconfig.Config, error) {
	cfg, err := appconfig.FromViper(viper.GetViper())
	if err != nil {
		return appconfig.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bidsweep: %v\n", err)
		os.Exit(1)
	}
}
