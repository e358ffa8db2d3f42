// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file, environment variables, and command-line flags, providing a unified
// configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so configuration is loaded before any command
// runs.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/bidsweep/")
	viper.AddConfigPath("$HOME/.bidsweep")

	viper.SetDefault("run.lookback_days", 42)
	viper.SetDefault("run.preview_limit", 10)
	viper.SetDefault("run.max_challenge_cycles", 3)
	viper.SetDefault("fetch.user_agent", "bidsweep/1.0 (+https://github.com/govharvest/bidsweep)")
	viper.SetDefault("fetch.timeout_seconds", 30)
	viper.SetDefault("fetch.max_retries", 3)
	viper.SetDefault("fetch.retry_delay_ms", 2000)
	viper.SetDefault("headless.enabled", true)
	viper.SetDefault("headless.timeout_seconds", 45)
	viper.SetDefault("headless.max_parallel", 2)
	viper.SetDefault("headless.domain_qps", 0.5)
	viper.SetDefault("output.dir", "data/out")
	viper.SetDefault("output.fail_log_path", "data/failed_urls.txt")
	viper.SetDefault("airtable.table", "Bids")
	viper.SetDefault("airtable.batch_pause_ms", 200)
	viper.SetDefault("classifier.max_tokens", 512)
	viper.SetDefault("archive.backend", "none")
	viper.SetDefault("archive.dir", "data/archive")
	viper.SetDefault("db.max_conns", 4)
	viper.SetDefault("pubsub.topic_name", "bidsweep.runs")
	viper.SetDefault("resolver.port", 8612)
	viper.SetDefault("logging.development", true)
	viper.SetDefault("logging.level", "info")

	// e.g. BIDSWEEP_RUN_LOOKBACK_DAYS=14
	viper.SetEnvPrefix("BIDSWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			zap.L().Info("config file not found; using defaults and environment variables")
		} else {
			zap.L().Error("error reading config file", zap.Error(err))
		}
	} else {
		zap.L().Info("using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
