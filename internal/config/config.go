// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Run        RunConfig        `mapstructure:"run"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Output     OutputConfig     `mapstructure:"output"`
	Airtable   AirtableConfig   `mapstructure:"airtable"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	DB         DBConfig         `mapstructure:"db"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RunConfig governs orchestration behavior.
type RunConfig struct {
	LookbackDays       int `mapstructure:"lookback_days"`
	PreviewLimit       int `mapstructure:"preview_limit"`
	MaxChallengeCycles int `mapstructure:"max_challenge_cycles"`
}

// FetchConfig configures the static HTTP fetcher and retry policy.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// OutputConfig sets local output locations.
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	FailLogPath string `mapstructure:"fail_log_path"`
}

// AirtableConfig holds the Airtable sink credentials and target.
type AirtableConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	APIKey       string `mapstructure:"api_key"`
	BaseID       string `mapstructure:"base_id"`
	Table        string `mapstructure:"table"`
	BatchPauseMs int    `mapstructure:"batch_pause_ms"`
}

// ClassifierConfig holds the relevance classifier settings.
type ClassifierConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// ArchiveConfig selects where raw listing HTML snapshots land.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"` // none, local, gcs
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
}

// DBConfig controls access to the run-history database.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ResolverConfig controls the operator challenge console.
type ResolverConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIDSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a Config from an already-initialized
// Viper instance. cmd uses this against the process-global Viper.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.lookback_days", 42)
	v.SetDefault("run.preview_limit", 10)
	v.SetDefault("run.max_challenge_cycles", 3)
	v.SetDefault("fetch.user_agent", "bidsweep/1.0 (+https://github.com/govharvest/bidsweep)")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay_ms", 2000)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.timeout_seconds", 45)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.domain_qps", 0.5)
	v.SetDefault("output.dir", "data/out")
	v.SetDefault("output.fail_log_path", "data/failed_urls.txt")
	v.SetDefault("airtable.table", "Bids")
	v.SetDefault("airtable.batch_pause_ms", 200)
	v.SetDefault("classifier.max_tokens", 512)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.dir", "data/archive")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pubsub.topic_name", "bidsweep.runs")
	v.SetDefault("resolver.port", 8612)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Run.LookbackDays <= 0 {
		return fmt.Errorf("run.lookback_days must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Airtable.Enabled && (c.Airtable.APIKey == "" || c.Airtable.BaseID == "") {
		return fmt.Errorf("airtable.api_key and airtable.base_id must be set when airtable is enabled")
	}
	if c.Classifier.Enabled && c.Classifier.APIKey == "" {
		return fmt.Errorf("classifier.api_key must be set when classifier is enabled")
	}
	switch c.Archive.Backend {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be none, local, or gcs, got %q", c.Archive.Backend)
	}
	if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set for the gcs backend")
	}
	if c.DB.Enabled && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db is enabled")
	}
	if c.PubSub.Enabled && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub is enabled")
	}
	if c.Resolver.Enabled && c.Resolver.Port <= 0 {
		return fmt.Errorf("resolver.port must be > 0 when the resolver console is enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RetryDelay converts the retry pause into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelayMs) * time.Millisecond
}

// HeadlessTimeout converts the render timeout into a duration.
func (c Config) HeadlessTimeout() time.Duration {
	return time.Duration(c.Headless.TimeoutSeconds) * time.Second
}

// BatchPause converts the Airtable inter-batch pause into a duration.
func (c Config) BatchPause() time.Duration {
	return time.Duration(c.Airtable.BatchPauseMs) * time.Millisecond
}
