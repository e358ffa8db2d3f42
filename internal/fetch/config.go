// Package fetch provides the two page loaders the portal adapters run on: a
// colly-based static fetcher for plain-HTML portals and a chromedp session
// loader for portals that only render under JavaScript. Both return the
// shared bid.Page snapshot.
package fetch

import (
	"errors"
	"time"
)

// Config holds fetch-layer settings. Plain struct, populated from viper at
// the edge and validated once at construction.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration

	// Retry behavior is fixed-count, fixed-delay. Municipal portals are
	// low-traffic and fail for reasons backoff does not help with
	// (overnight maintenance windows, flaky middleware), so retries stay
	// cheap and predictable.
	MaxRetries int
	RetryDelay time.Duration

	HeadlessEnabled     bool
	HeadlessTimeout     time.Duration
	HeadlessConcurrency int
	// DomainQPS caps headless loads per domain. Zero disables the limiter.
	DomainQPS float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:           "bidsweep/1.0 (+https://github.com/govharvest/bidsweep)",
		RequestTimeout:      30 * time.Second,
		MaxRetries:          3,
		RetryDelay:          2 * time.Second,
		HeadlessEnabled:     true,
		HeadlessTimeout:     45 * time.Second,
		HeadlessConcurrency: 2,
		DomainQPS:           0.5,
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return errors.New("fetch: user agent must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("fetch: request timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("fetch: max retries must not be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("fetch: retry delay must not be negative")
	}
	if c.HeadlessEnabled && c.HeadlessConcurrency <= 0 {
		return errors.New("fetch: headless concurrency must be positive when headless is enabled")
	}
	return nil
}
