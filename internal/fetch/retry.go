package fetch

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
)

// FixedRetryPolicy retries failed fetches a fixed number of times with a
// constant delay between attempts. Deliberately not exponential: see Config.
type FixedRetryPolicy struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixedRetryPolicy builds a policy. maxAttempts counts total attempts, so
// a value of 3 means one fetch plus two retries.
func NewFixedRetryPolicy(maxAttempts int, delay time.Duration) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts, delay: delay}
}

// ShouldRetry decides whether the error is worth another attempt.
func (p *FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && !netErr.Timeout() {
		// Hard network errors (refused, no route) rarely clear within
		// one run; timeouts do.
		return false
	}
	return true
}

// Wait blocks for the fixed delay or until ctx ends.
func (p *FixedRetryPolicy) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryingFetcher wraps a Fetcher with a FixedRetryPolicy.
type RetryingFetcher struct {
	inner  bid.Fetcher
	policy *FixedRetryPolicy
	logger *zap.Logger
}

// WithRetries decorates inner with the policy.
func WithRetries(inner bid.Fetcher, policy *FixedRetryPolicy, logger *zap.Logger) *RetryingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingFetcher{inner: inner, policy: policy, logger: logger}
}

// Fetch attempts the fetch until it succeeds or the policy gives up. The last
// error is returned unwrapped so sentinel checks keep working.
func (f *RetryingFetcher) Fetch(ctx context.Context, rawURL string) (bid.Page, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		page, err := f.inner.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !f.policy.ShouldRetry(err, attempt) {
			return bid.Page{}, lastErr
		}
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if werr := f.policy.Wait(ctx); werr != nil {
			return bid.Page{}, lastErr
		}
	}
}
