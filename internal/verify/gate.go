package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
	"github.com/govharvest/bidsweep/internal/metrics"
)

// DefaultMaxCycles bounds detect/resolve/reload loops per site.
const DefaultMaxCycles = 3

// Gate runs the verification state machine for one page load. Gates are
// cheap; adapters construct one per site so state inspection after a run is
// unambiguous.
type Gate struct {
	detector  *Detector
	resolver  Resolver
	maxCycles int
	clock     bid.Clock
	logger    *zap.Logger

	state     State
	lastMatch Detection
}

// NewGate wires a gate. A nil resolver means challenges are never retried;
// the first detection abandons the site.
func NewGate(detector *Detector, resolver Resolver, maxCycles int, clock bid.Clock, logger *zap.Logger) *Gate {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Gate{
		detector:  detector,
		resolver:  resolver,
		maxCycles: maxCycles,
		clock:     clock,
		logger:    logger,
		state:     StateUnchecked,
	}
}

// State returns the gate's current state.
func (g *Gate) State() State { return g.state }

// LastDetection returns the most recent detection, meaningful once the state
// has left Unchecked/NoChallenge.
func (g *Gate) LastDetection() Detection { return g.lastMatch }

// Clear loads the page through the verification lifecycle. It returns a page
// that passed detection, or ErrAbandoned (wrapped) once maxCycles resolution
// attempts failed to produce one. Loader errors pass through unchanged.
func (g *Gate) Clear(ctx context.Context, url string, load Loader) (bid.Page, error) {
	// Every resolution attempt is followed by a recheck load, so a challenge
	// resolved on the last cycle still gets its page.
	for cycle := 0; ; cycle++ {
		g.state = StateChecking
		page, err := load(ctx)
		if err != nil {
			return bid.Page{}, err
		}

		det, hit := g.detector.Detect(page)
		if !hit {
			g.state = StateNoChallenge
			if cycle > 0 {
				metrics.ObserveChallenge(url, "resolved")
			}
			return page, nil
		}

		g.state = StateChallengeDetected
		g.lastMatch = det
		metrics.ObserveChallenge(url, "detected")
		g.logger.Warn("verification challenge detected",
			zap.String("url", url),
			zap.String("layer", det.Layer),
			zap.String("signal", det.Signal),
			zap.Int("cycle", cycle+1),
		)

		if g.resolver == nil || cycle >= g.maxCycles {
			break
		}
		g.state = StateAwaitingResolution
		ch := Challenge{URL: url, Detection: det, Cycle: cycle + 1, DetectedAt: g.now()}
		if err := g.resolver.Resolve(ctx, ch); err != nil {
			g.state = StateAbandoned
			metrics.ObserveChallenge(url, "abandoned")
			return bid.Page{}, fmt.Errorf("resolve challenge for %s: %w", url, err)
		}
	}

	g.state = StateAbandoned
	metrics.ObserveChallenge(url, "abandoned")
	return bid.Page{}, fmt.Errorf("%s after %d cycles: %w", url, g.maxCycles, ErrAbandoned)
}

func (g *Gate) now() time.Time {
	if g.clock != nil {
		return g.clock.Now()
	}
	return time.Now().UTC()
}

// AutoReloadResolver waits a fixed interval before the gate reloads. Managed
// challenges frequently clear on their own once the page has sat for a few
// seconds.
type AutoReloadResolver struct {
	Delay time.Duration
}

// Resolve blocks for the configured delay or until the context ends.
func (r AutoReloadResolver) Resolve(ctx context.Context, _ Challenge) error {
	delay := r.Delay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
