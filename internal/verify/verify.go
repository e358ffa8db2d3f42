// Package verify implements the anti-bot verification gate that sits between
// fetching and extraction. A page that trips the detector is not processed;
// the gate cycles through resolution attempts and either produces a clean
// page or abandons the site.
package verify

import (
	"context"
	"errors"
	"time"

	"github.com/govharvest/bidsweep/internal/bid"
)

// State is the gate's position in the verification lifecycle.
type State int

const (
	StateUnchecked State = iota
	StateChecking
	StateNoChallenge
	StateChallengeDetected
	StateAwaitingResolution
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateChecking:
		return "checking"
	case StateNoChallenge:
		return "no_challenge"
	case StateChallengeDetected:
		return "challenge_detected"
	case StateAwaitingResolution:
		return "awaiting_resolution"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// ErrAbandoned is returned once the gate has exhausted its resolution cycles.
var ErrAbandoned = errors.New("verification challenge abandoned")

// Challenge describes one detected verification interstitial.
type Challenge struct {
	URL        string
	Detection  Detection
	Cycle      int
	DetectedAt time.Time
}

// Resolver attempts to get a challenge out of the way. Implementations range
// from a timed reload to notifying a human operator and waiting for an
// out-of-band signal. Resolve returns once another load attempt is worth
// making, or with an error when resolution cannot happen.
type Resolver interface {
	Resolve(ctx context.Context, ch Challenge) error
}

// Loader produces a fresh snapshot of the page under verification. The gate
// calls it once per cycle.
type Loader func(ctx context.Context) (bid.Page, error)
