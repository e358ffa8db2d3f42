// Package resolver provides the operator console for verification
// challenges. When a portal interposes a CAPTCHA or browser check, the
// pipeline blocks on Resolve until an operator completes the challenge in a
// real browser and acknowledges it here.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/metrics"
	"github.com/govharvest/bidsweep/internal/verify"
)

// IDGenerator mints challenge IDs.
type IDGenerator interface {
	NewID() (string, error)
}

type pendingChallenge struct {
	ID           string
	Challenge    verify.Challenge
	RegisteredAt time.Time
	done         chan struct{}
}

// Console implements verify.Resolver over HTTP. Resolve parks the calling
// goroutine until POST /api/challenges/{id}/resolve arrives or the context
// expires.
type Console struct {
	router chi.Router
	ids    IDGenerator
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingChallenge
	seq     int
}

// New builds a console with its routes mounted.
func New(ids IDGenerator, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	c := &Console{
		ids:     ids,
		logger:  logger,
		pending: make(map[string]*pendingChallenge),
	}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/healthz", c.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/api/challenges", func(r chi.Router) {
		r.Get("/", c.listChallenges)
		r.Post("/{challenge_id}/resolve", c.resolveChallenge)
	})
	c.router = r
	return c
}

// Handler returns the router for use with http.Server.
func (c *Console) Handler() http.Handler {
	return c.router
}

// Resolve registers the challenge and blocks until an operator acknowledges
// it or ctx is done. The challenge is always deregistered before returning.
func (c *Console) Resolve(ctx context.Context, ch verify.Challenge) error {
	p := &pendingChallenge{
		ID:           c.newID(),
		Challenge:    ch,
		RegisteredAt: time.Now().UTC(),
		done:         make(chan struct{}),
	}

	c.mu.Lock()
	c.pending[p.ID] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, p.ID)
		c.mu.Unlock()
	}()

	c.logger.Info("challenge waiting for operator",
		zap.String("challenge_id", p.ID),
		zap.String("url", ch.URL),
		zap.String("layer", ch.Detection.Layer),
		zap.Int("cycle", ch.Cycle),
	)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("challenge %s unresolved: %w", p.ID, ctx.Err())
	}
}

func (c *Console) newID() string {
	if c.ids != nil {
		if id, err := c.ids.NewID(); err == nil {
			return id
		}
	}
	c.seq++
	return fmt.Sprintf("challenge-%d", c.seq)
}

func (c *Console) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Console) listChallenges(w http.ResponseWriter, _ *http.Request) {
	c.mu.Lock()
	out := make([]challengeDTO, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, toChallengeDTO(p))
	}
	c.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"challenges": out})
}

func (c *Console) resolveChallenge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "challenge_id")
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}
	close(p.done)
	c.logger.Info("challenge resolved by operator", zap.String("challenge_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"challenge_id": id, "status": "resolved"})
}

type challengeDTO struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Layer        string    `json:"layer"`
	Signal       string    `json:"signal"`
	Cycle        int       `json:"cycle"`
	DetectedAt   time.Time `json:"detected_at"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toChallengeDTO(p *pendingChallenge) challengeDTO {
	return challengeDTO{
		ID:           p.ID,
		URL:          p.Challenge.URL,
		Layer:        p.Challenge.Detection.Layer,
		Signal:       p.Challenge.Detection.Signal,
		Cycle:        p.Challenge.Cycle,
		DetectedAt:   p.Challenge.DetectedAt,
		RegisteredAt: p.RegisteredAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
