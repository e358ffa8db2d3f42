package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/govharvest/bidsweep/internal/bid"
)

// ErrHeadlessDisabled indicates headless loading is off via configuration; a
// site requiring JavaScript cannot be scraped in this run.
var ErrHeadlessDisabled = errors.New("headless loading disabled")

// HeadlessLoader drives headless Chrome for portals that build their listing
// in the browser. One browser process is shared; each load runs in a fresh
// tab, bounded by a concurrency semaphore and a per-domain rate limiter.
type HeadlessLoader struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	clock           bid.Clock
	sem             chan struct{}
	timeout         time.Duration
	domainQPS       float64
	domainLimiters  sync.Map
	userAgent       string
}

// NewHeadlessLoader starts the shared browser. Returns ErrHeadlessDisabled
// when the config turns headless off.
func NewHeadlessLoader(cfg Config, clock bid.Clock, logger *zap.Logger) (*HeadlessLoader, error) {
	if !cfg.HeadlessEnabled {
		return nil, ErrHeadlessDisabled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &HeadlessLoader{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		clock:           clock,
		sem:             make(chan struct{}, cfg.HeadlessConcurrency),
		timeout:         cfg.HeadlessTimeout,
		domainQPS:       cfg.DomainQPS,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Close tears down the browser and allocator.
func (l *HeadlessLoader) Close() error {
	if l == nil {
		return nil
	}
	l.browserCancel()
	l.allocatorCancel()
	return nil
}

// Fetch loads the page waiting only for the document body, satisfying
// bid.Fetcher for sites with no specific readiness selector.
func (l *HeadlessLoader) Fetch(ctx context.Context, rawURL string) (bid.Page, error) {
	return l.Load(ctx, rawURL, "body")
}

// Load navigates to rawURL, waits until waitSelector is present, and returns
// the rendered DOM snapshot. The wait is bounded by the configured headless
// timeout; a selector that never appears fails the load rather than hanging
// the run.
func (l *HeadlessLoader) Load(ctx context.Context, rawURL, waitSelector string) (bid.Page, error) {
	if l == nil {
		return bid.Page{}, ErrHeadlessDisabled
	}
	if waitSelector == "" {
		waitSelector = "body"
	}

	release, err := l.acquireSlot(ctx)
	if err != nil {
		return bid.Page{}, err
	}
	defer release()

	if err := l.waitDomainBudget(ctx, rawURL); err != nil {
		return bid.Page{}, fmt.Errorf("headless rate limit: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(l.browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, l.timeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := &docMeta{}
	l.recordDocumentResponse(tabCtx, meta)

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(l.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return bid.Page{}, fmt.Errorf("headless load %s: %w", rawURL, err)
	}

	return bid.Page{
		URL:        rawURL,
		FinalURL:   meta.finalURL(rawURL),
		StatusCode: meta.status,
		Body:       []byte(html),
		FetchedAt:  l.now(),
	}, nil
}

func (l *HeadlessLoader) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire headless slot: %w", ctx.Err())
	}
}

func (l *HeadlessLoader) waitDomainBudget(ctx context.Context, rawURL string) error {
	if l.domainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := l.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(l.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

type docMeta struct {
	once   sync.Once
	status int
	url    string
}

func (m *docMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func (l *HeadlessLoader) recordDocumentResponse(tabCtx context.Context, meta *docMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.status = int(resp.Response.Status)
			meta.url = resp.Response.URL
		})
	})
}

func (l *HeadlessLoader) now() time.Time {
	if l.clock != nil {
		return l.clock.Now()
	}
	return time.Now().UTC()
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
