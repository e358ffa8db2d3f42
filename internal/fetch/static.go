package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/govharvest/bidsweep/internal/bid"
)

// StaticFetcher retrieves plain-HTML portal pages through a shared colly
// collector. One collector clone per fetch keeps callbacks isolated.
type StaticFetcher struct {
	base   *colly.Collector
	clock  bid.Clock
	logger *zap.Logger
}

// NewStaticFetcher constructs the colly-backed fetcher.
func NewStaticFetcher(cfg Config, clock bid.Clock, logger *zap.Logger) (*StaticFetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	// Sequential per-site scraping means little intra-domain parallelism,
	// but the limit rule still spaces listing and detail requests apart.
	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       500 * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("configure limit rule: %w", err)
	}

	return &StaticFetcher{base: base, clock: clock, logger: logger}, nil
}

// Fetch retrieves one page.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL string) (bid.Page, error) {
	collector := f.base.Clone()
	resultCh := make(chan staticResult, 1)
	var once sync.Once
	send := func(res staticResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(staticResult{page: bid.Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
			FetchedAt:  f.now(),
		}})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		send(staticResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return bid.Page{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return bid.Page{}, err
		}
		return res.page, res.err
	default:
		return bid.Page{}, fmt.Errorf("fetch %s produced no result", rawURL)
	}
}

func (f *StaticFetcher) now() time.Time {
	if f.clock != nil {
		return f.clock.Now()
	}
	return time.Now().UTC()
}

type staticResult struct {
	page bid.Page
	err  error
}
