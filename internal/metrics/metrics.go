// Package metrics exposes Prometheus collectors for the scraping pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal            *prometheus.CounterVec
	challengesTotal       *prometheus.CounterVec
	recordsPublishedTotal *prometheus.CounterVec
	sourcesTotal          *prometheus.CounterVec
	runDurationSeconds    prometheus.Histogram

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidsweep_pages_total",
				Help: "Total detail pages processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		challengesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidsweep_challenges_total",
				Help: "Verification challenges encountered, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		recordsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidsweep_records_published_total",
				Help: "Canonical records handed to a sink, labeled by sink and outcome.",
			},
			[]string{"sink", "outcome"},
		)

		sourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidsweep_sources_total",
				Help: "Source adapter runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bidsweep_run_duration_seconds",
				Help:    "Histogram of full pipeline run durations.",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 3600},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePages counts count processed detail pages at once.
func ObservePages(site, outcome string, count int) {
	if count <= 0 {
		return
	}
	pagesTotal.WithLabelValues(SanitizeSite(site), outcome).Add(float64(count))
}

// ObserveChallenge counts one verification challenge outcome.
func ObserveChallenge(site, outcome string) {
	challengesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObservePublish counts records handed to a sink.
func ObservePublish(sink, outcome string, count int) {
	if count <= 0 {
		return
	}
	recordsPublishedTotal.WithLabelValues(sink, outcome).Add(float64(count))
}

// ObserveSource counts one source adapter run by outcome.
func ObserveSource(outcome string) {
	sourcesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRunDuration records the wall-clock duration of a full run.
func ObserveRunDuration(seconds float64) {
	runDurationSeconds.Observe(seconds)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
