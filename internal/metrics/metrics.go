// Package metrics exposes Prometheus collectors for the scraper service.
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
	scraperFetchAttemptsTotal     *prometheus.CounterVec
	scraperFetchDurationSeconds   *prometheus.HistogramVec
	scraperCacheLookupsTotal      *prometheus.CounterVec
	scraperRobotsDecisionsTotal   *prometheus.CounterVec
	scraperRobotsFallbackTotal    *prometheus.CounterVec
	scraperScrapesTotal           *prometheus.CounterVec
	scraperRateLimitDelaysSeconds *prometheus.HistogramVec
	scraperBackoffDelaysSeconds   *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_attempts_total",
				Help: "Total number of network fetch attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scraperFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of single fetch attempt latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		scraperCacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_cache_lookups_total",
				Help: "Total number of cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		scraperRobotsDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_robots_decisions_total",
				Help: "Total number of robots.txt decisions, labeled by site and decision.",
			},
			[]string{"site", "decision"},
		)

		scraperRobotsFallbackTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_robots_fallback_total",
				Help: "Total number of robots.txt loads that fell back to the default policy.",
			},
			[]string{"site"},
		)

		scraperScrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_scrapes_total",
				Help: "Total number of scrapes, labeled by strategy and status.",
			},
			[]string{"strategy", "status"},
		)

		scraperRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		scraperBackoffDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_backoff_delays_seconds",
				Help:    "Histogram of retry backoff delays, labeled by site.",
				Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"site"},
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

// ObserveFetchAttempt records one network attempt and its latency.
func ObserveFetchAttempt(rawURL, outcome string, duration time.Duration) {
	Init()
	site := SanitizeSite(rawURL)
	scraperFetchAttemptsTotal.WithLabelValues(site, outcome).Inc()
	scraperFetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	Init()
	result := "miss"
	if hit {
		result = "hit"
	}
	scraperCacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRobotsDecision counts an allow or deny answer for rawURL.
func ObserveRobotsDecision(rawURL string, allowed bool) {
	Init()
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	scraperRobotsDecisionsTotal.WithLabelValues(SanitizeSite(rawURL), decision).Inc()
}

// ObserveRobotsFallback counts a robots.txt load that failed.
func ObserveRobotsFallback(origin string) {
	Init()
	scraperRobotsFallbackTotal.WithLabelValues(SanitizeSite(origin)).Inc()
}

// ObserveScrape counts a finished scrape for the given strategy.
func ObserveScrape(strategy, status string) {
	Init()
	scraperScrapesTotal.WithLabelValues(strategy, status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	scraperRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveBackoff records a retry delay scheduled for rawURL.
func ObserveBackoff(rawURL string, delay time.Duration) {
	Init()
	scraperBackoffDelaysSeconds.WithLabelValues(SanitizeSite(rawURL)).Observe(delay.Seconds())
}
