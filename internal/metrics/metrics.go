// Package metrics exposes Prometheus collectors for the entity linking pipeline.
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
	articlesTotal              *prometheus.CounterVec
	linksTotal                 *prometheus.CounterVec
	resolutionsTotal           *prometheus.CounterVec
	dbResetsTotal              prometheus.Counter
	queueDepth                 prometheus.Gauge
	feedItemsTotal             *prometheus.CounterVec
	fetchWaitSeconds           *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newslinker_articles_total",
				Help: "Articles handled by the coordinator, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		linksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newslinker_links_total",
				Help: "Entity links handled, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newslinker_resolutions_total",
				Help: "Entity resolutions, labeled by category and the stage that decided them.",
			},
			[]string{"category", "stage"},
		)

		dbResetsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newslinker_db_resets_total",
				Help: "Database connection resets after a failed statement.",
			},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newslinker_queue_depth",
				Help: "Records waiting in the work queue.",
			},
		)

		feedItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newslinker_feed_items_total",
				Help: "Feed items seen by producers, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newslinker_fetch_wait_seconds",
				Help:    "Time article fetches spent waiting on the per-host rate limit.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
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

// ObserveArticle counts an article by outcome ("stored", "dropped", "partial").
func ObserveArticle(outcome string) {
	Init()
	articlesTotal.WithLabelValues(outcome).Inc()
}

// ObserveLink counts a link write by outcome ("linked", "created", "dropped", "skipped").
func ObserveLink(category, outcome string) {
	Init()
	linksTotal.WithLabelValues(category, outcome).Inc()
}

// ObserveResolution counts the stage that decided a resolution.
func ObserveResolution(category, stage string) {
	Init()
	resolutionsTotal.WithLabelValues(category, stage).Inc()
}

// ObserveDBReset counts a connection reset.
func ObserveDBReset() {
	Init()
	dbResetsTotal.Inc()
}

// SetQueueDepth records the current queue length.
func SetQueueDepth(n int) {
	Init()
	queueDepth.Set(float64(n))
}

// ObserveFeedItem counts a feed item by site and outcome.
func ObserveFeedItem(site, outcome string) {
	Init()
	feedItemsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetchWait records time spent waiting for a fetch slot on host.
func ObserveFetchWait(host string, d time.Duration) {
	Init()
	fetchWaitSeconds.WithLabelValues(strings.ToLower(host)).Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
