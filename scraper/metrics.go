package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for scraping and downloading.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	PagesCrawledTotal   prometheus.Counter
	ItemsExtractedTotal prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
	AssetsTotal         *prometheus.CounterVec
	ThumbnailCacheHits  prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgcrawler_requests_total",
			Help: "Total HTTP requests issued, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgcrawler_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imgcrawler_pages_crawled_total",
			Help: "Total number of listing pages fetched.",
		},
	)
	items := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imgcrawler_items_extracted_total",
			Help: "Total number of item records extracted.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgcrawler_errors_total",
			Help: "Total number of errors by type.",
		},
		[]string{"error_type"},
	)
	assets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgcrawler_assets_total",
			Help: "Assets processed by the downloader, by result.",
		},
		[]string{"result"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imgcrawler_thumbnail_cache_hits_total",
			Help: "Thumbnail requests served from the in-memory cache.",
		},
	)

	registry.MustRegister(requests, requestDuration, pages, items, errorsTotal, assets, cacheHits)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		PagesCrawledTotal:   pages,
		ItemsExtractedTotal: items,
		ErrorsTotal:         errorsTotal,
		AssetsTotal:         assets,
		ThumbnailCacheHits:  cacheHits,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPages increments the crawled pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesCrawledTotal.Inc()
}

// IncItems increments the extracted items counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsExtractedTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncAsset increments the asset counter for a result label
// (downloaded, existing, skipped, failed).
func (m *Metrics) IncAsset(result string) {
	if m == nil {
		return
	}
	m.AssetsTotal.WithLabelValues(result).Inc()
}

// IncCacheHit increments the thumbnail cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.ThumbnailCacheHits.Inc()
}
