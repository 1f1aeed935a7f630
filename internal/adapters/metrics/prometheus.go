// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	searchCounter       *prometheus.CounterVec
	searchDuration      prometheus.Histogram
	tileCounter         *prometheus.CounterVec
	tileDuration        prometheus.Histogram
	jobCounter          *prometheus.CounterVec
	queueDepth          prometheus.Gauge
	storageOperations   *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "waypost"
	}

	return &Collector{
		searchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of amenity searches",
			},
			[]string{"cache", "status"},
		),

		searchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		tileCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tile_renders_total",
				Help:      "Total number of vector tile renders",
			},
			[]string{"cache", "status"},
		),

		tileDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tile_render_duration_seconds",
				Help:      "Tile render duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		jobCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_jobs_total",
				Help:      "Total number of export job transitions",
			},
			[]string{"status"},
		),

		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "export_queue_depth",
				Help:      "Number of export jobs waiting in the queue",
			},
		),

		storageOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of file storage operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncSearch increments the search counter.
func (c *Collector) IncSearch(cacheHit, success bool) {
	c.searchCounter.WithLabelValues(cacheLabel(cacheHit), statusLabel(success)).Inc()
}

// ObserveSearchDuration records search duration.
func (c *Collector) ObserveSearchDuration(duration time.Duration) {
	c.searchDuration.Observe(duration.Seconds())
}

// IncTileRender increments the tile render counter.
func (c *Collector) IncTileRender(cacheHit, success bool) {
	c.tileCounter.WithLabelValues(cacheLabel(cacheHit), statusLabel(success)).Inc()
}

// ObserveTileDuration records tile render duration.
func (c *Collector) ObserveTileDuration(duration time.Duration) {
	c.tileDuration.Observe(duration.Seconds())
}

// IncJob increments the job counter for a lifecycle state.
func (c *Collector) IncJob(status string) {
	c.jobCounter.WithLabelValues(status).Inc()
}

// SetQueueDepth sets the current export queue depth.
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// IncStorageOperations increments the file storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses dynamic path segments to keep label cardinality
// bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/mvt/"):
		return "/mvt/{layer}/{z}/{x}/{y}"
	case strings.HasPrefix(path, "/export/status/"):
		return "/export/status/{jobID}"
	case strings.HasPrefix(path, "/files/"):
		return "/files/{filename}"
	default:
		return path
	}
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
