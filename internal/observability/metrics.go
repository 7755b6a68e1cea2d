package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
)

// MetricsManager manages Prometheus metrics
type MetricsManager struct {
	logger   *zap.SugaredLogger
	registry *prometheus.Registry

	uptime         prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	sourceRequests *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	installs       *prometheus.CounterVec
	historyOps     *prometheus.CounterVec
	caches         *cacheCollector
}

// NewMetricsManager creates a new metrics manager with a private registry
func NewMetricsManager(logger *zap.SugaredLogger) *MetricsManager {
	mm := &MetricsManager{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		caches:   &cacheCollector{},
	}

	mm.initMetrics()
	mm.registerMetrics()

	return mm
}

func (mm *MetricsManager) initMetrics() {
	mm.uptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "softfinder_uptime_seconds",
		Help: "Time since the application started",
	})

	mm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softfinder_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	mm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "softfinder_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	mm.sourceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softfinder_source_requests_total",
			Help: "Total number of package source searches",
		},
		[]string{"source", "status"},
	)

	mm.sourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "softfinder_source_duration_seconds",
			Help:    "Package source search duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"source"},
	)

	mm.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softfinder_fallback_total",
			Help: "Fallback chain steps by outcome",
		},
		[]string{"kind"},
	)

	mm.installs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softfinder_installs_total",
			Help: "Install command runs by outcome",
		},
		[]string{"outcome"},
	)

	mm.historyOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "softfinder_history_operations_total",
			Help: "Total number of history store operations",
		},
		[]string{"operation", "status"},
	)
}

func (mm *MetricsManager) registerMetrics() {
	mm.registry.MustRegister(
		mm.uptime,
		mm.httpRequests,
		mm.httpDuration,
		mm.sourceRequests,
		mm.sourceDuration,
		mm.fallbacks,
		mm.installs,
		mm.historyOps,
		mm.caches,
	)

	mm.registry.MustRegister(collectors.NewGoCollector())
	mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for the /metrics endpoint
func (mm *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry for custom metrics
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// SetUptime sets the uptime metric
func (mm *MetricsManager) SetUptime(startTime time.Time) {
	mm.uptime.Set(time.Since(startTime).Seconds())
}

// RecordHTTPRequest records an HTTP API request
func (mm *MetricsManager) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	mm.httpRequests.WithLabelValues(method, route, status).Inc()
	mm.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSourceRequest records one package source search
func (mm *MetricsManager) RecordSourceRequest(source, status string, duration time.Duration) {
	mm.sourceRequests.WithLabelValues(source, status).Inc()
	mm.sourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFallback records one fallback chain step
func (mm *MetricsManager) RecordFallback(kind string) {
	mm.fallbacks.WithLabelValues(kind).Inc()
}

// RecordInstall records the outcome of an install command
func (mm *MetricsManager) RecordInstall(outcome string) {
	mm.installs.WithLabelValues(outcome).Inc()
}

// RecordHistoryOperation records a history store operation
func (mm *MetricsManager) RecordHistoryOperation(operation, status string) {
	mm.historyOps.WithLabelValues(operation, status).Inc()
}

// TrackCaches exports hit/miss/eviction counters of the given caches.
func (mm *MetricsManager) TrackCaches(providers ...cache.StatsProvider) {
	mm.caches.add(providers...)
}

// HTTPMiddleware returns middleware that records HTTP metrics labelled by chi route pattern
func (mm *MetricsManager) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			mm.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.statusCode), time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
