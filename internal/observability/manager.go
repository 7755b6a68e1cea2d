package observability

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/softfinder/softfinder-go/internal/cache"
)

// Config holds configuration for observability features
type Config struct {
	Health  HealthConfig  `json:"health"`
	Metrics MetricsConfig `json:"metrics"`
	Tracing TracingConfig `json:"tracing"`
}

// HealthConfig holds configuration for health checks
type HealthConfig struct {
	Enabled bool          `json:"enabled"`
	Timeout time.Duration `json:"timeout"`
}

// MetricsConfig holds configuration for metrics
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns a default observability configuration
func DefaultConfig(serviceName, serviceVersion string) Config {
	return Config{
		Health: HealthConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
		},
	}
}

// Handler is the route registration surface shared by http.ServeMux and chi.Router.
type Handler interface {
	Handle(pattern string, h http.Handler)
}

// Manager coordinates health, metrics and tracing. It satisfies the
// resolver's Recorder so the orchestrator can report per-source outcomes.
type Manager struct {
	logger  *zap.SugaredLogger
	config  Config
	health  *HealthManager
	metrics *MetricsManager
	tracing *TracingManager

	startTime time.Time
}

// NewManager creates a new observability manager
func NewManager(logger *zap.SugaredLogger, config Config) (*Manager, error) {
	manager := &Manager{
		logger:    logger,
		config:    config,
		startTime: time.Now(),
	}

	if config.Health.Enabled {
		manager.health = NewHealthManager(logger)
		manager.health.SetTimeout(config.Health.Timeout)
	}

	if config.Metrics.Enabled {
		manager.metrics = NewMetricsManager(logger)
	}

	tracing, err := NewTracingManager(logger, config.Tracing)
	if err != nil {
		return nil, err
	}
	manager.tracing = tracing

	return manager, nil
}

// Health returns the health manager
func (m *Manager) Health() *HealthManager {
	return m.health
}

// Metrics returns the metrics manager
func (m *Manager) Metrics() *MetricsManager {
	return m.metrics
}

// Tracing returns the tracing manager
func (m *Manager) Tracing() *TracingManager {
	return m.tracing
}

// RegisterHealthChecker registers a health checker
func (m *Manager) RegisterHealthChecker(checker HealthChecker) {
	if m.health != nil {
		m.health.AddHealthChecker(checker)
	}
}

// RegisterReadinessChecker registers a readiness checker
func (m *Manager) RegisterReadinessChecker(checker ReadinessChecker) {
	if m.health != nil {
		m.health.AddReadinessChecker(checker)
	}
}

// TrackCaches exports statistics of the given caches when metrics are enabled
func (m *Manager) TrackCaches(providers ...cache.StatsProvider) {
	if m.metrics != nil {
		m.metrics.TrackCaches(providers...)
	}
}

// SetupHTTPHandlers mounts /healthz, /readyz and /metrics
func (m *Manager) SetupHTTPHandlers(mux Handler) {
	if m.health != nil {
		mux.Handle("/healthz", m.health.HealthzHandler())
		mux.Handle("/readyz", m.health.ReadyzHandler())
	}

	if m.metrics != nil {
		metrics := m.metrics.Handler()
		mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.UpdateMetrics()
			metrics.ServeHTTP(w, r)
		}))
	}
}

// HTTPMiddleware returns combined HTTP middleware for observability
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	middlewares := make([]func(http.Handler) http.Handler, 0, 2)

	if m.tracing != nil {
		middlewares = append(middlewares, m.tracing.HTTPMiddleware())
	}
	if m.metrics != nil {
		middlewares = append(middlewares, m.metrics.HTTPMiddleware())
	}

	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// UpdateMetrics refreshes gauges derived from process state
func (m *Manager) UpdateMetrics() {
	if m.metrics == nil {
		return
	}
	m.metrics.SetUptime(m.startTime)
}

// RecordSourceRequest records one package source search
func (m *Manager) RecordSourceRequest(source, status string, duration time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordSourceRequest(source, status, duration)
	}
}

// RecordFallback records one fallback chain step
func (m *Manager) RecordFallback(kind string) {
	if m.metrics != nil {
		m.metrics.RecordFallback(kind)
	}
}

// RecordInstall records an install outcome
func (m *Manager) RecordInstall(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordInstall(outcome)
	}
}

// RecordHistoryOperation records a history store operation
func (m *Manager) RecordHistoryOperation(operation string, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordHistoryOperation(operation, status)
}

// Close gracefully shuts down observability components
func (m *Manager) Close(ctx context.Context) error {
	if m.tracing != nil {
		if err := m.tracing.Close(ctx); err != nil {
			m.logger.Errorw("Failed to close tracing manager", "error", err)
			return err
		}
	}
	return nil
}

// IsHealthy returns true if all health checks pass
func (m *Manager) IsHealthy(ctx context.Context) bool {
	if m.health == nil {
		return true
	}
	return m.health.IsHealthy(ctx)
}

// IsReady returns true if all readiness checks pass
func (m *Manager) IsReady(ctx context.Context) bool {
	if m.health == nil {
		return true
	}
	return m.health.IsReady(ctx)
}
