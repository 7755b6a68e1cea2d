// Package observability provides health checks, metrics, and tracing for the softfinder service.
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthChecker is a component that can report whether it is working.
type HealthChecker interface {
	// HealthCheck returns nil if healthy, error if unhealthy
	HealthCheck(ctx context.Context) error
	Name() string
}

// ReadinessChecker is a component that can report whether it can serve requests.
type ReadinessChecker interface {
	// ReadinessCheck returns nil if ready, error if not ready
	ReadinessCheck(ctx context.Context) error
	Name() string
}

// Health and readiness states
const (
	StateHealthy   = "healthy"
	StateUnhealthy = "unhealthy"
	StateReady     = "ready"
	StateNotReady  = "not_ready"
)

// ComponentStatus is the result of one check
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// StatusResponse is the body of /healthz and /readyz
type StatusResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentStatus `json:"components"`
}

// HealthManager runs registered health and readiness checks
type HealthManager struct {
	logger    *zap.SugaredLogger
	health    []HealthChecker
	readiness []ReadinessChecker
	timeout   time.Duration
}

// NewHealthManager creates a new health manager
func NewHealthManager(logger *zap.SugaredLogger) *HealthManager {
	return &HealthManager{
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// AddHealthChecker registers a health checker
func (hm *HealthManager) AddHealthChecker(checker HealthChecker) {
	hm.health = append(hm.health, checker)
}

// AddReadinessChecker registers a readiness checker
func (hm *HealthManager) AddReadinessChecker(checker ReadinessChecker) {
	hm.readiness = append(hm.readiness, checker)
}

// SetTimeout sets the timeout for a full round of checks
func (hm *HealthManager) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		hm.timeout = timeout
	}
}

// HealthzHandler returns an HTTP handler for the /healthz endpoint
func (hm *HealthManager) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), hm.timeout)
		defer cancel()
		hm.writeStatus(w, hm.CheckHealth(ctx), StateHealthy)
	}
}

// ReadyzHandler returns an HTTP handler for the /readyz endpoint
func (hm *HealthManager) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), hm.timeout)
		defer cancel()
		hm.writeStatus(w, hm.CheckReadiness(ctx), StateReady)
	}
}

// CheckHealth runs every health checker.
func (hm *HealthManager) CheckHealth(ctx context.Context) StatusResponse {
	checks := make([]namedCheck, 0, len(hm.health))
	for _, c := range hm.health {
		checks = append(checks, namedCheck{name: c.Name(), fn: c.HealthCheck})
	}
	return hm.run(ctx, "Health", checks, StateHealthy, StateUnhealthy)
}

// CheckReadiness runs every readiness checker.
func (hm *HealthManager) CheckReadiness(ctx context.Context) StatusResponse {
	checks := make([]namedCheck, 0, len(hm.readiness))
	for _, c := range hm.readiness {
		checks = append(checks, namedCheck{name: c.Name(), fn: c.ReadinessCheck})
	}
	return hm.run(ctx, "Readiness", checks, StateReady, StateNotReady)
}

type namedCheck struct {
	name string
	fn   func(context.Context) error
}

func (hm *HealthManager) run(ctx context.Context, kind string, checks []namedCheck, pass, fail string) StatusResponse {
	response := StatusResponse{
		Status:     pass,
		Timestamp:  time.Now(),
		Components: make([]ComponentStatus, 0, len(checks)),
	}

	for _, check := range checks {
		start := time.Now()
		status := ComponentStatus{Name: check.name, Status: pass}

		if err := check.fn(ctx); err != nil {
			status.Status = fail
			status.Error = err.Error()
			response.Status = fail
			hm.logger.Warnw(kind+" check failed",
				"component", check.name,
				"error", err)
		}

		status.Latency = time.Since(start).String()
		response.Components = append(response.Components, status)
	}

	return response
}

func (hm *HealthManager) writeStatus(w http.ResponseWriter, response StatusResponse, pass string) {
	statusCode := http.StatusOK
	if response.Status != pass {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		hm.logger.Errorw("Failed to encode health response", "error", err)
	}
}

// IsHealthy returns true if all health checks pass
func (hm *HealthManager) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()
	return hm.CheckHealth(ctx).Status == StateHealthy
}

// IsReady returns true if all readiness checks pass
func (hm *HealthManager) IsReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()
	return hm.CheckReadiness(ctx).Status == StateReady
}
