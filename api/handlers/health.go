package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/breaker"
	"github.com/agentflow-gateway/gateway/queue"
	"go.uber.org/zap"
)

// HealthHandler serves the gateway's liveness/readiness surface, plus
// /health's richer snapshot of queue depth and breaker state.
type HealthHandler struct {
	logger  *zap.Logger
	checks  []HealthCheck
	mu      sync.RWMutex
	queueFn func() queue.Stats
	breakFn func() []breaker.Snapshot
}

// HealthCheck is a single named dependency probe.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the /health, /healthz, /ready response body.
type HealthStatus struct {
	Status    string                 `json:"status"` // healthy, degraded, unhealthy
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Queue     *api.QueueStatus       `json:"queue,omitempty"`
	Breakers  []api.BreakerStatus    `json:"breakers,omitempty"`
}

// CheckResult is one dependency's probe outcome.
type CheckResult struct {
	Status  string `json:"status"` // pass, fail
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler builds a health handler. queueFn and breakerFn may be
// nil, in which case /health omits those sections (used before the
// orchestrator/queue are wired up, e.g. in unit tests).
func NewHealthHandler(logger *zap.Logger, queueFn func() queue.Stats, breakerFn func() []breaker.Snapshot) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		checks:  make([]HealthCheck, 0),
		queueFn: queueFn,
		breakFn: breakerFn,
	}
}

// RegisterCheck adds a dependency probe consulted by HandleReady.
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth serves GET /health: readiness plus queue depth and
// breaker snapshot, so operators get the gateway's full runtime picture
// from a single endpoint.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	if h.queueFn != nil {
		q := h.queueFn()
		status.Queue = &api.QueueStatus{
			Depth:    q.Depth,
			Degraded: q.Degraded,
			Dropped:  q.Dropped,
			Flushed:  q.Flushed,
			Errors:   q.Errors,
		}
		if q.Degraded {
			status.Status = "degraded"
		}
	}
	if h.breakFn != nil {
		snaps := h.breakFn()
		status.Breakers = make([]api.BreakerStatus, len(snaps))
		for i, s := range snaps {
			status.Breakers[i] = api.BreakerStatus{Provider: s.Provider, State: s.State.String()}
			if s.State == breaker.Open {
				status.Status = "degraded"
			}
		}
	}

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// HandleHealthz is the Kubernetes-style liveness probe: process is up,
// nothing else is checked.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady runs every registered dependency check and reports 503 if
// any fails.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult),
	}

	allHealthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{Status: "pass", Latency: latency.String()}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			allHealthy = false

			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}
		status.Checks[check.Name()] = result
	}

	if !allHealthy {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// HandleVersion returns build metadata.
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// DatabaseHealthCheck probes storage liveness via a caller-supplied ping
// function (store.Store wraps the underlying sqlite connection's Ping).
type DatabaseHealthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewDatabaseHealthCheck builds a DatabaseHealthCheck.
func NewDatabaseHealthCheck(name string, ping func(ctx context.Context) error) *DatabaseHealthCheck {
	return &DatabaseHealthCheck{name: name, ping: ping}
}

func (c *DatabaseHealthCheck) Name() string { return c.name }

func (c *DatabaseHealthCheck) Check(ctx context.Context) error { return c.ping(ctx) }
