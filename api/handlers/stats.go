package handlers

import (
	"net/http"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/benchmark"
	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/store"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

// allStrategies is the fixed set of routing strategies exposed by
// GET /api/config.
var allStrategies = []string{
	string(router.StrategyCostFirst),
	string(router.StrategyGreenFirst),
	string(router.StrategyPerformanceFirst),
	string(router.StrategyBalanced),
}

// DashboardHandler serves the gateway's operational/dashboard endpoints:
// /api/stats, /api/config, /api/benchmarks.
type DashboardHandler struct {
	store     *store.Store
	orch      *orchestrator.Orchestrator
	queue     *queue.Queue
	benchmark *benchmark.Tracker
	catalog   []router.ModelEntry
	logger    *zap.Logger
}

// NewDashboardHandler builds a DashboardHandler.
func NewDashboardHandler(st *store.Store, orch *orchestrator.Orchestrator, q *queue.Queue, bt *benchmark.Tracker, catalog []router.ModelEntry, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: st, orch: orch, queue: q, benchmark: bt, catalog: catalog, logger: logger}
}

// HandleStats serves GET /api/stats: request/cache/cost aggregates plus
// live breaker and queue snapshots.
func (h *DashboardHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	dash, err := h.store.Stats()
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to read stats", h.logger)
		return
	}

	resp := api.StatsResponse{
		TotalRequests: dash.TotalRequests,
		CacheHits:     dash.CacheHits,
		TotalCostUSD:  dash.TotalCostUSD,
		AvgLatencyMs:  dash.AvgLatencyMs,
	}
	if dash.TotalRequests > 0 {
		resp.CacheHitRate = float64(dash.CacheHits) / float64(dash.TotalRequests)
	}

	for _, snap := range h.orch.BreakerSnapshot() {
		resp.Breakers = append(resp.Breakers, api.BreakerStatus{Provider: snap.Provider, State: snap.State.String()})
	}

	if h.queue != nil {
		q := h.queue.Snapshot()
		resp.Queue = api.QueueStatus{Depth: q.Depth, Degraded: q.Degraded, Dropped: q.Dropped, Flushed: q.Flushed, Errors: q.Errors}
	}

	WriteJSON(w, http.StatusOK, resp)
}

// HandleConfig serves GET /api/config: the available strategies and the
// static model catalog used to score them.
func (h *DashboardHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	entries := make([]api.CatalogEntry, len(h.catalog))
	for i, m := range h.catalog {
		entries[i] = api.CatalogEntry{
			ID:              m.ID,
			Provider:        m.Provider,
			InputCostPer1M:  m.InputCostPer1M,
			OutputCostPer1M: m.OutputCostPer1M,
			AvgLatencyMS:    m.AvgLatencyMS,
			Reliability:     m.Reliability,
			EnergyIntensity: m.EnergyIntensity,
			QualityScore:    m.QualityScore,
			Strengths:       m.Strengths,
		}
	}
	WriteJSON(w, http.StatusOK, api.ConfigResponse{Strategies: allStrategies, Catalog: entries})
}

// HandleBenchmarks serves GET /api/benchmarks: each model's rolling
// latency/error snapshot from the in-memory benchmark tracker.
func (h *DashboardHandler) HandleBenchmarks(w http.ResponseWriter, r *http.Request) {
	stats := h.benchmark.SnapshotAll()
	models := make([]api.BenchmarkEntry, len(stats))
	for i, s := range stats {
		models[i] = benchmarkEntry(s)
	}
	WriteJSON(w, http.StatusOK, api.BenchmarksResponse{Models: models})
}

func benchmarkEntry(s benchmark.Stats) api.BenchmarkEntry {
	return api.BenchmarkEntry{
		Model:       s.Model,
		MeanMs:      s.Mean.Milliseconds(),
		P50Ms:       s.P50.Milliseconds(),
		P95Ms:       s.P95.Milliseconds(),
		P99Ms:       s.P99.Milliseconds(),
		ErrorRate:   s.ErrorRate,
		TimeoutRate: s.TimeoutRate,
		SampleCount: s.SampleCount,
		IsHealthy:   s.IsHealthy,
	}
}
