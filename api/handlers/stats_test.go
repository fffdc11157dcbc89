package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/benchmark"
	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.db")
	st, err := store.Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestDashboardHandler_HandleStats(t *testing.T) {
	st := newTestStore(t)
	q := queue.New(st)
	orch := newTestOrchestrator(t)
	bt := benchmark.New()

	handler := NewDashboardHandler(st, orch, q, bt, testCatalog(), zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	handler.HandleStats(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.StatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.GreaterOrEqual(t, resp.TotalRequests, int64(0))
}

func TestDashboardHandler_HandleConfig(t *testing.T) {
	st := newTestStore(t)
	q := queue.New(st)
	orch := newTestOrchestrator(t)
	bt := benchmark.New()

	handler := NewDashboardHandler(st, orch, q, bt, testCatalog(), zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	handler.HandleConfig(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.ConfigResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Strategies, "cost-first")
	require.Len(t, resp.Catalog, 1)
	assert.Equal(t, "gpt-4o-mini", resp.Catalog[0].ID)
}

func TestDashboardHandler_HandleBenchmarks(t *testing.T) {
	st := newTestStore(t)
	q := queue.New(st)
	orch := newTestOrchestrator(t)
	bt := benchmark.New()
	bt.Record("gpt-4o-mini", 0, true, false)

	handler := NewDashboardHandler(st, orch, q, bt, testCatalog(), zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/benchmarks", nil)
	handler.HandleBenchmarks(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.BenchmarksResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Models, 1)
	assert.Equal(t, "gpt-4o-mini", resp.Models[0].Model)
}
