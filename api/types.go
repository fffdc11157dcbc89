// Package api provides the gateway's HTTP request/response types.
package api

import "github.com/agentflow-gateway/gateway/types"

// =============================================================================
// Error envelope
// =============================================================================

// ErrorBody is the `error` member of every non-2xx JSON response.
type ErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorEnvelope wraps ErrorBody as the top-level error response shape.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// =============================================================================
// POST /v1/chat/completions
// =============================================================================

// CompletionRequest is the body of POST /v1/chat/completions.
type CompletionRequest struct {
	Messages    []types.Message `json:"messages"`
	Model       string          `json:"model,omitempty"`
	Strategy    string          `json:"strategy,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	TopP        float32         `json:"top_p,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

// =============================================================================
// GET /v1/models
// =============================================================================

// ModelObject is one entry in the OpenAI-shaped model listing.
type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

// =============================================================================
// GET /api/config
// =============================================================================

// CatalogEntry is one model-catalog row as exposed to API clients, a
// trimmed projection of router.ModelEntry.
type CatalogEntry struct {
	ID               string   `json:"id"`
	Provider         string   `json:"provider"`
	InputCostPer1M   float64  `json:"inputCostPer1M"`
	OutputCostPer1M  float64  `json:"outputCostPer1M"`
	AvgLatencyMS     float64  `json:"avgLatencyMs"`
	Reliability      float64  `json:"reliability"`
	EnergyIntensity  float64  `json:"energyIntensity"`
	QualityScore     float64  `json:"qualityScore"`
	Strengths        []string `json:"strengths,omitempty"`
}

// ConfigResponse is the body of GET /api/config.
type ConfigResponse struct {
	Strategies []string       `json:"strategies"`
	Catalog    []CatalogEntry `json:"catalog"`
}

// =============================================================================
// GET /api/stats
// =============================================================================

// BreakerStatus is one provider's circuit-breaker state, for dashboards.
type BreakerStatus struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// QueueStatus mirrors queue.Stats for API consumers.
type QueueStatus struct {
	Depth    int   `json:"depth"`
	Degraded bool  `json:"degraded"`
	Dropped  int64 `json:"dropped"`
	Flushed  int64 `json:"flushed"`
	Errors   int64 `json:"errors"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TotalRequests int64           `json:"totalRequests"`
	CacheHits     int64           `json:"cacheHits"`
	CacheHitRate  float64         `json:"cacheHitRate"`
	TotalCostUSD  float64         `json:"totalCostUsd"`
	AvgLatencyMs  float64         `json:"avgLatencyMs"`
	Breakers      []BreakerStatus `json:"breakers"`
	Queue         QueueStatus     `json:"queue"`
}

// =============================================================================
// GET /api/benchmarks
// =============================================================================

// BenchmarkEntry is one model's passive benchmark snapshot.
type BenchmarkEntry struct {
	Model       string `json:"model"`
	MeanMs      int64  `json:"meanMs"`
	P50Ms       int64  `json:"p50Ms"`
	P95Ms       int64  `json:"p95Ms"`
	P99Ms       int64  `json:"p99Ms"`
	ErrorRate   float64 `json:"errorRate"`
	TimeoutRate float64 `json:"timeoutRate"`
	SampleCount int     `json:"sampleCount"`
	IsHealthy   bool    `json:"isHealthy"`
}

// BenchmarksResponse is the body of GET /api/benchmarks.
type BenchmarksResponse struct {
	Models []BenchmarkEntry `json:"models"`
}

// =============================================================================
// POST /api/tenants, GET /api/tenants
// =============================================================================

// CreateTenantRequest is the body of POST /api/tenants.
type CreateTenantRequest struct {
	Name             string   `json:"name"`
	BudgetLimitMonth *float64 `json:"budgetLimitMonth,omitempty"`
	RateLimitRPM     int      `json:"rateLimitRpm,omitempty"`
	RateLimitTPM     int      `json:"rateLimitTpm,omitempty"`
	ModelAllowlist   []string `json:"modelAllowlist,omitempty"`
	DefaultStrategy  string   `json:"defaultStrategy,omitempty"`
}

// CreateTenantResponse is the body of a successful POST /api/tenants. Key
// is returned plaintext exactly once; it is never retrievable again.
type CreateTenantResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Key             string  `json:"key"`
	BudgetLimitMonth *float64 `json:"budgetLimitMonth,omitempty"`
	RateLimitRPM    int     `json:"rateLimitRpm"`
	RateLimitTPM    int     `json:"rateLimitTpm"`
	DefaultStrategy string  `json:"defaultStrategy,omitempty"`
}

// TenantListItem is one row of GET /api/tenants. KeyHash and usage are
// visible to operators; the plaintext key is never stored or returned.
type TenantListItem struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	BudgetLimitMonth *float64 `json:"budgetLimitMonth,omitempty"`
	UsageThisMonth   float64  `json:"usageThisMonth"`
	RateLimitRPM     int      `json:"rateLimitRpm"`
	RateLimitTPM     int      `json:"rateLimitTpm"`
	ModelAllowlist   []string `json:"modelAllowlist,omitempty"`
	DefaultStrategy  string   `json:"defaultStrategy,omitempty"`
	CreatedAt        string   `json:"createdAt"`
}

// TenantListResponse is the body of GET /api/tenants.
type TenantListResponse struct {
	Tenants []TenantListItem `json:"tenants"`
}

// =============================================================================
// POST /api/feedback
// =============================================================================

// FeedbackRequest is the body of POST /api/feedback — a reward signal fed
// back into the bandit for the model that served requestId.
type FeedbackRequest struct {
	RequestID  string   `json:"requestId"`
	Model      string   `json:"model"`
	Success    *bool    `json:"success,omitempty"`
	Quality    float64  `json:"quality,omitempty"`
	LatencySec *float64 `json:"latencySec,omitempty"`
	CostUSD    *float64 `json:"costUsd,omitempty"`
}
