package store

import "time"

// tenantRow is the gorm row for the tenants table.
type tenantRow struct {
	ID                  string `gorm:"column:id;primaryKey"`
	Name                string `gorm:"column:name"`
	KeyHash             string `gorm:"column:key_hash;uniqueIndex"`
	Strategy            string `gorm:"column:strategy"`
	AllowedModels       string `gorm:"column:allowed_models"` // JSON array, empty = allow all
	BudgetLimitMonthly  *float64 `gorm:"column:budget_limit_monthly"`
	UsageThisMonth      float64  `gorm:"column:usage_this_month"`
	RateLimitRPM        int      `gorm:"column:rate_limit_rpm"`
	RateLimitTPM        int      `gorm:"column:rate_limit_tpm"`
	CreatedAt           time.Time `gorm:"column:created_at"`
}

func (tenantRow) TableName() string { return "tenants" }

// requestRow is the gorm row for the requests (log) table.
type requestRow struct {
	RequestID     string    `gorm:"column:request_id;primaryKey"`
	TenantID      string    `gorm:"column:tenant_id;index"`
	PromptPreview string    `gorm:"column:prompt_preview"`
	Tier          string    `gorm:"column:tier"`
	Score         float64   `gorm:"column:score"`
	Confidence    float64   `gorm:"column:confidence"`
	Intent        string    `gorm:"column:intent"`
	Model         string    `gorm:"column:model"`
	Provider      string    `gorm:"column:provider"`
	Strategy      string    `gorm:"column:strategy"`
	InputTokens   int       `gorm:"column:input_tokens"`
	OutputTokens  int       `gorm:"column:output_tokens"`
	CostUSD       float64   `gorm:"column:cost_usd"`
	Energy        float64   `gorm:"column:energy"`
	LatencyMs     int64     `gorm:"column:latency_ms"`
	StatusCode    int       `gorm:"column:status_code"`
	CacheHit      bool      `gorm:"column:cache_hit"`
	Reasoning     string    `gorm:"column:reasoning"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (requestRow) TableName() string { return "requests" }

// feedbackRow is the gorm row for the routing_feedback table.
type feedbackRow struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID    string    `gorm:"column:request_id"`
	TenantID     string    `gorm:"column:tenant_id"`
	Model        string    `gorm:"column:model"`
	QualityScore *float64  `gorm:"column:quality_score"`
	LatencyMs    int64     `gorm:"column:latency_ms"`
	CostUSD      float64   `gorm:"column:cost_usd"`
	Success      bool      `gorm:"column:success"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (feedbackRow) TableName() string { return "routing_feedback" }

// modelHealthRow is the gorm row for the model_health table, one row
// per model, overwritten on each benchmark flush.
type modelHealthRow struct {
	Model         string    `gorm:"column:model;primaryKey"`
	MeanLatencyMs int64     `gorm:"column:mean_latency_ms"`
	P50Ms         int64     `gorm:"column:p50_ms"`
	P95Ms         int64     `gorm:"column:p95_ms"`
	P99Ms         int64     `gorm:"column:p99_ms"`
	ErrorRate     float64   `gorm:"column:error_rate"`
	TimeoutRate   float64   `gorm:"column:timeout_rate"`
	SampleCount   int       `gorm:"column:sample_count"`
	IsHealthy     bool      `gorm:"column:is_healthy"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (modelHealthRow) TableName() string { return "model_health" }
