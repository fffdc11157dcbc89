package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/benchmark"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/tenant"
)

// ErrTenantNotFound is returned by GetTenantByHash when no tenant
// matches the given key hash.
var ErrTenantNotFound = errors.New("tenant not found")

// Store is the gateway's embedded SQLite persistence layer. It
// implements tenant.Store, bandit.FeedbackSource, benchmark.FlushSink,
// and queue.Sink so the rest of the gateway depends only on those
// narrow interfaces.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var (
	_ tenant.Store          = (*Store)(nil)
	_ bandit.FeedbackSource = (*Store)(nil)
	_ benchmark.FlushSink   = (*Store)(nil)
	_ queue.Sink            = (*Store)(nil)
)

// Open applies pending migrations against the sqlite file at path, then
// opens a gorm connection in WAL mode for ongoing query traffic.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := migrateUp(path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL's
	// serialize-writes model; reads still proceed concurrently.
	sqlDB.SetMaxOpenConns(1)

	logger.Info("store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateTenant persists a new tenant row. Implements tenant.Store.
func (s *Store) CreateTenant(t *tenant.Tenant) error {
	row := tenantRow{
		ID:                 t.ID,
		Name:               t.Name,
		KeyHash:            t.KeyHash,
		Strategy:           t.DefaultStrategy,
		AllowedModels:      encodeAllowlist(t.ModelAllowlist),
		BudgetLimitMonthly: t.BudgetLimitMonth,
		UsageThisMonth:     t.UsageThisMonth,
		RateLimitRPM:       t.RateLimitRPM,
		RateLimitTPM:       t.RateLimitTPM,
		CreatedAt:          t.CreatedAt,
	}
	return s.db.Create(&row).Error
}

// GetTenantByHash looks up a tenant by its hashed key. Implements
// tenant.Store.
func (s *Store) GetTenantByHash(hash string) (*tenant.Tenant, error) {
	var row tenantRow
	err := s.db.Where("key_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToTenant(row), nil
}

// ListTenants returns every tenant, for the admin tenant-listing
// endpoint. Key hashes are included; plaintext keys are never stored.
func (s *Store) ListTenants() ([]*tenant.Tenant, error) {
	var rows []tenantRow
	if err := s.db.Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToTenant(r))
	}
	return out, nil
}

// UpdateUsage adds deltaUSD to the tenant's monthly usage accumulator.
// Implements tenant.Store.
func (s *Store) UpdateUsage(tenantID string, deltaUSD float64) error {
	return s.db.Model(&tenantRow{}).
		Where("id = ?", tenantID).
		Update("usage_this_month", gorm.Expr("usage_this_month + ?", deltaUSD)).
		Error
}

// WriteBatch persists a batch of queue rows inside one transaction.
// Implements queue.Sink.
func (s *Store) WriteBatch(ctx context.Context, rows []queue.Row) error {
	if len(rows) == 0 {
		return nil
	}
	converted := make([]requestRow, len(rows))
	for i, r := range rows {
		converted[i] = requestRow{
			RequestID:     r.RequestID,
			TenantID:      r.TenantID,
			PromptPreview: r.PromptPreview,
			Tier:          r.Tier,
			Intent:        r.Intent,
			Model:         r.Model,
			Provider:      r.Provider,
			InputTokens:   r.InputTokens,
			OutputTokens:  r.OutputTokens,
			CostUSD:       r.CostUSD,
			LatencyMs:     r.LatencyMs,
			StatusCode:    r.StatusCode,
			CacheHit:      r.CacheHit,
			CreatedAt:     r.CreatedAt,
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(converted, 100).Error
	})
}

// InsertFeedback records one routing-feedback row, called once per
// completed request alongside the bandit update.
func (s *Store) InsertFeedback(f bandit.Feedback, requestID, tenantID, model string) error {
	row := feedbackRow{
		RequestID:    requestID,
		TenantID:     tenantID,
		Model:        model,
		QualityScore: f.Quality,
		CreatedAt:    time.Now(),
	}
	if f.Success != nil {
		row.Success = *f.Success
	}
	if f.LatencySec != nil {
		row.LatencyMs = int64(*f.LatencySec * 1000)
	}
	if f.CostUSD != nil {
		row.CostUSD = *f.CostUSD
	}
	return s.db.Create(&row).Error
}

// RecentFeedback returns up to limit reward observations for model, most
// recent first, re-derived from stored feedback rows. Implements
// bandit.FeedbackSource.
func (s *Store) RecentFeedback(model string, limit int) ([]bandit.FeedbackRow, error) {
	var rows []feedbackRow
	err := s.db.Where("model = ?", model).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]bandit.FeedbackRow, len(rows))
	for i, r := range rows {
		success := r.Success
		latencySec := float64(r.LatencyMs) / 1000
		cost := r.CostUSD
		reward := bandit.Reward(bandit.Feedback{
			Success:    &success,
			Quality:    r.QualityScore,
			LatencySec: &latencySec,
			CostUSD:    &cost,
		})
		out[i] = bandit.FeedbackRow{Model: model, Reward: reward}
	}
	return out, nil
}

// UpsertModelHealth overwrites the single model_health row for
// stats.Model. Implements benchmark.FlushSink.
func (s *Store) UpsertModelHealth(stats benchmark.Stats) error {
	row := modelHealthRow{
		Model:         stats.Model,
		MeanLatencyMs: stats.Mean.Milliseconds(),
		P50Ms:         stats.P50.Milliseconds(),
		P95Ms:         stats.P95.Milliseconds(),
		P99Ms:         stats.P99.Milliseconds(),
		ErrorRate:     stats.ErrorRate,
		TimeoutRate:   stats.TimeoutRate,
		SampleCount:   stats.SampleCount,
		IsHealthy:     stats.IsHealthy,
		UpdatedAt:     time.Now(),
	}
	return s.db.Save(&row).Error
}

// ModelHealthSnapshot returns every persisted model_health row, for the
// benchmarks endpoint.
func (s *Store) ModelHealthSnapshot() ([]benchmark.Stats, error) {
	var rows []modelHealthRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]benchmark.Stats, len(rows))
	for i, r := range rows {
		out[i] = benchmark.Stats{
			Model:       r.Model,
			Mean:        time.Duration(r.MeanLatencyMs) * time.Millisecond,
			P50:         time.Duration(r.P50Ms) * time.Millisecond,
			P95:         time.Duration(r.P95Ms) * time.Millisecond,
			P99:         time.Duration(r.P99Ms) * time.Millisecond,
			ErrorRate:   r.ErrorRate,
			TimeoutRate: r.TimeoutRate,
			SampleCount: r.SampleCount,
			IsHealthy:   r.IsHealthy,
		}
	}
	return out, nil
}

// DashboardStats is an aggregate summary for the /api/stats endpoint.
type DashboardStats struct {
	TotalRequests int64
	CacheHits     int64
	TotalCostUSD  float64
	AvgLatencyMs  float64
}

// Stats aggregates the requests table for the dashboard endpoint.
func (s *Store) Stats() (DashboardStats, error) {
	var out DashboardStats
	row := s.db.Model(&requestRow{}).Select(
		"COUNT(*) as total_requests, " +
			"SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END) as cache_hits, " +
			"COALESCE(SUM(cost_usd), 0) as total_cost_usd, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms",
	).Row()
	if err := row.Scan(&out.TotalRequests, &out.CacheHits, &out.TotalCostUSD, &out.AvgLatencyMs); err != nil {
		return DashboardStats{}, err
	}
	return out, nil
}

func rowToTenant(r tenantRow) *tenant.Tenant {
	return &tenant.Tenant{
		ID:               r.ID,
		Name:             r.Name,
		KeyHash:          r.KeyHash,
		BudgetLimitMonth: r.BudgetLimitMonthly,
		UsageThisMonth:   r.UsageThisMonth,
		RateLimitRPM:     r.RateLimitRPM,
		RateLimitTPM:     r.RateLimitTPM,
		ModelAllowlist:   decodeAllowlist(r.AllowedModels),
		DefaultStrategy:  r.Strategy,
		CreatedAt:        r.CreatedAt,
	}
}

func encodeAllowlist(models []string) string {
	if len(models) == 0 {
		return ""
	}
	b, _ := json.Marshal(models)
	return string(b)
}

func decodeAllowlist(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var models []string
	if err := json.Unmarshal([]byte(raw), &models); err != nil {
		return nil
	}
	return models
}
