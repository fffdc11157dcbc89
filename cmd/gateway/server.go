// Package main provides the gateway server implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agentflow-gateway/gateway/api/handlers"
	"github.com/agentflow-gateway/gateway/api/middleware"
	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/benchmark"
	"github.com/agentflow-gateway/gateway/breaker"
	"github.com/agentflow-gateway/gateway/cache"
	"github.com/agentflow-gateway/gateway/config"
	"github.com/agentflow-gateway/gateway/internal/metrics"
	"github.com/agentflow-gateway/gateway/internal/server"
	"github.com/agentflow-gateway/gateway/internal/telemetry"
	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/providers/anthropic"
	"github.com/agentflow-gateway/gateway/providers/cohere"
	"github.com/agentflow-gateway/gateway/providers/gemini"
	"github.com/agentflow-gateway/gateway/providers/groq"
	"github.com/agentflow-gateway/gateway/providers/openai"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/store"
	"github.com/agentflow-gateway/gateway/tenant"
)

// Server is the gateway's process: two HTTP listeners (API + metrics),
// the orchestrator and its collaborators, and the background tickers
// that flush the write queue and the benchmark tracker and recompute the
// bandit posteriors.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store *store.Store
	otel  *telemetry.Providers

	queue      *queue.Queue
	bandit     *bandit.Engine
	benchmark  *benchmark.Tracker
	tenantMgr  *tenant.Manager
	orch       *orchestrator.Orchestrator
	catalog    []router.ModelEntry

	httpManager    *server.Manager
	metricsManager *server.Manager
	metricsCollector *metrics.Collector

	healthHandler    *handlers.HealthHandler
	chatHandler      *handlers.ChatHandler
	modelsHandler    *handlers.ModelsHandler
	dashboardHandler *handlers.DashboardHandler
	tenantsHandler   *handlers.TenantsHandler
	feedbackHandler  *handlers.FeedbackHandler

	benchmarkStop chan struct{}
	wg            sync.WaitGroup
}

// NewServer wires every collaborator package into a Server, but starts
// nothing — call Start to bring the process up.
func NewServer(cfg *config.Config, logger *zap.Logger, st *store.Store, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		store:         st,
		otel:          otel,
		benchmarkStop: make(chan struct{}),
	}
}

// Start brings up the orchestrator, the two HTTP listeners, and the
// background tickers.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("gateway", s.logger)

	catalog, err := router.LoadCatalog(s.cfg.Router.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.catalog = catalog

	s.queue = queue.New(s.store)
	s.queue.Start()

	s.bandit = bandit.New()
	s.benchmark = benchmark.New()
	s.tenantMgr = tenant.New(s.store)

	s.orch = orchestrator.New(orchestrator.Config{
		Catalog:         catalog,
		Registry:        s.buildRegistry(),
		DefaultStrategy: router.Strategy(s.cfg.Router.DefaultStrategy),
		BreakerConfig:   breakerConfigFrom(s.cfg.Breaker),
		CacheConfig:     cacheConfigFrom(s.cfg.Cache),
		Bandit:          s.bandit,
		Benchmark:       s.benchmark,
		Queue:           s.queue,
		Usage:           s.tenantMgr,
		Logger:          s.logger,
	})

	s.initHandlers()
	s.startBenchmarkFlush()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Int("catalog_size", len(catalog)),
	)
	return nil
}

// buildRegistry constructs a provider for every vendor with a
// configured API key. A vendor left unconfigured is simply absent from
// the registry. The router can still select a catalog entry for such a
// provider; dispatch looks the provider up by name and treats a missing
// entry as a fallback-skip. If no vendor is configured at all, the orchestrator falls
// back to its built-in mock mode.
func (s *Server) buildRegistry() map[string]providers.Provider {
	reg := make(map[string]providers.Provider)
	p := s.cfg.Providers

	if p.OpenAI.APIKey != "" {
		reg["openai"] = openai.New(openai.Config{APIKey: p.OpenAI.APIKey, BaseURL: p.OpenAI.BaseURL, Model: p.OpenAI.Model, Timeout: p.OpenAI.Timeout}, s.logger)
	}
	if p.Anthropic.APIKey != "" {
		reg["anthropic"] = anthropic.New(anthropic.Config{APIKey: p.Anthropic.APIKey, BaseURL: p.Anthropic.BaseURL, Model: p.Anthropic.Model, Timeout: p.Anthropic.Timeout}, s.logger)
	}
	if p.Gemini.APIKey != "" {
		reg["gemini"] = gemini.New(gemini.Config{APIKey: p.Gemini.APIKey, BaseURL: p.Gemini.BaseURL, Model: p.Gemini.Model, Timeout: p.Gemini.Timeout}, s.logger)
	}
	if p.Cohere.APIKey != "" {
		reg["cohere"] = cohere.New(cohere.Config{APIKey: p.Cohere.APIKey, BaseURL: p.Cohere.BaseURL, Model: p.Cohere.Model, Timeout: p.Cohere.Timeout}, s.logger)
	}
	if p.Groq.APIKey != "" {
		reg["groq"] = groq.New(groq.Config{APIKey: p.Groq.APIKey, BaseURL: p.Groq.BaseURL, Model: p.Groq.Model, Timeout: p.Groq.Timeout}, s.logger)
	}
	return reg
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger, s.queue.Snapshot, s.orch.BreakerSnapshot)
	s.chatHandler = handlers.NewChatHandler(s.orch, s.logger)
	s.modelsHandler = handlers.NewModelsHandler(s.catalog)
	s.dashboardHandler = handlers.NewDashboardHandler(s.store, s.orch, s.queue, s.benchmark, s.catalog, s.logger)
	s.tenantsHandler = handlers.NewTenantsHandler(s.tenantMgr, s.store, s.logger)
	s.feedbackHandler = handlers.NewFeedbackHandler(s.bandit, s.store, s.logger)
}

// startBenchmarkFlush runs the benchmark.FlushInterval ticker that
// persists each model's rolling stats to the store, and the
// bandit.RecomputeInterval ticker that rebuilds the global bandit
// posteriors from stored feedback.
func (s *Server) startBenchmarkFlush() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(benchmark.FlushInterval)
		defer ticker.Stop()
		recompute := time.NewTicker(bandit.RecomputeInterval())
		defer recompute.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.benchmark.Flush(s.store); err != nil {
					s.logger.Warn("benchmark flush failed", zap.Error(err))
				}
			case <-recompute.C:
				models := make([]string, len(s.catalog))
				for i, m := range s.catalog {
					models[i] = m.ID
				}
				if err := s.bandit.Recompute(s.store, models); err != nil {
					s.logger.Warn("bandit recompute failed", zap.Error(err))
				}
			case <-s.benchmarkStop:
				return
			}
		}
	}()
}

// =============================================================================
// 🌐 HTTP server
// =============================================================================

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("/v1/chat/completions", s.chatHandler.HandleCompletion)
	mux.HandleFunc("/v1/models", s.modelsHandler.HandleList)

	mux.HandleFunc("/api/stats", s.dashboardHandler.HandleStats)
	mux.HandleFunc("/api/config", s.dashboardHandler.HandleConfig)
	mux.HandleFunc("/api/benchmarks", s.dashboardHandler.HandleBenchmarks)
	mux.HandleFunc("/api/tenants", s.tenantsRoute)
	mux.HandleFunc("/api/feedback", s.feedbackHandler.HandleSubmit)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	handler := middleware.Chain(mux,
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.SecurityHeaders(),
		middleware.RequestLogger(s.logger),
		middleware.MetricsMiddleware(s.metricsCollector),
		middleware.OTelTracing(),
		middleware.CORS(s.cfg.Server.CORSAllowedOrigins),
		middleware.APIKeyAuth(s.tenantMgr, skipAuthPaths),
		middleware.RateLimiter(context.Background(), s.cfg.Server.RateLimitRPM),
		middleware.ConcurrencyLimiter(s.cfg.Server.MaxConcurrency),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("http server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// tenantsRoute dispatches POST /api/tenants (create) and GET /api/tenants
// (list) to the same mux entry, since net/http's ServeMux predates
// method-aware routing patterns and the rest of this mux is built the
// same plain way.
func (s *Server) tenantsRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.tenantsHandler.HandleCreate(w, r)
		return
	}
	s.tenantsHandler.HandleList(w, r)
}

// =============================================================================
// 📊 Metrics server
// =============================================================================

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 Shutdown
// =============================================================================

// WaitForShutdown blocks until the HTTP manager observes a shutdown
// signal, then runs the cleanup sequence.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown runs the gateway's shutdown sequence: stop
// accepting new HTTP work, stop the background tickers, flush the write
// queue synchronously, then close the store.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown...")
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}

	close(s.benchmarkStop)
	s.wg.Wait()

	if s.queue != nil {
		if err := s.queue.Shutdown(ctx); err != nil {
			s.logger.Error("queue shutdown error", zap.Error(err))
		}
	}
	if err := s.benchmark.Flush(s.store); err != nil {
		s.logger.Warn("final benchmark flush failed", zap.Error(err))
	}

	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", zap.Error(err))
		}
	}

	s.logger.Info("graceful shutdown completed")
}

func breakerConfigFrom(c config.BreakerConfig) breaker.Config {
	return breaker.Config{
		Window:               c.Window,
		MinSamples:           c.MinSamples,
		ErrorRateThreshold:   c.ErrorRateThreshold,
		TimeoutRateThreshold: c.TimeoutRateThreshold,
		P95Threshold:         c.P95Threshold,
		BaseCooldown:         c.BaseCooldown,
		MaxCooldown:          c.MaxCooldown,
	}
}

func cacheConfigFrom(c config.CacheConfig) cache.Config {
	return cache.Config{
		MaxSize:                     c.MaxSize,
		TTL:                         c.TTL,
		SimilarityThreshold:         c.SimilarityThreshold,
		MinEntriesForEmbedding:      c.MinEntriesForEmbedding,
		AutoDisableAfterLookups:     c.AutoDisableAfterLookups,
		AutoDisableHitRateThreshold: c.AutoDisableHitRateThreshold,
	}
}
