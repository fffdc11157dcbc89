package orchestrator

import (
	"sync"

	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/benchmark"
	"github.com/agentflow-gateway/gateway/breaker"
	"github.com/agentflow-gateway/gateway/cache"
	"github.com/agentflow-gateway/gateway/classifier"
	"github.com/agentflow-gateway/gateway/llm/observability"
	"github.com/agentflow-gateway/gateway/providers"
	mockprovider "github.com/agentflow-gateway/gateway/providers/mock"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/tenant"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

// Request is the orchestrator's input for one completion call, already
// authenticated by the auth middleware (Tenant is nil for a pass-through
// upstream-vendor key or an anonymous caller).
type Request struct {
	RequestID   string
	Tenant      *tenant.Tenant
	Messages    []types.Message
	Model       string
	Strategy    string
	Stream      bool
	Temperature float32
	TopP        float32
	MaxTokens   int
	Stop        []string
}

// ScoreBreakdown mirrors the six-factor score the router computed for the
// selected model.
type ScoreBreakdown struct {
	Cost        float64 `json:"cost"`
	Quality     float64 `json:"quality"`
	Latency     float64 `json:"latency"`
	Energy      float64 `json:"energy"`
	Reliability float64 `json:"reliability"`
	RL          float64 `json:"rl"`
}

// RoutingInfo is the `_routing` metadata block decorating every
// non-streaming completion response.
type RoutingInfo struct {
	RequestID        string         `json:"requestId"`
	ModelSelected    string         `json:"modelSelected"`
	Provider         string         `json:"provider"`
	Strategy         string         `json:"strategy"`
	Complexity       string         `json:"complexity"`
	ComplexityScore  int            `json:"complexityScore"`
	Confidence       float64        `json:"confidence"`
	Intent           string         `json:"intent"`
	RoutingScore     float64        `json:"routingScore"`
	ScoreBreakdown   ScoreBreakdown `json:"scoreBreakdown"`
	LatencyMs        int64          `json:"latencyMs"`
	Cost             float64        `json:"cost"`
	EnergyIntensity  float64        `json:"energyIntensity"`
	ClassifierMethod string         `json:"classifierMethod"`
}

// Response is a completed non-streaming call: the canonical completion
// body with `_routing` already embedded, plus the same information
// structured for callers that don't want to re-parse JSON.
type Response struct {
	Body    []byte
	Routing RoutingInfo
}

// StreamResponse is a completed streaming call's channel plus the
// information needed to log it once the stream ends. Callers that stop
// reading Chunks before it closes (client disconnect mid-stream) must
// call Cancel so the supervising goroutine can unblock, stop forwarding,
// and still run its breaker/benchmark/bandit/log bookkeeping. Cancel is
// safe to call more than once and safe to call after the stream has
// already drained on its own.
type StreamResponse struct {
	Chunks   <-chan providers.StreamChunk
	Cancel   func()
	Model    string
	Provider string
}

// UsageRecorder updates a tenant's monthly spend. Implemented by
// tenant.Manager; narrowed here so the orchestrator can be tested without
// a real store.
type UsageRecorder interface {
	UpdateUsage(t *tenant.Tenant, deltaUSD float64) error
}

// Config bundles the orchestrator's collaborators and static catalog.
type Config struct {
	Catalog         []router.ModelEntry
	Registry        map[string]providers.Provider // keyed by ModelEntry.Provider
	DefaultStrategy router.Strategy
	BreakerConfig   breaker.Config
	CacheConfig     cache.Config
	Classifier      *classifier.Classifier
	Bandit          *bandit.Engine
	Benchmark       *benchmark.Tracker
	Queue           *queue.Queue
	Usage           UsageRecorder
	Logger          *zap.Logger
}

// Orchestrator wires the classifier, router, breaker registry, cache,
// bandit, benchmarker, write queue, and provider registry into the
// single request pipeline.
type Orchestrator struct {
	logger *zap.Logger

	catalog         []router.ModelEntry
	registry        map[string]providers.Provider
	defaultStrategy router.Strategy

	classifier *classifier.Classifier
	router     *router.Router
	bandit     *bandit.Engine
	cache      *cache.Cache
	benchmark  *benchmark.Tracker
	queue      *queue.Queue
	usage      UsageRecorder
	costCalc   *observability.CostCalculator

	breakerCfg breaker.Config
	breakersMu sync.Mutex
	breakers   map[string]*breaker.Breaker

	mock     *mockprovider.Provider
	mockMode bool
}

// New creates an Orchestrator. If cfg.Registry has no entries, or every
// entry is nil, the orchestrator runs in mock mode: classification and
// routing still run, but dispatch always returns the canned mock
// completion.
func New(cfg Config) *Orchestrator {
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = router.StrategyCostFirst
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New(nil)
	}
	if cfg.Bandit == nil {
		cfg.Bandit = bandit.New()
	}
	if cfg.Benchmark == nil {
		cfg.Benchmark = benchmark.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheCfg := cfg.CacheConfig
	if (cacheCfg == cache.Config{}) {
		cacheCfg = cache.DefaultConfig()
	}
	breakerCfg := cfg.BreakerConfig
	if (breakerCfg == breaker.Config{}) {
		breakerCfg = breaker.DefaultConfig()
	}

	costCalc := observability.NewCostCalculator()
	costCalc.SeedFromCatalog(cfg.Catalog)

	mockMode := true
	for _, p := range cfg.Registry {
		if p != nil {
			mockMode = false
			break
		}
	}

	o := &Orchestrator{
		logger:          logger,
		catalog:         cfg.Catalog,
		registry:        cfg.Registry,
		defaultStrategy: cfg.DefaultStrategy,
		classifier:      cfg.Classifier,
		router:          router.New(cfg.Catalog, logger),
		bandit:          cfg.Bandit,
		cache:           cache.New(cacheCfg),
		benchmark:       cfg.Benchmark,
		queue:           cfg.Queue,
		usage:           cfg.Usage,
		costCalc:        costCalc,
		breakerCfg:      breakerCfg,
		breakers:        make(map[string]*breaker.Breaker),
		mock:            mockprovider.New(),
		mockMode:        mockMode,
	}
	if mockMode {
		o.logger.Warn("no provider API keys configured, orchestrator running in mock mode")
	}
	return o
}

func (o *Orchestrator) breakerFor(provider string) *breaker.Breaker {
	o.breakersMu.Lock()
	defer o.breakersMu.Unlock()
	b, ok := o.breakers[provider]
	if !ok {
		b = breaker.New(provider, o.breakerCfg, o.logger)
		o.breakers[provider] = b
	}
	return b
}

// BreakerSnapshot returns every provider breaker's current state, for the
// /health and /api/stats endpoints.
func (o *Orchestrator) BreakerSnapshot() []breaker.Snapshot {
	o.breakersMu.Lock()
	providersSeen := make([]string, 0, len(o.breakers))
	for p := range o.breakers {
		providersSeen = append(providersSeen, p)
	}
	o.breakersMu.Unlock()

	out := make([]breaker.Snapshot, 0, len(providersSeen))
	for _, p := range providersSeen {
		out = append(out, o.breakerFor(p).Snapshot())
	}
	return out
}

type breakerGate struct{ o *Orchestrator }

func (g breakerGate) IsOpen(provider string) bool {
	return g.o.breakerFor(provider).State() == breaker.Open
}
