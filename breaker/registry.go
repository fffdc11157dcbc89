package breaker

import (
	"sync"

	"go.uber.org/zap"
)

// Registry owns one Breaker per provider, created lazily on first use.
// It is passed by explicit handle into the router and orchestrator
// rather than accessed through package-level globals.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	cfg      Config
	logger   *zap.Logger
}

// NewRegistry creates a Registry using cfg for every provider it creates.
func NewRegistry(cfg Config, logger *zap.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		cfg:      cfg,
		logger:   logger,
	}
}

// For returns (creating if necessary) the Breaker for a provider.
func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = New(provider, r.cfg, r.logger)
		r.breakers[provider] = b
	}
	return b
}

// IsOpen reports whether provider's circuit is currently OPEN, without
// consuming a HALF_OPEN probe slot (used by router candidate filtering,
// which must not itself trigger a probe admission).
func (r *Registry) IsOpen(provider string) bool {
	r.mu.Lock()
	b, ok := r.breakers[provider]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return b.State() == Open
}

// Snapshots returns a snapshot of every provider breaker the registry has
// seen, for /health and /api/stats.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
