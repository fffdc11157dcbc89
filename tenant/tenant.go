package tenant

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// KeyPrefix tags every issued tenant key so middleware can distinguish
// gateway-issued keys from pass-through upstream vendor keys.
const KeyPrefix = "fra_"

// Tenant is a gateway tenant record.
type Tenant struct {
	ID               string
	Name             string
	KeyHash          string
	BudgetLimitMonth  *float64 // nil = no limit
	UsageThisMonth   float64
	RateLimitRPM     int
	RateLimitTPM     int
	ModelAllowlist   []string // nil = allow all
	DefaultStrategy  string   // "" = no tenant override, request falls through to cost-first
	CreatedAt        time.Time
}

// WithinBudget reports whether the tenant may still spend this month.
func (t *Tenant) WithinBudget() bool {
	if t.BudgetLimitMonth == nil {
		return true
	}
	return t.UsageThisMonth < *t.BudgetLimitMonth
}

// AllowsModel reports whether the tenant's allowlist permits model.
func (t *Tenant) AllowsModel(model string) bool {
	if t.ModelAllowlist == nil {
		return true
	}
	for _, m := range t.ModelAllowlist {
		if m == model {
			return true
		}
	}
	return false
}

// Store persists tenant records. Implemented by the store package.
type Store interface {
	CreateTenant(t *Tenant) error
	GetTenantByHash(hash string) (*Tenant, error)
	UpdateUsage(tenantID string, deltaUSD float64) error
}

// Manager issues and authenticates tenants, caching authenticated
// lookups in-process.
type Manager struct {
	store Store

	mu    sync.Mutex
	cache map[string]*Tenant // keyHash -> tenant
}

// New creates a Manager backed by store.
func New(store Store) *Manager {
	return &Manager{store: store, cache: make(map[string]*Tenant)}
}

// Issue generates a new tenant key, stores only its hash, and returns the
// plaintext key exactly once.
func (m *Manager) Issue(name string, budgetLimitMonth *float64, rateLimitRPM, rateLimitTPM int, allowlist []string, defaultStrategy string) (plaintext string, t *Tenant, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate tenant key: %w", err)
	}
	plaintext = KeyPrefix + hex.EncodeToString(raw)
	hash := HashKey(plaintext)

	t = &Tenant{
		ID:               hash[:16],
		Name:             name,
		KeyHash:          hash,
		BudgetLimitMonth: budgetLimitMonth,
		RateLimitRPM:     rateLimitRPM,
		RateLimitTPM:     rateLimitTPM,
		ModelAllowlist:   allowlist,
		DefaultStrategy:  defaultStrategy,
		CreatedAt:        time.Now(),
	}
	if err = m.store.CreateTenant(t); err != nil {
		return "", nil, err
	}
	return plaintext, t, nil
}

// HashKey computes the persisted form of a plaintext tenant key.
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves a plaintext tenant key to its Tenant record,
// using the in-process cache before falling back to the store.
func (m *Manager) Authenticate(plaintext string) (*Tenant, error) {
	hash := HashKey(plaintext)

	m.mu.Lock()
	if cached, ok := m.cache[hash]; ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	t, err := m.store.GetTenantByHash(hash)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[hash] = t
	m.mu.Unlock()
	return t, nil
}

// UpdateUsage records additional spend against a tenant and invalidates
// that tenant's cache entry so the next Authenticate reloads fresh usage.
func (m *Manager) UpdateUsage(t *Tenant, deltaUSD float64) error {
	if err := m.store.UpdateUsage(t.ID, deltaUSD); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.cache, t.KeyHash)
	m.mu.Unlock()
	return nil
}
