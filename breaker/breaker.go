package breaker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is one of the three circuit-breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config tunes the breaker's window, thresholds, and cooldown schedule.
type Config struct {
	Window               time.Duration
	MinSamples           int
	ErrorRateThreshold   float64
	TimeoutRateThreshold float64
	P95Threshold         time.Duration
	BaseCooldown         time.Duration
	MaxCooldown          time.Duration
}

// DefaultConfig returns the breaker's default thresholds.
func DefaultConfig() Config {
	return Config{
		Window:               60 * time.Second,
		MinSamples:           5,
		ErrorRateThreshold:   0.5,
		TimeoutRateThreshold: 0.3,
		P95Threshold:         30 * time.Second,
		BaseCooldown:         10 * time.Second,
		MaxCooldown:          120 * time.Second,
	}
}

type event struct {
	at      time.Time
	success bool
	latency time.Duration
	timeout bool
}

// Breaker is a single provider's circuit breaker.
type Breaker struct {
	mu sync.Mutex

	provider string
	cfg      Config
	logger   *zap.Logger

	state               State
	events              []event
	openedAt            time.Time
	cooldown            time.Duration
	consecutiveFailures int
	lastOpenReason      string
	halfOpenProbeActive bool

	onStateChange func(provider string, from, to State)
}

// New creates a Breaker for a single provider.
func New(provider string, cfg Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		state:    Closed,
		cooldown: cfg.BaseCooldown,
	}
}

// OnStateChange registers a callback fired asynchronously, in its own
// goroutine, after every transition.
func (b *Breaker) OnStateChange(fn func(provider string, from, to State)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot is a point-in-time view used by /health and /api/stats.
type Snapshot struct {
	Provider            string
	State               State
	OpenedAt            time.Time
	Cooldown            time.Duration
	ConsecutiveFailures int
	LastOpenReason      string
	SampleCount         int
}

// Snapshot returns the breaker's current state for observability endpoints.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(time.Now())
	return Snapshot{
		Provider:            b.provider,
		State:               b.state,
		OpenedAt:            b.openedAt,
		Cooldown:            b.cooldown,
		ConsecutiveFailures: b.consecutiveFailures,
		LastOpenReason:      b.lastOpenReason,
		SampleCount:         len(b.events),
	}
}

// CanExecute reports whether a call may be dispatched right now, admitting
// exactly one probe per HALF_OPEN window.
func (b *Breaker) CanExecute() (allowed bool, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case Closed:
		return true, ""
	case Open:
		if now.Sub(b.openedAt) >= b.cooldown {
			b.transition(Open, HalfOpen)
			b.halfOpenProbeActive = true
			return true, ""
		}
		return false, "circuit open"
	case HalfOpen:
		if !b.halfOpenProbeActive {
			b.halfOpenProbeActive = true
			return true, ""
		}
		return false, "waiting for probe result"
	default:
		return true, ""
	}
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.events = append(b.events, event{at: now, success: true, latency: latency})
	b.pruneLocked(now)

	if b.state == HalfOpen {
		b.transition(HalfOpen, Closed)
		b.cooldown = b.cfg.BaseCooldown
		b.consecutiveFailures = 0
		b.halfOpenProbeActive = false
		return
	}

	b.consecutiveFailures = 0
	b.evaluateLocked(now)
}

// RecordFailure records a failed call outcome. timeout distinguishes a
// provider timeout from a non-timeout failure for breaker accounting.
func (b *Breaker) RecordFailure(latency time.Duration, timeout bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.events = append(b.events, event{at: now, success: false, latency: latency, timeout: timeout})
	b.pruneLocked(now)
	b.consecutiveFailures++

	if b.state == HalfOpen {
		b.openedAt = now
		b.cooldown = minDuration(2*b.cooldown, b.cfg.MaxCooldown)
		b.lastOpenReason = "probe failed"
		b.halfOpenProbeActive = false
		b.transition(HalfOpen, Open)
		return
	}

	b.evaluateLocked(now)
}

func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	i := 0
	for i < len(b.events) && b.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}

func (b *Breaker) evaluateLocked(now time.Time) {
	if b.state != Closed {
		return
	}
	n := len(b.events)
	if n < b.cfg.MinSamples {
		return
	}

	var errCount, timeoutCount int
	latencies := make([]time.Duration, 0, n)
	for _, e := range b.events {
		if !e.success {
			errCount++
		}
		if e.timeout {
			timeoutCount++
		}
		latencies = append(latencies, e.latency)
	}
	errorRate := float64(errCount) / float64(n)
	timeoutRate := float64(timeoutCount) / float64(n)
	p95 := percentile(latencies, 0.95)

	var reasons []string
	if errorRate >= b.cfg.ErrorRateThreshold {
		reasons = append(reasons, fmt.Sprintf("error rate %.2f >= %.2f", errorRate, b.cfg.ErrorRateThreshold))
	}
	if timeoutRate >= b.cfg.TimeoutRateThreshold {
		reasons = append(reasons, fmt.Sprintf("timeout rate %.2f >= %.2f", timeoutRate, b.cfg.TimeoutRateThreshold))
	}
	if p95 >= b.cfg.P95Threshold {
		reasons = append(reasons, fmt.Sprintf("p95 latency %s >= %s", p95, b.cfg.P95Threshold))
	}
	if len(reasons) == 0 {
		return
	}

	b.openedAt = now
	b.cooldown = b.cfg.BaseCooldown
	b.lastOpenReason = strings.Join(reasons, "; ")
	b.transition(Closed, Open)
}

func (b *Breaker) transition(from, to State) {
	b.state = to
	switch to {
	case Open:
		b.logger.Warn("circuit breaker opened",
			zap.String("provider", b.provider), zap.String("reason", b.lastOpenReason))
	case HalfOpen:
		b.logger.Info("circuit breaker probing", zap.String("provider", b.provider))
	case Closed:
		b.logger.Info("circuit breaker closed", zap.String("provider", b.provider))
	}
	if cb := b.onStateChange; cb != nil {
		go cb(b.provider, from, to)
	}
}

func percentile(latencies []time.Duration, p float64) time.Duration {
	n := len(latencies)
	if n == 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(ceilF(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func ceilF(v float64) float64 {
	i := float64(int64(v))
	if v > i {
		return i + 1
	}
	return i
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
