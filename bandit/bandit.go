package bandit

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	globalKey           = "\x00global"
	windowSize          = 200.0
	explorationFloor    = 0.05
	learningRate        = 0.1
	recomputeLookback   = 200
	recomputeInterval   = 5 * time.Minute
)

// Posterior is a Beta(α,β) belief about a model's reward rate.
type Posterior struct {
	Alpha float64
	Beta  float64
}

func newPosterior() Posterior {
	return Posterior{Alpha: 1, Beta: 1}
}

func (p Posterior) mean() float64 {
	return p.Alpha / (p.Alpha + p.Beta)
}

func (p Posterior) stddev() float64 {
	a, b := p.Alpha, p.Beta
	sum := a + b
	return math.Sqrt((a * b) / (sum * sum * (sum + 1)))
}

// Feedback is one observed outcome of routing a request to a model.
// Fields are pointers so an absent factor can be distinguished from a
// present-but-zero one; absent factors contribute a neutral 0.5.
type Feedback struct {
	Success    *bool
	Quality    *float64 // 0-10
	LatencySec *float64
	CostUSD    *float64
}

// Reward composes a scalar in [0,1] from Feedback: success weighted 0.4,
// quality/10 weighted 0.3, 1-latency/30s weighted 0.2, 1-cost/0.01
// weighted 0.1. Absent factors yield the neutral 0.5.
func Reward(f Feedback) float64 {
	successTerm := 0.5
	if f.Success != nil {
		if *f.Success {
			successTerm = 1
		} else {
			successTerm = 0
		}
	}

	qualityTerm := 0.5
	if f.Quality != nil {
		qualityTerm = clamp01(*f.Quality / 10)
	}

	latencyTerm := 0.5
	if f.LatencySec != nil {
		latencyTerm = clamp01(1 - *f.LatencySec/30)
	}

	costTerm := 0.5
	if f.CostUSD != nil {
		costTerm = clamp01(1 - *f.CostUSD/0.01)
	}

	return 0.4*successTerm + 0.3*qualityTerm + 0.2*latencyTerm + 0.1*costTerm
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FeedbackRow is a persisted feedback observation, as read back from
// storage by Recompute.
type FeedbackRow struct {
	Model  string
	Reward float64
}

// FeedbackSource supplies the last N feedback rows for a model, used to
// rebuild global posteriors from scratch on each recompute tick.
type FeedbackSource interface {
	RecentFeedback(model string, limit int) ([]FeedbackRow, error)
}

// Engine owns the bandit's in-memory posterior state.
type Engine struct {
	mu         sync.Mutex
	posteriors map[string]map[string]Posterior // tenant|global -> model -> posterior
	rng        *rand.Rand
}

// New creates an Engine with its own seeded RNG.
func New() *Engine {
	return &Engine{
		posteriors: make(map[string]map[string]Posterior),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func scopeKey(tenantID string) string {
	if tenantID == "" {
		return globalKey
	}
	return tenantID
}

// Sample draws a Thompson score for each candidate model, scoped to the
// tenant if non-empty (falling back to global posteriors for any model
// the tenant has no posterior for yet). Scores are floored at
// explorationFloor so no candidate is ever zeroed out.
func (e *Engine) Sample(tenantID string, models []string) map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope := scopeKey(tenantID)
	out := make(map[string]float64, len(models))
	for _, model := range models {
		post := e.postLocked(scope, model)
		score := e.sampleBeta(post)
		if score < explorationFloor {
			score = explorationFloor
		}
		out[model] = score
	}
	return out
}

// sampleBeta approximates a Beta(α,β) draw as mean + z·std with
// Box-Muller gaussian noise, clamped to [0,1].
func (e *Engine) sampleBeta(p Posterior) float64 {
	z := e.boxMuller()
	v := p.mean() + z*p.stddev()
	return clamp01(v)
}

func (e *Engine) boxMuller() float64 {
	u1 := e.rng.Float64()
	u2 := e.rng.Float64()
	if u1 <= 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Update applies a feedback reward to a (tenant, model) posterior,
// rescaling if α+β exceeds the window size.
func (e *Engine) Update(tenantID, model string, reward float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope := scopeKey(tenantID)
	post := e.postLocked(scope, model)
	post.Alpha += learningRate * reward
	post.Beta += learningRate * (1 - reward)

	if sum := post.Alpha + post.Beta; sum > windowSize {
		factor := windowSize / sum
		post.Alpha *= factor
		post.Beta *= factor
	}

	e.setLocked(scope, model, post)
}

func (e *Engine) postLocked(scope, model string) Posterior {
	byModel, ok := e.posteriors[scope]
	if !ok {
		return newPosterior()
	}
	post, ok := byModel[model]
	if !ok {
		return newPosterior()
	}
	return post
}

func (e *Engine) setLocked(scope, model string, p Posterior) {
	byModel, ok := e.posteriors[scope]
	if !ok {
		byModel = make(map[string]Posterior)
		e.posteriors[scope] = byModel
	}
	byModel[model] = p
}

// Snapshot returns a copy of a scope's posteriors, for observability.
func (e *Engine) Snapshot(tenantID string) map[string]Posterior {
	e.mu.Lock()
	defer e.mu.Unlock()

	scope := scopeKey(tenantID)
	out := make(map[string]Posterior, len(e.posteriors[scope]))
	for model, p := range e.posteriors[scope] {
		out[model] = p
	}
	return out
}

// Recompute rebuilds the global posterior map from scratch using the last
// recomputeLookback feedback rows per model from src. Tenant posteriors
// are left untouched — this asymmetry is intentional.
func (e *Engine) Recompute(src FeedbackSource, models []string) error {
	rebuilt := make(map[string]Posterior, len(models))
	for _, model := range models {
		rows, err := src.RecentFeedback(model, recomputeLookback)
		if err != nil {
			return err
		}
		post := newPosterior()
		for _, row := range rows {
			post.Alpha += learningRate * row.Reward
			post.Beta += learningRate * (1 - row.Reward)
			if sum := post.Alpha + post.Beta; sum > windowSize {
				factor := windowSize / sum
				post.Alpha *= factor
				post.Beta *= factor
			}
		}
		rebuilt[model] = post
	}

	e.mu.Lock()
	e.posteriors[globalKey] = rebuilt
	e.mu.Unlock()
	return nil
}

// RecomputeInterval is the period between periodic global recomputes.
func RecomputeInterval() time.Duration { return recomputeInterval }
