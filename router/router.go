package router

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/agentflow-gateway/gateway/classifier"
)

// Strategy is one of the four named weight profiles.
type Strategy string

const (
	StrategyCostFirst        Strategy = "cost-first"
	StrategyGreenFirst       Strategy = "green-first"
	StrategyPerformanceFirst Strategy = "performance-first"
	StrategyBalanced         Strategy = "balanced"
)

// Weights is the six-factor weight profile for a strategy; the fields
// always sum to 1.
type Weights struct {
	Cost        float64
	Quality     float64
	Latency     float64
	Energy      float64
	Reliability float64
	RL          float64
}

var strategyWeights = map[Strategy]Weights{
	StrategyCostFirst:        {Cost: 0.35, Quality: 0.20, Latency: 0.10, Energy: 0.10, Reliability: 0.10, RL: 0.15},
	StrategyGreenFirst:       {Cost: 0.10, Quality: 0.15, Latency: 0.10, Energy: 0.35, Reliability: 0.10, RL: 0.20},
	StrategyPerformanceFirst: {Cost: 0.05, Quality: 0.35, Latency: 0.20, Energy: 0.05, Reliability: 0.20, RL: 0.15},
	StrategyBalanced:         {Cost: 0.20, Quality: 0.20, Latency: 0.15, Energy: 0.15, Reliability: 0.15, RL: 0.15},
}

// WeightsFor returns the weight profile for a strategy, defaulting to
// cost-first for an unrecognized name.
func WeightsFor(s Strategy) Weights {
	if w, ok := strategyWeights[s]; ok {
		return w
	}
	return strategyWeights[StrategyCostFirst]
}

var tierMinQuality = map[classifier.Tier]float64{
	classifier.TierTrivial:  0,
	classifier.TierSimple:   0,
	classifier.TierModerate: 60,
	classifier.TierComplex:  80,
	classifier.TierExpert:   90,
}

// ModelEntry is one static model-catalog row.
type ModelEntry struct {
	ID              string   `yaml:"id"`
	Provider        string   `yaml:"provider"`
	InputCostPer1M  float64  `yaml:"input_cost_per_1m"`
	OutputCostPer1M float64  `yaml:"output_cost_per_1m"`
	AvgLatencyMS    float64  `yaml:"avg_latency_ms"`
	Reliability     float64  `yaml:"reliability"`
	EnergyIntensity float64  `yaml:"energy_intensity"`
	QualityScore    float64  `yaml:"quality_score"`
	Strengths       []string `yaml:"strengths"`
}

func (m ModelEntry) hasStrength(s string) bool {
	for _, v := range m.Strengths {
		if v == s {
			return true
		}
	}
	return false
}

// BenchmarkSample is the live observation blended into the catalog
// baseline for a model.
type BenchmarkSample struct {
	P95LatencyMS float64
	ErrorRate    float64
	SampleCount  int
}

// BreakerGate reports whether a provider's circuit is currently open.
type BreakerGate interface {
	IsOpen(provider string) bool
}

// Inputs bundles the per-request collaborator data the router needs.
type Inputs struct {
	Classification   classifier.Result
	Strategy         Strategy
	RLScores         map[string]float64       // model id -> Thompson score
	BenchmarkMetrics map[string]BenchmarkSample // model id -> live sample
	Breaker          BreakerGate
	TenantAllowedModels []string // nil = allow all
}

// ScoredCandidate is one model's full score breakdown.
type ScoredCandidate struct {
	Model           ModelEntry
	CostScore       float64
	QualityScore    float64
	LatencyScore    float64
	EnergyScore     float64
	ReliabilityScore float64
	RLScore         float64
	FinalScore      float64
}

// Selection is the router's decision for a single request.
type Selection struct {
	Primary    ScoredCandidate
	Candidates []ScoredCandidate // full ordered list, for fallback
	Weights    Weights
	Reasoning  string
}

// Router scores the static model catalog against request-specific
// collaborator inputs.
type Router struct {
	catalog []ModelEntry
	logger  *zap.Logger
}

// New creates a Router over a fixed model catalog.
func New(catalog []ModelEntry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{catalog: catalog, logger: logger}
}

// Select runs the full filter → normalize → blend → score pipeline and
// returns the primary selection plus the ordered fallback list.
func (r *Router) Select(in Inputs) Selection {
	candidates := r.filterCandidates(in)

	weights := WeightsFor(in.Strategy)
	scored := r.scoreCandidates(candidates, in, weights)

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].FinalScore > scored[j].FinalScore })

	reasoning := buildReasoning(in, weights, scored)
	return Selection{
		Primary:    scored[0],
		Candidates: scored,
		Weights:    weights,
		Reasoning:  reasoning,
	}
}

// filterCandidates applies allowlist, breaker, and quality-floor
// filtering in order, falling back to the wider set whenever a filter
// would otherwise empty the candidate list.
func (r *Router) filterCandidates(in Inputs) []ModelEntry {
	all := r.catalog

	allowed := all
	if in.TenantAllowedModels != nil {
		allowSet := make(map[string]bool, len(in.TenantAllowedModels))
		for _, id := range in.TenantAllowedModels {
			allowSet[id] = true
		}
		allowed = filterModels(all, func(m ModelEntry) bool { return allowSet[m.ID] })
	}

	notOpen := allowed
	if in.Breaker != nil {
		notOpen = filterModels(allowed, func(m ModelEntry) bool { return !in.Breaker.IsOpen(m.Provider) })
	}
	if len(notOpen) == 0 {
		r.logger.Warn("all candidate providers have an open circuit, reinstating full allowed set",
			zap.Int("allowed_count", len(allowed)))
		notOpen = allowed
	}

	minQuality := tierMinQuality[in.Classification.Tier]
	qualityFiltered := filterModels(notOpen, func(m ModelEntry) bool { return m.QualityScore >= minQuality })
	if len(qualityFiltered) == 0 {
		qualityFiltered = notOpen
	}

	if in.Classification.Confidence < 0.5 {
		raised := math.Min(minQuality+15, 95)
		stricter := filterModels(notOpen, func(m ModelEntry) bool { return m.QualityScore >= raised })
		if len(stricter) > 0 {
			qualityFiltered = stricter
		}
	}

	if len(qualityFiltered) == 0 {
		r.logger.Warn("quality-floor filtering emptied the candidate set, reinstating full catalog",
			zap.Int("catalog_count", len(all)))
		return all // ultimate fallback: reinstate all models
	}
	return qualityFiltered
}

func filterModels(models []ModelEntry, keep func(ModelEntry) bool) []ModelEntry {
	out := make([]ModelEntry, 0, len(models))
	for _, m := range models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Router) scoreCandidates(candidates []ModelEntry, in Inputs, weights Weights) []ScoredCandidate {
	costOf := func(m ModelEntry) float64 { return (m.InputCostPer1M + m.OutputCostPer1M) / 2 }
	latencyOf := func(m ModelEntry) float64 { return r.blendedLatency(m, in.BenchmarkMetrics) }
	energyOf := func(m ModelEntry) float64 { return m.EnergyIntensity }

	costMin, costMax := minMax(candidates, costOf)
	latMin, latMax := minMax(candidates, latencyOf)
	enMin, enMax := minMax(candidates, energyOf)

	required := classifier.RequiredStrengths(in.Classification.Intent)

	out := make([]ScoredCandidate, 0, len(candidates))
	for _, m := range candidates {
		costScore := 1 - normalize(costOf(m), costMin, costMax)
		latencyScore := 1 - normalize(latencyOf(m), latMin, latMax)
		energyScore := 1 - normalize(energyOf(m), enMin, enMax)
		reliabilityScore := r.blendedReliability(m, in.BenchmarkMetrics)
		qualityScore := qualityMatch(m, required)

		rlScore := 0.5
		if in.RLScores != nil {
			if v, ok := in.RLScores[m.ID]; ok {
				rlScore = v
			}
		}

		final := weights.Cost*costScore + weights.Quality*qualityScore + weights.Latency*latencyScore +
			weights.Energy*energyScore + weights.Reliability*reliabilityScore + weights.RL*rlScore
		final = math.Round(final*1000) / 1000

		out = append(out, ScoredCandidate{
			Model:            m,
			CostScore:        costScore,
			QualityScore:     qualityScore,
			LatencyScore:     latencyScore,
			EnergyScore:      energyScore,
			ReliabilityScore: reliabilityScore,
			RLScore:          rlScore,
			FinalScore:       final,
		})
	}
	return out
}

func (r *Router) blendedLatency(m ModelEntry, metrics map[string]BenchmarkSample) float64 {
	sample, ok := metrics[m.ID]
	if !ok || sample.SampleCount == 0 {
		return m.AvgLatencyMS
	}
	coeff := math.Min(float64(sample.SampleCount)/20, 1)
	return coeff*sample.P95LatencyMS + (1-coeff)*m.AvgLatencyMS
}

func (r *Router) blendedReliability(m ModelEntry, metrics map[string]BenchmarkSample) float64 {
	sample, ok := metrics[m.ID]
	if !ok || sample.SampleCount == 0 {
		return m.Reliability
	}
	coeff := math.Min(float64(sample.SampleCount)/20, 1)
	observed := 1 - sample.ErrorRate
	return coeff*observed + (1-coeff)*m.Reliability
}

func qualityMatch(m ModelEntry, required []string) float64 {
	base := m.QualityScore / 100
	if len(required) == 0 {
		return math.Min(1, base)
	}
	matches := 0
	for _, s := range required {
		if m.hasStrength(s) {
			matches++
		}
	}
	bonus := 0.2 * (float64(matches) / float64(len(required)))
	return math.Min(1, base+bonus)
}

func minMax(models []ModelEntry, f func(ModelEntry) float64) (min, max float64) {
	if len(models) == 0 {
		return 0, 0
	}
	min, max = f(models[0]), f(models[0])
	for _, m := range models[1:] {
		v := f(m)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func normalize(v, min, max float64) float64 {
	if max == min {
		return 0.5
	}
	return (v - min) / (max - min)
}

func buildReasoning(in Inputs, weights Weights, scored []ScoredCandidate) string {
	if len(scored) == 0 {
		return "no candidates scored"
	}
	top := scored[0]
	var b strings.Builder
	fmt.Fprintf(&b, "selected %s (%s) for tier=%s intent=%s strategy=%s: score=%.3f",
		top.Model.ID, top.Model.Provider, in.Classification.Tier, in.Classification.Intent, in.Strategy, top.FinalScore)
	fmt.Fprintf(&b, " [cost=%.2f quality=%.2f latency=%.2f energy=%.2f reliability=%.2f rl=%.2f]",
		top.CostScore, top.QualityScore, top.LatencyScore, top.EnergyScore, top.ReliabilityScore, top.RLScore)
	if len(scored) > 1 {
		fmt.Fprintf(&b, "; %d fallback candidate(s) available", len(scored)-1)
	}
	return b.String()
}
