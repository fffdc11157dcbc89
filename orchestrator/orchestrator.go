package orchestrator

import (
	"context"
	"time"

	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/cache"
	"github.com/agentflow-gateway/gateway/classifier"
	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/tenant"
	"github.com/agentflow-gateway/gateway/types"
)

// HandleCompletion runs the full non-streaming pipeline: cache lookup,
// classification, routing, dispatch with fallback, and response
// recording. Streaming requests are routed to HandleCompletionStream by
// the caller based on Request.Stream.
func (o *Orchestrator) HandleCompletion(ctx context.Context, req Request) (*Response, *types.Error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = newRequestID()
	}

	if !hasUserMessage(req.Messages) {
		return nil, invalidRequest("at least one user message is required")
	}

	tenantID := ""
	if req.Tenant != nil {
		tenantID = req.Tenant.ID
		if !req.Tenant.WithinBudget() {
			return nil, budgetExceeded()
		}
	}

	strategy := resolveStrategy(req, string(o.defaultStrategy))
	prompt := userContent(req.Messages)
	hash := cache.Hash(prompt)

	if hit := o.cache.Lookup(hash, nil); hit.Hit {
		return o.respondFromCache(requestID, tenantID, strategy, promptPreview(prompt), hit)
	}

	result := o.classifier.Classify(prompt)
	selection := o.selectModel(tenantID, strategy, req, result)
	candidates := buildFallbackList(selection)

	dispatch, chosen, tried, dispatchErr := o.dispatchWithFallback(ctx, req, candidates)
	if dispatchErr != nil {
		lastProvider := ""
		if len(tried) > 0 {
			lastProvider = tried[len(tried)-1]
		}
		o.logDispatchFailure(requestID, tenantID, result, lastProvider, dispatchErr)
		return nil, lastProviderError(dispatchErr, lastProvider)
	}

	return o.respondFromProvider(requestID, tenantID, strategy, hash, promptPreview(prompt), req.Tenant, result, chosen, dispatch)
}

// selectModel gathers the per-request collaborator inputs (RL scores,
// live benchmarks, breaker state, tenant allowlist) and asks the router
// for a selection.
func (o *Orchestrator) selectModel(tenantID, strategy string, req Request, result classifier.Result) router.Selection {
	models := make([]string, len(o.catalog))
	for i, m := range o.catalog {
		models[i] = m.ID
	}
	rlScores := o.bandit.Sample(tenantID, models)

	benchmarkMetrics := make(map[string]router.BenchmarkSample, len(o.catalog))
	for _, m := range o.catalog {
		stats := o.benchmark.Snapshot(m.ID)
		if stats.SampleCount == 0 {
			continue
		}
		benchmarkMetrics[m.ID] = router.BenchmarkSample{
			P95LatencyMS: float64(stats.P95.Milliseconds()),
			ErrorRate:    stats.ErrorRate,
			SampleCount:  stats.SampleCount,
		}
	}

	var allowlist []string
	if req.Tenant != nil {
		allowlist = req.Tenant.ModelAllowlist
	}

	return o.router.Select(router.Inputs{
		Classification:      result,
		Strategy:            router.Strategy(strategy),
		RLScores:            rlScores,
		BenchmarkMetrics:    benchmarkMetrics,
		Breaker:             breakerGate{o},
		TenantAllowedModels: allowlist,
	})
}

// buildFallbackList orders the primary candidate first, then every other
// scored candidate whose provider differs from those already included,
// so a fallback never retries the same dead provider twice.
func buildFallbackList(selection router.Selection) []router.ScoredCandidate {
	out := make([]router.ScoredCandidate, 0, len(selection.Candidates))
	seen := make(map[string]bool, len(selection.Candidates))
	out = append(out, selection.Primary)
	seen[selection.Primary.Model.Provider] = true
	for _, c := range selection.Candidates {
		if c.Model.ID == selection.Primary.Model.ID {
			continue
		}
		if seen[c.Model.Provider] {
			continue
		}
		seen[c.Model.Provider] = true
		out = append(out, c)
	}
	return out
}

func (o *Orchestrator) respondFromCache(requestID, tenantID, strategy, preview string, hit cache.Result) (*Response, *types.Error) {
	chatResp, err := decodeChatResponse(hit.Response)
	if err != nil {
		return nil, invalidRequest("corrupt cache entry")
	}

	routing := RoutingInfo{
		RequestID:        requestID,
		ModelSelected:    "cache",
		Provider:         "cache",
		Strategy:         strategy,
		ClassifierMethod: "cache",
	}
	body, encErr := encodeWithRouting(chatResp, routing)
	if encErr != nil {
		return nil, invalidRequest("failed to encode cached response")
	}

	o.enqueueLog(queue.Row{
		RequestID:     requestID,
		TenantID:      tenantID,
		PromptPreview: preview,
		Provider:      "cache",
		Model:         hit.Model,
		StatusCode:    200,
		CostUSD:       0,
		CacheHit:      true,
		CreatedAt:     time.Now(),
		Critical:      false,
	})

	return &Response{Body: body, Routing: routing}, nil
}

// respondFromProvider computes cost from the provider's actual returned
// token counts, stores the response in cache, logs, updates tenant usage,
// records positive bandit feedback, and decorates the response with the
// `_routing` block.
func (o *Orchestrator) respondFromProvider(requestID, tenantID, strategy, hash, preview string, t *tenant.Tenant, result classifier.Result, chosen router.ScoredCandidate, dispatch providers.CompletionResult) (*Response, *types.Error) {
	chatResp, err := decodeChatResponse(dispatch.Data)
	if err != nil {
		return nil, invalidRequest("provider returned an undecodable response")
	}

	model := chosen.Model
	cost := o.costCalc.Calculate(model.Provider, model.ID, dispatch.InputTokens, dispatch.OutputTokens)

	routing := RoutingInfo{
		RequestID:        requestID,
		ModelSelected:    model.ID,
		Provider:         model.Provider,
		Strategy:         strategy,
		Complexity:       string(result.Tier),
		ComplexityScore:  result.Score,
		Confidence:       result.Confidence,
		Intent:           result.Intent,
		RoutingScore:     chosen.FinalScore,
		ScoreBreakdown: ScoreBreakdown{
			Cost:        chosen.CostScore,
			Quality:     chosen.QualityScore,
			Latency:     chosen.LatencyScore,
			Energy:      chosen.EnergyScore,
			Reliability: chosen.ReliabilityScore,
			RL:          chosen.RLScore,
		},
		LatencyMs:        dispatch.LatencyMs,
		Cost:             cost,
		EnergyIntensity:  model.EnergyIntensity,
		ClassifierMethod: string(result.Method),
	}

	body, encErr := encodeWithRouting(chatResp, routing)
	if encErr != nil {
		return nil, invalidRequest("failed to encode response")
	}

	latency := time.Duration(dispatch.LatencyMs) * time.Millisecond
	o.benchmark.Record(model.ID, latency, true, false)

	success := true
	latencySec := latency.Seconds()
	o.bandit.Update(tenantID, model.ID, bandit.Reward(bandit.Feedback{
		Success:    &success,
		LatencySec: &latencySec,
		CostUSD:    &cost,
	}))

	o.cache.Store(hash, dispatch.Data, model.ID, nil)

	o.enqueueLog(queue.Row{
		RequestID:     requestID,
		TenantID:      tenantID,
		PromptPreview: preview,
		Provider:      model.Provider,
		Model:         model.ID,
		Intent:        result.Intent,
		Tier:          string(result.Tier),
		StatusCode:    dispatch.Status,
		InputTokens:   dispatch.InputTokens,
		OutputTokens:  dispatch.OutputTokens,
		CostUSD:       cost,
		LatencyMs:     dispatch.LatencyMs,
		CacheHit:      false,
		CreatedAt:     time.Now(),
		Critical:      true,
	})

	if o.usage != nil && t != nil {
		_ = o.usage.UpdateUsage(t, cost)
	}

	return &Response{Body: body, Routing: routing}, nil
}
