package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/breaker"
	"github.com/agentflow-gateway/gateway/classifier"
	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/tenant"
	"github.com/agentflow-gateway/gateway/types"
)

// HandleCompletionStream resolves a streaming request down to a single
// provider (cache lookups never apply to streams) and opens the upstream
// stream, falling back across candidates exactly as the non-streaming
// path does until one accepts the call.
func (o *Orchestrator) HandleCompletionStream(ctx context.Context, req Request) (*StreamResponse, *types.Error) {
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
	result := o.classifier.Classify(prompt)
	selection := o.selectModel(tenantID, strategy, req, result)
	candidates := buildFallbackList(selection)

	body, err := encodeChatRequest(req, candidates)
	if err != nil {
		return nil, invalidRequest(err.Error())
	}

	var lastErr error = errAllCircuitsOpen
	for _, candidate := range candidates {
		provider := candidate.Model.Provider
		brk := o.breakerFor(provider)

		allowed, _ := brk.CanExecute()
		if !allowed {
			continue
		}
		adapter := o.providerFor(provider)
		if adapter == nil {
			continue
		}

		start := time.Now()
		streamResult, callErr := adapter.ChatCompletionStream(ctx, encodeModel(body, candidate.Model.ID))
		if callErr != nil {
			brk.RecordFailure(time.Since(start), isTimeoutError(callErr))
			o.benchmark.Record(candidate.Model.ID, time.Since(start), false, isTimeoutError(callErr))
			lastErr = callErr
			continue
		}

		chunks, cancel := o.superviseStream(requestID, tenantID, strategy, promptPreview(prompt), req.Tenant, result, candidate, brk, streamResult)
		return &StreamResponse{
			Chunks:   chunks,
			Cancel:   cancel,
			Model:    candidate.Model.ID,
			Provider: candidate.Model.Provider,
		}, nil
	}

	o.logDispatchFailure(requestID, tenantID, result, "", lastErr)
	return nil, lastProviderError(lastErr, "")
}

// superviseStream forwards the provider's chunks to the caller unchanged
// and, once the stream drains or the caller abandons it via the returned
// cancel func (client disconnect mid-stream), records breaker/benchmark/
// bandit feedback and enqueues the log row using the usage and latency
// known at that point.
func (o *Orchestrator) superviseStream(requestID, tenantID, strategy, preview string, t *tenant.Tenant, result classifier.Result, candidate router.ScoredCandidate, brk *breaker.Breaker, upstream providers.StreamResult) (<-chan providers.StreamChunk, func()) {
	out := make(chan providers.StreamChunk)
	done := make(chan struct{})
	var closeDone sync.Once
	cancel := func() { closeDone.Do(func() { close(done) }) }
	start := time.Now()

	go func() {
		defer close(out)
		sawChunk := false
	drainLoop:
		for chunk := range upstream.Stream {
			sawChunk = true
			select {
			case out <- chunk:
			case <-done:
				break drainLoop
			}
			if chunk.Err != nil {
				break
			}
		}

		latency := time.Since(start)
		inputTokens, outputTokens := 0, 0
		if upstream.GetUsage != nil {
			inputTokens, outputTokens = upstream.GetUsage()
		}
		cost := o.costCalc.Calculate(candidate.Model.Provider, candidate.Model.ID, inputTokens, outputTokens)

		if sawChunk {
			brk.RecordSuccess(latency)
			o.benchmark.Record(candidate.Model.ID, latency, true, false)
			success := true
			latencySec := latency.Seconds()
			o.bandit.Update(tenantID, candidate.Model.ID, bandit.Reward(bandit.Feedback{
				Success:    &success,
				LatencySec: &latencySec,
				CostUSD:    &cost,
			}))
		}

		if o.usage != nil && t != nil && cost > 0 {
			_ = o.usage.UpdateUsage(t, cost)
		}

		o.enqueueLog(queue.Row{
			RequestID:     requestID,
			TenantID:      tenantID,
			PromptPreview: preview,
			Provider:      candidate.Model.Provider,
			Model:         candidate.Model.ID,
			Intent:        result.Intent,
			Tier:          string(result.Tier),
			StatusCode:    upstream.Status,
			InputTokens:   inputTokens,
			OutputTokens:  outputTokens,
			CostUSD:       cost,
			LatencyMs:     latency.Milliseconds(),
			CreatedAt:     time.Now(),
			Critical:      true,
		})
	}()

	return out, cancel
}
