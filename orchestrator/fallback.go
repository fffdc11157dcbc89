package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/agentflow-gateway/gateway/classifier"
	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
)

// errAllCircuitsOpen is returned when every fallback candidate's breaker
// refuses the call.
var errAllCircuitsOpen = errors.New("no provider available: all circuits open")

// dispatchWithFallback walks candidates in order, skipping any whose
// breaker denies the call, until one call succeeds or the list is
// exhausted. It returns the list of providers actually attempted, for
// logging and error attribution.
func (o *Orchestrator) dispatchWithFallback(ctx context.Context, req Request, candidates []router.ScoredCandidate) (providers.CompletionResult, router.ScoredCandidate, []string, error) {
	body, err := encodeChatRequest(req, candidates)
	if err != nil {
		return providers.CompletionResult{}, router.ScoredCandidate{}, nil, err
	}

	tried := make([]string, 0, len(candidates))
	var lastErr error = errAllCircuitsOpen

	for _, candidate := range candidates {
		provider := candidate.Model.Provider
		breaker := o.breakerFor(provider)

		allowed, _ := breaker.CanExecute()
		if !allowed {
			continue
		}

		adapter := o.providerFor(provider)
		if adapter == nil {
			continue
		}

		tried = append(tried, provider)
		start := time.Now()
		result, callErr := adapter.ChatCompletion(ctx, encodeModel(body, candidate.Model.ID))
		latency := time.Since(start)

		if callErr != nil {
			breaker.RecordFailure(latency, isTimeoutError(callErr))
			o.benchmark.Record(candidate.Model.ID, latency, false, isTimeoutError(callErr))
			lastErr = callErr
			continue
		}

		breaker.RecordSuccess(latency)
		return result, candidate, tried, nil
	}

	return providers.CompletionResult{}, router.ScoredCandidate{}, tried, lastErr
}

// providerFor returns the registry adapter for provider, or the mock
// adapter when the orchestrator has no providers configured.
func (o *Orchestrator) providerFor(provider string) providers.Provider {
	if o.mockMode {
		return o.mock
	}
	return o.registry[provider]
}

// encodeChatRequest marshals the caller's request into the canonical
// wire shape once; encodeModel then swaps in each candidate's model id
// without re-marshaling the messages.
func encodeChatRequest(req Request, candidates []router.ScoredCandidate) (providers.ChatRequest, error) {
	model := req.Model
	if model == "" && len(candidates) > 0 {
		model = candidates[0].Model.ID
	}
	return providers.ChatRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}, nil
}

func encodeModel(base providers.ChatRequest, model string) []byte {
	base.Model = model
	body, _ := json.Marshal(base)
	return body
}

// decodeChatResponse unwraps a cache/provider payload (always a
// json.RawMessage or []byte in practice) into the canonical response.
func decodeChatResponse(raw any) (providers.ChatResponse, error) {
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		data, err = json.Marshal(raw)
		if err != nil {
			return providers.ChatResponse{}, err
		}
	}
	var resp providers.ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return providers.ChatResponse{}, err
	}
	return resp, nil
}

// encodeWithRouting re-marshals a canonical response with the
// `_routing` block attached, matching response shape.
func encodeWithRouting(resp providers.ChatResponse, routing RoutingInfo) ([]byte, error) {
	return json.Marshal(struct {
		providers.ChatResponse
		Routing RoutingInfo `json:"_routing"`
	}{ChatResponse: resp, Routing: routing})
}

func (o *Orchestrator) enqueueLog(row queue.Row) {
	if o.queue == nil {
		return
	}
	o.queue.Enqueue(row)
}

// logDispatchFailure records a critical log row for a request that
// exhausted every fallback candidate.
func (o *Orchestrator) logDispatchFailure(requestID, tenantID string, result classifier.Result, lastProvider string, err error) {
	o.enqueueLog(queue.Row{
		RequestID:  requestID,
		TenantID:   tenantID,
		Provider:   lastProvider,
		Intent:     result.Intent,
		Tier:       string(result.Tier),
		StatusCode: 502,
		Timeout:    isTimeoutError(err),
		Error:      err.Error(),
		CreatedAt:  time.Now(),
		Critical:   true,
	})
}
