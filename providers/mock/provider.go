// Package mock provides a canned Provider used when no upstream vendor
// API key is configured, so the gateway still serves a deterministic
// completion end to end.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/types"
)

const canned = "This is a mock completion: no upstream provider API key is configured, so the gateway is running in mock mode."

// Provider returns a canned completion without making any network call.
// Token counts are estimated from text length, never from a real
// tokenizer, since there is no real model behind it.
type Provider struct {
	estimator *types.EstimateTokenizer
}

var _ providers.Provider = (*Provider)(nil)

// New creates a mock Provider.
func New() *Provider {
	return &Provider{estimator: types.NewEstimateTokenizer()}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) promptText(body []byte) (model string, prompt string, err error) {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", "", err
	}
	var b strings.Builder
	for _, m := range req.Messages {
		b.WriteString(m.Content)
	}
	model = req.Model
	if model == "" {
		model = "mock-model"
	}
	return model, b.String(), nil
}

// ChatCompletion returns the canned response immediately.
func (p *Provider) ChatCompletion(_ context.Context, body []byte) (providers.CompletionResult, error) {
	model, prompt, err := p.promptText(body)
	if err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), Provider: p.Name()}
	}

	inputTokens := p.estimator.CountTokens(prompt)
	outputTokens := p.estimator.CountTokens(canned)

	resp := providers.ChatResponse{
		ID:       fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Provider: p.Name(),
		Model:    model,
		Choices: []providers.ChatChoice{
			{Index: 0, Message: types.NewMessage(types.RoleAssistant, canned), FinishReason: "stop"},
		},
		Usage: providers.ChatUsage{
			PromptTokens:     inputTokens,
			CompletionTokens: outputTokens,
			TotalTokens:      inputTokens + outputTokens,
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrInternalError, Message: err.Error(), Provider: p.Name()}
	}

	return providers.CompletionResult{
		Data:         json.RawMessage(data),
		LatencyMs:    0,
		Attempt:      1,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Status:       200,
	}, nil
}

// ChatCompletionStream emits the canned response as a single canonical
// chunk followed by the [DONE] sentinel.
func (p *Provider) ChatCompletionStream(_ context.Context, body []byte) (providers.StreamResult, error) {
	model, prompt, err := p.promptText(body)
	if err != nil {
		return providers.StreamResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), Provider: p.Name()}
	}

	inputTokens := p.estimator.CountTokens(prompt)
	outputTokens := p.estimator.CountTokens(canned)
	id := fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano())

	ch := make(chan providers.StreamChunk, 2)
	go func() {
		defer close(ch)

		delta := struct {
			ID       string                `json:"id"`
			Provider string                `json:"provider"`
			Model    string                `json:"model"`
			Choices  []providers.ChatChoice `json:"choices"`
		}{
			ID:       id,
			Provider: p.Name(),
			Model:    model,
			Choices: []providers.ChatChoice{
				{Index: 0, Message: types.NewMessage(types.RoleAssistant, canned), FinishReason: "stop"},
			},
		}
		data, _ := json.Marshal(delta)
		ch <- providers.StreamChunk{Data: append([]byte("data: "), append(data, []byte("\n\n")...)...)}
		ch <- providers.StreamChunk{Data: []byte("data: [DONE]\n\n"), Done: true}
	}()

	return providers.StreamResult{
		Stream:    ch,
		LatencyMs: 0,
		Attempt:   1,
		Status:    200,
		GetUsage:  func() (int, int) { return inputTokens, outputTokens },
	}, nil
}
