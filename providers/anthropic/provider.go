// Package anthropic adapts the gateway's canonical OpenAI-compatible
// wire shape to Anthropic's Messages API: system messages move to a
// dedicated field, streaming is translated event-by-event from
// Anthropic's SSE framing, and a terminal `[DONE]` sentinel is added
// since Claude's stream otherwise ends on message_stop with no marker.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.anthropic.com"
const apiVersion = "2023-06-01"

// Config configures the Anthropic adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider is the Anthropic adapter.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
	retry  providers.RetryPolicy
}

// New creates an Anthropic Provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		retry:  providers.DefaultRetryPolicy(),
	}
}

func (p *Provider) Name() string { return "anthropic" }

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature,omitempty"`
	TopP        float32   `json:"top_p,omitempty"`
	StopSeq     []string  `json:"stop_sequences,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
	Tools       []tool    `json:"tools,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type response struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	Content    []block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Usage      *usage  `json:"usage,omitempty"`
}

type streamEvent struct {
	Type         string    `json:"type"`
	Index        int       `json:"index"`
	Delta        *delta    `json:"delta,omitempty"`
	ContentBlock *block    `json:"content_block,omitempty"`
	Message      *response `json:"message,omitempty"`
	Usage        *usage    `json:"usage,omitempty"`
}

type delta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

func toAnthropicMessages(msgs []types.Message) (string, []message) {
	var system string
	var out []message
	for _, m := range msgs {
		if m.Role == types.RoleSystem {
			system = m.Content
			continue
		}
		if m.Role == types.RoleTool {
			out = append(out, message{Role: "user", Content: []block{{
				Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content,
			}}})
			continue
		}
		cm := message{Role: string(m.Role)}
		if m.Content != "" {
			cm.Content = append(cm.Content, block{Type: "text", Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			cm.Content = append(cm.Content, block{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Arguments})
		}
		if len(cm.Content) > 0 {
			out = append(out, cm)
		}
	}
	return system, out
}

func toAnthropicTools(schemas []types.ToolSchema) []tool {
	if len(schemas) == 0 {
		return nil
	}
	out := make([]tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, tool{Name: s.Name, Description: s.Description, InputSchema: s.Parameters})
	}
	return out
}

func (p *Provider) buildRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func chooseModel(req providers.ChatRequest, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if fallback != "" {
		return fallback
	}
	return "claude-3-5-sonnet-20241022"
}

func chooseMaxTokens(req providers.ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return 4096
}

// ChatCompletion performs a non-streaming completion.
func (p *Provider) ChatCompletion(ctx context.Context, body []byte) (providers.CompletionResult, error) {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}

	system, messages := toAnthropicMessages(req.Messages)
	payload, _ := json.Marshal(anthropicRequest{
		Model:       chooseModel(req, p.cfg.Model),
		Messages:    messages,
		System:      system,
		MaxTokens:   chooseMaxTokens(req),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		StopSeq:     req.Stop,
		Tools:       toAnthropicTools(req.Tools),
	})

	start := time.Now()
	var parsed response
	var lastStatus int

	attempts, status, err := providers.Do(ctx, p.retry, func(attempt int) (int, error) {
		httpReq, buildErr := p.buildRequest(ctx, payload)
		if buildErr != nil {
			return 0, buildErr
		}
		resp, doErr := p.client.Do(httpReq)
		if doErr != nil {
			return 0, doErr
		}
		defer resp.Body.Close()
		lastStatus = resp.StatusCode

		if resp.StatusCode >= 400 {
			msg := providers.ReadErrorMessage(resp.Body)
			return resp.StatusCode, fmt.Errorf("%s", msg)
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&parsed); decErr != nil {
			return resp.StatusCode, decErr
		}
		return resp.StatusCode, nil
	})

	latency := time.Since(start)
	if status >= 400 || (err != nil && lastStatus == 0) {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return providers.CompletionResult{}, providers.MapHTTPError(status, msg, p.Name())
	}
	if err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrProviderError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}

	chatResp := toChatResponse(parsed, p.Name())
	data, _ := json.Marshal(chatResp)

	input, output := 0, 0
	if parsed.Usage != nil {
		input, output = parsed.Usage.InputTokens, parsed.Usage.OutputTokens
	}

	return providers.CompletionResult{
		Data:         json.RawMessage(data),
		LatencyMs:    latency.Milliseconds(),
		Attempt:      attempts,
		InputTokens:  input,
		OutputTokens: output,
		Status:       status,
	}, nil
}

func toChatResponse(r response, provider string) providers.ChatResponse {
	msg := types.Message{Role: types.RoleAssistant}
	for _, c := range r.Content {
		switch c.Type {
		case "text":
			msg.Content += c.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, types.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Input})
		}
	}

	resp := providers.ChatResponse{
		ID:       r.ID,
		Provider: provider,
		Model:    r.Model,
		Choices:  []providers.ChatChoice{{Index: 0, Message: msg, FinishReason: r.StopReason}},
	}
	if r.Usage != nil {
		resp.Usage = providers.ChatUsage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		}
	}
	return resp
}

// ChatCompletionStream opens a streaming completion, translating
// Anthropic's SSE events into canonical chunks and appending the
// `data: [DONE]` sentinel on message_stop.
func (p *Provider) ChatCompletionStream(ctx context.Context, body []byte) (providers.StreamResult, error) {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return providers.StreamResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}

	system, messages := toAnthropicMessages(req.Messages)
	payload, _ := json.Marshal(anthropicRequest{
		Model:     chooseModel(req, p.cfg.Model),
		Messages:  messages,
		System:    system,
		MaxTokens: chooseMaxTokens(req),
		Stream:    true,
		Tools:     toAnthropicTools(req.Tools),
	})

	start := time.Now()
	httpReq, err := p.buildRequest(ctx, payload)
	if err != nil {
		return providers.StreamResult{}, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.StreamResult{}, &types.Error{Code: types.ErrProviderError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := providers.ReadErrorMessage(resp.Body)
		return providers.StreamResult{}, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	ch := make(chan providers.StreamChunk)
	var inputTokens, outputTokens int

	go func() {
		defer resp.Body.Close()
		defer close(ch)

		reader := bufio.NewReader(resp.Body)
		var currentID, currentModel string
		toolCalls := make(map[int]*types.ToolCall)

		for {
			line, readErr := reader.ReadString('\n')
			if readErr != nil {
				if readErr != io.EOF {
					ch <- providers.StreamChunk{Err: &types.Error{Code: types.ErrProviderError, Message: readErr.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "anthropic"}}
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "event:") {
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var event streamEvent
			if jsonErr := json.Unmarshal([]byte(data), &event); jsonErr != nil {
				ch <- providers.StreamChunk{Err: &types.Error{Code: types.ErrProviderError, Message: jsonErr.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: "anthropic"}}
				return
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					currentID = event.Message.ID
					currentModel = event.Message.Model
					if event.Message.Usage != nil {
						inputTokens = event.Message.Usage.InputTokens
					}
				}
			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					toolCalls[event.Index] = &types.ToolCall{ID: event.ContentBlock.ID, Name: event.ContentBlock.Name, Arguments: json.RawMessage("{}")}
				}
			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				if event.Delta.Type == "text_delta" {
					ch <- providers.StreamChunk{Data: canonicalChunk(currentID, currentModel, event.Delta.Text, "")}
				} else if event.Delta.Type == "input_json_delta" {
					if tc, ok := toolCalls[event.Index]; ok {
						tc.Arguments = append(tc.Arguments, []byte(event.Delta.PartialJSON)...)
					}
				}
			case "message_delta":
				outputTokens += usageFromDelta(event)
				if event.Delta != nil && event.Delta.StopReason != "" {
					ch <- providers.StreamChunk{Data: canonicalChunk(currentID, currentModel, "", "stop")}
				}
			case "message_stop":
				ch <- providers.StreamChunk{Data: []byte("data: [DONE]\n\n"), Done: true}
				return
			}
		}
	}()

	return providers.StreamResult{
		Stream:    ch,
		LatencyMs: time.Since(start).Milliseconds(),
		Attempt:   1,
		Status:    resp.StatusCode,
		GetUsage:  func() (int, int) { return inputTokens, outputTokens },
	}, nil
}

func usageFromDelta(event streamEvent) int {
	if event.Usage != nil {
		return event.Usage.OutputTokens
	}
	return 0
}

func canonicalChunk(id, model, content, finishReason string) []byte {
	chunk := map[string]any{
		"id":    id,
		"model": model,
		"choices": []map[string]any{{
			"index":         0,
			"delta":         map[string]any{"content": content},
			"finish_reason": nilIfEmpty(finishReason),
		}},
	}
	payload, _ := json.Marshal(chunk)
	return append(append([]byte("data: "), payload...), []byte("\n\n")...)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
