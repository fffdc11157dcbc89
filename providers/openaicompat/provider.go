package openaicompat

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

// Config configures one OpenAI-compatible vendor endpoint.
type Config struct {
	ProviderName  string
	APIKey        string
	BaseURL       string
	DefaultModel  string
	Timeout       time.Duration
	EndpointPath  string // defaults to /v1/chat/completions
	BuildHeaders  func(req *http.Request, apiKey string)
}

func normalizeConfig(cfg Config) Config {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.BuildHeaders == nil {
		cfg.BuildHeaders = func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}
	return cfg
}

// Provider forwards the canonical ChatRequest directly to an
// OpenAI-compatible endpoint; no message translation is needed since the
// wire shape already matches.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
	retry  providers.RetryPolicy
}

// New creates a Provider for one OpenAI-compatible vendor.
func New(cfg Config, logger *zap.Logger) *Provider {
	cfg = normalizeConfig(cfg)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		retry:  providers.DefaultRetryPolicy(),
	}
}

func (p *Provider) Name() string { return p.cfg.ProviderName }

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EndpointPath
}

func (p *Provider) prepareBody(body []byte) ([]byte, error) {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = p.cfg.DefaultModel
	}
	return json.Marshal(req)
}

func (p *Provider) buildRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.cfg.BuildHeaders(req, p.cfg.APIKey)
	return req, nil
}

// ChatCompletion forwards a non-streaming completion.
func (p *Provider) ChatCompletion(ctx context.Context, body []byte) (providers.CompletionResult, error) {
	payload, err := p.prepareBody(body)
	if err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}

	start := time.Now()
	var raw json.RawMessage
	var parsed struct {
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}

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

		if resp.StatusCode >= 400 {
			msg := providers.ReadErrorMessage(resp.Body)
			return resp.StatusCode, fmt.Errorf("%s", msg)
		}
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return resp.StatusCode, readErr
		}
		raw = data
		_ = json.Unmarshal(data, &parsed)
		return resp.StatusCode, nil
	})

	latency := time.Since(start)
	if status >= 400 {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return providers.CompletionResult{}, providers.MapHTTPError(status, msg, p.Name())
	}
	if err != nil {
		return providers.CompletionResult{}, &types.Error{Code: types.ErrProviderError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}
	}

	return providers.CompletionResult{
		Data:         raw,
		LatencyMs:    latency.Milliseconds(),
		Attempt:      attempts,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		Status:       status,
	}, nil
}

// ChatCompletionStream forwards a streaming completion, passing the
// upstream SSE bytes through line by line unchanged (the wire shape is
// already canonical for OpenAI-compatible endpoints).
func (p *Provider) ChatCompletionStream(ctx context.Context, body []byte) (providers.StreamResult, error) {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return providers.StreamResult{}, &types.Error{Code: types.ErrInvalidRequest, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}
	req.Stream = true
	if req.Model == "" {
		req.Model = p.cfg.DefaultModel
	}
	payload, _ := json.Marshal(req)

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

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "data:") {
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if data == "[DONE]" {
					ch <- providers.StreamChunk{Data: []byte("data: [DONE]\n\n"), Done: true}
					return
				}
				in, out, ok := extractUsage(data)
				if ok {
					inputTokens, outputTokens = in, out
				}
				ch <- providers.StreamChunk{Data: []byte("data: " + data + "\n\n")}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- providers.StreamChunk{Err: &types.Error{Code: types.ErrProviderError, Message: err.Error(), HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name()}}
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

func extractUsage(data string) (input, output int, ok bool) {
	var parsed struct {
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if json.Unmarshal([]byte(data), &parsed) != nil || parsed.Usage == nil {
		return 0, 0, false
	}
	return parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, true
}
