// Package openai adapts the canonical wire shape to OpenAI's own
// chat-completions endpoint — since the gateway's canonical shape is
// already OpenAI's, this is a thin openaicompat configuration.
package openai

import (
	"net/http"
	"time"

	"github.com/agentflow-gateway/gateway/providers/openaicompat"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.openai.com"
const defaultModel = "gpt-4o-mini"

// Config configures the OpenAI adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates an OpenAI Provider.
func New(cfg Config, logger *zap.Logger) *openaicompat.Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return openaicompat.New(openaicompat.Config{
		ProviderName: "openai",
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		DefaultModel: model,
		Timeout:      cfg.Timeout,
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		},
	}, logger)
}
