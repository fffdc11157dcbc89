// Package cohere adapts Cohere's OpenAI-compatible chat-completions
// endpoint.
package cohere

import (
	"net/http"
	"time"

	"github.com/agentflow-gateway/gateway/providers/openaicompat"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.cohere.ai/compatibility/v1"
const defaultModel = "command-r-plus"

// Config configures the Cohere adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates a Cohere Provider.
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
		ProviderName: "cohere",
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		DefaultModel: model,
		Timeout:      cfg.Timeout,
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		},
	}, logger)
}
