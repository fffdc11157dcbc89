// Package gemini adapts Gemini via its OpenAI-compatible endpoint
// rather than the native Generative Language API: the gateway only
// needs uniform chat-completions semantics, and Gemini's compat
// endpoint already speaks that wire format directly.
package gemini

import (
	"net/http"
	"time"

	"github.com/agentflow-gateway/gateway/providers/openaicompat"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
const defaultModel = "gemini-1.5-flash"

// Config configures the Gemini adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates a Gemini Provider over its OpenAI-compatible endpoint.
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
		ProviderName: "gemini",
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		DefaultModel: model,
		Timeout:      cfg.Timeout,
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		},
	}, logger)
}
