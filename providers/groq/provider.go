// Package groq adapts Groq's OpenAI-compatible chat-completions
// endpoint.
package groq

import (
	"net/http"
	"time"

	"github.com/agentflow-gateway/gateway/providers/openaicompat"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.groq.com/openai"
const defaultModel = "llama-3.3-70b-versatile"

// Config configures the Groq adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// New creates a Groq Provider.
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
		ProviderName: "groq",
		APIKey:       cfg.APIKey,
		BaseURL:      baseURL,
		DefaultModel: model,
		Timeout:      cfg.Timeout,
		BuildHeaders: func(req *http.Request, apiKey string) {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		},
	}, logger)
}
