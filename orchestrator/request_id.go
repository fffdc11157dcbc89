package orchestrator

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/agentflow-gateway/gateway/types"
)

func newRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "req-" + hex.EncodeToString(b)
}

func hasUserMessage(msgs []types.Message) bool {
	for _, m := range msgs {
		if m.Role == types.RoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

// userContent concatenates every user-role message's content, in order,
// for the cache hash.
func userContent(msgs []types.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role == types.RoleUser {
			b.WriteString(m.Content)
		}
	}
	return b.String()
}

// promptPreview truncates prompt to its first 100 runes, for the
// request log's prompt_preview column.
func promptPreview(prompt string) string {
	r := []rune(prompt)
	if len(r) <= 100 {
		return prompt
	}
	return string(r[:100])
}

// resolveStrategy picks the strategy by precedence: tenant default,
// then request, then cost-first.
func resolveStrategy(req Request, fallback string) string {
	if req.Tenant != nil && req.Tenant.DefaultStrategy != "" {
		return req.Tenant.DefaultStrategy
	}
	if req.Strategy != "" {
		return req.Strategy
	}
	return fallback
}
