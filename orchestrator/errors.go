package orchestrator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agentflow-gateway/gateway/types"
)

func invalidRequest(msg string) *types.Error {
	return &types.Error{Code: types.ErrInvalidRequest, Message: msg, HTTPStatus: http.StatusBadRequest}
}

func budgetExceeded() *types.Error {
	return &types.Error{Code: types.ErrBudgetExceeded, Message: "monthly budget exceeded", HTTPStatus: http.StatusTooManyRequests}
}

func circuitOpen() *types.Error {
	return &types.Error{Code: types.ErrCircuitOpen, Message: "no provider available: all circuits open", HTTPStatus: http.StatusServiceUnavailable}
}

// lastProviderError maps the final fallback failure to the typed error
// the client sees: the provider's own status if it set one, else 502
// provider_error. A fallback list exhausted purely
// because every circuit was open maps to 503 service_unavailable instead.
func lastProviderError(err error, provider string) *types.Error {
	if errors.Is(err, errAllCircuitsOpen) {
		return circuitOpen()
	}
	if apiErr, ok := err.(*types.Error); ok {
		if apiErr.HTTPStatus == 0 {
			apiErr.HTTPStatus = http.StatusBadGateway
		}
		if apiErr.Provider == "" {
			apiErr.Provider = provider
		}
		return apiErr
	}
	msg := "all providers failed"
	if err != nil {
		msg = err.Error()
	}
	return &types.Error{Code: types.ErrProviderError, Message: msg, HTTPStatus: http.StatusBadGateway, Provider: provider}
}

// isTimeoutError is a heuristic: the shared provider HTTP core does not
// thread a typed timeout flag through types.Error, so breaker accounting
// falls back to matching the wrapped message.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}
