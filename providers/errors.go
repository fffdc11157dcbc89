package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentflow-gateway/gateway/types"
)

// MapHTTPError maps an upstream HTTP status and message to the gateway's
// typed error, setting Retryable for 429/5xx and leaving it false for
// any other 4xx.
func MapHTTPError(status int, msg, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized:
		return &types.Error{Code: types.ErrInvalidAPIKey, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &types.Error{Code: types.ErrProviderError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &types.Error{Code: types.ErrProviderError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case 529: // overloaded, used by Anthropic
		return &types.Error{Code: types.ErrProviderError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &types.Error{Code: types.ErrProviderError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}

// ReadErrorMessage extracts a provider's error message from a response
// body, supporting both the common `{error:{message}}` shape and the
// array-wrapped `[{error:{message}}]` shape a few providers use.
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var obj struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &obj) == nil && obj.Error.Message != "" {
		if obj.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", obj.Error.Message, obj.Error.Type)
		}
		return obj.Error.Message
	}

	var arr []struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &arr) == nil && len(arr) > 0 && arr[0].Error.Message != "" {
		return arr[0].Error.Message
	}

	return strings.TrimSpace(string(data))
}
