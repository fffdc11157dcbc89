package providers

import (
	"strings"
	"testing"

	"github.com/agentflow-gateway/gateway/types"
	"github.com/stretchr/testify/assert"
)

func TestMapHTTPError_Unauthorized(t *testing.T) {
	e := MapHTTPError(401, "bad key", "openai")
	assert.Equal(t, types.ErrInvalidAPIKey, e.Code)
	assert.False(t, e.Retryable)
}

func TestMapHTTPError_RateLimitIsRetryable(t *testing.T) {
	e := MapHTTPError(429, "slow down", "anthropic")
	assert.True(t, e.Retryable)
}

func TestMapHTTPError_Overloaded529IsRetryable(t *testing.T) {
	e := MapHTTPError(529, "overloaded", "anthropic")
	assert.True(t, e.Retryable)
}

func TestReadErrorMessage_ObjectShape(t *testing.T) {
	body := strings.NewReader(`{"error":{"message":"invalid request","type":"invalid_request_error"}}`)
	msg := ReadErrorMessage(body)
	assert.Contains(t, msg, "invalid request")
	assert.Contains(t, msg, "invalid_request_error")
}

func TestReadErrorMessage_ArrayShape(t *testing.T) {
	body := strings.NewReader(`[{"error":{"message":"array wrapped error"}}]`)
	msg := ReadErrorMessage(body)
	assert.Equal(t, "array wrapped error", msg)
}

func TestReadErrorMessage_FallsBackToRawText(t *testing.T) {
	body := strings.NewReader("plain text failure")
	msg := ReadErrorMessage(body)
	assert.Equal(t, "plain text failure", msg)
}
