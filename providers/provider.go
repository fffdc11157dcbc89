package providers

import "context"

// CompletionResult is the outcome of a non-streaming chat completion.
type CompletionResult struct {
	Data         any
	LatencyMs    int64
	Attempt      int
	InputTokens  int
	OutputTokens int
	Status       int
}

// StreamChunk is one piece of a streaming completion, already translated
// into the canonical OpenAI-compatible SSE wire shape.
type StreamChunk struct {
	Data []byte
	Err  error
	Done bool
}

// StreamResult is the outcome of opening a streaming chat completion.
type StreamResult struct {
	Stream    <-chan StreamChunk
	LatencyMs int64
	Attempt   int
	Status    int
	// GetUsage returns token usage once the stream has completed; it is
	// only safe to call after Stream is drained.
	GetUsage func() (inputTokens, outputTokens int)
}

// Provider is the uniform contract every vendor adapter implements.
type Provider interface {
	Name() string
	ChatCompletion(ctx context.Context, body []byte) (CompletionResult, error)
	ChatCompletionStream(ctx context.Context, body []byte) (StreamResult, error)
}
