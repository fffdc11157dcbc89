package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow-gateway/gateway/providers"
	"github.com/agentflow-gateway/gateway/queue"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/tenant"
	"github.com/agentflow-gateway/gateway/types"
)

// recordingSink is a queue.Sink that remembers every row it's handed, for
// asserting on what the orchestrator actually logged.
type recordingSink struct {
	mu   sync.Mutex
	rows []queue.Row
}

func (s *recordingSink) WriteBatch(ctx context.Context, rows []queue.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *recordingSink) all() []queue.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]queue.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

func testCatalog() []router.ModelEntry {
	return []router.ModelEntry{
		{ID: "gpt-4o-mini", Provider: "openai", InputCostPer1M: 0.15, OutputCostPer1M: 0.6, AvgLatencyMS: 800, Reliability: 0.98, EnergyIntensity: 0.2, QualityScore: 70, Strengths: []string{"qa", "summarization"}},
		{ID: "claude-3-opus", Provider: "anthropic", InputCostPer1M: 15, OutputCostPer1M: 75, AvgLatencyMS: 2000, Reliability: 0.97, EnergyIntensity: 0.8, QualityScore: 95, Strengths: []string{"code", "reasoning", "analysis"}},
	}
}

// fakeProvider is a scripted providers.Provider for exercising the
// fallback loop without a real upstream.
type fakeProvider struct {
	name    string
	calls   int
	failN   int // fail the first failN calls, then succeed
	err     error
	stream  providers.StreamResult
	streamErr error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ChatCompletion(ctx context.Context, body []byte) (providers.CompletionResult, error) {
	f.calls++
	if f.calls <= f.failN {
		if f.err != nil {
			return providers.CompletionResult{}, f.err
		}
		return providers.CompletionResult{}, errors.New("upstream failure")
	}
	resp := providers.ChatResponse{
		ID:       "chatcmpl-test",
		Provider: f.name,
		Model:    "test-model",
		Choices: []providers.ChatChoice{{
			Index:        0,
			Message:      types.Message{Role: types.RoleAssistant, Content: "ok"},
			FinishReason: "stop",
		}},
		Usage: providers.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	data, _ := json.Marshal(resp)
	return providers.CompletionResult{Data: json.RawMessage(data), LatencyMs: 50, InputTokens: 10, OutputTokens: 5, Status: 200}, nil
}

func (f *fakeProvider) ChatCompletionStream(ctx context.Context, body []byte) (providers.StreamResult, error) {
	f.calls++
	if f.streamErr != nil {
		return providers.StreamResult{}, f.streamErr
	}
	return f.stream, nil
}

func baseReq(content string) Request {
	return Request{Messages: []types.Message{{Role: types.RoleUser, Content: content}}}
}

func TestHandleCompletion_TrivialPromptCostFirst(t *testing.T) {
	openai := &fakeProvider{name: "openai"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": &fakeProvider{name: "anthropic"}},
	})

	resp, apiErr := o.HandleCompletion(context.Background(), baseReq("hi"))
	require.Nil(t, apiErr)
	require.NotNil(t, resp)
	assert.Equal(t, "openai", resp.Routing.Provider)
	assert.Equal(t, "cost-first", resp.Routing.Strategy)
	assert.Contains(t, string(resp.Body), "_routing")
}

func TestHandleCompletion_ExpertPromptPerformanceFirst(t *testing.T) {
	openai := &fakeProvider{name: "openai"}
	anthropic := &fakeProvider{name: "anthropic"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": anthropic},
	})

	req := baseReq("Design a distributed consensus protocol that tolerates Byzantine faults across five data centers, reasoning carefully through the tradeoffs of each quorum configuration and proving correctness of the leader election algorithm.")
	req.Strategy = "performance-first"

	resp, apiErr := o.HandleCompletion(context.Background(), req)
	require.Nil(t, apiErr)
	require.NotNil(t, resp)
	assert.Equal(t, "anthropic", resp.Routing.Provider)
	assert.Contains(t, []string{"complex", "expert"}, resp.Routing.Complexity)
}

func TestHandleCompletion_CircuitOpenPicksAlternative(t *testing.T) {
	openai := &fakeProvider{name: "openai", failN: 999}
	anthropic := &fakeProvider{name: "anthropic"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": anthropic},
	})

	// Trip the openai breaker by forcing enough recorded failures through
	// a sequence of distinct trivial requests (distinct so none of them
	// resolve from cache) before asserting the routed outcome.
	greetings := []string{
		"hello there, how are you today",
		"good morning, how is it going",
		"hey, what is up with you",
		"greetings, how do you do",
		"hiya, how are things",
		"yo, how is everything",
	}
	for _, g := range greetings {
		_, _ = o.HandleCompletion(context.Background(), baseReq(g))
	}

	resp, apiErr := o.HandleCompletion(context.Background(), baseReq("another independent greeting message"))
	require.Nil(t, apiErr)
	require.NotNil(t, resp)
	assert.Equal(t, "anthropic", resp.Routing.Provider)
}

func TestHandleCompletion_ExactCacheHitTwice(t *testing.T) {
	openai := &fakeProvider{name: "openai"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": &fakeProvider{name: "anthropic"}},
	})

	req := baseReq("what is the capital of france")
	first, apiErr := o.HandleCompletion(context.Background(), req)
	require.Nil(t, apiErr)
	require.NotEqual(t, "cache", first.Routing.Provider)

	second, apiErr := o.HandleCompletion(context.Background(), req)
	require.Nil(t, apiErr)
	assert.Equal(t, "cache", second.Routing.Provider)
	assert.Equal(t, "cache", second.Routing.ModelSelected)
	assert.Equal(t, 1, openai.calls)
}

func TestHandleCompletion_BudgetExceededBeforeClassification(t *testing.T) {
	limit := 1.0
	tn := &tenant.Tenant{ID: "t1", Name: "acme", BudgetLimitMonth: &limit, UsageThisMonth: 1.5}

	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": &fakeProvider{name: "openai"}, "anthropic": &fakeProvider{name: "anthropic"}},
	})

	req := baseReq("hello")
	req.Tenant = tn
	_, apiErr := o.HandleCompletion(context.Background(), req)
	require.NotNil(t, apiErr)
	assert.Equal(t, types.ErrBudgetExceeded, apiErr.Code)
	assert.Equal(t, 429, apiErr.HTTPStatus)
}

func TestHandleCompletionStream_FallbackTranslation(t *testing.T) {
	chunks := make(chan providers.StreamChunk, 2)
	chunks <- providers.StreamChunk{Data: []byte(`data: {"id":"chatcmpl-test"}`)}
	chunks <- providers.StreamChunk{Data: []byte("data: [DONE]"), Done: true}
	close(chunks)

	anthropic := &fakeProvider{
		name: "anthropic",
		stream: providers.StreamResult{
			Stream: chunks,
			Status: 200,
			GetUsage: func() (int, int) { return 20, 10 },
		},
	}
	openai := &fakeProvider{name: "openai", streamErr: errors.New("connection refused")}

	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": anthropic},
	})

	req := baseReq("Design a distributed consensus protocol that tolerates Byzantine faults carefully and rigorously.")
	req.Stream = true
	req.Strategy = "performance-first"

	resp, apiErr := o.HandleCompletionStream(context.Background(), req)
	require.Nil(t, apiErr)
	require.NotNil(t, resp)
	assert.Equal(t, "anthropic", resp.Provider)

	var got []providers.StreamChunk
	for c := range resp.Chunks {
		got = append(got, c)
	}
	require.Len(t, got, 2)
	assert.Contains(t, string(got[1].Data), "[DONE]")
}

func TestHandleCompletion_RejectsEmptyMessages(t *testing.T) {
	o := New(Config{Catalog: testCatalog()})
	_, apiErr := o.HandleCompletion(context.Background(), Request{})
	require.NotNil(t, apiErr)
	assert.Equal(t, types.ErrInvalidRequest, apiErr.Code)
}

func TestHandleCompletion_MockModeWhenRegistryEmpty(t *testing.T) {
	o := New(Config{Catalog: testCatalog()})
	resp, apiErr := o.HandleCompletion(context.Background(), baseReq("hello"))
	require.Nil(t, apiErr)
	require.NotNil(t, resp)
	assert.Contains(t, string(resp.Body), "mock")
}

func TestHandleCompletion_LogsPromptPreview(t *testing.T) {
	sink := &recordingSink{}
	q := queue.New(sink)
	q.Start()

	openai := &fakeProvider{name: "openai"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": &fakeProvider{name: "anthropic"}},
		Queue:    q,
	})

	_, apiErr := o.HandleCompletion(context.Background(), baseReq("hi"))
	require.Nil(t, apiErr)
	require.NoError(t, q.Shutdown(context.Background()))

	rows := sink.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "hi", rows[0].PromptPreview)
}

func TestHandleCompletion_PromptPreviewTruncatedTo100Runes(t *testing.T) {
	sink := &recordingSink{}
	q := queue.New(sink)
	q.Start()

	openai := &fakeProvider{name: "openai"}
	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": &fakeProvider{name: "anthropic"}},
		Queue:    q,
	})

	longPrompt := ""
	for i := 0; i < 150; i++ {
		longPrompt += "a"
	}
	_, apiErr := o.HandleCompletion(context.Background(), baseReq(longPrompt))
	require.Nil(t, apiErr)
	require.NoError(t, q.Shutdown(context.Background()))

	rows := sink.all()
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].PromptPreview, 100)
}

func TestHandleCompletionStream_AbandonedReaderStillEnqueuesLogRow(t *testing.T) {
	sink := &recordingSink{}
	q := queue.New(sink)
	q.Start()

	chunks := make(chan providers.StreamChunk, 2)
	chunks <- providers.StreamChunk{Data: []byte(`data: {"id":"chatcmpl-test"}`)}
	// Second chunk is never read: the consumer cancels instead, simulating
	// a client disconnect mid-stream.

	anthropic := &fakeProvider{
		name: "anthropic",
		stream: providers.StreamResult{
			Stream:   chunks,
			Status:   200,
			GetUsage: func() (int, int) { return 20, 10 },
		},
	}
	openai := &fakeProvider{name: "openai", streamErr: errors.New("connection refused")}

	o := New(Config{
		Catalog:  testCatalog(),
		Registry: map[string]providers.Provider{"openai": openai, "anthropic": anthropic},
		Queue:    q,
	})

	req := baseReq("hi")
	req.Stream = true

	resp, apiErr := o.HandleCompletionStream(context.Background(), req)
	require.Nil(t, apiErr)
	require.NotNil(t, resp)

	<-resp.Chunks // read the one chunk the provider sent
	resp.Cancel() // abandon the stream before it drains naturally

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, q.Shutdown(context.Background()))

	rows := sink.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "hi", rows[0].PromptPreview)
	assert.True(t, rows[0].Critical)
}
