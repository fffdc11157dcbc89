package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_NormalizesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, Hash("  Hello World  "), Hash("hello world"))
	assert.Len(t, Hash("anything"), 16)
}

func TestCache_ExactHitAndMiss(t *testing.T) {
	c := New(DefaultConfig())
	h := Hash("what is the capital of france")

	res := c.Lookup(h, nil)
	assert.False(t, res.Hit)

	c.Store(h, "Paris", "gpt-4o", nil)
	res = c.Lookup(h, nil)
	require.True(t, res.Hit)
	assert.Equal(t, "Paris", res.Response)
	assert.Equal(t, "exact", res.Source)
}

func TestCache_TTLExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTL = time.Millisecond
	c := New(cfg)
	h := Hash("prompt")
	c.Store(h, "resp", "m", nil)

	time.Sleep(5 * time.Millisecond)
	res := c.Lookup(h, nil)
	assert.False(t, res.Hit)
}

func TestCache_LRUEvictsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 2
	c := New(cfg)

	c.Store(Hash("a"), "ra", "m", nil)
	c.Store(Hash("b"), "rb", "m", nil)
	c.Store(Hash("c"), "rc", "m", nil) // evicts "a", the LRU entry

	assert.False(t, c.Lookup(Hash("a"), nil).Hit)
	assert.True(t, c.Lookup(Hash("b"), nil).Hit)
	assert.True(t, c.Lookup(Hash("c"), nil).Hit)
}

func TestCache_LRUTouchOnLookupPreventsEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 2
	c := New(cfg)

	c.Store(Hash("a"), "ra", "m", nil)
	c.Store(Hash("b"), "rb", "m", nil)
	c.Lookup(Hash("a"), nil) // touch "a", making "b" the LRU entry
	c.Store(Hash("c"), "rc", "m", nil)

	assert.True(t, c.Lookup(Hash("a"), nil).Hit)
	assert.False(t, c.Lookup(Hash("b"), nil).Hit)
	assert.True(t, c.Lookup(Hash("c"), nil).Hit)
}

func fillWithEmbeddings(c *Cache, n int) {
	for i := 0; i < n; i++ {
		h := Hash(string(rune('a' + i%26)) + string(rune(i)))
		c.Store(h, "resp", "m", []float32{1, 0, 0})
	}
}

func TestCache_EmbeddingFallbackAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinEntriesForEmbedding = 1
	c := New(cfg)

	c.Store(Hash("seed"), "cached answer", "m", []float32{1, 0, 0})

	res := c.Lookup(Hash("a different but similar prompt"), []float32{0.99, 0.01, 0})
	require.True(t, res.Hit)
	assert.Equal(t, "semantic", res.Source)
	assert.Equal(t, "cached answer", res.Response)
}

func TestCache_EmbeddingFallbackBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinEntriesForEmbedding = 1
	c := New(cfg)

	c.Store(Hash("seed"), "cached answer", "m", []float32{1, 0, 0})

	res := c.Lookup(Hash("totally unrelated prompt"), []float32{0, 1, 0})
	assert.False(t, res.Hit)
}

func TestCache_EmbeddingDisabledBelowMinEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinEntriesForEmbedding = 100
	c := New(cfg)

	c.Store(Hash("seed"), "cached answer", "m", []float32{1, 0, 0})

	res := c.Lookup(Hash("a different but similar prompt"), []float32{1, 0, 0})
	assert.False(t, res.Hit)
}

func TestCache_AutoDisablesEmbeddingOnLowHitRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinEntriesForEmbedding = 1
	cfg.AutoDisableAfterLookups = 50
	cfg.AutoDisableHitRateThreshold = 0.15
	c := New(cfg)

	c.Store(Hash("seed"), "cached answer", "m", []float32{1, 0, 0})

	for i := 0; i < 60; i++ {
		c.Lookup(Hash("never matches this one"), []float32{0, 1, 0})
	}

	stats := c.SnapshotStats()
	assert.False(t, stats.EmbeddingEnabled)
}

func TestCache_StoreLookupRoundTrip(t *testing.T) {
	c := New(DefaultConfig())
	h := Hash("round trip prompt")
	c.Store(h, map[string]string{"content": "hello"}, "claude-3", nil)

	res := c.Lookup(h, nil)
	require.True(t, res.Hit)
	assert.Equal(t, map[string]string{"content": "hello"}, res.Response)
	assert.Equal(t, "claude-3", res.Model)
}

func TestCache_StatsCountHitsAndMisses(t *testing.T) {
	c := New(DefaultConfig())
	h := Hash("p")
	c.Lookup(h, nil)
	c.Store(h, "r", "m", nil)
	c.Lookup(h, nil)
	c.Lookup(h, nil)

	stats := c.SnapshotStats()
	assert.EqualValues(t, 2, stats.ExactHits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 3, stats.TotalLookups)
}
