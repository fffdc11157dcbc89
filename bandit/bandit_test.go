package bandit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestReward_AllFactorsPresent(t *testing.T) {
	r := Reward(Feedback{
		Success:    boolPtr(true),
		Quality:    floatPtr(10),
		LatencySec: floatPtr(0),
		CostUSD:    floatPtr(0),
	})
	assert.InDelta(t, 1.0, r, 1e-9)
}

func TestReward_NoFactorsIsNeutral(t *testing.T) {
	r := Reward(Feedback{})
	assert.InDelta(t, 0.5, r, 1e-9)
}

func TestReward_FailureLowersScore(t *testing.T) {
	withSuccess := Reward(Feedback{Success: boolPtr(true)})
	withFailure := Reward(Feedback{Success: boolPtr(false)})
	assert.Greater(t, withSuccess, withFailure)
}

func TestEngine_SampleNeverBelowExplorationFloor(t *testing.T) {
	e := New()
	for i := 0; i < 50; i++ {
		e.Update("tenant-a", "bad-model", 0) // hammer it with failures
	}
	scores := e.Sample("tenant-a", []string{"bad-model"})
	assert.GreaterOrEqual(t, scores["bad-model"], explorationFloor)
}

func TestEngine_UpdateIncreasesMeanOnSuccess(t *testing.T) {
	e := New()
	before := e.Snapshot("tenant-a")["gpt-4o"]
	assert.Equal(t, Posterior{}, before) // nothing recorded yet

	e.Update("tenant-a", "gpt-4o", 1.0)
	after := e.Snapshot("tenant-a")["gpt-4o"]
	assert.Greater(t, after.mean(), 0.5)
}

func TestEngine_WindowRescalesOnOverflow(t *testing.T) {
	e := New()
	for i := 0; i < 5000; i++ {
		e.Update("tenant-a", "m", 1.0)
	}
	post := e.Snapshot("tenant-a")["m"]
	assert.LessOrEqual(t, post.Alpha+post.Beta, windowSize+1e-6)
}

func TestEngine_TenantAndGlobalScopesAreIndependent(t *testing.T) {
	e := New()
	e.Update("tenant-a", "m", 1.0)
	e.Update("", "m", 0.0) // global

	tenantPost := e.Snapshot("tenant-a")["m"]
	globalPost := e.Snapshot("")["m"]
	assert.Greater(t, tenantPost.mean(), globalPost.mean())
}

type fakeFeedbackSource struct {
	rows map[string][]FeedbackRow
}

func (f *fakeFeedbackSource) RecentFeedback(model string, limit int) ([]FeedbackRow, error) {
	rows := f.rows[model]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func TestEngine_RecomputeRebuildsGlobalOnly(t *testing.T) {
	e := New()
	e.Update("tenant-a", "m", 1.0) // tenant posterior should survive recompute untouched
	tenantBefore := e.Snapshot("tenant-a")["m"]

	src := &fakeFeedbackSource{rows: map[string][]FeedbackRow{
		"m": {{Model: "m", Reward: 1.0}, {Model: "m", Reward: 1.0}, {Model: "m", Reward: 0.0}},
	}}
	require.NoError(t, e.Recompute(src, []string{"m"}))

	tenantAfter := e.Snapshot("tenant-a")["m"]
	assert.Equal(t, tenantBefore, tenantAfter)

	globalAfter := e.Snapshot("")["m"]
	assert.NotEqual(t, Posterior{Alpha: 1, Beta: 1}, globalAfter)
}

func TestEngine_SampleUnknownModelUsesFreshPrior(t *testing.T) {
	e := New()
	scores := e.Sample("tenant-a", []string{"never-seen"})
	assert.Contains(t, scores, "never-seen")
	assert.GreaterOrEqual(t, scores["never-seen"], 0.0)
	assert.LessOrEqual(t, scores["never-seen"], 1.0)
}
