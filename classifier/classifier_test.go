package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClassify_TrivialPrompt(t *testing.T) {
	c := New(nil)
	r := c.Classify("Hi")
	assert.Equal(t, TierTrivial, r.Tier)
	assert.LessOrEqual(t, r.Score, 10)
	assert.Equal(t, MethodHeuristic, r.Method)
	assert.Equal(t, 0.65, r.Confidence)
}

func TestClassify_ExpertPrompt(t *testing.T) {
	c := New(nil)
	r := c.Classify("Derive the asymptotic variance of the maximum-likelihood estimator for a Pareto(α) distribution, explain why the Fisher information matrix is diagonal, and prove that the estimator is consistent.")
	assert.Contains(t, []Tier{TierComplex, TierExpert}, r.Tier)
	assert.Contains(t, []string{"math", "analysis"}, r.Intent)
}

func TestClassify_CodeIntent(t *testing.T) {
	c := New(nil)
	r := c.Classify("Here is my function, can you debug this code:\n```go\nfunc foo() {}\n```")
	assert.Equal(t, "code", r.Intent)
	assert.Equal(t, 1.0, r.Features.CodeIndicator)
}

func TestClassify_LearnedPathFallsBackOnError(t *testing.T) {
	c := New(failingPredictor{})
	r := c.Classify("hello there")
	assert.Equal(t, MethodHeuristic, r.Method)
}

func TestClassify_LearnedPathUsesPredictor(t *testing.T) {
	c := New(fixedPredictor{probs: [5]float64{0.1, 0.1, 0.1, 0.6, 0.1}})
	r := c.Classify("anything")
	assert.Equal(t, TierComplex, r.Tier)
	assert.Equal(t, 60, r.Score)
	assert.Equal(t, MethodLearned, r.Method)
}

type failingPredictor struct{}

func (failingPredictor) Predict(Features) ([5]float64, error) {
	return [5]float64{}, assertErr
}

var assertErr = &predictErr{}

type predictErr struct{}

func (*predictErr) Error() string { return "predictor unavailable" }

type fixedPredictor struct{ probs [5]float64 }

func (p fixedPredictor) Predict(Features) ([5]float64, error) { return p.probs, nil }

func TestClassify_ScoreBoundedAndTierValid(t *testing.T) {
	c := New(nil)
	valid := map[Tier]bool{
		TierTrivial: true, TierSimple: true, TierModerate: true,
		TierComplex: true, TierExpert: true,
	}
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.StringOfN(rapid.RuneFrom(nil, rapid.CharRange(0x20, 0x7E)), 0, 500, -1).Draw(rt, "prompt")
		r := c.Classify(prompt)
		require.GreaterOrEqual(t, r.Score, 0)
		require.LessOrEqual(t, r.Score, 100)
		require.True(t, valid[r.Tier], "unexpected tier %q", r.Tier)
	})
}
