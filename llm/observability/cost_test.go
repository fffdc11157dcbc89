package observability

import (
	"testing"

	"github.com/agentflow-gateway/gateway/router"
)

func testCatalog() []router.ModelEntry {
	return []router.ModelEntry{
		{ID: "gpt-4o", Provider: "openai", InputCostPer1M: 5, OutputCostPer1M: 15},
		{ID: "gpt-4o-mini", Provider: "openai", InputCostPer1M: 0.15, OutputCostPer1M: 0.6},
	}
}

func TestCostCalculator_Calculate(t *testing.T) {
	calc := NewCostCalculator()
	calc.SeedFromCatalog(testCatalog())

	tests := []struct {
		name         string
		provider     string
		model        string
		tokensInput  int
		tokensOutput int
		wantMin      float64
		wantMax      float64
	}{
		{
			name:         "gpt-4o",
			provider:     "openai",
			model:        "gpt-4o",
			tokensInput:  1_000_000,
			tokensOutput: 500_000,
			wantMin:      10,
			wantMax:      15,
		},
		{
			name:         "gpt-4o-mini",
			provider:     "openai",
			model:        "gpt-4o-mini",
			tokensInput:  1_000_000,
			tokensOutput: 500_000,
			wantMin:      0.1,
			wantMax:      0.5,
		},
		{
			name:         "unknown model",
			provider:     "unknown",
			model:        "unknown",
			tokensInput:  1000,
			tokensOutput: 500,
			wantMin:      0,
			wantMax:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cost := calc.Calculate(tt.provider, tt.model, tt.tokensInput, tt.tokensOutput)
			if cost < tt.wantMin || cost > tt.wantMax {
				t.Errorf("Calculate() = %v, want between %v and %v", cost, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestCostTracker_Track(t *testing.T) {
	calc := NewCostCalculator()
	calc.SeedFromCatalog(testCatalog())
	tracker := NewCostTracker(calc)

	tracker.Track("openai", "gpt-4o", 1_000_000, 500_000)
	tracker.Track("openai", "gpt-4o", 2_000_000, 1_000_000)

	summary := tracker.Summary()

	if summary.RequestCount != 2 {
		t.Errorf("RequestCount = %d, want 2", summary.RequestCount)
	}
	if summary.TokensInput != 3_000_000 {
		t.Errorf("TokensInput = %d, want 3000000", summary.TokensInput)
	}
	if summary.TokensOutput != 1_500_000 {
		t.Errorf("TokensOutput = %d, want 1500000", summary.TokensOutput)
	}
	if summary.TotalCost <= 0 {
		t.Error("TotalCost should be > 0")
	}
}

func TestCostTracker_Reset(t *testing.T) {
	calc := NewCostCalculator()
	calc.SeedFromCatalog(testCatalog())
	tracker := NewCostTracker(calc)

	tracker.Track("openai", "gpt-4o", 1_000_000, 500_000)
	tracker.Reset()

	summary := tracker.Summary()
	if summary.RequestCount != 0 {
		t.Errorf("RequestCount after reset = %d, want 0", summary.RequestCount)
	}
}

func TestCostCalculator_SetPrice(t *testing.T) {
	calc := NewCostCalculator()

	calc.SetPrice("custom", "custom-model", 10, 20)

	cost := calc.Calculate("custom", "custom-model", 1_000_000, 1_000_000)
	expected := 10.0 + 20.0
	if cost != expected {
		t.Errorf("Calculate() = %v, want %v", cost, expected)
	}
}
