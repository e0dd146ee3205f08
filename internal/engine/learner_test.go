package engine_test

import (
	"testing"
	"time"

	"github.com/HendryAvila/johny/internal/engine"
)

func TestFoldOutcome_FirstObservationSeedsPattern(t *testing.T) {
	now := time.Now()
	p := engine.FoldOutcome(nil, engine.Outcome{
		TaskType:        engine.TaskDebugging,
		Strategy:        engine.StrategyProblemSolving,
		UserFeedback:    0.8,
		ResponseQuality: 0.9,
		ExecutionTime:   5.0,
	}, now)

	if p.SuccessCount != 1 {
		t.Errorf("success count = %d, want 1", p.SuccessCount)
	}
	if !closeTo(p.UserFeedback, 0.8) || !closeTo(p.ResponseQuality, 0.9) {
		t.Errorf("metrics not seeded: feedback %.2f, quality %.2f", p.UserFeedback, p.ResponseQuality)
	}
	// 5s execution: min(1, 10/5) = 1.0, no token estimate to blend.
	if !closeTo(p.TokenEfficiency, 1.0) {
		t.Errorf("token efficiency = %.2f, want 1.0", p.TokenEfficiency)
	}
	// 0.4*0.8 + 0.4*0.9 + 0.2*1.0
	if !closeTo(p.EffectivenessScore, 0.88) {
		t.Errorf("effectiveness = %.3f, want 0.880", p.EffectivenessScore)
	}
}

func TestFoldOutcome_RunningAverage(t *testing.T) {
	now := time.Now()
	first := engine.FoldOutcome(nil, engine.Outcome{
		TaskType:     engine.TaskCodeGeneration,
		Strategy:     engine.StrategyPrecisionTechnical,
		UserFeedback: 0.8, ResponseQuality: 0.8, ExecutionTime: 10,
	}, now)

	second := engine.FoldOutcome(&first, engine.Outcome{
		TaskType:     engine.TaskCodeGeneration,
		Strategy:     engine.StrategyPrecisionTechnical,
		UserFeedback: 0.9, ResponseQuality: 0.9, ExecutionTime: 10,
	}, now.Add(time.Minute))

	if second.SuccessCount != 2 {
		t.Errorf("success count = %d, want 2", second.SuccessCount)
	}
	if !closeTo(second.UserFeedback, 0.85) {
		t.Errorf("feedback = %.3f, want 0.850", second.UserFeedback)
	}
	if !closeTo(second.ResponseQuality, 0.85) {
		t.Errorf("quality = %.3f, want 0.850", second.ResponseQuality)
	}
	if !second.LastUsed.After(first.LastUsed) {
		t.Error("last used not advanced")
	}
}

func TestFoldOutcome_ZeroExecutionTimeIsNeutral(t *testing.T) {
	p := engine.FoldOutcome(nil, engine.Outcome{
		TaskType: engine.TaskAnalysis, Strategy: engine.StrategyProblemSolving,
		UserFeedback: 0.5, ResponseQuality: 0.5,
	}, time.Now())
	if !closeTo(p.TokenEfficiency, 0.5) {
		t.Errorf("token efficiency = %.2f, want neutral 0.5", p.TokenEfficiency)
	}
}

func TestFoldOutcome_TokenEstimateBlendsEfficiency(t *testing.T) {
	now := time.Now()
	fast := engine.FoldOutcome(nil, engine.Outcome{
		TaskType: engine.TaskTesting, Strategy: engine.StrategyPrecisionTechnical,
		UserFeedback: 0.5, ResponseQuality: 0.5, ExecutionTime: 2,
	}, now)
	heavy := engine.FoldOutcome(nil, engine.Outcome{
		TaskType: engine.TaskTesting, Strategy: engine.StrategyPrecisionTechnical,
		UserFeedback: 0.5, ResponseQuality: 0.5, ExecutionTime: 2, EstimatedTokens: 4000,
	}, now)

	if heavy.TokenEfficiency >= fast.TokenEfficiency {
		t.Errorf("large token estimate did not lower efficiency: %.3f vs %.3f",
			heavy.TokenEfficiency, fast.TokenEfficiency)
	}
	// min(1, 10/2) = 1.0 blended with min(1, 1000/4000) = 0.25 → 0.625.
	if !closeTo(heavy.TokenEfficiency, 0.625) {
		t.Errorf("blended efficiency = %.3f, want 0.625", heavy.TokenEfficiency)
	}
}

func TestBestPattern(t *testing.T) {
	if engine.BestPattern(nil) != nil {
		t.Error("empty slice should yield nil")
	}

	patterns := []engine.SuccessPattern{
		{Strategy: engine.StrategyComprehensive, EffectivenessScore: 0.6},
		{Strategy: engine.StrategyEfficiencyFocused, EffectivenessScore: 0.9},
		{Strategy: engine.StrategyEducational, EffectivenessScore: 0.9},
	}
	best := engine.BestPattern(patterns)
	if best == nil || best.Strategy != engine.StrategyEfficiencyFocused {
		t.Errorf("best = %v, want efficiency_focused (ties resolve to the earlier element)", best)
	}
}
