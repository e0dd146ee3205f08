package profile_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/HendryAvila/johny/internal/engine"
	"github.com/HendryAvila/johny/internal/profile"
)

func newTestStore(t *testing.T) *profile.Store {
	t.Helper()
	s, err := profile.New(profile.Config{
		DataDir:       t.TempDir(),
		MaxAdjustLog:  5,
		HistoryWindow: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testTime returns a fixed instant at the second precision the store persists.
func testTime() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

// ─── Profiles ────────────────────────────────────────────────────────────────

func TestProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := testTime()

	saved := engine.ThresholdProfile{
		UserID:           "u1",
		BaseThreshold:    0.6,
		CurrentThreshold: 0.55,
		Style:            engine.StyleTechnical,
		AdjustmentHistory: []engine.Adjustment{
			{Timestamp: now.Add(-time.Hour), OldThreshold: 0.6, NewThreshold: 0.55, Reason: "success_rate=0.40"},
		},
		LastAdjusted:     now,
		SuccessRate:      0.4,
		TotalAdjustments: 1,
	}
	if err := s.SaveProfile(saved); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	got, err := s.Profile("u1")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if got.CurrentThreshold != saved.CurrentThreshold || got.BaseThreshold != saved.BaseThreshold {
		t.Errorf("thresholds = (%.2f, %.2f), want (%.2f, %.2f)",
			got.BaseThreshold, got.CurrentThreshold, saved.BaseThreshold, saved.CurrentThreshold)
	}
	if got.Style != engine.StyleTechnical {
		t.Errorf("style = %s, want technical", got.Style)
	}
	if !got.LastAdjusted.Equal(now) {
		t.Errorf("last adjusted = %v, want %v", got.LastAdjusted, now)
	}
	if len(got.AdjustmentHistory) != 1 || got.AdjustmentHistory[0].Reason != "success_rate=0.40" {
		t.Errorf("history not preserved: %+v", got.AdjustmentHistory)
	}
	if got.SuccessRate != 0.4 || got.TotalAdjustments != 1 {
		t.Errorf("counters = (%.2f, %d), want (0.40, 1)", got.SuccessRate, got.TotalAdjustments)
	}
}

func TestProfileMissingUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Profile("nobody"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProfileOverwrite(t *testing.T) {
	s := newTestStore(t)
	p := engine.ThresholdProfile{
		UserID: "u1", BaseThreshold: 0.6, CurrentThreshold: 0.6,
		Style: engine.StyleGeneral, LastAdjusted: testTime(),
	}
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.CurrentThreshold = 0.65
	p.TotalAdjustments = 3
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := s.Profile("u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentThreshold != 0.65 || got.TotalAdjustments != 3 {
		t.Errorf("overwrite not applied: %+v", got)
	}
}

func TestProfileOutOfRangeThresholdReadsAsMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveProfile(engine.ThresholdProfile{
		UserID: "u1", BaseThreshold: 0.6, CurrentThreshold: 0.95,
		Style: engine.StyleGeneral, LastAdjusted: testTime(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Profile("u1"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for an out-of-range threshold", err)
	}
}

func TestProfileUnknownStyleNormalizes(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveProfile(engine.ThresholdProfile{
		UserID: "u1", BaseThreshold: 0.6, CurrentThreshold: 0.6,
		Style: engine.UserStyle("vibes"), LastAdjusted: testTime(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Profile("u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Style != engine.StyleGeneral {
		t.Errorf("style = %s, want general for an unrecognized value", got.Style)
	}
}

// ─── Adjustment log ──────────────────────────────────────────────────────────

func TestAdjustmentLogNewestFirstAndPruned(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveProfile(engine.ThresholdProfile{
		UserID: "u1", BaseThreshold: 0.6, CurrentThreshold: 0.6,
		Style: engine.StyleGeneral, LastAdjusted: testTime(),
	}); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	// Seven entries against a cap of five.
	for i := 0; i < 7; i++ {
		err := s.RecordAdjustment("u1", engine.Adjustment{
			Timestamp:    testTime().Add(time.Duration(i) * time.Minute),
			OldThreshold: 0.6,
			NewThreshold: 0.6 + float64(i)*0.01,
			Reason:       fmt.Sprintf("step %d", i),
		})
		if err != nil {
			t.Fatalf("record adjustment %d: %v", i, err)
		}
	}

	log, err := s.Adjustments("u1", 50)
	if err != nil {
		t.Fatalf("load adjustments: %v", err)
	}
	if len(log) != 5 {
		t.Fatalf("log length = %d, want 5 after pruning", len(log))
	}
	if log[0].Reason != "step 6" || log[4].Reason != "step 2" {
		t.Errorf("log order wrong: first=%q last=%q", log[0].Reason, log[4].Reason)
	}
}

func TestAdjustmentLogDropsEntriesPastHistoryWindow(t *testing.T) {
	s := newTestStore(t) // 24h window
	if err := s.SaveProfile(engine.ThresholdProfile{
		UserID: "u1", BaseThreshold: 0.6, CurrentThreshold: 0.6,
		Style: engine.StyleGeneral, LastAdjusted: testTime(),
	}); err != nil {
		t.Fatalf("save profile: %v", err)
	}

	stale := engine.Adjustment{
		Timestamp: testTime().Add(-48 * time.Hour), OldThreshold: 0.6, NewThreshold: 0.55, Reason: "stale",
	}
	fresh := engine.Adjustment{
		Timestamp: testTime(), OldThreshold: 0.55, NewThreshold: 0.6, Reason: "fresh",
	}
	for _, adj := range []engine.Adjustment{stale, fresh} {
		if err := s.RecordAdjustment("u1", adj); err != nil {
			t.Fatalf("record adjustment: %v", err)
		}
	}

	log, err := s.Adjustments("u1", 10)
	if err != nil {
		t.Fatalf("load adjustments: %v", err)
	}
	if len(log) != 1 || log[0].Reason != "fresh" {
		t.Errorf("log = %+v, want only the fresh entry", log)
	}
}

func TestAdjustmentsDefaultLimit(t *testing.T) {
	s := newTestStore(t)
	log, err := s.Adjustments("nobody", 0)
	if err != nil {
		t.Fatalf("load adjustments: %v", err)
	}
	if len(log) != 0 {
		t.Errorf("log length = %d, want 0 for an unknown user", len(log))
	}
}

// ─── Patterns ────────────────────────────────────────────────────────────────

func TestPatternRoundTrip(t *testing.T) {
	s := newTestStore(t)
	saved := engine.SuccessPattern{
		TaskType:           engine.TaskDebugging,
		Strategy:           engine.StrategyProblemSolving,
		UserFeedback:       0.8,
		ResponseQuality:    0.9,
		ExecutionTime:      5,
		TokenEfficiency:    1.0,
		SuccessCount:       1,
		LastUsed:           testTime(),
		EffectivenessScore: 0.88,
	}
	if err := s.SavePattern(saved); err != nil {
		t.Fatalf("save pattern: %v", err)
	}

	got, err := s.Pattern(engine.PatternKey(engine.TaskDebugging, engine.StrategyProblemSolving))
	if err != nil {
		t.Fatalf("load pattern: %v", err)
	}
	if got.TaskType != saved.TaskType || got.Strategy != saved.Strategy {
		t.Errorf("identity = (%s, %s), want (%s, %s)", got.TaskType, got.Strategy, saved.TaskType, saved.Strategy)
	}
	if got.EffectivenessScore != 0.88 || got.SuccessCount != 1 {
		t.Errorf("metrics = (%.3f, %d), want (0.880, 1)", got.EffectivenessScore, got.SuccessCount)
	}
	if !got.LastUsed.Equal(testTime()) {
		t.Errorf("last used = %v, want %v", got.LastUsed, testTime())
	}
}

func TestPatternMissingKey(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Pattern("debugging_problem_solving"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPatternOverwrite(t *testing.T) {
	s := newTestStore(t)
	p := engine.SuccessPattern{
		TaskType: engine.TaskTesting, Strategy: engine.StrategyPrecisionTechnical,
		SuccessCount: 1, LastUsed: testTime(), EffectivenessScore: 0.5,
	}
	if err := s.SavePattern(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.SuccessCount = 2
	p.EffectivenessScore = 0.7
	if err := s.SavePattern(p); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := s.Pattern(engine.PatternKey(p.TaskType, p.Strategy))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SuccessCount != 2 || got.EffectivenessScore != 0.7 {
		t.Errorf("overwrite not applied: %+v", got)
	}
}

func TestPatternsForTaskFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	patterns := []engine.SuccessPattern{
		{TaskType: engine.TaskDebugging, Strategy: engine.StrategyProblemSolving, LastUsed: testTime(), EffectivenessScore: 0.7},
		{TaskType: engine.TaskDebugging, Strategy: engine.StrategyEfficiencyFocused, LastUsed: testTime(), EffectivenessScore: 0.9},
		{TaskType: engine.TaskLearning, Strategy: engine.StrategyEducational, LastUsed: testTime(), EffectivenessScore: 0.8},
	}
	for _, p := range patterns {
		if err := s.SavePattern(p); err != nil {
			t.Fatalf("save pattern: %v", err)
		}
	}

	got, err := s.PatternsForTask(engine.TaskDebugging)
	if err != nil {
		t.Fatalf("load patterns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("pattern count = %d, want 2", len(got))
	}
	// Ordered by strategy: efficiency_focused < problem_solving.
	if got[0].Strategy != engine.StrategyEfficiencyFocused || got[1].Strategy != engine.StrategyProblemSolving {
		t.Errorf("order = (%s, %s), want (efficiency_focused, problem_solving)", got[0].Strategy, got[1].Strategy)
	}

	all, err := s.Patterns()
	if err != nil {
		t.Fatalf("load all patterns: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("total patterns = %d, want 3", len(all))
	}
}
