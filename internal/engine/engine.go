package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrNotFound is returned by Store implementations when no record exists for
// the requested key. A corrupted record must surface as ErrNotFound too, so
// the engine recreates it instead of crashing the request.
var ErrNotFound = errors.New("engine: not found")

// Store is the persistence collaborator for threshold profiles and success
// patterns.
type Store interface {
	Profile(userID string) (ThresholdProfile, error)
	SaveProfile(profile ThresholdProfile) error
	RecordAdjustment(userID string, adj Adjustment) error
	Adjustments(userID string, limit int) ([]Adjustment, error)
	Pattern(key string) (SuccessPattern, error)
	SavePattern(pattern SuccessPattern) error
	PatternsForTask(task TaskType) ([]SuccessPattern, error)
	Patterns() ([]SuccessPattern, error)
}

// StyleSource resolves a user's currently preferred communication style from
// an external preference store.
type StyleSource interface {
	PreferredStyle(userID string) (UserStyle, error)
}

// Engine ties the pure scoring components to persistence. All store writes
// go through a single mutex so concurrent requests for the same user or
// pattern never interleave read-modify-write cycles.
type Engine struct {
	store  Store       // nil = run without persistence
	styles StyleSource // nil = DefaultSteering for everyone
	now    func() time.Time

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithStyleSource wires an external preference store.
func WithStyleSource(s StyleSource) Option {
	return func(e *Engine) { e.styles = s }
}

// WithClock overrides the engine's clock. Test seam.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine backed by store. A nil store is valid: every
// persistence-backed operation degrades to its style-default behavior.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnalyzeTask classifies a user message. Pure pass-through.
func (e *Engine) AnalyzeTask(message string, context map[string]any) Analysis {
	return AnalyzeTask(message, context)
}

// SelectStrategy picks prompt-construction parameters for the analysis,
// steering by the user's preferred style when a preference source is wired.
func (e *Engine) SelectStrategy(analysis Analysis, userID string) Optimization {
	return SelectStrategy(analysis, e.preferredSteering(userID))
}

// ScoreRelevance scores the fragment pool against the message. A zero
// threshold means "use the default".
func (e *Engine) ScoreRelevance(message string, fragments map[string]any, threshold float64) map[string]RelevanceScore {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return ScoreRelevance(message, fragments, threshold)
}

// FilterContext returns the admitted fragments in priority order.
func (e *Engine) FilterContext(fragments map[string]any, scores map[string]RelevanceScore) []Fragment {
	return FilterContext(fragments, scores)
}

func (e *Engine) preferredSteering(userID string) Steering {
	if e.styles != nil {
		if style, err := e.styles.PreferredStyle(userID); err == nil {
			return SteeringForStyle(style)
		}
	}
	if e.store != nil && userID != "" {
		if profile, err := e.store.Profile(userID); err == nil {
			return SteeringForStyle(profile.Style)
		}
	}
	return DefaultSteering
}

// ─── Personalized thresholds ─────────────────────────────────────────────────

// GetPersonalizedThreshold returns the user's current relevance threshold,
// creating a profile on first contact. When message history is supplied and
// implies a different style than the stored one, the profile is re-based on
// the new style. Store failures degrade to the style (or global) default.
func (e *Engine) GetPersonalizedThreshold(userID string, history []string) float64 {
	if e.store == nil || userID == "" {
		if len(history) > 0 {
			return StyleThreshold(InferStyle(history))
		}
		return DefaultThreshold
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.store.Profile(userID)
	if errors.Is(err, ErrNotFound) {
		style := InferStyle(history)
		base := StyleThreshold(style)
		profile = ThresholdProfile{
			UserID:           userID,
			BaseThreshold:    base,
			CurrentThreshold: base,
			Style:            style,
			LastAdjusted:     e.now(),
			SuccessRate:      0.7,
		}
		if err := e.store.SaveProfile(profile); err != nil {
			log.Printf("engine: save profile for %s: %v", userID, err)
		}
		return profile.CurrentThreshold
	}
	if err != nil {
		log.Printf("engine: load profile for %s: %v", userID, err)
		if len(history) > 0 {
			return StyleThreshold(InferStyle(history))
		}
		return DefaultThreshold
	}

	if len(history) > 0 {
		if style := InferStyle(history); style != profile.Style {
			profile.Style = style
			profile.BaseThreshold = StyleThreshold(style)
			profile.CurrentThreshold = profile.BaseThreshold
			if err := e.store.SaveProfile(profile); err != nil {
				log.Printf("engine: save profile for %s: %v", userID, err)
			}
		}
	}
	return profile.CurrentThreshold
}

// AdjustThreshold recomputes the user's threshold from recent performance.
// Returns the new threshold and true when an adjustment was applied; the
// unchanged current threshold and false when the debounce or minimum-delta
// gate rejects it or the user has no profile.
func (e *Engine) AdjustThreshold(userID string, successRate float64, recentPerformance []float64) (float64, bool, error) {
	if e.store == nil {
		return DefaultThreshold, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profile, err := e.store.Profile(userID)
	if err != nil {
		return 0, false, fmt.Errorf("engine: adjust threshold: %w", err)
	}

	target := ComputeThreshold(profile.CurrentThreshold, profile.Style, successRate, recentPerformance, AdjustAdaptive)
	now := e.now()
	if !ShouldAdjust(profile.CurrentThreshold, target, profile.LastAdjusted, now) {
		return profile.CurrentThreshold, false, nil
	}

	adj := Adjustment{
		Timestamp:    now,
		OldThreshold: profile.CurrentThreshold,
		NewThreshold: target,
		Reason:       fmt.Sprintf("success_rate=%.2f", successRate),
	}
	profile.CurrentThreshold = target
	profile.SuccessRate = successRate
	profile.LastAdjusted = now
	profile.TotalAdjustments++
	profile.AdjustmentHistory = append(profile.AdjustmentHistory, adj)

	if err := e.store.SaveProfile(profile); err != nil {
		return 0, false, fmt.Errorf("engine: adjust threshold: %w", err)
	}
	if err := e.store.RecordAdjustment(userID, adj); err != nil {
		log.Printf("engine: record adjustment for %s: %v", userID, err)
	}
	return target, true, nil
}

// ─── Outcome learning ────────────────────────────────────────────────────────

// RecordOutcome folds one observed interaction into the success pattern for
// its (task type, strategy) pair.
func (e *Engine) RecordOutcome(outcome Outcome) error {
	if e.store == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := PatternKey(outcome.TaskType, outcome.Strategy)
	var prev *SuccessPattern
	if p, err := e.store.Pattern(key); err == nil {
		prev = &p
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("engine: record outcome: %w", err)
	}

	updated := FoldOutcome(prev, outcome, e.now())
	if err := e.store.SavePattern(updated); err != nil {
		return fmt.Errorf("engine: record outcome: %w", err)
	}
	return nil
}

// OptimalStrategy returns the learned best strategy for a task type, or
// false when no outcome has ever been recorded for it.
func (e *Engine) OptimalStrategy(task TaskType) (Strategy, bool) {
	if e.store == nil {
		return "", false
	}
	patterns, err := e.store.PatternsForTask(task)
	if err != nil || len(patterns) == 0 {
		return "", false
	}
	best := BestPattern(patterns)
	return best.Strategy, true
}

// ─── Full augmentation pipeline ──────────────────────────────────────────────

// AugmentResult is the full output of one augmentation request.
type AugmentResult struct {
	Prompt       string                    `json:"prompt"`
	Analysis     Analysis                  `json:"analysis"`
	Optimization Optimization              `json:"optimization"`
	Threshold    float64                   `json:"threshold"`
	Scores       map[string]RelevanceScore `json:"scores"`
	Summary      string                    `json:"summary"`
	Fallback     bool                      `json:"fallback,omitempty"`
}

// AugmentPrompt runs the whole pipeline: classify, select a strategy (with
// learned override), score and filter the fragment pool against the user's
// personalized threshold, and assemble the augmented prompt. It never fails:
// if anything goes unrecoverably wrong the original message comes back
// unaugmented.
func (e *Engine) AugmentPrompt(userID, message string, fragments map[string]any) (result AugmentResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: augment prompt recovered: %v", r)
			result = AugmentResult{Prompt: message, Fallback: true}
		}
	}()

	analysis := AnalyzeTask(message, fragments)
	optimization := SelectStrategy(analysis, e.preferredSteering(userID))
	if learned, ok := e.OptimalStrategy(analysis.TaskType); ok && learned != optimization.Strategy {
		optimization.Strategy = learned
	}

	threshold := e.GetPersonalizedThreshold(userID, nil)
	scores := ScoreRelevance(message, fragments, threshold)
	admitted := FilterContext(fragments, scores)

	return AugmentResult{
		Prompt:       AssemblePrompt(message, analysis, optimization, admitted),
		Analysis:     analysis,
		Optimization: optimization,
		Threshold:    threshold,
		Scores:       scores,
		Summary:      SelectionSummary(scores),
	}
}

// ─── Insights ────────────────────────────────────────────────────────────────

// ThresholdInsights summarizes a user's threshold adaptation state.
type ThresholdInsights struct {
	CurrentThreshold    float64      `json:"current_threshold"`
	BaseThreshold       float64      `json:"base_threshold"`
	UserStyle           UserStyle    `json:"user_style"`
	StyleRecommendation float64      `json:"style_recommendation"`
	AdjustmentHistory   []Adjustment `json:"adjustment_history"`
	TotalAdjustments    int          `json:"total_adjustments"`
	SuccessRate         float64      `json:"success_rate"`
	LastAdjusted        time.Time    `json:"last_adjusted"`
	Recommendations     []string     `json:"recommendations"`
}

// insightsHistoryLimit caps how many audit-log entries an insights report
// includes.
const insightsHistoryLimit = 20

// GetThresholdInsights reports the user's threshold state with tuning
// recommendations. ErrNotFound when the user has no profile yet.
func (e *Engine) GetThresholdInsights(userID string) (ThresholdInsights, error) {
	if e.store == nil {
		return ThresholdInsights{}, ErrNotFound
	}
	profile, err := e.store.Profile(userID)
	if err != nil {
		return ThresholdInsights{}, fmt.Errorf("engine: threshold insights: %w", err)
	}

	// The audit log is the bounded, pruned view of recent adjustments;
	// prefer it over the profile's embedded history when it has entries.
	history := profile.AdjustmentHistory
	if log, err := e.store.Adjustments(userID, insightsHistoryLimit); err == nil && len(log) > 0 {
		history = log
	}

	styleBase := StyleThreshold(profile.Style)
	insights := ThresholdInsights{
		CurrentThreshold:    profile.CurrentThreshold,
		BaseThreshold:       profile.BaseThreshold,
		UserStyle:           profile.Style,
		StyleRecommendation: styleBase,
		AdjustmentHistory:   history,
		TotalAdjustments:    profile.TotalAdjustments,
		SuccessRate:         profile.SuccessRate,
		LastAdjusted:        profile.LastAdjusted,
	}

	if profile.CurrentThreshold > styleBase+0.1 {
		insights.Recommendations = append(insights.Recommendations,
			"Consider lowering threshold to include more context")
	} else if profile.CurrentThreshold < styleBase-0.1 {
		insights.Recommendations = append(insights.Recommendations,
			"Consider raising threshold to focus context selection")
	}
	if profile.TotalAdjustments > 5 {
		insights.Recommendations = append(insights.Recommendations,
			"Frequent adjustments detected - consider reviewing base settings")
	}
	return insights, nil
}

// TaskPerformance aggregates effectiveness for one task type.
type TaskPerformance struct {
	AverageEffectiveness float64 `json:"average_effectiveness"`
	PatternCount         int     `json:"pattern_count"`
}

// LearningInsights summarizes what the outcome learner has observed.
type LearningInsights struct {
	TotalPatterns           int                          `json:"total_patterns"`
	MostEffectiveStrategies map[Strategy]float64         `json:"most_effective_strategies"`
	TaskTypePerformance     map[TaskType]TaskPerformance `json:"task_type_performance"`
}

// GetLearningInsights aggregates all recorded success patterns by task type
// and strategy. Zero patterns is not an error: the result simply reports
// zero totals.
func (e *Engine) GetLearningInsights() (LearningInsights, error) {
	insights := LearningInsights{
		MostEffectiveStrategies: map[Strategy]float64{},
		TaskTypePerformance:     map[TaskType]TaskPerformance{},
	}
	if e.store == nil {
		return insights, nil
	}

	patterns, err := e.store.Patterns()
	if err != nil {
		return LearningInsights{}, fmt.Errorf("engine: learning insights: %w", err)
	}
	insights.TotalPatterns = len(patterns)

	strategyScores := map[Strategy][]float64{}
	taskScores := map[TaskType][]float64{}
	for _, p := range patterns {
		strategyScores[p.Strategy] = append(strategyScores[p.Strategy], p.EffectivenessScore)
		taskScores[p.TaskType] = append(taskScores[p.TaskType], p.EffectivenessScore)
	}
	for strategy, scores := range strategyScores {
		insights.MostEffectiveStrategies[strategy] = mean(scores)
	}
	for task, scores := range taskScores {
		insights.TaskTypePerformance[task] = TaskPerformance{
			AverageEffectiveness: mean(scores),
			PatternCount:         len(scores),
		}
	}
	return insights, nil
}
