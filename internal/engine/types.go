// Package engine implements the adaptive prompt-augmentation core: task
// classification, strategy selection, context relevance scoring, per-user
// threshold adaptation, prompt assembly, and outcome learning.
//
// All scoring is deterministic, rule-table driven heuristics — no NLP, no
// model calls. The engine is an explicit object with injected collaborators;
// there is no package-level shared state.
package engine

import "time"

// ─── Task types ──────────────────────────────────────────────────────────────

// TaskType classifies the user's intent for prompt optimization.
type TaskType string

const (
	TaskCodeGeneration TaskType = "code_generation"
	TaskDebugging      TaskType = "debugging"
	TaskArchitecture   TaskType = "architecture"
	TaskLearning       TaskType = "learning"
	TaskRefactoring    TaskType = "refactoring"
	TaskTesting        TaskType = "testing"
	TaskDocumentation  TaskType = "documentation"
	TaskAnalysis       TaskType = "analysis"
	TaskPlanning       TaskType = "planning"
	TaskOptimization   TaskType = "optimization"
	TaskUnknown        TaskType = "unknown"
)

// taskTypeOrder fixes the registration order of task types. Classification
// ties resolve to the first-registered type, which keeps argmax reproducible.
var taskTypeOrder = []TaskType{
	TaskCodeGeneration,
	TaskDebugging,
	TaskArchitecture,
	TaskLearning,
	TaskRefactoring,
	TaskTesting,
	TaskDocumentation,
	TaskAnalysis,
	TaskPlanning,
	TaskOptimization,
}

// ParseTaskType normalizes a task type string, returning TaskUnknown for
// anything outside the catalogue.
func ParseTaskType(s string) TaskType {
	for _, t := range taskTypeOrder {
		if string(t) == s {
			return t
		}
	}
	return TaskUnknown
}

// ─── Prompt strategies ───────────────────────────────────────────────────────

// Strategy is a named prompt-construction approach.
type Strategy string

const (
	StrategyPrecisionTechnical  Strategy = "precision_technical"
	StrategyCreativeExploration Strategy = "creative_exploration"
	StrategyStepByStep          Strategy = "step_by_step"
	StrategyProblemSolving      Strategy = "problem_solving"
	StrategyEducational         Strategy = "educational"
	StrategyEfficiencyFocused   Strategy = "efficiency_focused"
	StrategyComprehensive       Strategy = "comprehensive"
	StrategyMinimal             Strategy = "minimal"
)

var strategyValues = []Strategy{
	StrategyPrecisionTechnical,
	StrategyCreativeExploration,
	StrategyStepByStep,
	StrategyProblemSolving,
	StrategyEducational,
	StrategyEfficiencyFocused,
	StrategyComprehensive,
	StrategyMinimal,
}

// ParseStrategy normalizes a strategy string, defaulting to comprehensive —
// the documented fallback for unknown strategies.
func ParseStrategy(s string) Strategy {
	for _, v := range strategyValues {
		if string(v) == s {
			return v
		}
	}
	return StrategyComprehensive
}

// ─── Behavioral steering ─────────────────────────────────────────────────────

// Steering is a directive appended to the prompt that nudges the assistant's
// response style.
type Steering string

const (
	SteerDetailedExplanations Steering = "detailed_explanations"
	SteerConciseSolutions     Steering = "concise_solutions"
	SteerProactiveSuggestions Steering = "proactive_suggestions"
	SteerTeachingMode         Steering = "teaching_mode"
	SteerImplementationMode   Steering = "implementation_mode"
	SteerAnalysisMode         Steering = "analysis_mode"
	SteerCreativeMode         Steering = "creative_mode"
	SteerStepByStep           Steering = "step_by_step"
)

// ─── User styles ─────────────────────────────────────────────────────────────

// UserStyle captures a user's inferred communication style.
type UserStyle string

const (
	StyleConcise       UserStyle = "concise"
	StyleDetailed      UserStyle = "detailed"
	StyleComprehensive UserStyle = "comprehensive"
	StyleTechnical     UserStyle = "technical"
	StyleGeneral       UserStyle = "general"
)

// styleOrder fixes iteration order for keyword-vote ties.
var styleOrder = []UserStyle{StyleConcise, StyleDetailed, StyleComprehensive, StyleTechnical}

// ParseUserStyle normalizes a style string, defaulting to general.
func ParseUserStyle(s string) UserStyle {
	switch UserStyle(s) {
	case StyleConcise, StyleDetailed, StyleComprehensive, StyleTechnical, StyleGeneral:
		return UserStyle(s)
	default:
		return StyleGeneral
	}
}

// ─── Adjustment strategies ───────────────────────────────────────────────────

// AdjustStrategy controls how aggressively the threshold adjuster moves.
type AdjustStrategy string

const (
	AdjustConservative AdjustStrategy = "conservative"
	AdjustModerate     AdjustStrategy = "moderate"
	AdjustAggressive   AdjustStrategy = "aggressive"
	AdjustAdaptive     AdjustStrategy = "adaptive"
)

// ─── Records ─────────────────────────────────────────────────────────────────

// Analysis is the result of classifying a user message.
type Analysis struct {
	TaskType            TaskType `json:"task_type"`
	ComplexityScore     float64  `json:"complexity_score"`
	UrgencyLevel        float64  `json:"urgency_level"`
	ContextRequirements []string `json:"context_requirements"`
	TechnicalDepth      float64  `json:"technical_depth"`
	CreativityNeeded    float64  `json:"creativity_needed"`
	Confidence          float64  `json:"confidence"`
	Keywords            []string `json:"keywords"`
	EstimatedTokens     int      `json:"estimated_tokens"`
}

// ResponseHints are auxiliary response-shaping directives derived from the
// task type, strategy and urgency.
type ResponseHints struct {
	ResponseFormat   string `json:"response_format"`
	InteractionStyle string `json:"interaction_style"`
	ErrorHandling    string `json:"error_handling"`
	CompressionLevel string `json:"compression_level"`
	SmartTruncation  bool   `json:"smart_truncation"`
}

// Optimization holds the selected prompt-construction parameters.
type Optimization struct {
	Strategy           Strategy      `json:"strategy"`
	BehavioralSteering []Steering    `json:"behavioral_steering"`
	MaxTokens          int           `json:"max_tokens"`
	ContextPriority    []string      `json:"context_priority"`
	EnhancementRatio   float64       `json:"enhancement_ratio"`
	Hints              ResponseHints `json:"hints"`
}

// RelevanceScore is the per-fragment relevance verdict for one request.
type RelevanceScore struct {
	Section       string  `json:"section"`
	Score         float64 `json:"score"`
	ShouldInclude bool    `json:"should_include"`
	Priority      int     `json:"priority"` // 1 = most relevant, 5 = least
	Reason        string  `json:"reason"`
}

// Fragment is a named unit of contextual information supplied per request.
// Value may be a string, a []string-like slice, or a map — anything else is
// treated as opaque low-signal content.
type Fragment struct {
	Name  string
	Value any
}

// ThresholdProfile is a user's persisted adaptive-threshold state.
type ThresholdProfile struct {
	UserID            string       `json:"user_id"`
	BaseThreshold     float64      `json:"base_threshold"`
	CurrentThreshold  float64      `json:"current_threshold"`
	Style             UserStyle    `json:"user_style"`
	AdjustmentHistory []Adjustment `json:"adjustment_history"`
	LastAdjusted      time.Time    `json:"last_adjusted"`
	SuccessRate       float64      `json:"success_rate"`
	TotalAdjustments  int          `json:"total_adjustments"`
}

// Adjustment is one entry in a profile's adjustment history.
type Adjustment struct {
	Timestamp    time.Time `json:"timestamp"`
	OldThreshold float64   `json:"old_threshold"`
	NewThreshold float64   `json:"new_threshold"`
	Reason       string    `json:"reason"`
}

// SuccessPattern holds running outcome statistics for one
// (task type, strategy) pairing.
type SuccessPattern struct {
	TaskType           TaskType  `json:"task_type"`
	Strategy           Strategy  `json:"strategy"`
	UserFeedback       float64   `json:"user_feedback"`
	ResponseQuality    float64   `json:"response_quality"`
	ExecutionTime      float64   `json:"execution_time"`
	TokenEfficiency    float64   `json:"token_efficiency"`
	SuccessCount       int       `json:"success_count"`
	LastUsed           time.Time `json:"last_used"`
	EffectivenessScore float64   `json:"effectiveness_score"`
}

// PatternKey returns the composite persistence key for a pattern.
func PatternKey(task TaskType, strategy Strategy) string {
	return string(task) + "_" + string(strategy)
}
