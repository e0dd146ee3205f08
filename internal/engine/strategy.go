package engine

import "math"

// Strategy selection: a fixed task→strategy mapping adjusted by the
// analysis scores. Rule order matters and is documented on SelectStrategy.

// strategyMapping is the base prompt plan for one task type.
type strategyMapping struct {
	strategy        Strategy
	steering        []Steering
	contextPriority []string
}

var strategyMappings = map[TaskType]strategyMapping{
	TaskCodeGeneration: {
		strategy:        StrategyPrecisionTechnical,
		steering:        []Steering{SteerImplementationMode},
		contextPriority: []string{"tech_stack", "project_structure", "best_practices"},
	},
	TaskDebugging: {
		strategy:        StrategyProblemSolving,
		steering:        []Steering{SteerAnalysisMode, SteerStepByStep},
		contextPriority: []string{"error_context", "tech_stack", "recent_changes"},
	},
	TaskArchitecture: {
		strategy:        StrategyComprehensive,
		steering:        []Steering{SteerCreativeMode},
		contextPriority: []string{"project_plans", "scalability_requirements", "best_practices"},
	},
	TaskLearning: {
		strategy:        StrategyEducational,
		steering:        []Steering{SteerTeachingMode},
		contextPriority: []string{"educational_context", "examples", "fundamentals"},
	},
	TaskRefactoring: {
		strategy:        StrategyStepByStep,
		steering:        []Steering{SteerAnalysisMode, SteerImplementationMode},
		contextPriority: []string{"code_quality", "best_practices", "maintainability"},
	},
	TaskTesting: {
		strategy:        StrategyPrecisionTechnical,
		steering:        []Steering{SteerImplementationMode},
		contextPriority: []string{"test_patterns", "coverage_requirements", "quality_standards"},
	},
	TaskDocumentation: {
		strategy:        StrategyComprehensive,
		steering:        []Steering{SteerTeachingMode},
		contextPriority: []string{"documentation_standards", "audience", "completeness"},
	},
	TaskAnalysis: {
		strategy:        StrategyProblemSolving,
		steering:        []Steering{SteerAnalysisMode},
		contextPriority: []string{"analysis_framework", "data_context", "objectives"},
	},
	TaskPlanning: {
		strategy:        StrategyComprehensive,
		steering:        []Steering{SteerCreativeMode, SteerProactiveSuggestions},
		contextPriority: []string{"project_goals", "constraints", "resources"},
	},
	TaskOptimization: {
		strategy:        StrategyEfficiencyFocused,
		steering:        []Steering{SteerAnalysisMode, SteerImplementationMode},
		contextPriority: []string{"performance_metrics", "bottlenecks", "optimization_targets"},
	},
}

// defaultMapping covers unknown/unmapped task types.
var defaultMapping = strategyMapping{
	strategy:        StrategyComprehensive,
	steering:        nil, // preferred-style steering fills this in
	contextPriority: []string{"conversation_summary", "user_preferences"},
}

// DefaultSteering is the fallback behavioral steering when no user
// preference source is available.
const DefaultSteering = SteerDetailedExplanations

// SteeringForStyle maps a preferred communication style to its behavioral
// steering directive.
func SteeringForStyle(style UserStyle) Steering {
	switch style {
	case StyleConcise:
		return SteerConciseSolutions
	case StyleTechnical:
		return SteerImplementationMode
	case StyleComprehensive:
		return SteerTeachingMode
	default:
		return SteerDetailedExplanations
	}
}

// SelectStrategy maps a task analysis to prompt-construction parameters.
//
// Rules apply in order:
//  1. base mapping by task type (default mapping for unknown types)
//  2. preferred-style steering appended unless already present
//  3. urgency > 0.7 forces the efficiency strategy and resets steering to
//     concise solutions only
//  4. otherwise complexity > 0.8 forces the comprehensive strategy and
//     re-appends the preferred-style steering
//  5. creativity > 0.6 appends creative mode — this fires even after the
//     urgency override, which replaces only the strategy and initial
//     steering list, not later appends
func SelectStrategy(analysis Analysis, preferred Steering) Optimization {
	mapping, ok := strategyMappings[analysis.TaskType]
	if !ok {
		mapping = defaultMapping
	}

	strategy := mapping.strategy
	steering := appendSteering(append([]Steering(nil), mapping.steering...), preferred)
	priority := append([]string(nil), mapping.contextPriority...)

	if analysis.UrgencyLevel > 0.7 {
		strategy = StrategyEfficiencyFocused
		steering = []Steering{SteerConciseSolutions}
	} else if analysis.ComplexityScore > 0.8 {
		strategy = StrategyComprehensive
		steering = appendSteering(steering, preferred)
	}

	if analysis.CreativityNeeded > 0.6 {
		steering = appendSteering(steering, SteerCreativeMode)
	}

	return Optimization{
		Strategy:           strategy,
		BehavioralSteering: steering,
		MaxTokens:          tokenLimit(analysis),
		ContextPriority:    priority,
		EnhancementRatio:   enhancementRatio(analysis),
		Hints:              responseHints(analysis, strategy),
	}
}

func appendSteering(steering []Steering, s Steering) []Steering {
	for _, existing := range steering {
		if existing == s {
			return steering
		}
	}
	return append(steering, s)
}

// tokenLimit computes the prompt token budget: base 4000, stretched for
// complex work (cap 6000), squeezed for urgent work, floor 1000.
func tokenLimit(analysis Analysis) int {
	limit := 4000.0
	if analysis.ComplexityScore > 0.7 {
		limit *= 1.5
		if limit > 6000 {
			limit = 6000
		}
	}
	if analysis.UrgencyLevel > 0.7 {
		limit *= 0.7
	}
	if limit < 1000 {
		limit = 1000
	}
	return int(math.Round(limit))
}

// enhancementRatio sizes how much the base prompt is expanded relative to
// the raw message: base 2.0, capped at 4.0.
func enhancementRatio(analysis Analysis) float64 {
	ratio := 2.0
	if analysis.ComplexityScore > 0.7 {
		ratio += 1.0
	}
	if analysis.TechnicalDepth > 0.6 {
		ratio += 0.5
	}
	if analysis.UrgencyLevel > 0.7 {
		ratio *= 0.7
	}
	if ratio > 4.0 {
		ratio = 4.0
	}
	return ratio
}

// ─── Response-shaping hints ──────────────────────────────────────────────────

var responseFormats = map[TaskType]string{
	TaskCodeGeneration: "structured_code_with_explanations",
	TaskDebugging:      "step_by_step_analysis",
	TaskArchitecture:   "comprehensive_design_document",
	TaskLearning:       "educational_with_examples",
	TaskDocumentation:  "structured_documentation",
	TaskAnalysis:       "detailed_analysis_report",
}

var interactionStyles = map[Strategy]string{
	StrategyPrecisionTechnical:  "technical_expert",
	StrategyEducational:         "patient_teacher",
	StrategyProblemSolving:      "analytical_consultant",
	StrategyCreativeExploration: "creative_collaborator",
	StrategyEfficiencyFocused:   "efficient_assistant",
}

func responseHints(analysis Analysis, strategy Strategy) ResponseHints {
	format, ok := responseFormats[analysis.TaskType]
	if !ok {
		format = "balanced_response"
	}
	style, ok := interactionStyles[strategy]
	if !ok {
		style = "balanced_assistant"
	}

	var errHandling string
	switch {
	case analysis.UrgencyLevel > 0.7:
		errHandling = "immediate_solutions"
	case analysis.UrgencyLevel > 0.4:
		errHandling = "balanced_approach"
	default:
		errHandling = "comprehensive_analysis"
	}

	compression := "medium"
	if analysis.EstimatedTokens > 3000 {
		compression = "high"
	}

	return ResponseHints{
		ResponseFormat:   format,
		InteractionStyle: style,
		ErrorHandling:    errHandling,
		CompressionLevel: compression,
		SmartTruncation:  analysis.EstimatedTokens > 4000,
	}
}
