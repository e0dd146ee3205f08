package engine

import (
	"regexp"
	"strings"
)

// Rule-table task classifier. Each task type carries keyword, regex and
// context-clue lists; the per-type score is a weighted match count. This is
// a deliberate data-driven design: adding a task type means adding a table
// row, not code.

// taskRules holds the classification signals for one task type.
type taskRules struct {
	keywords     []string
	patterns     []*regexp.Regexp
	contextClues []string
}

var classificationRules = map[TaskType]taskRules{
	TaskCodeGeneration: {
		keywords:     []string{"create", "build", "implement", "write", "generate", "add", "make"},
		patterns:     compileAll(`create.*function`, `build.*class`, `implement.*feature`, `write.*code`),
		contextClues: []string{"function", "class", "method", "variable", "algorithm"},
	},
	TaskDebugging: {
		keywords:     []string{"fix", "debug", "error", "bug", "issue", "problem", "broken"},
		patterns:     compileAll(`fix.*error`, `debug.*issue`, `solve.*problem`, `error.*fix`),
		contextClues: []string{"exception", "traceback", "error message", "not working"},
	},
	TaskArchitecture: {
		keywords:     []string{"design", "architecture", "structure", "pattern", "system", "scalable"},
		patterns:     compileAll(`design.*system`, `architecture.*for`, `structure.*project`),
		contextClues: []string{"scalability", "maintainability", "performance", "design pattern"},
	},
	TaskLearning: {
		keywords:     []string{"learn", "understand", "explain", "how", "what", "why", "teach"},
		patterns:     compileAll(`how.*work`, `what.*is`, `explain.*concept`, `learn.*about`),
		contextClues: []string{"concept", "principle", "theory", "fundamentals"},
	},
	TaskRefactoring: {
		keywords:     []string{"refactor", "improve", "optimize", "clean", "reorganize", "restructure"},
		patterns:     compileAll(`refactor.*code`, `improve.*structure`, `optimize.*performance`),
		contextClues: []string{"code quality", "maintainability", "performance", "clean code"},
	},
	TaskTesting: {
		keywords:     []string{"test", "verify", "validate", "check", "ensure", "confirm"},
		patterns:     compileAll(`test.*function`, `verify.*works`, `validate.*input`),
		contextClues: []string{"unit test", "integration", "validation", "assertion"},
	},
	TaskDocumentation: {
		keywords:     []string{"document", "comment", "readme", "guide", "manual", "docs"},
		patterns:     compileAll(`document.*code`, `write.*readme`, `create.*guide`),
		contextClues: []string{"documentation", "comments", "docstring", "manual"},
	},
	TaskAnalysis: {
		keywords:     []string{"analyze", "review", "examine", "investigate", "assess", "evaluate"},
		patterns:     compileAll(`analyze.*code`, `review.*implementation`, `examine.*structure`),
		contextClues: []string{"analysis", "review", "assessment", "evaluation"},
	},
	TaskPlanning: {
		keywords:     []string{"plan", "strategy", "roadmap", "approach", "steps", "workflow"},
		patterns:     compileAll(`plan.*project`, `create.*roadmap`, `define.*strategy`),
		contextClues: []string{"planning", "strategy", "roadmap", "milestones"},
	},
	TaskOptimization: {
		keywords:     []string{"optimize", "performance", "speed", "efficiency", "faster", "better"},
		patterns:     compileAll(`optimize.*performance`, `improve.*speed`, `make.*faster`),
		contextClues: []string{"performance", "optimization", "efficiency", "speed"},
	},
}

// Per-type score weights: regex hits are the strongest signal, then
// keywords, then context clues, with a small bonus when the declared tech
// stack shares a context clue.
const (
	scoreKeyword     = 0.3
	scorePattern     = 0.4
	scoreContextClue = 0.2
	scoreTechBonus   = 0.1
)

// Auxiliary indicator lists. Each dimension has its own per-match weight and
// cap; they are independent of the task-type tables.
var (
	complexityIndicators = []string{
		"complex", "advanced", "sophisticated", "enterprise", "distributed",
		"scalable", "comprehensive", "detailed", "thorough", "complete",
	}
	urgencyIndicators = []string{
		"urgent", "asap", "quickly", "fast", "immediate", "critical",
		"blocking", "production", "emergency", "now",
	}
	technicalIndicators = []string{
		"implementation", "algorithm", "architecture", "design pattern",
		"performance", "optimization", "scalability", "security",
	}
	creativityIndicators = []string{
		"creative", "innovative", "novel", "unique", "original",
		"brainstorm", "explore", "experiment", "alternative",
	}
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true,
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

// AnalyzeTask classifies a user message against the task-type catalogue and
// derives the auxiliary complexity/urgency/depth/creativity scores. Never
// fails: a message matching nothing classifies as unknown with zero
// confidence. Pure function of its inputs.
func AnalyzeTask(message string, context map[string]any) Analysis {
	lower := strings.ToLower(message)

	bestType, bestScore := TaskUnknown, 0.0
	for _, taskType := range taskTypeOrder {
		score := taskScore(lower, classificationRules[taskType], context)
		if score > bestScore {
			bestType, bestScore = taskType, score
		}
	}

	complexity := complexityScore(lower, context)

	return Analysis{
		TaskType:            bestType,
		ComplexityScore:     complexity,
		UrgencyLevel:        indicatorScore(lower, urgencyIndicators, 0.3, 1.0),
		ContextRequirements: contextRequirements(bestType, complexity),
		TechnicalDepth:      technicalDepth(lower, context),
		CreativityNeeded:    indicatorScore(lower, creativityIndicators, 0.3, 1.0),
		Confidence:          bestScore,
		Keywords:            extractKeywords(message),
		EstimatedTokens:     estimateTokens(message, context),
	}
}

func taskScore(lower string, rules taskRules, context map[string]any) float64 {
	score := 0.0
	for _, kw := range rules.keywords {
		if strings.Contains(lower, kw) {
			score += scoreKeyword
		}
	}
	for _, p := range rules.patterns {
		if p.MatchString(lower) {
			score += scorePattern
		}
	}
	for _, clue := range rules.contextClues {
		if strings.Contains(lower, clue) {
			score += scoreContextClue
		}
	}
	if tech := stringValue(context, "tech_stack"); tech != "" {
		techLower := strings.ToLower(tech)
		for _, clue := range rules.contextClues {
			if strings.Contains(techLower, clue) {
				score += scoreTechBonus
				break
			}
		}
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func indicatorScore(lower string, indicators []string, weight, limit float64) float64 {
	matches := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			matches++
		}
	}
	score := float64(matches) * weight
	if score > limit {
		return limit
	}
	return score
}

func complexityScore(lower string, context map[string]any) float64 {
	score := indicatorScore(lower, complexityIndicators, 0.2, 0.8)
	if plans := stringValue(context, "project_plans"); plans != "" {
		if strings.Contains(strings.ToLower(plans), "comprehensive") {
			score += 0.1
		}
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

func technicalDepth(lower string, context map[string]any) float64 {
	score := indicatorScore(lower, technicalIndicators, 0.25, 0.8)
	if tech := stringValue(context, "tech_stack"); tech != "" {
		// A wider declared stack implies deeper technical context.
		bonus := float64(len(strings.Split(tech, ","))) * 0.05
		if bonus > 0.2 {
			bonus = 0.2
		}
		score += bonus
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// extractKeywords returns up to 10 content words from the message, in
// appearance order, skipping stop words and anything shorter than 3 chars.
func extractKeywords(message string) []string {
	words := wordPattern.FindAllString(strings.ToLower(message), -1)
	keywords := make([]string, 0, 10)
	for _, w := range words {
		if stopWords[w] || len(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 10 {
			break
		}
	}
	return keywords
}

// estimateTokens approximates the augmented prompt's token count from the
// message word count plus weighted contributions of the heavier context
// fragments. A heuristic on purpose: no tokenizer dependency in the request
// path.
func estimateTokens(message string, context map[string]any) int {
	tokens := float64(len(strings.Fields(message))) * 1.3
	if s := stringValue(context, "conversation_summary"); s != "" {
		tokens += float64(len(strings.Fields(s))) * 0.5
	}
	if s := stringValue(context, "tech_stack"); s != "" {
		tokens += float64(len(strings.Fields(s))) * 0.3
	}
	if s := stringValue(context, "project_plans"); s != "" {
		tokens += float64(len(strings.Fields(s))) * 0.4
	}
	return int(tokens)
}

// contextRequirements returns the fragment names a task type needs, with
// extras for high-complexity work.
func contextRequirements(taskType TaskType, complexity float64) []string {
	reqs := []string{"conversation_summary", "user_preferences"}

	switch taskType {
	case TaskCodeGeneration, TaskDebugging, TaskRefactoring:
		reqs = append(reqs, "tech_stack", "project_structure")
	case TaskArchitecture, TaskPlanning:
		reqs = append(reqs, "project_plans", "best_practices")
	case TaskLearning:
		reqs = append(reqs, "educational_context", "examples")
	}

	if complexity > 0.7 {
		reqs = append(reqs, "comprehensive_context", "detailed_examples")
	}
	return reqs
}

func stringValue(context map[string]any, key string) string {
	if context == nil {
		return ""
	}
	if s, ok := context[key].(string); ok {
		return s
	}
	return ""
}
