package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultThreshold is the relevance threshold used when no personalized
// threshold is supplied.
const DefaultThreshold = 0.6

// Score blend weights. Keyword signal and the per-section base weight
// dominate; content shape and recency are tiebreakers.
const (
	weightBase    = 0.4
	weightKeyword = 0.4
	weightContent = 0.15
	weightRecency = 0.05
)

// essentialWeight marks sections that are force-included even below
// threshold (user preferences and the like — dropping them breaks
// personalization for every downstream response).
const essentialWeight = 0.9

// sectionWeights holds the fixed per-section base relevance.
// Unknown sections default to 0.5.
var sectionWeights = map[string]float64{
	"user_preferences":     1.0,
	"agent_metadata":       0.8,
	"tech_stack":           0.9,
	"conversation_summary": 0.85,
	"action_history":       0.8,
	"project_structure":    0.8,
	"best_practices":       0.8,
	"common_issues":        0.7,
	"workflow_preferences": 0.5,
}

// sectionPatterns maps a section name to the message patterns that signal
// the section is relevant. Sections without patterns score a neutral 0.5.
var sectionPatterns = map[string][]*regexp.Regexp{
	"tech_stack": compileAll(
		`\b(python|go|sqlite|mcp|sqlalchemy|database|api|function|class)\b`,
		`\b(implement|code|develop|build|create)\b`,
	),
	"project_structure": compileAll(
		`\b(project|structure|files|modules|packages|organization)\b`,
		`\b(architecture|design|layout|folder|directory)\b`,
	),
	"action_history": compileAll(
		`\b(action|step|implemented|created|built|developed)\b`,
		`\b(working on|building|testing|deploying|optimizing)\b`,
		`\b(phase|stage|milestone|progress|status)\b`,
	),
	"conversation_summary": compileAll(
		`\b(continue|previous|earlier|yesterday|before|resume)\b`,
		`\b(what were we|where did we|how far|next step)\b`,
		`\b(goal|objective|target|aim|purpose)\b`,
		`\b(working on|implementing|building|developing)\b`,
	),
	"best_practices": compileAll(
		`\b(best practice|pattern|approach|methodology|standard)\b`,
		`\b(how to|recommend|suggest|improve|optimize)\b`,
	),
	"common_issues": compileAll(
		`\b(error|bug|issue|problem|troubleshoot|debug)\b`,
		`\b(fix|resolve|solve|workaround)\b`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// ScoreRelevance scores every fragment in the pool against the message.
// Pure function: identical inputs always produce identical scores.
func ScoreRelevance(message string, fragments map[string]any, threshold float64) map[string]RelevanceScore {
	messageLower := strings.ToLower(message)
	scores := make(map[string]RelevanceScore, len(fragments))

	for name, value := range fragments {
		baseWeight, ok := sectionWeights[name]
		if !ok {
			baseWeight = 0.5
		}

		keywordScore := keywordRelevance(messageLower, name)
		contentScore := contentRelevance(value)

		// No timestamp tracking on fragments; recency is a fixed prior.
		const recencyScore = 0.8

		final := baseWeight*weightBase + keywordScore*weightKeyword +
			contentScore*weightContent + recencyScore*weightRecency

		include := final >= threshold
		reason := inclusionReason(final, baseWeight, threshold)
		if !include && baseWeight >= essentialWeight {
			// Essential sections ride along even when the message doesn't
			// reference them — continuity context must survive filtering.
			include = true
		}

		scores[name] = RelevanceScore{
			Section:       name,
			Score:         final,
			ShouldInclude: include,
			Priority:      scorePriority(final),
			Reason:        reason,
		}
	}

	return scores
}

// keywordRelevance counts pattern hits for the section in the message,
// normalized by 3 and clamped to 1.0.
func keywordRelevance(messageLower, section string) float64 {
	patterns, ok := sectionPatterns[section]
	if !ok {
		return 0.5
	}
	total := 0
	for _, p := range patterns {
		total += len(p.FindAllString(messageLower, -1))
	}
	score := float64(total) / 3.0
	if score > 1.0 {
		return 1.0
	}
	return score
}

// contentRelevance scores the fragment's value by shape: empty or
// placeholder content scores zero, structured data scores high, and string
// content scores by length. Unexpected shapes score a neutral 0.5 rather
// than failing.
func contentRelevance(value any) float64 {
	if value == nil {
		return 0.0
	}
	switch v := value.(type) {
	case string:
		if v == "" || v == "not available" {
			return 0.0
		}
		switch {
		case len(v) < 10:
			return 0.3
		case len(v) < 100:
			return 0.7
		default:
			return 1.0
		}
	case map[string]any:
		return 0.9
	case []any:
		return 0.8
	case []string:
		return 0.8
	default:
		return 0.5
	}
}

func inclusionReason(score, baseWeight, threshold float64) string {
	if score >= threshold {
		switch {
		case baseWeight >= essentialWeight:
			return "Essential context"
		case score >= 0.8:
			return "Highly relevant"
		default:
			return "Relevant to user's question"
		}
	}
	if baseWeight >= essentialWeight {
		return "Essential but low relevance - including anyway"
	}
	return "Not relevant enough - excluding"
}

func scorePriority(score float64) int {
	switch {
	case score >= 0.9:
		return 1
	case score >= 0.8:
		return 2
	case score >= 0.7:
		return 3
	case score >= 0.6:
		return 4
	default:
		return 5
	}
}

// ─── Filtering ───────────────────────────────────────────────────────────────

// FilterContext returns the admitted fragments ordered by ascending priority.
// Ties order by name so the result is stable across calls.
func FilterContext(fragments map[string]any, scores map[string]RelevanceScore) []Fragment {
	var admitted []Fragment
	for name, value := range fragments {
		if s, ok := scores[name]; ok && s.ShouldInclude {
			admitted = append(admitted, Fragment{Name: name, Value: value})
		}
	}
	sort.Slice(admitted, func(i, j int) bool {
		pi, pj := scores[admitted[i].Name].Priority, scores[admitted[j].Name].Priority
		if pi != pj {
			return pi < pj
		}
		return admitted[i].Name < admitted[j].Name
	})
	return admitted
}

// SelectionSummary renders a human-readable account of which sections were
// included or excluded and why. Used for observability in tool responses.
func SelectionSummary(scores map[string]RelevanceScore) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	var included, excluded []string
	for _, name := range names {
		s := scores[name]
		entry := fmt.Sprintf("%s (%s)", name, s.Reason)
		if s.ShouldInclude {
			included = append(included, entry)
		} else {
			excluded = append(excluded, entry)
		}
	}

	var b strings.Builder
	b.WriteString("📋 Context Selection Summary:\n")
	fmt.Fprintf(&b, "✅ Included (%d): %s\n", len(included), strings.Join(included, ", "))
	if len(excluded) > 0 {
		fmt.Fprintf(&b, "❌ Excluded (%d): %s\n", len(excluded), strings.Join(excluded, ", "))
	}
	return b.String()
}
