package engine

import (
	"fmt"
	"strings"
)

// Prompt assembly. The augmented prompt is a sequence of "=== ... ==="
// sections; the user's original message is always the last section so the
// model reads all guidance before the request itself.

// steeringTemplates render each behavioral steering directive as prompt text.
var steeringTemplates = map[Steering]string{
	SteerDetailedExplanations: "Provide comprehensive, detailed explanations for each step and decision.\n" +
		"Include reasoning, alternatives considered, and potential implications.",
	SteerConciseSolutions: "Focus on efficient, direct solutions with minimal explanation.\n" +
		"Prioritize actionable results over detailed reasoning.",
	SteerProactiveSuggestions: "Anticipate follow-up questions and provide proactive recommendations.\n" +
		"Suggest improvements, alternatives, and next steps.",
	SteerTeachingMode: "Explain concepts clearly with examples and analogies.\n" +
		"Build understanding progressively from fundamentals.",
	SteerImplementationMode: "Focus on practical implementation with working code.\n" +
		"Provide complete, runnable solutions with error handling.",
	SteerAnalysisMode: "Provide systematic analysis with clear methodology.\n" +
		"Break down complex problems into manageable components.",
	SteerCreativeMode: "Explore innovative approaches and alternative solutions.\n" +
		"Consider unconventional methods and creative possibilities.",
	SteerStepByStep: "Break down complex tasks into clear, sequential steps.\n" +
		"Provide systematic, methodical approach to problem solving.",
}

// strategyGuidance renders each strategy's optimization pattern.
var strategyGuidance = map[Strategy]string{
	StrategyPrecisionTechnical: "Focus on technical accuracy, best practices, and implementation details.\n" +
		"Ensure code quality, performance considerations, and maintainability.",
	StrategyProblemSolving: "Apply systematic problem-solving methodology.\n" +
		"Identify root causes, evaluate solutions, and provide clear action plans.",
	StrategyEducational: "Structure information for optimal learning and understanding.\n" +
		"Use progressive disclosure and reinforce key concepts.",
	StrategyComprehensive: "Provide thorough coverage of all relevant aspects.\n" +
		"Consider multiple perspectives and long-term implications.",
	StrategyEfficiencyFocused: "Optimize for speed and efficiency in both process and outcome.\n" +
		"Minimize overhead while maximizing value delivery.",
}

const fallbackGuidance = "Provide balanced, helpful assistance."

// fragmentTruncateLimit bounds how much of a single context fragment is
// rendered into the prompt.
const fragmentTruncateLimit = 500

// AssemblePrompt builds the augmented prompt from the selected optimization,
// the task analysis, and the admitted context fragments (already filtered
// and priority-ordered). If the assembled prompt exceeds the token budget it
// is reduced proportionally per section, headers preserved.
func AssemblePrompt(message string, analysis Analysis, optimization Optimization, admitted []Fragment) string {
	var sections []string

	guidance, ok := strategyGuidance[optimization.Strategy]
	if !ok {
		guidance = fallbackGuidance
	}
	sections = append(sections, "=== 🎯 STRATEGY GUIDANCE ===\n"+guidance)

	if len(optimization.BehavioralSteering) > 0 {
		var parts []string
		for _, s := range optimization.BehavioralSteering {
			if tmpl, ok := steeringTemplates[s]; ok {
				parts = append(parts, tmpl)
			}
		}
		if len(parts) > 0 {
			sections = append(sections, "=== 🧠 BEHAVIORAL GUIDANCE ===\n"+strings.Join(parts, "\n"))
		}
	}

	if taskCtx := taskContextSection(analysis); taskCtx != "" {
		sections = append(sections, "=== 📋 TASK CONTEXT ===\n"+taskCtx)
	}

	if ctx := fragmentSection(admitted); ctx != "" {
		sections = append(sections, "=== 📊 RELEVANT CONTEXT ===\n"+ctx)
	}

	if hints := hintsSection(optimization.Hints); hints != "" {
		sections = append(sections, "=== ⚙️ RESPONSE OPTIMIZATION ===\n"+hints)
	}

	sections = append(sections, "=== 💬 USER REQUEST ===\n"+message)

	prompt := strings.Join(sections, "\n\n")
	if len(strings.Fields(prompt)) > optimization.MaxTokens {
		prompt = reduceToBudget(prompt, optimization.MaxTokens)
	}
	return prompt
}

func taskContextSection(analysis Analysis) string {
	parts := []string{
		fmt.Sprintf("Task Type: %s", analysis.TaskType),
		fmt.Sprintf("Complexity: %.1f/1.0", analysis.ComplexityScore),
		fmt.Sprintf("Technical Depth: %.1f/1.0", analysis.TechnicalDepth),
	}
	if analysis.UrgencyLevel > 0.3 {
		parts = append(parts, fmt.Sprintf("Urgency: %.1f/1.0 - Prioritize efficiency", analysis.UrgencyLevel))
	}
	if analysis.CreativityNeeded > 0.3 {
		parts = append(parts, fmt.Sprintf("Creativity Needed: %.1f/1.0", analysis.CreativityNeeded))
	}
	if len(analysis.ContextRequirements) > 0 {
		parts = append(parts, "Required Context: "+strings.Join(analysis.ContextRequirements, ", "))
	}
	return strings.Join(parts, "\n")
}

// fragmentSection renders the admitted fragments in their given order, each
// as "Title: content" with long content truncated.
func fragmentSection(admitted []Fragment) string {
	var parts []string
	for _, f := range admitted {
		content := renderValue(f.Value)
		if content == "" {
			continue
		}
		if len(content) > fragmentTruncateLimit {
			content = content[:fragmentCut(content)] + "..."
		}
		parts = append(parts, titleCase(f.Name)+": "+content)
	}
	return strings.Join(parts, "\n")
}

// fragmentCut finds a byte offset at or below the truncate limit that does
// not split a UTF-8 rune.
func fragmentCut(s string) int {
	cut := fragmentTruncateLimit
	for cut > 0 && cut < len(s) && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return cut
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func titleCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func hintsSection(hints ResponseHints) string {
	var parts []string
	if hints.ResponseFormat != "" {
		parts = append(parts, "Response Format: "+hints.ResponseFormat)
	}
	if hints.InteractionStyle != "" {
		parts = append(parts, "Interaction Style: "+hints.InteractionStyle)
	}
	if hints.ErrorHandling != "" {
		parts = append(parts, "Error Handling: "+hints.ErrorHandling)
	}
	if hints.CompressionLevel != "" {
		parts = append(parts, "Compression: "+hints.CompressionLevel)
	}
	return strings.Join(parts, "\n")
}

// reduceToBudget shrinks each section's content proportionally so the whole
// prompt fits the word budget. Section headers are never dropped.
func reduceToBudget(prompt string, maxTokens int) string {
	words := strings.Fields(prompt)
	if len(words) <= maxTokens {
		return prompt
	}
	ratio := float64(maxTokens) / float64(len(words))

	var reduced []string
	for _, section := range strings.Split(prompt, "=== ") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		header, content, found := strings.Cut(section, "\n")
		if !found {
			reduced = append(reduced, "=== "+section)
			continue
		}
		contentWords := strings.Fields(content)
		target := int(float64(len(contentWords)) * ratio)
		if target > 0 {
			reduced = append(reduced, "=== "+header+"\n"+strings.Join(contentWords[:target], " "))
		}
	}
	return strings.Join(reduced, "\n\n")
}
