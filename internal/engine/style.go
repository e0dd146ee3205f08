package engine

import "strings"

// Communication-style inference from message history. Length heuristics are
// the weakest signal: explicit technical vocabulary outranks generic style
// keywords, which outrank raw message length.

// historyCap bounds how far back style analysis looks.
const historyCap = 50

// styleKeywords vote for a specific style when present in a message.
var styleKeywords = map[UserStyle][]string{
	StyleConcise:       {"quick", "simple", "brief", "concise"},
	StyleDetailed:      {"explain", "detail", "how", "why", "step by step"},
	StyleComprehensive: {"comprehensive", "thorough", "complete", "full", "everything"},
	StyleTechnical:     {"implement", "code", "algorithm", "performance", "optimization"},
}

// technicalTerms are counted separately; more than 5 hits across the history
// classifies the user as technical regardless of other votes.
var technicalTerms = []string{"code", "implement", "function", "class", "database", "api"}

// styleBaseThresholds maps each style to its target relevance threshold.
// Lower threshold = more permissive inclusion (comprehensive users want more
// context; concise users want less).
var styleBaseThresholds = map[UserStyle]float64{
	StyleConcise:       0.7,
	StyleDetailed:      0.6,
	StyleComprehensive: 0.5,
	StyleTechnical:     0.65,
	StyleGeneral:       0.6,
}

// StyleThreshold returns the base relevance threshold for a style.
func StyleThreshold(style UserStyle) float64 {
	if t, ok := styleBaseThresholds[style]; ok {
		return t
	}
	return styleBaseThresholds[StyleGeneral]
}

// InferStyle analyzes a user's message history and returns their
// communication style. Empty history returns general.
func InferStyle(history []string) UserStyle {
	if len(history) == 0 {
		return StyleGeneral
	}
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}

	var totalLen int
	technicalHits := 0
	votes := map[UserStyle]int{}

	for _, message := range history {
		lower := strings.ToLower(message)
		totalLen += len(message)

		for style, keywords := range styleKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					votes[style]++
				}
			}
		}
		for _, term := range technicalTerms {
			if strings.Contains(lower, term) {
				technicalHits++
			}
		}
	}

	if technicalHits > 5 {
		return StyleTechnical
	}

	best, bestVotes := StyleGeneral, 0
	for _, style := range styleOrder {
		if votes[style] > bestVotes {
			best, bestVotes = style, votes[style]
		}
	}
	if bestVotes > 2 {
		return best
	}

	avgLen := float64(totalLen) / float64(len(history))
	switch {
	case avgLen < 80:
		return StyleConcise
	case avgLen > 200:
		return StyleComprehensive
	default:
		return StyleDetailed
	}
}
