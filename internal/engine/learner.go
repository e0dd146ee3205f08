package engine

import "time"

// Outcome learning. Each recorded outcome folds into the running
// SuccessPattern for its (task type, strategy) pair by simple averaging of
// the old and new values. Cheap, bounded state per pair, and recent outcomes
// keep meaningful weight without a decay schedule.

// Outcome is one observed interaction result.
type Outcome struct {
	TaskType        TaskType
	Strategy        Strategy
	UserFeedback    float64 // 0..1
	ResponseQuality float64 // 0..1
	ExecutionTime   float64 // seconds
	EstimatedTokens int     // 0 means unknown
}

// tokenEfficiency scores how economically the outcome was produced. Fast
// responses score high; a known token estimate blends in a size penalty.
func tokenEfficiency(executionTime float64, estimatedTokens int) float64 {
	if executionTime <= 0 {
		return 0.5
	}
	eff := 10.0 / executionTime
	if eff > 1.0 {
		eff = 1.0
	}
	if estimatedTokens > 0 {
		sizeScore := 1000.0 / float64(estimatedTokens)
		if sizeScore > 1.0 {
			sizeScore = 1.0
		}
		eff = (eff + sizeScore) / 2.0
	}
	return eff
}

// effectiveness blends the pattern's running metrics into a single score.
func effectiveness(p SuccessPattern) float64 {
	return p.UserFeedback*0.4 + p.ResponseQuality*0.4 + p.TokenEfficiency*0.2
}

// FoldOutcome merges an outcome into an existing pattern, or seeds a fresh
// one when prev is nil. Returns the updated pattern.
func FoldOutcome(prev *SuccessPattern, outcome Outcome, now time.Time) SuccessPattern {
	eff := tokenEfficiency(outcome.ExecutionTime, outcome.EstimatedTokens)

	if prev == nil {
		p := SuccessPattern{
			TaskType:        outcome.TaskType,
			Strategy:        outcome.Strategy,
			UserFeedback:    outcome.UserFeedback,
			ResponseQuality: outcome.ResponseQuality,
			ExecutionTime:   outcome.ExecutionTime,
			TokenEfficiency: eff,
			SuccessCount:    1,
			LastUsed:        now,
		}
		p.EffectivenessScore = effectiveness(p)
		return p
	}

	p := *prev
	p.UserFeedback = (p.UserFeedback + outcome.UserFeedback) / 2
	p.ResponseQuality = (p.ResponseQuality + outcome.ResponseQuality) / 2
	p.ExecutionTime = (p.ExecutionTime + outcome.ExecutionTime) / 2
	p.TokenEfficiency = (p.TokenEfficiency + eff) / 2
	p.SuccessCount++
	p.LastUsed = now
	p.EffectivenessScore = effectiveness(p)
	return p
}

// BestPattern returns the most effective pattern from the slice, or nil when
// empty. Ties resolve to the earlier element so results are stable for a
// stably-ordered input.
func BestPattern(patterns []SuccessPattern) *SuccessPattern {
	var best *SuccessPattern
	for i := range patterns {
		if best == nil || patterns[i].EffectivenessScore > best.EffectivenessScore {
			best = &patterns[i]
		}
	}
	return best
}
