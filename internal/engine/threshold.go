package engine

import (
	"math"
	"time"
)

// Threshold bounds. Below 0.3 everything gets included and filtering is
// pointless; above 0.9 almost nothing survives.
const (
	ThresholdMin = 0.3
	ThresholdMax = 0.9
)

// Adjustment gate defaults: an adjustment is applied only when both the
// elapsed time since the last one and the magnitude of change are large
// enough. The debounce prevents the threshold from oscillating on every
// single interaction.
const (
	MinAdjustInterval = 10 * time.Minute
	MinAdjustDelta    = 0.05
)

// adjustSteps maps each adjustment strategy to its base step size.
var adjustSteps = map[AdjustStrategy]float64{
	AdjustConservative: 0.05,
	AdjustModerate:     0.1,
	AdjustAggressive:   0.2,
	AdjustAdaptive:     0.15,
}

// ComputeThreshold calculates a new threshold from the current value, the
// user's style target, and recent performance. A performance gap below the
// style target lowers the threshold (include more context); performance
// above it raises the threshold (include less). The result is clamped to
// [ThresholdMin, ThresholdMax] and rounded to 3 decimals.
func ComputeThreshold(current float64, style UserStyle, successRate float64, recentPerformance []float64, strategy AdjustStrategy) float64 {
	target := StyleThreshold(style)

	perf := successRate
	if len(recentPerformance) > 0 {
		perf = mean(recentPerformance)
	}
	gap := target - perf

	step, ok := adjustSteps[strategy]
	if !ok {
		step = adjustSteps[AdjustAdaptive]
	}
	if strategy == AdjustAdaptive {
		switch {
		case math.Abs(gap) > 0.2:
			step *= 1.5
		case math.Abs(gap) < 0.05:
			step *= 0.5
		}
	}

	magnitude := step * math.Min(math.Abs(gap), 0.3)
	var next float64
	if gap > 0 {
		next = current - magnitude
	} else {
		next = current + magnitude
	}

	next = math.Max(ThresholdMin, math.Min(ThresholdMax, next))
	return math.Round(next*1000) / 1000
}

// ShouldAdjust reports whether an adjustment from current to target should
// be applied now, given the time of the last adjustment. Holds regardless of
// how often it is called: within the interval it is always false.
func ShouldAdjust(current, target float64, lastAdjusted time.Time, now time.Time) bool {
	if now.Sub(lastAdjusted) < MinAdjustInterval {
		return false
	}
	return math.Abs(current-target) > MinAdjustDelta
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
