// Package scoring computes accuracy scores against a target tempo.
package scoring

import (
	"math"
)

// Accuracy score bounds.
const (
	maxScore = 100
)

// Accuracy scores how close an instantaneous BPM landed to the target on a
// saturating 0-100 scale. The relative error |target-instant|/target is
// clamped to [0,1], so any deviation of at least 100% of the target scores
// 0 and an exact match scores 100. Over- and undershoot are symmetric.
//
// target must be positive; instant must be nonzero. Callers enforce both
// before asking for a score.
func Accuracy(target, instant int) int {
	err := math.Abs(float64(target-instant)) / float64(target)
	return int(math.Round((1 - clamp01(err)) * maxScore))
}

// clamp01 bounds v to the [0,1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
