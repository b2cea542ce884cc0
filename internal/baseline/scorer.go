package baseline

import (
	"fmt"
	"math"
)

// Scoring constants. The tier boundaries and the needs-improvement cutoff
// are the single source of truth for every downstream consumer; nothing else
// in the repository derives a verdict from a raw deviation.
const (
	MaxScore = 100.0

	// penaltyExponent makes the score drop grow faster than linearly with
	// deviation beyond the dead band
	penaltyExponent = 1.5

	// Star tier boundaries on the 0..100 score
	tier5Min = 95.0
	tier4Min = 85.0
	tier3Min = 70.0
	tier2Min = 50.0

	// Tiers at or below this need improvement
	needsImprovementMaxTier = 2
)

// ScoreResult is the outcome of scoring one metric's actual value against
// its expectation
type ScoreResult struct {
	Deviation        float64 // signed; percent or percentage points per the metric spec
	Score            float64 // 0..100
	Tier             int     // 1..5 stars
	NeedsImprovement bool    // authoritative strength/weakness flag
}

// Score converts an expected/actual pair into a bounded score, a star tier
// and the needs-improvement flag, using the metric's fixed deviation
// convention and tolerance band.
func Score(expected, actual float64, metric Metric) (ScoreResult, error) {
	spec, ok := Spec(metric)
	if !ok {
		return ScoreResult{}, fmt.Errorf("scoring %s: %w", metric, ErrUnknownMetric)
	}

	dev, err := deviation(expected, actual, spec)
	if err != nil {
		return ScoreResult{}, err
	}

	score := scoreDeviation(dev, spec)
	tier := tierForScore(score)

	return ScoreResult{
		Deviation:        dev,
		Score:            score,
		Tier:             tier,
		NeedsImprovement: tier <= needsImprovementMaxTier,
	}, nil
}

// deviation computes the signed deviation in the metric's fixed convention
func deviation(expected, actual float64, spec MetricSpec) (float64, error) {
	switch spec.Deviation {
	case DeviationRelative:
		if expected == 0 {
			return 0, fmt.Errorf("scoring %s: expected value is zero", spec.Metric)
		}
		return (actual - expected) / expected * 100, nil
	case DeviationAbsolute:
		return actual - expected, nil
	default:
		return 0, fmt.Errorf("scoring %s: unknown deviation mode %d", spec.Metric, spec.Deviation)
	}
}

// scoreDeviation maps |deviation| to a score. Within the dead band the score
// is the maximum; beyond it the penalty grows superlinearly down to zero at
// the spec's ZeroAt bound. Strictly monotonic in |deviation| past the band.
func scoreDeviation(dev float64, spec MetricSpec) float64 {
	excess := math.Abs(dev) - spec.DeadBand
	if excess <= 0 {
		return MaxScore
	}

	x := excess / (spec.ZeroAt - spec.DeadBand)
	if x >= 1 {
		return 0
	}

	return MaxScore * (1 - math.Pow(x, penaltyExponent))
}

// tierForScore discretizes a score into one of five star tiers
func tierForScore(score float64) int {
	switch {
	case score >= tier5Min:
		return 5
	case score >= tier4Min:
		return 4
	case score >= tier3Min:
		return 3
	case score >= tier2Min:
		return 2
	default:
		return 1
	}
}

// OverallTier aggregates per-metric tiers into an activity-level tier: the
// mean tier rounded to the nearest star.
func OverallTier(tiers []int) int {
	if len(tiers) == 0 {
		return 0
	}
	var sum int
	for _, t := range tiers {
		sum += t
	}
	return int(math.Round(float64(sum) / float64(len(tiers))))
}

// NeedsImprovementForTier reports whether a tier sits in the bottom band.
// Exposed so the activity-level verdict uses the same cutoff as metrics.
func NeedsImprovementForTier(tier int) bool {
	return tier <= needsImprovementMaxTier
}
