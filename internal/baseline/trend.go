package baseline

import (
	"fmt"
	"math"

	"runform/internal/store"
)

// TrendDirection classifies how a baseline has drifted between windows
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
)

// trendDeltaThreshold is the fixed relative change in the shape coefficient
// below which two windows are considered stable
const trendDeltaThreshold = 0.05

// TrendResult reports directional drift of one baseline key across windows
type TrendResult struct {
	ConditionGroup string
	Metric         Metric
	Direction      TrendDirection
	// Delta is newest shape coefficient minus oldest (power-law exponent
	// or linear slope, by family)
	Delta float64
	From  store.BaselineSnapshot // oldest selected window
	To    store.BaselineSnapshot // newest selected window
}

// Trend compares the most recent windowCount non-overlapping snapshots,
// given most-recent-first (the order the store returns them in). Returns
// ErrInsufficientHistory when fewer non-overlapping windows exist; a trend
// is never fabricated from a single snapshot.
func Trend(snaps []store.BaselineSnapshot, metric Metric, windowCount int) (*TrendResult, error) {
	spec, ok := Spec(metric)
	if !ok {
		return nil, fmt.Errorf("trend for %s: %w", metric, ErrUnknownMetric)
	}
	if windowCount < 2 {
		return nil, fmt.Errorf("trend for %s: window count %d must be at least 2", metric, windowCount)
	}

	selected := selectNonOverlapping(snaps, windowCount)
	if len(selected) < windowCount {
		return nil, fmt.Errorf("trend for %s with %d of %d windows: %w",
			metric, len(selected), windowCount, ErrInsufficientHistory)
	}

	newest := selected[0]
	oldest := selected[len(selected)-1]
	delta := newest.CoefB - oldest.CoefB

	return &TrendResult{
		ConditionGroup: newest.ConditionGroup,
		Metric:         metric,
		Direction:      classify(delta, oldest.CoefB, spec),
		Delta:          delta,
		From:           oldest,
		To:             newest,
	}, nil
}

// selectNonOverlapping walks most-recent-first snapshots and keeps each one
// whose window closes no later than the previously kept window opens
func selectNonOverlapping(snaps []store.BaselineSnapshot, n int) []store.BaselineSnapshot {
	var selected []store.BaselineSnapshot
	for _, s := range snaps {
		if len(selected) == 0 || !s.PeriodEnd.After(selected[len(selected)-1].PeriodStart) {
			selected = append(selected, s)
		}
		if len(selected) == n {
			break
		}
	}
	return selected
}

// classify turns a shape-coefficient delta into a direction. The delta is
// measured relative to the older coefficient; below the fixed threshold the
// baseline is stable. Beyond it, the sign is oriented by whether lower
// metric values are better: a coefficient moving downward lowers predicted
// values across the speed range.
func classify(delta, oldCoef float64, spec MetricSpec) TrendDirection {
	base := math.Abs(oldCoef)
	if base < 1e-9 {
		base = 1e-9
	}
	if math.Abs(delta)/base < trendDeltaThreshold {
		return TrendStable
	}

	lowering := delta < 0
	if lowering == spec.LowerIsBetter {
		return TrendImproving
	}
	return TrendWorsening
}
