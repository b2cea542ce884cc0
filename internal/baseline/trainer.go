package baseline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"runform/internal/store"
)

// Observation is one historical training sample for a (condition group, metric) key
type Observation struct {
	Speed float64 // m/s
	Value float64 // metric's natural unit
}

// TrainOptions tunes the robust fit. The defaults are used everywhere in
// production; tests exercise the knobs.
type TrainOptions struct {
	MinSamples int     // minimum observations per key
	HuberC     float64 // Huber tuning constant in units of robust scale
	Tolerance  float64 // convergence tolerance on coefficient change
	MaxIter    int     // iteration cap; exceeding it falls back to plain least squares
}

// DefaultTrainOptions returns the production fitting parameters
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MinSamples: 30,
		HuberC:     1.345,
		Tolerance:  1e-6,
		MaxIter:    50,
	}
}

// Train fits a baseline model for one (condition group, metric) key from
// historical observations. Power-law metrics are fit in log-log space,
// linear metrics directly, both with Huber iterative reweighting so the
// occasional pathological split (GPS glitch, mid-run stop) doesn't drag the
// fit. The result is deterministic for a given observation set.
//
// Returns ErrInsufficientData below MinSamples and ErrNonMonotonicModel when
// a power-law fit produces a non-negative exponent.
func Train(obs []Observation, conditionGroup string, metric Metric, opts TrainOptions) (*store.BaselineModel, error) {
	spec, ok := Spec(metric)
	if !ok {
		return nil, fmt.Errorf("training %s: %w", metric, ErrUnknownMetric)
	}

	// Drop samples the model families can't represent
	valid := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Speed > 0 && o.Value > 0 {
			valid = append(valid, o)
		}
	}

	if len(valid) < opts.MinSamples {
		return nil, fmt.Errorf("training %s/%s with %d observations (minimum %d): %w",
			conditionGroup, metric, len(valid), opts.MinSamples, ErrInsufficientData)
	}

	xs := make([]float64, len(valid))
	ys := make([]float64, len(valid))
	for i, o := range valid {
		if spec.Family == FamilyPowerLaw {
			xs[i] = math.Log(o.Speed)
			ys[i] = math.Log(o.Value)
		} else {
			xs[i] = o.Speed
			ys[i] = o.Value
		}
	}

	intercept, slope, converged := robustFit(xs, ys, opts)

	m := &store.BaselineModel{
		ConditionGroup: conditionGroup,
		Metric:         string(metric),
		Family:         string(spec.Family),
		NSamples:       len(valid),
		Degraded:       !converged,
		TrainedAt:      time.Now().UTC(),
	}

	if spec.Family == FamilyPowerLaw {
		// log(value) = log(alpha) + d*log(speed)
		m.CoefA = math.Exp(intercept)
		m.CoefB = slope
		if m.CoefB >= 0 {
			return nil, fmt.Errorf("training %s/%s (exponent %.4f): %w",
				conditionGroup, metric, m.CoefB, ErrNonMonotonicModel)
		}
	} else {
		m.CoefA = intercept
		m.CoefB = slope
	}

	m.SpeedMin, m.SpeedMax = speedRange(valid)
	m.RMSE = rmse(m, valid)

	return m, nil
}

// robustFit runs Huber iteratively-reweighted least squares on (xs, ys).
// Initialization is the plain least-squares solution, so the result is
// reproducible. Reports converged=false when the iteration cap is hit, in
// which case the plain least-squares coefficients are returned.
func robustFit(xs, ys []float64, opts TrainOptions) (intercept, slope float64, converged bool) {
	ols := func(w []float64) (float64, float64) {
		var sw, sx, sy, sxx, sxy float64
		for i := range xs {
			wi := 1.0
			if w != nil {
				wi = w[i]
			}
			sw += wi
			sx += wi * xs[i]
			sy += wi * ys[i]
			sxx += wi * xs[i] * xs[i]
			sxy += wi * xs[i] * ys[i]
		}
		denom := sw*sxx - sx*sx
		if denom == 0 {
			return sy / sw, 0
		}
		b := (sw*sxy - sx*sy) / denom
		a := (sy - b*sx) / sw
		return a, b
	}

	olsA, olsB := ols(nil)
	a, b := olsA, olsB

	weights := make([]float64, len(xs))
	residuals := make([]float64, len(xs))

	for iter := 0; iter < opts.MaxIter; iter++ {
		for i := range xs {
			residuals[i] = ys[i] - (a + b*xs[i])
		}

		scale := madScale(residuals)
		if scale == 0 {
			// Residuals are (near) identical; nothing left to reweight
			return a, b, true
		}

		threshold := opts.HuberC * scale
		for i, r := range residuals {
			if abs := math.Abs(r); abs > threshold {
				weights[i] = threshold / abs
			} else {
				weights[i] = 1
			}
		}

		nextA, nextB := ols(weights)
		if math.Abs(nextA-a) < opts.Tolerance && math.Abs(nextB-b) < opts.Tolerance {
			return nextA, nextB, true
		}
		a, b = nextA, nextB
	}

	// Non-convergence: fall back to the plain fit, flagged degraded
	return olsA, olsB, false
}

// madScale estimates the residual scale as 1.4826 * median absolute deviation
func madScale(residuals []float64) float64 {
	abs := make([]float64, len(residuals))
	med := median(residuals)
	for i, r := range residuals {
		abs[i] = math.Abs(r - med)
	}
	return 1.4826 * median(abs)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// speedRange returns the observed (min, max) speed actually used in the fit
func speedRange(obs []Observation) (min, max float64) {
	min, max = obs[0].Speed, obs[0].Speed
	for _, o := range obs[1:] {
		if o.Speed < min {
			min = o.Speed
		}
		if o.Speed > max {
			max = o.Speed
		}
	}
	return min, max
}

// rmse computes the residual error of a fitted model on its training set,
// in the metric's original unit
func rmse(m *store.BaselineModel, obs []Observation) float64 {
	var sum float64
	for _, o := range obs {
		p, err := Predict(m, o.Speed)
		if err != nil {
			continue
		}
		r := o.Value - p.Expected
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(obs)))
}
