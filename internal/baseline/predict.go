package baseline

import (
	"fmt"
	"math"

	"runform/internal/store"
)

// Prediction is an expected metric value at a given speed
type Prediction struct {
	Expected float64
	// Extrapolated is set when the query speed falls outside the model's
	// observed training range. The prediction is still returned; callers
	// decide whether to surface a caveat.
	Extrapolated bool
}

// Predict computes the expected metric value at a speed from a fitted model
func Predict(m *store.BaselineModel, speed float64) (Prediction, error) {
	if speed <= 0 {
		return Prediction{}, fmt.Errorf("predicting at speed %.3f: speed must be positive", speed)
	}

	var expected float64
	switch Family(m.Family) {
	case FamilyPowerLaw:
		// value = alpha * speed^d
		expected = m.CoefA * math.Pow(speed, m.CoefB)
	case FamilyLinear:
		// value = a + b * speed
		expected = m.CoefA + m.CoefB*speed
	default:
		return Prediction{}, fmt.Errorf("model %s/%s: unknown family %q", m.ConditionGroup, m.Metric, m.Family)
	}

	return Prediction{
		Expected:     expected,
		Extrapolated: speed < m.SpeedMin || speed > m.SpeedMax,
	}, nil
}
