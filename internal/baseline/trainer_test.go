package baseline

import (
	"errors"
	"math"
	"testing"
)

// makePowerObs generates observations from value = alpha * speed^d over a
// speed grid, optionally with a deterministic wobble
func makePowerObs(alpha, d float64, n int, wobble float64) []Observation {
	obs := make([]Observation, n)
	for i := 0; i < n; i++ {
		speed := 2.5 + 0.05*float64(i) // 2.5 .. ~5.0 m/s
		value := alpha * math.Pow(speed, d)
		// Alternate the wobble sign so it cancels on average
		if i%2 == 0 {
			value *= 1 + wobble
		} else {
			value *= 1 - wobble
		}
		obs[i] = Observation{Speed: speed, Value: value}
	}
	return obs
}

// makeLinearObs generates observations from value = a + b*speed
func makeLinearObs(a, b float64, n int) []Observation {
	obs := make([]Observation, n)
	for i := 0; i < n; i++ {
		speed := 2.5 + 0.05*float64(i)
		obs[i] = Observation{Speed: speed, Value: a + b*speed}
	}
	return obs
}

func TestTrainPowerLawRecoversCoefficients(t *testing.T) {
	// Ground contact time around 250ms at 3.5 m/s with a -0.3 exponent
	alpha := 250 * math.Pow(3.5, 0.3)
	obs := makePowerObs(alpha, -0.3, 50, 0.01)

	m, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if m.Family != string(FamilyPowerLaw) {
		t.Errorf("Family = %v, want %v", m.Family, FamilyPowerLaw)
	}
	if math.Abs(m.CoefB-(-0.3)) > 0.02 {
		t.Errorf("CoefB = %v, want ~-0.3", m.CoefB)
	}
	if math.Abs(m.CoefA-alpha)/alpha > 0.05 {
		t.Errorf("CoefA = %v, want ~%v", m.CoefA, alpha)
	}
	if m.NSamples != 50 {
		t.Errorf("NSamples = %v, want 50", m.NSamples)
	}
	if m.Degraded {
		t.Error("Degraded = true on a clean fit")
	}
	if m.SpeedMin != 2.5 {
		t.Errorf("SpeedMin = %v, want 2.5", m.SpeedMin)
	}
}

func TestTrainLinearRecoversCoefficients(t *testing.T) {
	// Vertical oscillation around a gentle negative slope
	obs := makeLinearObs(10.5, -0.4, 40)

	m, err := Train(obs, "road", MetricVerticalOscillation, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if m.Family != string(FamilyLinear) {
		t.Errorf("Family = %v, want %v", m.Family, FamilyLinear)
	}
	if math.Abs(m.CoefA-10.5) > 0.01 {
		t.Errorf("CoefA = %v, want 10.5", m.CoefA)
	}
	if math.Abs(m.CoefB-(-0.4)) > 0.01 {
		t.Errorf("CoefB = %v, want -0.4", m.CoefB)
	}
	if m.RMSE > 0.01 {
		t.Errorf("RMSE = %v on exact data, want ~0", m.RMSE)
	}
}

func TestTrainResistsOutliers(t *testing.T) {
	alpha := 250 * math.Pow(3.5, 0.3)
	obs := makePowerObs(alpha, -0.3, 50, 0.005)

	// Corrupt a few samples badly, the way a GPS glitch would
	obs[5].Value *= 3
	obs[20].Value *= 0.3
	obs[40].Value *= 2.5

	m, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if math.Abs(m.CoefB-(-0.3)) > 0.05 {
		t.Errorf("CoefB = %v with outliers, want ~-0.3", m.CoefB)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	obs := makePowerObs(400, -0.25, 60, 0.02)
	obs[10].Value *= 1.8

	m1, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	m2, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if m1.CoefA != m2.CoefA || m1.CoefB != m2.CoefB || m1.RMSE != m2.RMSE {
		t.Errorf("repeated fits differ: (%v,%v,%v) vs (%v,%v,%v)",
			m1.CoefA, m1.CoefB, m1.RMSE, m2.CoefA, m2.CoefB, m2.RMSE)
	}
}

func TestTrainInsufficientData(t *testing.T) {
	obs := makePowerObs(400, -0.25, 10, 0)

	_, err := Train(obs, "trail", MetricGroundContactTime, DefaultTrainOptions())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Train() error = %v, want ErrInsufficientData", err)
	}
}

func TestTrainFiltersInvalidSamples(t *testing.T) {
	obs := makePowerObs(400, -0.25, 32, 0)
	// Invalid samples must not count toward the minimum
	obs[0] = Observation{Speed: 0, Value: 250}
	obs[1] = Observation{Speed: 3.0, Value: 0}
	obs[2] = Observation{Speed: -1, Value: 250}

	opts := DefaultTrainOptions()
	_, err := Train(obs, "all", MetricGroundContactTime, opts)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Train() error = %v, want ErrInsufficientData with 29 valid samples", err)
	}
}

func TestTrainRejectsNonMonotonicPowerLaw(t *testing.T) {
	// Values increasing with speed give a positive exponent
	obs := make([]Observation, 40)
	for i := range obs {
		speed := 2.5 + 0.05*float64(i)
		obs[i] = Observation{Speed: speed, Value: 100 * math.Pow(speed, 0.2)}
	}

	_, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if !errors.Is(err, ErrNonMonotonicModel) {
		t.Errorf("Train() error = %v, want ErrNonMonotonicModel", err)
	}
}

func TestTrainLinearAllowsPositiveSlope(t *testing.T) {
	// Cadence climbs with speed; the linear family has no sign constraint
	obs := makeLinearObs(150, 8, 40)

	m, err := Train(obs, "all", MetricCadence, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.CoefB <= 0 {
		t.Errorf("CoefB = %v, want positive slope", m.CoefB)
	}
}

func TestTrainDegradedFallback(t *testing.T) {
	obs := makePowerObs(400, -0.25, 50, 0.03)
	obs[7].Value *= 4

	opts := DefaultTrainOptions()
	opts.MaxIter = 1
	opts.Tolerance = 0 // can never converge in one step

	m, err := Train(obs, "all", MetricGroundContactTime, opts)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !m.Degraded {
		t.Error("Degraded = false, want true when the iteration cap is hit")
	}
}

func TestTrainPredictRoundTrip(t *testing.T) {
	// Predictions inside the observed speed range must land within the
	// model's own recorded error bound of the training actuals
	alpha := 250 * math.Pow(3.5, 0.3)
	obs := makePowerObs(alpha, -0.3, 50, 0.01)

	m, err := Train(obs, "all", MetricGroundContactTime, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if m.RMSE <= 0 {
		t.Fatalf("RMSE = %v, want > 0 on wobbled data", m.RMSE)
	}

	for _, o := range obs {
		p, err := Predict(m, o.Speed)
		if err != nil {
			t.Fatalf("Predict(%v) error = %v", o.Speed, err)
		}
		if p.Extrapolated {
			t.Errorf("Predict(%v) extrapolated inside the training range", o.Speed)
		}
		if math.Abs(p.Expected-o.Value) > 3*m.RMSE {
			t.Errorf("Predict(%v) = %v, actual %v, outside 3x RMSE %v",
				o.Speed, p.Expected, o.Value, m.RMSE)
		}
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3}, 3},
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
