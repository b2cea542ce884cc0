package baseline

import "runform/internal/store"

// Metric identifies one tracked running-form measurement
type Metric string

const (
	MetricGroundContactTime   Metric = "ground_contact_time"
	MetricVerticalOscillation Metric = "vertical_oscillation"
	MetricVerticalRatio       Metric = "vertical_ratio"
	MetricCadence             Metric = "cadence"
)

// Family identifies the statistical model family used for a metric
type Family string

const (
	// FamilyPowerLaw fits value = alpha * speed^d in log-log space.
	// Used for metrics that must decrease with speed; the fitted exponent
	// is required to be strictly negative.
	FamilyPowerLaw Family = "power"

	// FamilyLinear fits value = a + b * speed
	FamilyLinear Family = "linear"
)

// DeviationMode fixes how a metric's deviation is expressed
type DeviationMode int

const (
	// DeviationRelative is the signed percent difference (actual vs expected)
	DeviationRelative DeviationMode = iota
	// DeviationAbsolute is the signed raw difference, for metrics whose
	// natural unit is already a percentage
	DeviationAbsolute
)

// MetricSpec fixes a metric's model family, deviation convention and
// tolerance band. These are deliberate constants, not tunables inferred from
// data: every consumer of a score must agree on them.
type MetricSpec struct {
	Metric        Metric
	Label         string
	Unit          string
	Family        Family
	Deviation     DeviationMode
	LowerIsBetter bool
	DeadBand      float64 // |deviation| up to which the score is the maximum
	ZeroAt        float64 // |deviation| at which the score reaches zero
	Precision     int     // display decimals
}

// specs is the fixed registry of tracked metrics.
//
// Deviation conventions: ground contact time, vertical oscillation and
// cadence use signed relative percent; vertical ratio is itself a percent,
// so its deviation is the absolute difference in percentage points.
var specs = []MetricSpec{
	{
		Metric:        MetricGroundContactTime,
		Label:         "Ground Contact Time",
		Unit:          "ms",
		Family:        FamilyPowerLaw,
		Deviation:     DeviationRelative,
		LowerIsBetter: true,
		DeadBand:      1.0,
		ZeroAt:        8.0,
		Precision:     1,
	},
	{
		Metric:        MetricVerticalOscillation,
		Label:         "Vertical Oscillation",
		Unit:          "cm",
		Family:        FamilyLinear,
		Deviation:     DeviationRelative,
		LowerIsBetter: true,
		DeadBand:      0.25,
		ZeroAt:        2.0,
		Precision:     2,
	},
	{
		Metric:        MetricVerticalRatio,
		Label:         "Vertical Ratio",
		Unit:          "%",
		Family:        FamilyLinear,
		Deviation:     DeviationAbsolute,
		LowerIsBetter: true,
		DeadBand:      0.2,
		ZeroAt:        2.0,
		Precision:     2,
	},
	{
		Metric:        MetricCadence,
		Label:         "Cadence",
		Unit:          "spm",
		Family:        FamilyLinear,
		Deviation:     DeviationRelative,
		LowerIsBetter: false,
		DeadBand:      1.0,
		ZeroAt:        10.0,
		Precision:     0,
	},
}

// Tracked returns the metrics evaluated for every activity, in fixed order
func Tracked() []Metric {
	metrics := make([]Metric, len(specs))
	for i, s := range specs {
		metrics[i] = s.Metric
	}
	return metrics
}

// Spec returns the fixed specification for a metric
func Spec(m Metric) (MetricSpec, bool) {
	for _, s := range specs {
		if s.Metric == m {
			return s, true
		}
	}
	return MetricSpec{}, false
}

// SplitValue extracts a metric's observation value from a split, or nil
// when the device didn't record it
func SplitValue(s store.Split, m Metric) *float64 {
	switch m {
	case MetricGroundContactTime:
		return s.GroundContactTime
	case MetricVerticalOscillation:
		return s.VerticalOscillation
	case MetricVerticalRatio:
		return s.VerticalRatio
	case MetricCadence:
		return s.Cadence
	default:
		return nil
	}
}

// ActivityValue extracts a metric's per-activity aggregate value, or nil
// when the device didn't record it
func ActivityValue(a store.Activity, m Metric) *float64 {
	switch m {
	case MetricGroundContactTime:
		return a.AvgGroundContactTime
	case MetricVerticalOscillation:
		return a.AvgVerticalOscillation
	case MetricVerticalRatio:
		return a.AvgVerticalRatio
	case MetricCadence:
		return a.AvgCadence
	default:
		return nil
	}
}
