package baseline

import (
	"fmt"
	"strings"
)

// Text generation is a pure function of the evaluation numbers: no I/O, no
// randomness, no thresholds of its own. Strength/weakness wording follows
// the needs-improvement flag computed by the scorer, never the raw numbers.

// metricTemplates maps a star tier to the per-metric explanation template.
// Placeholders: label, actual, expected, deviation.
var metricTemplates = map[int]string{
	5: "%s was %s against an expected %s (%s), right on your baseline.",
	4: "%s was %s against an expected %s (%s), close to your baseline.",
	3: "%s was %s against an expected %s (%s), a noticeable drift from your baseline.",
	2: "%s was %s against an expected %s (%s), well off your baseline.",
	1: "%s was %s against an expected %s (%s), far outside your usual range.",
}

// summaryTemplates maps the overall tier to the activity-level fragment
var summaryTemplates = map[int]string{
	5: "Excellent form: this run tracked your baselines almost exactly.",
	4: "Good form: small deviations from your baselines.",
	3: "Fair form: some metrics drifted from your baselines.",
	2: "Weak form: several metrics were well off your baselines.",
	1: "Poor form: most metrics were far from your baselines.",
}

const extrapolationCaveat = " Note: this pace is outside the range your baseline was trained on."

// RenderMetricText renders the explanation for one scored metric at the
// metric's fixed display precision
func RenderMetricText(metric Metric, expected, actual float64, r ScoreResult, extrapolated bool) (string, error) {
	spec, ok := Spec(metric)
	if !ok {
		return "", fmt.Errorf("rendering %s: %w", metric, ErrUnknownMetric)
	}

	tmpl, ok := metricTemplates[r.Tier]
	if !ok {
		return "", fmt.Errorf("rendering %s: no template for tier %d", metric, r.Tier)
	}

	text := fmt.Sprintf(tmpl,
		spec.Label,
		formatValue(actual, spec),
		formatValue(expected, spec),
		formatDeviation(r.Deviation, spec),
	)
	if extrapolated {
		text += extrapolationCaveat
	}

	return text, nil
}

// RenderSummary renders the activity-level narrative fragment. The strength
// and weakness lists are metric labels already classified by the scorer's
// needs-improvement flag.
func RenderSummary(overallTier int, strengths, weaknesses []string) (string, error) {
	tmpl, ok := summaryTemplates[overallTier]
	if !ok {
		return "", fmt.Errorf("rendering summary: no template for tier %d", overallTier)
	}

	parts := []string{tmpl}
	if len(strengths) > 0 {
		parts = append(parts, fmt.Sprintf("Strengths: %s.", strings.Join(strengths, ", ")))
	}
	if len(weaknesses) > 0 {
		parts = append(parts, fmt.Sprintf("Needs work: %s.", strings.Join(weaknesses, ", ")))
	}

	return strings.Join(parts, " "), nil
}

// formatValue renders a metric value at its fixed precision with unit
func formatValue(v float64, spec MetricSpec) string {
	return fmt.Sprintf("%.*f %s", spec.Precision, v, spec.Unit)
}

// formatDeviation renders a signed deviation in the metric's convention
func formatDeviation(dev float64, spec MetricSpec) string {
	if spec.Deviation == DeviationAbsolute {
		return fmt.Sprintf("%+.1f pts", dev)
	}
	return fmt.Sprintf("%+.1f%%", dev)
}
