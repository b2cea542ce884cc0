package tui

import (
	"fmt"

	"runform/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	if u.cfg.DistanceUnit == "mi" {
		return fmt.Sprintf("%.1f mi", meters/metersPerMile)
	}
	return fmt.Sprintf("%.1f km", meters/metersPerKm)
}

// FormatPace formats pace from total seconds and meters to the user's preferred unit
func (u Units) FormatPace(seconds int, meters float64) string {
	if meters <= 0 || seconds <= 0 {
		return "-"
	}

	var paceSeconds float64
	var unit string
	if u.cfg.PaceUnit == "min/mi" {
		paceSeconds = float64(seconds) / (meters / metersPerMile)
		unit = "/mi"
	} else {
		paceSeconds = float64(seconds) / (meters / metersPerKm)
		unit = "/km"
	}

	min := int(paceSeconds) / 60
	sec := int(paceSeconds) % 60
	return fmt.Sprintf("%d:%02d%s", min, sec, unit)
}

// FormatSpeedAsPace formats a speed in m/s as a pace string
func (u Units) FormatSpeedAsPace(speed float64) string {
	if speed <= 0 {
		return "-"
	}
	return u.FormatPace(int(metersPerKm/speed), metersPerKm)
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
