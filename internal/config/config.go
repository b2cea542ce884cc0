package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Garmin   GarminConfig   `json:"garmin"`
	Baseline BaselineConfig `json:"baseline"`
	Display  DisplayConfig  `json:"display"`
}

// GarminConfig holds Garmin Connect API credentials
type GarminConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// BaselineConfig holds baseline training settings
type BaselineConfig struct {
	MinSamples int `json:"min_samples"`
	WindowDays int `json:"window_days"`
	Workers    int `json:"workers"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit"`
	PaceUnit     string `json:"pace_unit"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Baseline: BaselineConfig{
			MinSamples: 30,
			WindowDays: 60,
			Workers:    4,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
	}
}

// Load reads the configuration from ~/.runform/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if cfg.Baseline.MinSamples == 0 {
		cfg.Baseline.MinSamples = defaults.Baseline.MinSamples
	}
	if cfg.Baseline.WindowDays == 0 {
		cfg.Baseline.WindowDays = defaults.Baseline.WindowDays
	}
	if cfg.Baseline.Workers == 0 {
		cfg.Baseline.Workers = defaults.Baseline.Workers
	}
	if cfg.Display.DistanceUnit == "" {
		cfg.Display.DistanceUnit = defaults.Display.DistanceUnit
	}
	if cfg.Display.PaceUnit == "" {
		cfg.Display.PaceUnit = defaults.Display.PaceUnit
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.runform/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := Config{
		Garmin: GarminConfig{
			ClientID:     "YOUR_CLIENT_ID",
			ClientSecret: "YOUR_CLIENT_SECRET",
		},
		Baseline: BaselineConfig{
			MinSamples: 30,
			WindowDays: 60,
			Workers:    4,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
	}

	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Garmin.ClientID == "" || c.Garmin.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("garmin.client_id is required - get it from https://developer.garmin.com")
	}
	if c.Garmin.ClientSecret == "" || c.Garmin.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("garmin.client_secret is required - get it from https://developer.garmin.com")
	}

	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if c.Baseline.MinSamples < 0 {
		return fmt.Errorf("baseline.min_samples must be positive, got %d", c.Baseline.MinSamples)
	}
	if c.Baseline.WindowDays < 0 {
		return fmt.Errorf("baseline.window_days must be positive, got %d", c.Baseline.WindowDays)
	}
	if c.Baseline.Workers < 0 {
		return fmt.Errorf("baseline.workers must be positive, got %d", c.Baseline.Workers)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runform", "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runform"), nil
}
