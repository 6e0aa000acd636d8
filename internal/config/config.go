// Package config loads and validates the YAML run configuration for
// batch reduction.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"saxs-abs/internal/logger"
	"saxs-abs/internal/norm"
)

// RunConfig drives a batch reduction run.
type RunConfig struct {
	MonitorMode string `yaml:"monitor_mode"`

	// K-factor calibration window
	QWindowMin    float64 `yaml:"q_window_min"`
	QWindowMax    float64 `yaml:"q_window_max"`
	PositiveFloor float64 `yaml:"positive_floor"`
	MinPoints     int     `yaml:"min_points"`

	// Absolute scaling
	KFactor          float64 `yaml:"k_factor"`
	FixedThicknessMM float64 `yaml:"fixed_thickness_mm"`
	AutoThickness    bool    `yaml:"auto_thickness"`
	MuLinearCmInv    float64 `yaml:"mu_linear_cm_inv"`
	MaterialPreset   string  `yaml:"material_preset,omitempty"`

	// Buffer subtraction
	BufferAlpha float64 `yaml:"buffer_alpha"`

	// Execution policy
	ResumeEnabled     bool `yaml:"resume_enabled"`
	OverwriteExisting bool `yaml:"overwrite_existing"`
	Workers           int  `yaml:"workers"`

	// Paths
	OutputDir     string  `yaml:"output_dir"`
	Background1D  string  `yaml:"background_1d,omitempty"`
	Dark1D        string  `yaml:"dark_1d,omitempty"`
	BackgroundExp float64 `yaml:"background_exp_s"`
	BackgroundI0  float64 `yaml:"background_i0"`
	BackgroundT   float64 `yaml:"background_trans"`
}

// Default returns the configuration used when no file is given.
func Default() RunConfig {
	return RunConfig{
		MonitorMode:      string(norm.ModeRate),
		QWindowMin:       0.01,
		QWindowMax:       0.2,
		PositiveFloor:    1e-9,
		MinPoints:        3,
		KFactor:          1.0,
		FixedThicknessMM: 1.0,
		BufferAlpha:      1.0,
		ResumeEnabled:    true,
		Workers:          4,
		OutputDir:        "abs_output",
	}
}

// Load reads a YAML config, filling unset fields from Default and
// validating the result.
func Load(path string) (RunConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg RunConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks hard constraints and warns on advisory ones.
func (c RunConfig) Validate() error {
	if _, err := norm.ParseMode(c.MonitorMode); err != nil {
		return err
	}
	if c.QWindowMin >= c.QWindowMax {
		return fmt.Errorf("q window invalid: min %g must be < max %g", c.QWindowMin, c.QWindowMax)
	}
	if c.MinPoints < 2 {
		return fmt.Errorf("min_points must be >= 2, got %d", c.MinPoints)
	}
	if c.KFactor <= 0 {
		return fmt.Errorf("k_factor must be > 0, got %g", c.KFactor)
	}
	if c.AutoThickness {
		if c.MuLinearCmInv <= 0 {
			return fmt.Errorf("auto thickness requires mu_linear_cm_inv > 0, got %g", c.MuLinearCmInv)
		}
	} else if c.FixedThicknessMM <= 0 {
		return fmt.Errorf("fixed_thickness_mm must be > 0, got %g", c.FixedThicknessMM)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.BufferAlpha < 0.8 || c.BufferAlpha > 1.2 {
		lg := logger.L()
		lg.Warn().
			Float64("alpha", c.BufferAlpha).
			Msg("configured buffer alpha far from 1.0")
	}
	return nil
}
