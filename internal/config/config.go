package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Version                 = "0.1.0"
	DefaultDriver           = "lines"
	DefaultTimePolicy       = "absolute"
	DefaultFadeInMs         = 300
	DefaultFailureThreshold = 120
	DefaultReportIntervalMs = 5000
	DefaultExitMotionPx     = 10.0
	DefaultRefreshHz        = 60.0
	FileName                = "settings.yaml"
)

type Config struct {
	Version          string        `yaml:"version"`
	LogLevel         string        `yaml:"log_level"`
	Driver           string        `yaml:"driver"`
	TimePolicy       string        `yaml:"time_policy"`
	Profile          ProfileConfig `yaml:"profile"`
	FadeInMs         int           `yaml:"fade_in_ms"`
	FailureThreshold int           `yaml:"failure_threshold"`
	ReportIntervalMs int           `yaml:"report_interval_ms"`
	ExitMotionPx     float64       `yaml:"exit_motion_px"`
	Flux             Settings      `yaml:"flux"`
}

type ProfileConfig struct {
	Major        int  `yaml:"major"`
	Minor        int  `yaml:"minor"`
	TripleBuffer bool `yaml:"triple_buffer"`
}

// Settings is the engine's configuration document. It is handed to the
// engine as JSON text, so the json tags are the engine's schema.
type Settings struct {
	Mode                     string         `yaml:"mode" json:"mode"`
	Viscosity                float64        `yaml:"viscosity" json:"viscosity"`
	VelocityDissipation      float64        `yaml:"velocity_dissipation" json:"velocityDissipation"`
	StartingPressure         string         `yaml:"starting_pressure" json:"startingPressure"`
	FluidSize                int            `yaml:"fluid_size" json:"fluidSize"`
	FluidSimulationFrameRate float64        `yaml:"fluid_simulation_frame_rate" json:"fluidSimulationFrameRate"`
	DiffusionIterations      int            `yaml:"diffusion_iterations" json:"diffusionIterations"`
	PressureIterations       int            `yaml:"pressure_iterations" json:"pressureIterations"`
	ColorScheme              string         `yaml:"color_scheme" json:"colorScheme"`
	LineLength               float64        `yaml:"line_length" json:"lineLength"`
	LineWidth                float64        `yaml:"line_width" json:"lineWidth"`
	LineBeginOffset          float64        `yaml:"line_begin_offset" json:"lineBeginOffset"`
	LineVariance             float64        `yaml:"line_variance" json:"lineVariance"`
	ViewScale                float64        `yaml:"view_scale" json:"viewScale"`
	GridSpacing              int            `yaml:"grid_spacing" json:"gridSpacing"`
	NoiseChannels            []NoiseChannel `yaml:"noise_channels" json:"noiseChannels"`
}

type NoiseChannel struct {
	Scale           float64 `yaml:"scale" json:"scale"`
	Multiplier      float64 `yaml:"multiplier" json:"multiplier"`
	OffsetIncrement float64 `yaml:"offset_increment" json:"offsetIncrement"`
}

func DefaultSettings() Settings {
	return Settings{
		Mode:                     "Normal",
		Viscosity:                5.0,
		VelocityDissipation:      0.0,
		StartingPressure:         "Inherit",
		FluidSize:                128,
		FluidSimulationFrameRate: 60.0,
		DiffusionIterations:      5,
		PressureIterations:       20,
		ColorScheme:              "Peacock",
		LineLength:               300.0,
		LineWidth:                5.0,
		LineBeginOffset:          0.5,
		LineVariance:             0.5,
		ViewScale:                1.6,
		GridSpacing:              21,
		NoiseChannels: []NoiseChannel{
			{Scale: 2.5, Multiplier: 1.0, OffsetIncrement: 0.0015},
			{Scale: 15.0, Multiplier: 0.7, OffsetIncrement: 0.0015},
			{Scale: 30.0, Multiplier: 0.5, OffsetIncrement: 0.0015},
		},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Version:          Version,
		LogLevel:         "warn",
		Driver:           DefaultDriver,
		TimePolicy:       DefaultTimePolicy,
		Profile:          ProfileConfig{Major: 4, Minor: 1, TripleBuffer: true},
		FadeInMs:         DefaultFadeInMs,
		FailureThreshold: DefaultFailureThreshold,
		ReportIntervalMs: DefaultReportIntervalMs,
		ExitMotionPx:     DefaultExitMotionPx,
		Flux:             DefaultSettings(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads dir/settings.yaml. A missing file is not an error: the
// defaults are used. A broken file is logged and also falls back to defaults.
func LoadOrDefault(dir string) *Config {
	if dir == "" {
		return DefaultConfig()
	}
	path := filepath.Join(dir, FileName)
	cfg, err := Load(path)
	switch {
	case err == nil:
		return cfg
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("config: no settings file, using defaults", "path", path)
	default:
		slog.Error("config: unusable settings file, using defaults", "path", path, "error", err)
	}
	return DefaultConfig()
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Version) == "" {
		return errors.New("config: version is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.TimePolicy {
	case "absolute", "accumulate":
	default:
		return fmt.Errorf("config: unknown time_policy %q", c.TimePolicy)
	}
	if c.Profile.Major < 3 {
		return fmt.Errorf("config: GL %d.%d core profile is not supported", c.Profile.Major, c.Profile.Minor)
	}
	if c.FadeInMs < 0 {
		return fmt.Errorf("config: fade_in_ms must not be negative, got %d", c.FadeInMs)
	}
	if c.Flux.FluidSize <= 0 || c.Flux.GridSpacing <= 0 {
		return errors.New("config: fluid_size and grid_spacing must be positive")
	}
	return nil
}

// SettingsText serializes the engine settings to the JSON document the
// engine consumes.
func (c *Config) SettingsText() (string, error) {
	data, err := json.Marshal(c.Flux)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown log_level %q", s)
	}
	return level, nil
}

func (c *Config) FadeIn() time.Duration {
	return time.Duration(c.FadeInMs) * time.Millisecond
}

func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalMs) * time.Millisecond
}
