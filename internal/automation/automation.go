package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluxsaver/internal/bench"
	"github.com/san-kum/fluxsaver/internal/config"
)

// Scenario defines a scripted sequence of headless bench runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single bench run. Zero fields keep the base config.
type ScenarioStep struct {
	Driver     string  `yaml:"driver"`
	TimePolicy string  `yaml:"time_policy"`
	RefreshHz  float64 `yaml:"refresh_hz"`
	JitterMs   float64 `yaml:"jitter_ms"`
	Duration   float64 `yaml:"duration"`
	FadeInMs   *int    `yaml:"fade_in_ms"`
	Preset     string  `yaml:"preset"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	for i, step := range scenario.Steps {
		if step.Duration <= 0 {
			return nil, fmt.Errorf("scenario %q step %d: duration must be positive", scenario.Name, i+1)
		}
	}

	return &scenario, nil
}

// RunScenario executes all steps in order, stopping at the first failure
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config) ([]bench.Result, error) {
	results := make([]bench.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		opts, err := step.options(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		slog.Info("automation: step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "driver", opts.Driver, "hz", opts.RefreshHz)

		res, err := bench.Run(ctx, opts, seconds(step.Duration))
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, res)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

func (s ScenarioStep) options(base *config.Config) (bench.Options, error) {
	cfg := *base
	if s.Preset != "" {
		p := config.GetPreset(s.Preset)
		if p == nil {
			return bench.Options{}, fmt.Errorf("unknown preset: %s", s.Preset)
		}
		cfg.Flux = p.Flux
	}
	if s.TimePolicy != "" {
		cfg.TimePolicy = s.TimePolicy
	}
	if s.FadeInMs != nil {
		cfg.FadeInMs = *s.FadeInMs
	}
	return bench.Options{
		Config:    &cfg,
		Driver:    s.Driver,
		RefreshHz: s.RefreshHz,
		Jitter:    time.Duration(s.JitterMs * float64(time.Millisecond)),
	}, nil
}

// RefreshSweep runs the bench across a range of refresh rates
type RefreshSweep struct {
	Driver   string
	MinHz    float64
	MaxHz    float64
	NumSteps int
	Duration float64
	JitterMs float64
}

// SweepResult holds the outcome at one refresh rate
type SweepResult struct {
	RefreshHz  float64
	Frames     int
	IntervalMs float64
	JitterMs   float64
	Dropped    float64
}

// RunSweep executes a refresh-rate sweep
func RunSweep(ctx context.Context, sweep *RefreshSweep, base *config.Config) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}
	if sweep.MinHz <= 0 || sweep.MaxHz < sweep.MinHz {
		return nil, fmt.Errorf("invalid refresh range %g..%g", sweep.MinHz, sweep.MaxHz)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	hzStep := 0.0
	if sweep.NumSteps > 1 {
		hzStep = (sweep.MaxHz - sweep.MinHz) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		hz := sweep.MinHz + float64(i)*hzStep
		step := ScenarioStep{Driver: sweep.Driver, RefreshHz: hz, JitterMs: sweep.JitterMs, Duration: sweep.Duration}
		opts, err := step.options(base)
		if err != nil {
			return results, err
		}

		res, err := bench.Run(ctx, opts, seconds(sweep.Duration))
		if err != nil {
			return results, err
		}

		m := res.Meta.Metrics
		results = append(results, SweepResult{
			RefreshHz:  hz,
			Frames:     res.Meta.Frames,
			IntervalMs: m["frame_interval_ms"],
			JitterMs:   m["jitter_ms"],
			Dropped:    m["dropped_frames"],
		})
		slog.Info("automation: sweep", "step", i+1, "of", sweep.NumSteps, "hz", hz, "frames", res.Meta.Frames)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
