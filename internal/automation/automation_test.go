package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/fluxsaver/internal/config"
)

const scenarioYAML = `
name: pacing
description: accumulate vs absolute at 240Hz
steps:
  - refresh_hz: 240
    time_policy: accumulate
    duration: 0.1
    fade_in_ms: 0
  - refresh_hz: 240
    time_policy: absolute
    duration: 0.1
    preset: plasma
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScenario(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(scenario.Steps) != 2 || scenario.Steps[0].FadeInMs == nil {
		t.Fatalf("unexpected scenario %+v", scenario)
	}

	results, err := RunScenario(context.Background(), scenario, config.DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Meta.TimePolicy != "accumulate" || results[1].Meta.TimePolicy != "absolute" {
		t.Errorf("step policies not applied: %s, %s", results[0].Meta.TimePolicy, results[1].Meta.TimePolicy)
	}
	for i, r := range results {
		if r.Meta.Frames == 0 {
			t.Errorf("step %d recorded no frames", i+1)
		}
	}
}

func TestLoadScenarioRejectsEmpty(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Error("expected error for scenario without steps")
	}
	if _, err := LoadScenario(writeScenario(t, "name: x\nsteps:\n  - refresh_hz: 60\n")); err == nil {
		t.Error("expected error for step without duration")
	}
}

func TestRunScenarioUnknownPreset(t *testing.T) {
	scenario := &Scenario{Name: "bad", Steps: []ScenarioStep{{Preset: "nope", Duration: 0.05}}}
	results, err := RunScenario(context.Background(), scenario, config.DefaultConfig())
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &RefreshSweep{MinHz: 100, MaxHz: 300, NumSteps: 3, Duration: 0.08}
	results, err := RunSweep(context.Background(), sweep, config.DefaultConfig())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []float64{100, 200, 300}
	for i, r := range results {
		if r.RefreshHz != want[i] {
			t.Errorf("step %d: expected %gHz, got %g", i, want[i], r.RefreshHz)
		}
	}
	if results[2].Frames <= results[0].Frames {
		t.Errorf("expected more frames at 300Hz than at 100Hz, got %d vs %d", results[2].Frames, results[0].Frames)
	}
}

func TestRunSweepValidates(t *testing.T) {
	base := config.DefaultConfig()
	if _, err := RunSweep(context.Background(), &RefreshSweep{MinHz: 60, MaxHz: 30, NumSteps: 2}, base); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, err := RunSweep(context.Background(), &RefreshSweep{MinHz: 60, MaxHz: 60}, base); err == nil {
		t.Error("expected error for zero steps")
	}
}
