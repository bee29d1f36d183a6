// Package saver assembles a windowed screensaver session: glfw window and
// context, vsync-driven scheduler, render host and event shell.
package saver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/fluxsaver/internal/config"
	"github.com/san-kum/fluxsaver/internal/displaylink"
	"github.com/san-kum/fluxsaver/internal/host"
	"github.com/san-kum/fluxsaver/internal/metrics"
	"github.com/san-kum/fluxsaver/internal/platform"
	"github.com/san-kum/fluxsaver/internal/surface"
)

type Options struct {
	Config *config.Config
	Mode   platform.Mode
	Width  int
	Height int
	// Recorder, when set, observes every frame.
	Recorder *metrics.Recorder
	// ConfigPath, when set, is watched and the engine is recreated with the
	// new settings each time the file changes.
	ConfigPath string
}

// Run shows the screensaver until the window closes, input ends it, or ctx
// is done. It must be called from the main goroutine.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	policy, err := displaylink.ParsePolicy(cfg.TimePolicy)
	if err != nil {
		return err
	}
	drv, err := NewRegistry().Get(cfg.Driver)
	if err != nil {
		return err
	}
	settings, err := cfg.SettingsText()
	if err != nil {
		return fmt.Errorf("saver: settings: %w", err)
	}

	if err := platform.Init(); err != nil {
		return err
	}
	defer platform.Terminate()

	backend := &platform.Backend{Title: "Flux", Mode: opts.Mode, Width: opts.Width, Height: opts.Height}
	surf, err := surface.New(backend, surface.Profile{
		Major:        cfg.Profile.Major,
		Minor:        cfg.Profile.Minor,
		Core:         true,
		TripleBuffer: cfg.Profile.TripleBuffer,
	})
	if err != nil {
		return err
	}
	defer surf.Destroy()
	win := backend.Window()

	sched := displaylink.New(platform.NewVsyncSource(), policy)
	events := make(chan host.Event, 8)
	h := host.New(surf, drv, sched, host.Options{
		Settings:         settings,
		View:             win,
		FadeIn:           cfg.FadeIn(),
		FailureThreshold: cfg.FailureThreshold,
		ReportInterval:   cfg.ReportInterval(),
		Events:           events,
	})
	if opts.Recorder != nil {
		h.AddObserver(opts.Recorder)
	}

	evCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watch(evCtx, events)

	shell := platform.NewShell(win, h, opts.Mode, cfg.ExitMotionPx)
	if opts.ConfigPath != "" {
		err := config.Watch(evCtx, opts.ConfigPath, func(next *config.Config) {
			text, err := next.SettingsText()
			if err != nil {
				slog.Warn("saver: settings not applied", "error", err)
				return
			}
			shell.Do(func() { restart(h, text) })
		})
		if err != nil {
			slog.Warn("saver: settings will not reload", "error", err)
		}
	}

	slog.Info("saver: starting", "driver", drv.Name(), "mode", opts.Mode, "policy", policy)
	return shell.Run(ctx)
}

func restart(h *host.Host, settings string) {
	if err := h.Restart(settings); err != nil {
		slog.Error("saver: restart with new settings failed", "error", err)
		return
	}
	slog.Info("saver: engine restarted with new settings")
}

func watch(ctx context.Context, events <-chan host.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Kind == host.EventPersistentFailure {
				slog.Error("saver: engine keeps failing", "frames", ev.Count, "error", ev.Err)
				continue
			}
			slog.Debug("saver: host event", "kind", ev.Kind, "count", ev.Count, "error", ev.Err)
		}
	}
}
