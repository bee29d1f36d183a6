// Package bench drives the render host headlessly: a headless surface, a
// synthetic refresh source and a display-free engine driver. It measures the
// host loop itself.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/fluxsaver/internal/config"
	"github.com/san-kum/fluxsaver/internal/displaylink"
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/host"
	"github.com/san-kum/fluxsaver/internal/metrics"
	"github.com/san-kum/fluxsaver/internal/storage"
	"github.com/san-kum/fluxsaver/internal/surface"
)

type Options struct {
	Config    *config.Config
	Driver    string
	RefreshHz float64
	Jitter    time.Duration
	Width     float64
	Height    float64
	Scale     float64
	// Ring is how many recent frame times the recorder keeps for live views.
	Ring int
}

func (o Options) withDefaults() Options {
	if o.Config == nil {
		o.Config = config.DefaultConfig()
	}
	if o.Driver == "" {
		o.Driver = engine.NullName
	}
	if o.RefreshHz <= 0 {
		o.RefreshHz = config.DefaultRefreshHz
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 800, 600
	}
	if o.Scale <= 0 {
		o.Scale = 2
	}
	if o.Ring <= 0 {
		o.Ring = 240
	}
	return o
}

type Bench struct {
	opts     Options
	surface  *surface.Surface
	backend  *surface.Headless
	host     *host.Host
	recorder *metrics.Recorder
	events   chan host.Event
	settings string
	started  time.Time
	elapsed  time.Duration
}

type Result struct {
	Meta  storage.SessionMetadata
	Times []float64
}

func New(opts Options) (*Bench, error) {
	opts = opts.withDefaults()
	cfg := opts.Config

	policy, err := displaylink.ParsePolicy(cfg.TimePolicy)
	if err != nil {
		return nil, err
	}
	drv, err := engine.NewRegistry().Get(opts.Driver)
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	settings, err := cfg.SettingsText()
	if err != nil {
		return nil, err
	}

	backend := surface.NewHeadless()
	surf, err := surface.New(backend, surface.Profile{
		Major:        cfg.Profile.Major,
		Minor:        cfg.Profile.Minor,
		Core:         true,
		TripleBuffer: cfg.Profile.TripleBuffer,
	})
	if err != nil {
		return nil, err
	}

	src := &displaylink.Synthetic{RefreshHz: opts.RefreshHz, Jitter: opts.Jitter, Seed: 1}
	sched := displaylink.New(src, policy)
	events := make(chan host.Event, 16)
	h := host.New(surf, drv, sched, host.Options{
		Settings:         settings,
		View:             &surface.FixedView{Width: int(opts.Width * opts.Scale), Height: int(opts.Height * opts.Scale)},
		FadeIn:           cfg.FadeIn(),
		FailureThreshold: cfg.FailureThreshold,
		ReportInterval:   cfg.ReportInterval(),
		Events:           events,
	})
	rec := metrics.NewRecorder(opts.Ring, metrics.Standard(opts.RefreshHz)...).KeepAll()
	h.AddObserver(rec)

	return &Bench{
		opts:     opts,
		surface:  surf,
		backend:  backend,
		host:     h,
		recorder: rec,
		events:   events,
		settings: settings,
	}, nil
}

func (b *Bench) Start() error {
	geom := host.Scaled(b.opts.Width, b.opts.Height, b.opts.Scale)
	if err := b.host.Start(geom); err != nil {
		return err
	}
	b.started = time.Now()
	return nil
}

// Stop halts the host and returns the session. It also releases the surface,
// so a Bench runs once.
func (b *Bench) Stop() Result {
	b.host.Stop()
	if !b.started.IsZero() {
		b.elapsed = time.Since(b.started)
	}
	b.surface.Destroy()
	b.drain()

	times := b.recorder.Times()
	meta := storage.SessionMetadata{
		Driver:     b.opts.Driver,
		Source:     "synthetic",
		TimePolicy: b.opts.Config.TimePolicy,
		RefreshHz:  b.opts.RefreshHz,
		Duration:   b.elapsed.Seconds(),
		Frames:     len(times),
		Settings:   b.settings,
		Metrics:    b.recorder.Values(),
	}
	meta.Metrics["swaps"] = float64(b.backend.Swaps.Load())
	return Result{Meta: meta, Times: times}
}

func (b *Bench) drain() {
	for {
		select {
		case ev := <-b.events:
			slog.Warn("bench: host event", "kind", ev.Kind, "count", ev.Count, "error", ev.Err)
		default:
			return
		}
	}
}

func (b *Bench) Recorder() *metrics.Recorder { return b.recorder }

func (b *Bench) Host() *host.Host { return b.host }

// Run benchmarks for d, or until ctx is done.
func Run(ctx context.Context, opts Options, d time.Duration) (Result, error) {
	b, err := New(opts)
	if err != nil {
		return Result{}, err
	}
	if err := b.Start(); err != nil {
		b.surface.Destroy()
		return Result{}, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return b.Stop(), nil
}
