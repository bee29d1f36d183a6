package host

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/fluxsaver/internal/displaylink"
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/fault"
	"github.com/san-kum/fluxsaver/internal/surface"
)

var errStaleTick = errors.New("host: stale tick")

// Host owns the surface and the engine handle and runs the
// start/stop/resize state machine. Every touch of the GL context, the engine
// handle, the geometry and the frame time happens inside one surface lock
// acquisition, so ticks from the scheduler goroutine and lifecycle calls from
// the main thread are totally ordered.
type Host struct {
	surface Surface
	driver  engine.Driver
	sched   Scheduler
	opts    Options
	log     *slog.Logger

	// lifecycle serializes Start, Stop and OnResize callers.
	lifecycle sync.Mutex
	// state mirrors the lifecycle state for lock-free IsRunning queries.
	// It is only written with the surface lock held.
	state atomic.Int32

	// guarded by the surface lock
	handle     *engine.Handle
	geom       Geometry
	frameTime  float64
	epoch      float64
	haveEpoch  bool
	generation uint64
	failures   int
	escalated  bool
	limiter    limiter
	observers  []Observer
}

func New(s Surface, drv engine.Driver, sched Scheduler, opts Options) *Host {
	opts = opts.withDefaults()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		surface: s,
		driver:  drv,
		sched:   sched,
		opts:    opts,
		log:     log,
		limiter: limiter{interval: opts.ReportInterval},
	}
}

// AddObserver registers o for frame notifications.
func (h *Host) AddObserver(o Observer) {
	_ = h.surface.WithLock(func(*surface.Locked) error {
		h.observers = append(h.observers, o)
		return nil
	})
}

func (h *Host) State() State { return State(h.state.Load()) }

// IsRunning reports whether the engine is alive and ticks are being rendered.
func (h *Host) IsRunning() bool {
	s := h.State()
	return s == Running || s == Resizing
}

func (h *Host) setState(s State) { h.state.Store(int32(s)) }

// Geometry returns the size the engine is currently rendering at.
func (h *Host) Geometry() Geometry {
	var g Geometry
	_ = h.surface.WithLock(func(*surface.Locked) error {
		g = h.geom
		return nil
	})
	return g
}

// FrameTime returns the time passed to the most recent step.
func (h *Host) FrameTime() float64 {
	var t float64
	_ = h.surface.WithLock(func(*surface.Locked) error {
		t = h.frameTime
		return nil
	})
	return t
}

// EngineAlive reports whether the host currently owns a live engine.
func (h *Host) EngineAlive() bool {
	var alive bool
	_ = h.surface.WithLock(func(*surface.Locked) error {
		alive = h.handle.Alive()
		return nil
	})
	return alive
}

// Start creates the engine at geom and begins rendering. Calling Start on a
// running host does nothing. If the engine cannot be created the host stays
// Stopped and the error is returned.
func (h *Host) Start(geom Geometry) error {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if h.State() != Stopped {
		return nil
	}

	var gen uint64
	err := h.surface.WithLock(func(l *surface.Locked) error {
		h.setState(Starting)
		if h.opts.View != nil {
			if err := l.Attach(h.opts.View); err != nil {
				h.setState(Stopped)
				return err
			}
		}
		if err := l.MakeCurrent(); err != nil {
			h.setState(Stopped)
			return err
		}
		handle, err := engine.Create(h.driver, geom.Logical, geom.Physical, h.opts.Settings)
		if err != nil {
			h.setState(Stopped)
			return err
		}
		h.handle = handle
		h.geom = geom
		h.frameTime, h.epoch, h.haveEpoch = 0, 0, false
		h.failures, h.escalated = 0, false
		h.limiter.reset()
		h.generation++
		gen = h.generation
		h.setState(Running)
		return nil
	})
	if err != nil {
		h.log.Error("host: start failed", "engine", h.driver.Name(), "geometry", geom, "error", err)
		return &fault.Error{Op: "start", Wrapped: err}
	}

	target := displaylink.TargetFunc(func(t float64) { h.tick(gen, t) })
	if err := h.sched.Start(target); err != nil {
		h.teardown()
		h.log.Error("host: display link failed, engine destroyed", "error", err)
		return &fault.Error{Op: "start", Wrapped: fault.Wrap(fault.ErrSchedulerStartFailed, err)}
	}

	h.log.Info("host: started", "engine", h.driver.Name(), "geometry", geom, "generation", gen)
	return nil
}

// Stop halts the scheduler, waiting for any in-flight tick, then destroys
// the engine. Stop is idempotent.
func (h *Host) Stop() {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.sched.Stop()
	if h.teardown() {
		h.log.Info("host: stopped", "engine", h.driver.Name())
	}
}

// Restart replaces the engine settings. A running host is stopped and
// started again at its current geometry, so the new engine is created from
// the new settings; a stopped host uses them on its next Start.
func (h *Host) Restart(settings string) error {
	h.lifecycle.Lock()
	h.opts.Settings = settings
	running := h.State() != Stopped
	h.lifecycle.Unlock()

	if !running {
		return nil
	}
	geom := h.Geometry()
	h.Stop()
	return h.Start(geom)
}

// teardown destroys the engine under the lock and reports whether there was
// one to destroy.
func (h *Host) teardown() bool {
	var destroyed bool
	_ = h.surface.WithLock(func(l *surface.Locked) error {
		if h.handle == nil {
			h.setState(Stopped)
			return nil
		}
		if err := l.MakeCurrent(); err != nil {
			h.log.Warn("host: destroying engine without a current context", "error", err)
		}
		h.handle.Destroy()
		h.handle = nil
		// invalidate any tick closure from this run
		h.generation++
		h.setState(Stopped)
		destroyed = true
		return nil
	})
	return destroyed
}

// OnResize detaches the view, resizes the engine and reattaches the view,
// all under the lock ticks render with, so no frame sees a partial resize.
// On failure the engine keeps rendering at the previous geometry and the
// error is returned; the next successful resize recovers.
func (h *Host) OnResize(geom Geometry) error {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if h.State() != Running {
		h.log.Debug("host: resize ignored while not running", "geometry", geom)
		return nil
	}

	err := h.surface.WithLock(func(l *surface.Locked) error {
		h.setState(Resizing)
		defer h.setState(Running)

		view := l.View()
		if err := l.Detach(); err != nil {
			return err
		}
		defer func() {
			if view != nil {
				_ = l.Attach(view)
			}
		}()

		if err := l.MakeCurrent(); err != nil {
			return err
		}
		if err := h.handle.Resize(geom.Logical, geom.Physical); err != nil {
			return err
		}
		h.geom = geom
		return nil
	})
	if err != nil {
		h.log.Warn("host: resize failed, keeping previous geometry", "geometry", geom, "error", err)
		h.emit(Event{Kind: EventResizeFailed, Err: err, Count: 1, At: time.Now()})
		return &fault.Error{Op: "resize", Wrapped: err}
	}
	h.log.Debug("host: resized", "geometry", geom)
	return nil
}

// OnTick renders one frame at t for the current run. The scheduler path
// uses a closure bound to its run instead, so ticks from a stopped run are
// dropped.
func (h *Host) OnTick(t float64) {
	h.tick(0, t)
}

func (h *Host) tick(gen uint64, t float64) {
	var observers []Observer
	var frameErr error

	err := h.surface.WithLock(func(l *surface.Locked) error {
		if (gen != 0 && gen != h.generation) || h.State() != Running {
			return errStaleTick
		}
		if t < h.frameTime {
			t = h.frameTime
		}
		h.frameTime = t
		if !h.haveEpoch {
			h.epoch, h.haveEpoch = t, true
		}
		observers = h.observers

		frameErr = h.render(l, t)
		h.account(frameErr)
		return nil
	})
	if errors.Is(err, errStaleTick) {
		return
	}
	if err != nil {
		frameErr = err
	}
	for _, o := range observers {
		o.OnFrame(t, frameErr)
	}
}

func (h *Host) render(l *surface.Locked, t float64) error {
	if err := l.MakeCurrent(); err != nil {
		return err
	}
	if fade := float64(h.opts.FadeIn.Milliseconds()); fade > 0 && t-h.epoch < fade {
		if err := l.Clear(0, 0, 0, float32((t-h.epoch)/fade)); err != nil {
			return err
		}
	} else if err := h.handle.Step(t); err != nil {
		return err
	}
	return l.SwapBuffers()
}

// account tracks consecutive frame failures. Failures never stop the loop;
// they are reported at most once per ReportInterval, and once more when
// they persist past FailureThreshold.
func (h *Host) account(err error) {
	if err == nil {
		if h.failures > 0 {
			h.log.Info("host: rendering recovered", "failed_frames", h.failures)
		}
		h.failures, h.escalated = 0, false
		return
	}

	h.failures++
	now := time.Now()
	if ok, count := h.limiter.allow(now); ok {
		h.log.Warn("host: frame failed", "error", err, "count", count)
		h.emit(Event{Kind: EventStepFailed, Err: err, Count: count, At: now})
	}
	if h.failures >= h.opts.FailureThreshold && !h.escalated {
		h.escalated = true
		h.log.Error("host: persistent frame failures", "consecutive", h.failures, "error", err)
		h.emit(Event{Kind: EventPersistentFailure, Err: err, Count: h.failures, At: now})
	}
}

func (h *Host) emit(ev Event) {
	if h.opts.Events == nil {
		return
	}
	select {
	case h.opts.Events <- ev:
	default:
	}
}
