package platform

import (
	"context"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/host"
	"github.com/san-kum/fluxsaver/internal/platform/input"
)

// Host is the part of the render host the shell drives.
type Host interface {
	Start(geom host.Geometry) error
	Stop()
	OnResize(geom host.Geometry) error
	IsRunning() bool
}

// Shell owns the window's event loop for one session.
type Shell struct {
	win   *Window
	host  Host
	mode  Mode
	guard *input.Guard
	log   *slog.Logger
	calls chan func()
}

func NewShell(win *Window, h Host, mode Mode, exitMotionPx float64) *Shell {
	return &Shell{
		win:   win,
		host:  h,
		mode:  mode,
		guard: input.NewGuard(exitMotionPx, mode == Fullscreen),
		log:   slog.Default(),
		calls: make(chan func(), 4),
	}
}

// Do queues fn to run on the event loop's thread and wakes the loop. It is
// safe to call from any goroutine while Run is active.
func (s *Shell) Do(fn func()) {
	s.calls <- fn
	glfw.PostEmptyEvent()
}

// Geometry reads the window's current logical and physical size.
func (s *Shell) Geometry() host.Geometry {
	w, h := s.win.Size()
	fw, fh := s.win.FramebufferSize()
	return host.Geometry{
		Logical:  engine.Size{Width: float64(w), Height: float64(h)},
		Physical: engine.Size{Width: float64(fw), Height: float64(fh)},
	}
}

// Run starts the host and pumps events until the window closes, input ends a
// fullscreen session, or ctx is done. The host is stopped before Run
// returns. Run must be called on the main thread.
func (s *Shell) Run(ctx context.Context) error {
	s.install()

	if err := s.host.Start(s.Geometry()); err != nil {
		return err
	}
	defer s.host.Stop()

	stop := context.AfterFunc(ctx, glfw.PostEmptyEvent)
	defer stop()

	for !s.win.w.ShouldClose() && ctx.Err() == nil {
		glfw.WaitEventsTimeout(0.25)
		s.drain()
	}
	s.log.Info("platform: session ending", "mode", s.mode)
	return nil
}

func (s *Shell) drain() {
	for {
		select {
		case fn := <-s.calls:
			fn()
		default:
			return
		}
	}
}

func (s *Shell) install() {
	w := s.win.w
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if width == 0 || height == 0 || !s.host.IsRunning() {
			return
		}
		geom := s.Geometry()
		if err := s.host.OnResize(geom); err != nil {
			s.log.Warn("platform: resize rejected", "geometry", geom, "error", err)
		}
	})
	w.SetKeyCallback(func(_ *glfw.Window, _ glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Press {
			s.feed(input.Event{Kind: input.KeyDown})
		}
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, _ glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Press {
			s.feed(input.Event{Kind: input.MouseButton})
		}
	})
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		s.feed(input.Event{Kind: input.MouseMove, X: x, Y: y})
	})
}

func (s *Shell) feed(ev input.Event) {
	if s.guard.ShouldExit(ev) {
		s.log.Info("platform: input ends session")
		s.win.w.SetShouldClose(true)
	}
}
