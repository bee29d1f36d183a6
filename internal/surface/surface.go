package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/fluxsaver/internal/fault"
)

var (
	ErrLockNotHeld = errors.New("surface: lock not held")
	ErrNotCurrent  = errors.New("surface: context not current")
	ErrNoView      = errors.New("surface: no view attached")
	ErrDestroyed   = errors.New("surface: destroyed")
)

// Profile is the requested GL version and buffering.
type Profile struct {
	Major        int
	Minor        int
	Core         bool
	TripleBuffer bool
}

func (p Profile) String() string {
	kind := "compat"
	if p.Core {
		kind = "core"
	}
	return fmt.Sprintf("%d.%d %s", p.Major, p.Minor, kind)
}

// DefaultProfile is GL 4.1 core, the highest version macOS offers.
var DefaultProfile = Profile{Major: 4, Minor: 1, Core: true, TripleBuffer: true}

// PixelFormat is what the backend actually selected.
type PixelFormat struct {
	Profile     Profile
	Accelerated bool
	ColorBits   int
	Buffers     int
}

// View is the drawable a context renders into.
type View interface {
	FramebufferSize() (int, int)
}

// Backend creates pixel formats and contexts for one platform.
type Backend interface {
	ChoosePixelFormat(hint Profile) (PixelFormat, error)
	CreateContext(format PixelFormat) (Context, error)
}

// Context is a platform rendering context. Implementations need not be
// goroutine safe; Surface serializes every call.
type Context interface {
	MakeCurrent() error
	Release()
	SetView(v View)
	SwapBuffers() error
	Clear(r, g, b, a float32)
	Destroy()
}

// Surface owns the pixel format and the single rendering context.
type Surface struct {
	mu        sync.Mutex
	format    PixelFormat
	ctx       Context
	view      View
	current   bool
	destroyed bool
}

// New selects a pixel format for hint and creates the context. It never
// degrades to a weaker format: the backend either satisfies hint or fails.
func New(b Backend, hint Profile) (*Surface, error) {
	format, err := b.ChoosePixelFormat(hint)
	if err != nil {
		return nil, fault.Wrap(fault.ErrPixelFormatUnavailable, err)
	}
	if !format.Accelerated || format.Buffers < 2 || format.ColorBits < 24 {
		return nil, fmt.Errorf("%w: backend offered %+v", fault.ErrPixelFormatUnavailable, format)
	}
	ctx, err := b.CreateContext(format)
	if err != nil {
		return nil, fault.Wrap(fault.ErrContextCreationFailed, err)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: backend returned no context", fault.ErrContextCreationFailed)
	}
	return &Surface{format: format, ctx: ctx}, nil
}

func (s *Surface) Format() PixelFormat { return s.format }

// WithLock runs body while holding the surface lock. A context made current
// inside body is released before the lock is, on every exit path.
func (s *Surface) WithLock(body func(l *Locked) error) error {
	s.mu.Lock()
	l := &Locked{s: s, held: true}
	defer func() {
		l.held = false
		if s.current {
			s.ctx.Release()
			s.current = false
		}
		s.mu.Unlock()
	}()
	if s.destroyed {
		return ErrDestroyed
	}
	return body(l)
}

// Destroy releases the context. Safe to call more than once.
func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.view = nil
	s.ctx.Destroy()
}

// Locked is proof that the surface lock is held. It is only valid inside
// the WithLock body that produced it.
type Locked struct {
	s    *Surface
	held bool
}

func (l *Locked) MakeCurrent() error {
	if !l.held {
		return ErrLockNotHeld
	}
	if l.s.current {
		return nil
	}
	if err := l.s.ctx.MakeCurrent(); err != nil {
		return fault.Wrap(fault.ErrContextCreationFailed, err)
	}
	l.s.current = true
	return nil
}

// Attach binds v as the render target. Attaching the current view is a no-op.
func (l *Locked) Attach(v View) error {
	if !l.held {
		return ErrLockNotHeld
	}
	if v == nil || l.s.view == v {
		return nil
	}
	l.s.view = v
	l.s.ctx.SetView(v)
	return nil
}

// Detach unbinds the render target. Detaching twice is a no-op.
func (l *Locked) Detach() error {
	if !l.held {
		return ErrLockNotHeld
	}
	if l.s.view == nil {
		return nil
	}
	l.s.view = nil
	l.s.ctx.SetView(nil)
	return nil
}

// View returns the attached view, or nil while detached.
func (l *Locked) View() View {
	if !l.held {
		return nil
	}
	return l.s.view
}

func (l *Locked) SwapBuffers() error {
	if !l.held {
		return ErrLockNotHeld
	}
	if !l.s.current {
		return ErrNotCurrent
	}
	if l.s.view == nil {
		return ErrNoView
	}
	return l.s.ctx.SwapBuffers()
}

func (l *Locked) Clear(r, g, b, a float32) error {
	if !l.held {
		return ErrLockNotHeld
	}
	if !l.s.current {
		return ErrNotCurrent
	}
	l.s.ctx.Clear(r, g, b, a)
	return nil
}
