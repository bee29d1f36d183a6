// Package engine proxies the external simulation engine.
//
// The engine itself is opaque: a [Driver] creates [Instance] values that
// render into whatever GL context is current on the calling thread. [Handle]
// wraps one instance and tracks whether it is still alive, so that use after
// destroy fails explicitly instead of reaching freed engine memory.
//
// Handles hold no lock of their own. Every call must be made with the surface
// lock held and the context current; the render host enforces that.
package engine

import (
	"fmt"

	"github.com/san-kum/fluxsaver/internal/fault"
)

// Size is a width/height pair. Logical sizes are in window points, physical
// sizes in backing-store pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) String() string { return fmt.Sprintf("%gx%g", s.Width, s.Height) }

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// Driver is the engine's creation entry point.
type Driver interface {
	Name() string
	Create(logical, physical Size, settings string) (Instance, error)
}

// Instance is one live engine.
type Instance interface {
	Step(timeMillis float64) error
	Resize(logical, physical Size) error
	Destroy()
}

// Handle owns one engine instance.
type Handle struct {
	inst     Instance
	alive    bool
	logical  Size
	physical Size
}

// Create asks drv for a new engine. On failure no handle is returned and the
// caller must not proceed to step or resize.
func Create(drv Driver, logical, physical Size, settings string) (*Handle, error) {
	if !logical.Valid() || !physical.Valid() {
		return nil, fmt.Errorf("%w: unsupported size %s (physical %s)", fault.ErrEngineCreateFailed, logical, physical)
	}
	inst, err := drv.Create(logical, physical, settings)
	if err != nil {
		return nil, fault.Wrap(fault.ErrEngineCreateFailed, fmt.Errorf("%s: %w", drv.Name(), err))
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s returned no instance", fault.ErrEngineCreateFailed, drv.Name())
	}
	return &Handle{inst: inst, alive: true, logical: logical, physical: physical}, nil
}

func (h *Handle) Alive() bool { return h != nil && h.alive }

// Sizes returns the geometry the engine was last created or resized with.
func (h *Handle) Sizes() (logical, physical Size) { return h.logical, h.physical }

// Step renders one frame into the current context's back buffer.
func (h *Handle) Step(timeMillis float64) error {
	if !h.Alive() {
		return fault.ErrDeadHandle
	}
	return h.inst.Step(timeMillis)
}

// Resize reallocates the engine for a new geometry. The stored sizes only
// change when the engine accepted them.
func (h *Handle) Resize(logical, physical Size) error {
	if !h.Alive() {
		return fault.ErrDeadHandle
	}
	if !logical.Valid() || !physical.Valid() {
		return fmt.Errorf("%w: unsupported size %s (physical %s)", fault.ErrEngineResizeFailed, logical, physical)
	}
	if err := h.inst.Resize(logical, physical); err != nil {
		return fault.Wrap(fault.ErrEngineResizeFailed, err)
	}
	h.logical, h.physical = logical, physical
	return nil
}

// Destroy releases the engine. Further calls are no-ops.
func (h *Handle) Destroy() {
	if !h.Alive() {
		return
	}
	h.alive = false
	h.inst.Destroy()
	h.inst = nil
}
