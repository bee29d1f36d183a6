package surface

import (
	"fmt"
	"sync/atomic"
)

// Headless is a Backend without a display. It validates profiles the way a
// real driver would and counts presented frames, which makes it usable for
// benchmarking the host loop and for tests.
type Headless struct {
	// MaxMajor and MaxMinor cap the GL version the backend pretends to support.
	MaxMajor, MaxMinor int
	// FailContext makes CreateContext fail.
	FailContext bool

	Swaps atomic.Int64
}

func NewHeadless() *Headless {
	return &Headless{MaxMajor: 4, MaxMinor: 6}
}

func (h *Headless) ChoosePixelFormat(hint Profile) (PixelFormat, error) {
	if hint.Major < 2 {
		return PixelFormat{}, fmt.Errorf("headless: GL %s is not a real version", hint)
	}
	if hint.Major > h.MaxMajor || (hint.Major == h.MaxMajor && hint.Minor > h.MaxMinor) {
		return PixelFormat{}, fmt.Errorf("headless: GL %s exceeds %d.%d", hint, h.MaxMajor, h.MaxMinor)
	}
	if hint.Core && (hint.Major < 3 || (hint.Major == 3 && hint.Minor < 2)) {
		return PixelFormat{}, fmt.Errorf("headless: core profile needs GL 3.2, asked for %s", hint)
	}
	buffers := 2
	if hint.TripleBuffer {
		buffers = 3
	}
	return PixelFormat{Profile: hint, Accelerated: true, ColorBits: 32, Buffers: buffers}, nil
}

func (h *Headless) CreateContext(format PixelFormat) (Context, error) {
	if h.FailContext {
		return nil, fmt.Errorf("headless: context creation disabled")
	}
	return &headlessContext{backend: h}, nil
}

type headlessContext struct {
	backend *Headless
	view    View
}

func (c *headlessContext) MakeCurrent() error       { return nil }
func (c *headlessContext) Release()                 {}
func (c *headlessContext) SetView(v View)           { c.view = v }
func (c *headlessContext) Clear(r, g, b, a float32) {}
func (c *headlessContext) Destroy()                 { c.view = nil }

func (c *headlessContext) SwapBuffers() error {
	c.backend.Swaps.Add(1)
	return nil
}

// FixedView is a View with a constant framebuffer size.
type FixedView struct {
	Width, Height int
}

func (v *FixedView) FramebufferSize() (int, int) { return v.Width, v.Height }
