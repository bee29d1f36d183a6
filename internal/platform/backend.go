package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/san-kum/fluxsaver/internal/surface"
)

type Mode int

const (
	Fullscreen Mode = iota
	Preview
)

func (m Mode) String() string {
	if m == Preview {
		return "preview"
	}
	return "fullscreen"
}

// Backend creates one glfw window and its context. Fullscreen windows cover
// the primary monitor at its current video mode.
type Backend struct {
	Title  string
	Mode   Mode
	Width  int
	Height int

	window *glfw.Window
}

func (b *Backend) ChoosePixelFormat(hint surface.Profile) (surface.PixelFormat, error) {
	if hint.Major < 3 || (hint.Major == 3 && hint.Minor < 2) {
		return surface.PixelFormat{}, fmt.Errorf("platform: no core profile below 3.2, asked for %s", hint)
	}
	buffers := 2
	if hint.TripleBuffer {
		// glfw has no triple-buffer hint; the driver decides. Report what we ask for.
		buffers = 3
	}
	return surface.PixelFormat{
		Profile:     hint,
		Accelerated: true,
		ColorBits:   32,
		Buffers:     buffers,
	}, nil
}

func (b *Backend) CreateContext(format surface.PixelFormat) (surface.Context, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, format.Profile.Major)
	glfw.WindowHint(glfw.ContextVersionMinor, format.Profile.Minor)
	if format.Profile.Core {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHint(glfw.RedBits, 8)
	glfw.WindowHint(glfw.GreenBits, 8)
	glfw.WindowHint(glfw.BlueBits, 8)
	glfw.WindowHint(glfw.AlphaBits, 8)
	glfw.WindowHint(glfw.Samples, 0)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

	var monitor *glfw.Monitor
	width, height := b.Width, b.Height
	if b.Mode == Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		if monitor == nil {
			return nil, classify(fmt.Errorf("platform: no primary monitor"))
		}
		mode := monitor.GetVideoMode()
		width, height = mode.Width, mode.Height
		glfw.WindowHint(glfw.RefreshRate, mode.RefreshRate)
	}
	if width <= 0 || height <= 0 {
		width, height = 800, 600
	}

	win, err := glfw.CreateWindow(width, height, b.Title, monitor, nil)
	if err != nil {
		return nil, classify(err)
	}
	if b.Mode == Fullscreen {
		win.SetInputMode(glfw.CursorMode, glfw.CursorHidden)
	}
	b.window = win
	slog.Info("platform: window created", "mode", b.Mode, "width", width, "height", height, "profile", format.Profile)
	return &glContext{win: win}, nil
}

// Window is the created window, nil before CreateContext succeeds.
func (b *Backend) Window() *Window {
	if b.window == nil {
		return nil
	}
	return &Window{w: b.window}
}

var glInit sync.Once
var glInitErr error

type glContext struct {
	win    *glfw.Window
	view   surface.View
	primed bool
}

func (c *glContext) MakeCurrent() error {
	c.win.MakeContextCurrent()
	if c.primed {
		return nil
	}
	glInit.Do(func() {
		glInitErr = gl.Init()
		if glInitErr == nil {
			slog.Info("platform: GL ready", "version", gl.GoStr(gl.GetString(gl.VERSION)))
		}
	})
	if glInitErr != nil {
		glfw.DetachCurrentContext()
		return fmt.Errorf("platform: gl init: %w", glInitErr)
	}
	glfw.SwapInterval(1)
	c.primed = true
	return nil
}

func (c *glContext) Release() { glfw.DetachCurrentContext() }

func (c *glContext) SetView(v surface.View) { c.view = v }

func (c *glContext) SwapBuffers() error {
	c.win.SwapBuffers()
	return nil
}

func (c *glContext) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (c *glContext) Destroy() {
	c.win.Destroy()
}

// Window is the drawable the context presents into.
type Window struct {
	w *glfw.Window
}

func (w *Window) FramebufferSize() (int, int) { return w.w.GetFramebufferSize() }

func (w *Window) Size() (int, int) { return w.w.GetSize() }
