// Package platform is the glfw shell around the render host: it creates the
// window and GL context, supplies the vsync source, pumps events and turns
// input into exit requests.
//
// glfw requires Init, window creation and event pumping on the main thread.
// Contexts may be made current, swapped and released from any thread.
package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/san-kum/fluxsaver/internal/fault"
)

// Init initializes glfw. Call it from the main goroutine with the OS thread
// locked.
func Init() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("platform: glfw init: %w", err)
	}
	slog.Debug("platform: glfw ready", "version", glfw.GetVersionString())
	return nil
}

func Terminate() { glfw.Terminate() }

// classify maps glfw error codes onto the shared error kinds.
func classify(err error) error {
	var gerr *glfw.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case glfw.FormatUnavailable, glfw.VersionUnavailable, glfw.APIUnavailable:
			return fault.Wrap(fault.ErrPixelFormatUnavailable, err)
		}
	}
	return fault.Wrap(fault.ErrContextCreationFailed, err)
}
