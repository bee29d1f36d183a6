// Package fault holds the error taxonomy shared by the surface, engine,
// scheduler and host layers so that errors.Is works across all of them.
package fault

import (
	"errors"
	"fmt"
)

// Host errors. Construction-time failures (pixel format, context) are fatal
// to startup; the others are reported to the caller and leave the host in a
// well-defined state.
var (
	// ErrPixelFormatUnavailable indicates the platform cannot satisfy the requested GL profile.
	ErrPixelFormatUnavailable = errors.New("fluxsaver: no pixel format satisfies the requested profile")

	// ErrContextCreationFailed indicates the rendering context could not be created or made current.
	ErrContextCreationFailed = errors.New("fluxsaver: rendering context creation failed")

	// ErrEngineCreateFailed indicates the simulation engine refused to start.
	ErrEngineCreateFailed = errors.New("fluxsaver: engine create failed")

	// ErrEngineResizeFailed indicates the engine could not reallocate for a new size.
	ErrEngineResizeFailed = errors.New("fluxsaver: engine resize failed")

	// ErrSchedulerStartFailed indicates the display refresh source could not be opened.
	ErrSchedulerStartFailed = errors.New("fluxsaver: display link start failed")

	// ErrDeadHandle indicates an operation on a destroyed engine handle.
	ErrDeadHandle = errors.New("fluxsaver: engine handle destroyed")
)

// Error wraps a failure with the host operation that produced it.
type Error struct {
	Op      string
	Wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Wrapped)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Wrap tags err with the sentinel kind unless it already carries it.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
