package host

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/fluxsaver/internal/displaylink"
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/surface"
)

// State is the render host lifecycle state.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Resizing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Resizing:
		return "resizing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Geometry is a view size in points and in backing pixels.
type Geometry struct {
	Logical  engine.Size
	Physical engine.Size
}

func (g Geometry) String() string {
	return fmt.Sprintf("%s (physical %s)", g.Logical, g.Physical)
}

// Scaled builds a Geometry from a logical size and a display scale factor.
func Scaled(width, height, scale float64) Geometry {
	return Geometry{
		Logical:  engine.Size{Width: width, Height: height},
		Physical: engine.Size{Width: width * scale, Height: height * scale},
	}
}

// Surface is the locking half of surface.Surface.
type Surface interface {
	WithLock(body func(l *surface.Locked) error) error
}

// Scheduler is the tick source half of displaylink.Scheduler.
type Scheduler interface {
	Start(target displaylink.Target) error
	Stop()
}

// Observer is told about every rendered or failed frame.
type Observer interface {
	OnFrame(timeMillis float64, err error)
}

type EventKind int

const (
	// EventStepFailed is a rate-limited report of per-frame failures.
	EventStepFailed EventKind = iota
	// EventPersistentFailure fires once when consecutive failures reach the threshold.
	EventPersistentFailure
	// EventResizeFailed reports a recoverable resize failure.
	EventResizeFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStepFailed:
		return "step-failed"
	case EventPersistentFailure:
		return "persistent-failure"
	case EventResizeFailed:
		return "resize-failed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a host-level error report.
type Event struct {
	Kind EventKind
	Err  error
	// Count is the number of failures the event stands for, including
	// ones suppressed by rate limiting.
	Count int
	At    time.Time
}

// Options configure a Host. Zero values pick the defaults below.
type Options struct {
	// Settings is the engine configuration document, passed verbatim.
	Settings         string
	// View is attached to the surface on Start.
	View             surface.View
	// FadeIn clears to black with rising alpha for this long after the
	// first frame instead of stepping the engine.
	FadeIn           time.Duration
	// FailureThreshold consecutive step failures raise EventPersistentFailure.
	FailureThreshold int
	// ReportInterval is the minimum spacing of EventStepFailed reports.
	ReportInterval   time.Duration
	Logger           *slog.Logger
	// Events receives host events. Sends never block; events are dropped
	// when the channel is full.
	Events           chan<- Event
}

const (
	DefaultFailureThreshold = 120
	DefaultReportInterval   = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	return o
}
