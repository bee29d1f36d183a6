// Package input decides when user input ends a screensaver session.
package input

import "math"

type Kind int

const (
	KeyDown Kind = iota
	MouseButton
	MouseMove
)

// Event is the windowing-independent form of a user input.
type Event struct {
	Kind Kind
	X, Y float64
}

// Guard reports whether an input should end the session. Key presses and
// mouse buttons always do. Mouse motion does once the cursor has moved more
// than Threshold pixels from where it was first seen, so the cursor settling
// after the window appears does not count.
type Guard struct {
	Threshold float64
	Enabled   bool

	anchored bool
	ax, ay   float64
}

func NewGuard(threshold float64, enabled bool) *Guard {
	return &Guard{Threshold: threshold, Enabled: enabled}
}

func (g *Guard) ShouldExit(ev Event) bool {
	if !g.Enabled {
		return false
	}
	switch ev.Kind {
	case KeyDown, MouseButton:
		return true
	case MouseMove:
		if !g.anchored {
			g.ax, g.ay, g.anchored = ev.X, ev.Y, true
			return false
		}
		return math.Hypot(ev.X-g.ax, ev.Y-g.ay) > g.Threshold
	}
	return false
}

// Reset forgets the motion anchor.
func (g *Guard) Reset() { g.anchored = false }
