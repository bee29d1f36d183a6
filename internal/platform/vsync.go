package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/san-kum/fluxsaver/internal/displaylink"
)

var ErrNoDisplay = errors.New("platform: no display to synchronize with")

// VsyncSource reports refreshes of the primary monitor using the glfw timer.
// Buffer swaps with interval 1 block until vertical blank, so Wait only
// sleeps when the previous tick returned early, which keeps the cadence when
// the compositor does not throttle swaps.
type VsyncSource struct {
	mu        sync.Mutex
	refreshHz float64
	last      time.Time
	open      bool
}

func NewVsyncSource() *VsyncSource { return &VsyncSource{} }

// Open must be called on the main thread.
func (v *VsyncSource) Open() error {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return ErrNoDisplay
	}
	mode := monitor.GetVideoMode()
	if mode == nil || mode.RefreshRate <= 0 {
		return ErrNoDisplay
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refreshHz = float64(mode.RefreshRate)
	v.last = time.Time{}
	v.open = true
	return nil
}

func (v *VsyncSource) RefreshHz() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.refreshHz
}

func (v *VsyncSource) Wait(ctx context.Context) (displaylink.Timestamp, error) {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return displaylink.Timestamp{}, errors.New("platform: vsync source not open")
	}
	period := time.Duration(float64(time.Second) / v.refreshHz)
	last := v.last
	hz := v.refreshHz
	v.mu.Unlock()

	if !last.IsZero() {
		if elapsed := time.Since(last); elapsed < period/2 {
			timer := time.NewTimer(period - elapsed)
			select {
			case <-ctx.Done():
				timer.Stop()
				return displaylink.Timestamp{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return displaylink.Timestamp{}, err
	}

	now := time.Now()
	v.mu.Lock()
	v.last = now
	v.mu.Unlock()
	return displaylink.FromCounter(glfw.GetTimerValue(), glfw.GetTimerFrequency(), hz), nil
}

func (v *VsyncSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = false
	return nil
}
