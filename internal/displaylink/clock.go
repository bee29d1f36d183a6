package displaylink

import (
	"fmt"
	"math"
)

// Timestamp is one display refresh as reported by the hardware. Field
// meanings follow CoreVideo's CVTimeStamp.
type Timestamp struct {
	VideoTime          int64
	VideoTimeScale     int32
	VideoRefreshPeriod int64
	RateScalar         float64
}

// RefreshRate is rateScalar * videoTimeScale / videoRefreshPeriod, in Hz.
func (ts Timestamp) RefreshRate() float64 {
	if ts.VideoRefreshPeriod <= 0 || ts.VideoTimeScale <= 0 {
		return 0
	}
	scalar := ts.RateScalar
	if scalar == 0 {
		scalar = 1
	}
	return scalar * float64(ts.VideoTimeScale) / float64(ts.VideoRefreshPeriod)
}

// Millis is the absolute hardware time, 1000 * videoTime / videoTimeScale.
func (ts Timestamp) Millis() float64 {
	if ts.VideoTimeScale <= 0 {
		return 0
	}
	return 1000 * float64(ts.VideoTime) / float64(ts.VideoTimeScale)
}

// Policy selects how frame time is derived from refresh timestamps.
type Policy int

const (
	// PolicyAbsolute reads the hardware timestamp directly. It does not drift.
	PolicyAbsolute Policy = iota
	// PolicyAccumulate adds one nominal refresh interval per tick. It drifts
	// and stutters under variable refresh.
	PolicyAccumulate
)

func (p Policy) String() string {
	switch p {
	case PolicyAbsolute:
		return "absolute"
	case PolicyAccumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "absolute":
		return PolicyAbsolute, nil
	case "accumulate":
		return PolicyAccumulate, nil
	default:
		return 0, fmt.Errorf("unknown time policy: %s (want absolute or accumulate)", s)
	}
}

// FrameClock turns refresh timestamps into a non-decreasing frame time in
// milliseconds.
type FrameClock struct {
	policy  Policy
	current float64
}

func NewFrameClock(policy Policy) *FrameClock {
	return &FrameClock{policy: policy}
}

func (c *FrameClock) Current() float64 { return c.current }

// Advance moves the clock for one tick and returns the new time.
func (c *FrameClock) Advance(ts Timestamp) float64 {
	switch c.policy {
	case PolicyAccumulate:
		if rate := ts.RefreshRate(); rate > 0 {
			c.current += 1000 / rate
		}
	default:
		if ts.VideoTimeScale > 0 {
			if t := ts.Millis(); t > c.current {
				c.current = t
			}
		}
	}
	return c.current
}

// FromCounter converts a monotonic counter reading into a Timestamp. freq is
// the counter's ticks per second; it is reduced until it fits the 32-bit
// time scale, dividing the counter by the same factor.
func FromCounter(value, freq uint64, refreshHz float64) Timestamp {
	for freq > math.MaxInt32 {
		freq /= 10
		value /= 10
	}
	ts := Timestamp{VideoTime: int64(value), VideoTimeScale: int32(freq), RateScalar: 1}
	if refreshHz > 0 {
		ts.VideoRefreshPeriod = int64(math.Round(float64(freq) / refreshHz))
	}
	return ts
}
