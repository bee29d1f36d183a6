package displaylink

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Synthetic produces refresh timestamps at a nominal rate from the monotonic
// clock. It exists for headless benchmarks and must be chosen explicitly; the
// platform never substitutes it for a missing hardware source.
type Synthetic struct {
	RefreshHz float64
	// Jitter perturbs each wait by up to ±Jitter.
	Jitter time.Duration
	Seed   int64

	mu    sync.Mutex
	start time.Time
	next  time.Time
	rng   *rand.Rand
}

const nanoScale = int32(time.Second)

func (s *Synthetic) Open() error {
	if s.RefreshHz <= 0 {
		return fmt.Errorf("synthetic: refresh rate must be positive, got %g", s.RefreshHz)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = time.Now()
	s.next = s.start
	s.rng = rand.New(rand.NewSource(s.Seed))
	return nil
}

func (s *Synthetic) period() time.Duration {
	return time.Duration(float64(time.Second) / s.RefreshHz)
}

func (s *Synthetic) Wait(ctx context.Context) (Timestamp, error) {
	s.mu.Lock()
	if s.rng == nil {
		s.mu.Unlock()
		return Timestamp{}, errors.New("synthetic: source not open")
	}
	s.next = s.next.Add(s.period())
	deadline := s.next
	if s.Jitter > 0 {
		deadline = deadline.Add(time.Duration(s.rng.Int63n(int64(2*s.Jitter))) - s.Jitter)
	}
	s.mu.Unlock()

	if d := time.Until(deadline); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Timestamp{}, ctx.Err()
		case <-timer.C:
		}
	}

	return Timestamp{
		VideoTime:          int64(time.Since(s.start)),
		VideoTimeScale:     nanoScale,
		VideoRefreshPeriod: int64(s.period()),
		RateScalar:         1,
	}, nil
}

func (s *Synthetic) Close() error { return nil }

// Manual is a Source driven by the caller, one Tick at a time.
type Manual struct {
	// OpenErr makes Open fail.
	OpenErr error

	ticks  chan Timestamp
	mu     sync.Mutex
	opened int
	closed int
}

func NewManual() *Manual {
	return &Manual{ticks: make(chan Timestamp)}
}

func (m *Manual) Open() error {
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return nil
}

func (m *Manual) Wait(ctx context.Context) (Timestamp, error) {
	select {
	case <-ctx.Done():
		return Timestamp{}, ctx.Err()
	case ts := <-m.ticks:
		return ts, nil
	}
}

func (m *Manual) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

// Tick hands ts to the scheduler's Wait. It returns false if nobody took the
// tick before ctx was done.
func (m *Manual) Tick(ctx context.Context, ts Timestamp) bool {
	select {
	case m.ticks <- ts:
		return true
	case <-ctx.Done():
		return false
	}
}

// Counts returns how many times the source was opened and closed.
func (m *Manual) Counts() (opened, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened, m.closed
}

// Hz builds a timestamp for frame n of a display running at hz, expressed
// on a 60000 units/s time base. Handy for driving Manual.
func Hz(hz float64, n int64) Timestamp {
	const scale = 60000
	period := int64(float64(scale) / hz)
	return Timestamp{
		VideoTime:          n * period,
		VideoTimeScale:     scale,
		VideoRefreshPeriod: period,
		RateScalar:         1,
	}
}
