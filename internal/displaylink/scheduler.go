// Package displaylink delivers one callback per display refresh on a
// dedicated, OS-thread-locked goroutine.
//
// A [Source] blocks until the next refresh and reports its hardware
// timestamp; the [Scheduler] turns timestamps into frame time with a
// [FrameClock] and hands it to a [Target]. There is no software-timer
// fallback: if the source cannot be opened, Start fails.
//
// Stop blocks until the tick goroutine has exited, so a target never sees a
// tick from a scheduler run that was already stopped.
package displaylink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/san-kum/fluxsaver/internal/fault"
)

var ErrAlreadyRunning = errors.New("displaylink: already running")

// Source is a display refresh callback source.
type Source interface {
	Open() error
	// Wait blocks until the next refresh or until ctx is done.
	Wait(ctx context.Context) (Timestamp, error)
	Close() error
}

// Target receives frame times.
type Target interface {
	OnTick(timeMillis float64)
}

// TargetFunc adapts a closure to Target.
type TargetFunc func(timeMillis float64)

func (f TargetFunc) OnTick(timeMillis float64) { f(timeMillis) }

type Scheduler struct {
	src    Source
	policy Policy
	log    *slog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	generation uint64
}

func New(src Source, policy Policy) *Scheduler {
	return &Scheduler{src: src, policy: policy, log: slog.Default()}
}

func (s *Scheduler) SetLogger(l *slog.Logger) { s.log = l }

func (s *Scheduler) Policy() Policy { return s.policy }

// Generation counts scheduler runs; it increments on every successful Start.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Start opens the source and begins delivering ticks to target.
func (s *Scheduler) Start(target Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyRunning
	}
	if err := s.src.Open(); err != nil {
		return fault.Wrap(fault.ErrSchedulerStartFailed, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.generation++

	go s.run(ctx, s.generation, NewFrameClock(s.policy), target, done)
	s.log.Debug("displaylink: started", "generation", s.generation, "policy", s.policy)
	return nil
}

func (s *Scheduler) run(ctx context.Context, gen uint64, clock *FrameClock, target Target, done chan struct{}) {
	defer close(done)
	// The GL context is bound per OS thread; a tick must not migrate between
	// make-current and swap.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		ts, err := s.src.Wait(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Error("displaylink: refresh source failed, halting ticks", "generation", gen, "error", err)
			return
		}
		target.OnTick(clock.Advance(ts))
	}
}

// Stop halts delivery and waits for any in-flight tick to return. It must
// not be called from inside a tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	if err := s.src.Close(); err != nil {
		s.log.Warn("displaylink: closing source", "error", err)
	}
	s.cancel, s.done = nil, nil
	s.log.Debug("displaylink: stopped", "generation", s.generation)
}

// Running reports whether a tick goroutine is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("displaylink(%s)", s.policy)
}
