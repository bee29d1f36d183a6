package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fluxsaver/internal/displaylink"
	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/fault"
	"github.com/san-kum/fluxsaver/internal/surface"
)

const settings = `{"mode":"Normal","fluidSize":128}`

var _ = Describe("Host", func() {
	var (
		j       *journal
		backend *fakeBackend
		surf    *surface.Surface
		driver  *fakeDriver
		source  *displaylink.Manual
		sched   *displaylink.Scheduler
		events  chan Event
		opts    Options
		h       *Host
		geom    Geometry
	)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	newHost := func() *Host {
		return New(surf, driver, sched, opts)
	}

	tick := func(n int64) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(source.Tick(ctx, displaylink.Hz(60, n))).To(BeTrue(), "tick %d not consumed", n)
	}

	BeforeEach(func() {
		j = &journal{}
		backend = &fakeBackend{j: j}
		var err error
		surf, err = surface.New(backend, surface.DefaultProfile)
		Expect(err).NotTo(HaveOccurred())

		driver = &fakeDriver{j: j}
		source = displaylink.NewManual()
		sched = displaylink.New(source, displaylink.PolicyAbsolute)
		sched.SetLogger(quiet)
		events = make(chan Event, 16)
		opts = Options{
			Settings: settings,
			View:     &surface.FixedView{Width: 1600, Height: 1200},
			Events:   events,
			Logger:   quiet,
		}
		geom = Scaled(800, 600, 2)
	})

	AfterEach(func() {
		if h != nil {
			h.Stop()
		}
		h = nil
	})

	Describe("Start", func() {
		It("creates the engine once with the exact geometry and settings", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			calls := driver.createCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].logical).To(Equal(engine.Size{Width: 800, Height: 600}))
			Expect(calls[0].physical).To(Equal(engine.Size{Width: 1600, Height: 1200}))
			Expect(calls[0].settings).To(Equal(settings))

			Expect(h.State()).To(Equal(Running))
			Expect(h.IsRunning()).To(BeTrue())
			Expect(h.EngineAlive()).To(BeTrue())
			Expect(h.Geometry()).To(Equal(geom))
		})

		It("is a no-op when already running", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			Expect(h.Start(geom)).To(Succeed())
			Expect(driver.createCalls()).To(HaveLen(1))
		})

		It("stays stopped with the surface unlocked when the engine cannot be created", func() {
			driver.createErr = errEngineBroken
			h = newHost()

			err := h.Start(geom)
			Expect(err).To(MatchError(fault.ErrEngineCreateFailed))
			Expect(err).To(MatchError(errEngineBroken))
			Expect(h.State()).To(Equal(Stopped))
			Expect(h.EngineAlive()).To(BeFalse())

			opened, _ := source.Counts()
			Expect(opened).To(BeZero(), "scheduler must not start without an engine")

			locked := make(chan struct{})
			go func() {
				defer close(locked)
				_ = surf.WithLock(func(*surface.Locked) error { return nil })
			}()
			Eventually(locked).Should(BeClosed())
		})

		It("destroys the engine when the display link cannot start", func() {
			source.OpenErr = errors.New("no display")
			h = newHost()

			err := h.Start(geom)
			Expect(err).To(MatchError(fault.ErrSchedulerStartFailed))
			Expect(h.State()).To(Equal(Stopped))
			Expect(driver.instance(0).destroyCount()).To(Equal(1))
		})

		It("rejects an empty geometry without calling the engine", func() {
			h = newHost()
			err := h.Start(Geometry{})
			Expect(err).To(MatchError(fault.ErrEngineCreateFailed))
			Expect(driver.createCalls()).To(BeEmpty())
		})
	})

	Describe("Restart", func() {
		It("recreates the engine with new settings at the current geometry", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			resized := Scaled(1024, 768, 2)
			Expect(h.OnResize(resized)).To(Succeed())

			const next = `{"mode":"Normal","colorScheme":"Plasma"}`
			Expect(h.Restart(next)).To(Succeed())

			calls := driver.createCalls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[1].settings).To(Equal(next))
			Expect(calls[1].logical).To(Equal(resized.Logical))
			Expect(driver.instance(0).destroyCount()).To(Equal(1))
			Expect(h.IsRunning()).To(BeTrue())

			tick(1)
			Eventually(driver.instance(1).steps).Should(HaveLen(1))
			Expect(driver.instance(0).steps()).To(BeEmpty())
		})

		It("only records settings on a stopped host", func() {
			h = newHost()
			Expect(h.Restart(`{}`)).To(Succeed())
			Expect(driver.createCalls()).To(BeEmpty())

			Expect(h.Start(geom)).To(Succeed())
			Expect(driver.createCalls()[0].settings).To(Equal(`{}`))
		})
	})

	Describe("Stop", func() {
		It("destroys the engine exactly once", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			h.Stop()
			h.Stop()

			Expect(h.State()).To(Equal(Stopped))
			Expect(h.IsRunning()).To(BeFalse())
			Expect(driver.instance(0).destroyCount()).To(Equal(1))
		})

		It("is safe before any start", func() {
			h = newHost()
			h.Stop()
			Expect(h.State()).To(Equal(Stopped))
		})

		It("keeps the engine alive exactly while running, for any start/stop/resize sequence", func() {
			h = newHost()
			rng := rand.New(rand.NewSource(GinkgoRandomSeed()))
			for i := 0; i < 200; i++ {
				switch rng.Intn(3) {
				case 0:
					_ = h.Start(geom)
				case 1:
					h.Stop()
				case 2:
					_ = h.OnResize(Scaled(float64(100+rng.Intn(900)), 600, 2))
				}
				Expect(h.EngineAlive()).To(Equal(h.IsRunning()), "after op %d", i)
			}
		})
	})

	Describe("ticks", func() {
		It("steps the engine with accumulated 60Hz frame times", func() {
			sched = displaylink.New(source, displaylink.PolicyAccumulate)
			sched.SetLogger(quiet)
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			for n := int64(1); n <= 3; n++ {
				tick(n)
			}
			inst := driver.instance(0)
			Eventually(func() int { return len(inst.steps()) }).Should(Equal(3))

			times := stepTimes(inst.steps())
			Expect(times[0]).To(BeNumerically("~", 16.67, 0.01))
			Expect(times[1]).To(BeNumerically("~", 33.33, 0.01))
			Expect(times[2]).To(BeNumerically("~", 50.0, 0.01))
			Expect(backend.swapCount()).To(Equal(3))
		})

		It("never passes a decreasing time to the engine", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			for _, t := range []float64{10, 30, 20, 40, 5} {
				h.OnTick(t)
			}
			Expect(stepTimes(driver.instance(0).steps())).To(Equal([]float64{10, 30, 30, 40, 40}))
			Expect(h.FrameTime()).To(Equal(40.0))
		})

		It("drops ticks while stopped", func() {
			h = newHost()
			h.OnTick(10)
			Expect(driver.createCalls()).To(BeEmpty())
			Expect(j.snapshot()).NotTo(ContainElement("step"))
		})

		It("never delivers a tick from a previous run", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			tick(1)
			first := driver.instance(0)
			Eventually(func() int { return len(first.steps()) }).Should(Equal(1))
			staleGen := h.generation

			h.Stop()
			Expect(h.Start(geom)).To(Succeed())
			second := driver.instance(1)

			h.tick(staleGen, 1e6)
			tick(2)
			Eventually(func() int { return len(second.steps()) }).Should(Equal(1))

			Expect(first.steps()).To(HaveLen(1))
			Expect(second.steps()[0].t).To(BeNumerically("<", 1e6))
		})

		It("swallows step failures, rate-limits reports and escalates persistent failure once", func() {
			driver.stepErr = errEngineBroken
			opts.FailureThreshold = 3
			opts.ReportInterval = time.Hour
			h = newHost()
			obs := &recordingObserver{}
			h.AddObserver(obs)
			Expect(h.Start(geom)).To(Succeed())

			for i := 1; i <= 5; i++ {
				h.OnTick(float64(i))
			}

			Expect(h.IsRunning()).To(BeTrue())
			Expect(driver.instance(0).steps()).To(HaveLen(5))
			Expect(obs.count()).To(Equal(5))

			var got []Event
			for len(events) > 0 {
				got = append(got, <-events)
			}
			Expect(got).To(HaveLen(2))
			Expect(got[0].Kind).To(Equal(EventStepFailed))
			Expect(got[0].Err).To(MatchError(errEngineBroken))
			Expect(got[1].Kind).To(Equal(EventPersistentFailure))
			Expect(got[1].Count).To(Equal(3))
		})

		It("clears to black during the fade-in instead of stepping", func() {
			opts.FadeIn = 100 * time.Millisecond
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			h.OnTick(1000)
			h.OnTick(1050)
			h.OnTick(1100)

			Expect(stepTimes(driver.instance(0).steps())).To(Equal([]float64{1100}))
			clears := 0
			for _, e := range j.snapshot() {
				if e == "clear" {
					clears++
				}
			}
			Expect(clears).To(Equal(2))
			Expect(backend.swapCount()).To(Equal(3))
		})
	})

	Describe("OnResize", func() {
		It("detaches, resizes and reattaches inside one lock", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			next := Scaled(1024, 768, 2)
			Expect(h.OnResize(next)).To(Succeed())
			Expect(h.Geometry()).To(Equal(next))
			Expect(h.State()).To(Equal(Running))

			entries := j.snapshot()
			Expect(entries).To(ContainElements("detach", "resize", "attach"))
			i := indexOf(entries, "detach")
			Expect(entries[i : i+3]).To(Equal([]string{"detach", "resize", "attach"}))
		})

		It("is ignored while stopped", func() {
			h = newHost()
			Expect(h.OnResize(geom)).To(Succeed())
			Expect(j.snapshot()).NotTo(ContainElement("resize"))
		})

		It("keeps the previous geometry and keeps rendering when the engine refuses", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())
			driver.mu.Lock()
			driver.resizeErr = errEngineBroken
			driver.mu.Unlock()

			err := h.OnResize(Scaled(1024, 768, 2))
			Expect(err).To(MatchError(fault.ErrEngineResizeFailed))
			Expect(h.Geometry()).To(Equal(geom))
			Expect(h.IsRunning()).To(BeTrue())
			Eventually(events).Should(Receive(HaveField("Kind", EventResizeFailed)))

			entries := j.snapshot()
			Expect(entries[len(entries)-1]).To(Equal("attach"))

			h.OnTick(10)
			frames := driver.instance(0).steps()
			Expect(frames).To(HaveLen(1))
			Expect(frames[0].physical).To(Equal(geom.Physical))
		})

		It("never lets a step run between detach and attach", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for t := 1.0; ctx.Err() == nil; t++ {
					h.OnTick(t)
				}
			}()
			for i := 0; i < 100; i++ {
				Expect(h.OnResize(Scaled(float64(400+i), 300, 2))).To(Succeed())
			}
			cancel()
			wg.Wait()

			detached := false
			for _, e := range j.snapshot() {
				switch e {
				case "detach":
					detached = true
				case "attach":
					detached = false
				case "step", "swap":
					Expect(detached).To(BeFalse(), "%s ran while the view was detached", e)
				}
			}
		})

		It("makes a tick blocked on the lock render at the new geometry", func() {
			h = newHost()
			Expect(h.Start(geom)).To(Succeed())

			driver.resizeEntered = make(chan struct{})
			driver.resizeGate = make(chan struct{})
			next := Scaled(1280, 720, 2)

			resized := make(chan error, 1)
			go func() { resized <- h.OnResize(next) }()
			Eventually(driver.resizeEntered).Should(BeClosed())

			// the scheduler takes the tick and blocks on the surface lock
			tick(1)
			Consistently(func() int { return len(driver.instance(0).steps()) }, "50ms").Should(BeZero())

			close(driver.resizeGate)
			Eventually(resized).Should(Receive(BeNil()))

			inst := driver.instance(0)
			Eventually(func() int { return len(inst.steps()) }).Should(Equal(1))
			Expect(inst.steps()[0].physical).To(Equal(next.Physical))
		})
	})
})

func indexOf(entries []string, want string) int {
	for i, e := range entries {
		if e == want {
			return i
		}
	}
	return -1
}
