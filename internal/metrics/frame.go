package metrics

import "math"

// Metric accumulates one statistic over the frames a host delivers. t is the
// engine time in milliseconds; err is the step failure, if any.
type Metric interface {
	Name() string
	Observe(t float64, err error)
	Value() float64
	Reset()
}

type FrameInterval struct {
	name    string
	last    float64
	seen    bool
	sum     float64
	samples int
}

func NewFrameInterval() *FrameInterval {
	return &FrameInterval{name: "frame_interval_ms"}
}

func (f *FrameInterval) Name() string { return f.name }

func (f *FrameInterval) Observe(t float64, err error) {
	if f.seen {
		f.sum += t - f.last
		f.samples++
	}
	f.last = t
	f.seen = true
}

func (f *FrameInterval) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return f.sum / float64(f.samples)
}

func (f *FrameInterval) Reset() {
	f.last, f.seen = 0, false
	f.sum, f.samples = 0, 0
}

// Jitter is the standard deviation of the frame interval, using Welford's
// running update.
type Jitter struct {
	name string
	last float64
	seen bool
	n    int
	mean float64
	m2   float64
}

func NewJitter() *Jitter {
	return &Jitter{name: "jitter_ms"}
}

func (j *Jitter) Name() string { return j.name }

func (j *Jitter) Observe(t float64, err error) {
	if !j.seen {
		j.last, j.seen = t, true
		return
	}
	dt := t - j.last
	j.last = t
	j.n++
	delta := dt - j.mean
	j.mean += delta / float64(j.n)
	j.m2 += delta * (dt - j.mean)
}

func (j *Jitter) Value() float64 {
	if j.n < 2 {
		return 0
	}
	return math.Sqrt(j.m2 / float64(j.n-1))
}

func (j *Jitter) Reset() {
	j.last, j.seen = 0, false
	j.n, j.mean, j.m2 = 0, 0, 0
}

// Dropped counts intervals longer than 1.5 refresh periods.
type Dropped struct {
	name    string
	period  float64
	last    float64
	seen    bool
	dropped int
}

func NewDropped(refreshHz float64) *Dropped {
	period := 0.0
	if refreshHz > 0 {
		period = 1000 / refreshHz
	}
	return &Dropped{name: "dropped_frames", period: period}
}

func (d *Dropped) Name() string { return d.name }

func (d *Dropped) Observe(t float64, err error) {
	if d.seen && d.period > 0 && t-d.last > 1.5*d.period {
		d.dropped++
	}
	d.last, d.seen = t, true
}

func (d *Dropped) Value() float64 { return float64(d.dropped) }

func (d *Dropped) Reset() {
	d.last, d.seen, d.dropped = 0, false, 0
}

type Failures struct {
	name   string
	failed int
}

func NewFailures() *Failures {
	return &Failures{name: "step_failures"}
}

func (f *Failures) Name() string { return f.name }

func (f *Failures) Observe(t float64, err error) {
	if err != nil {
		f.failed++
	}
}

func (f *Failures) Value() float64 { return float64(f.failed) }

func (f *Failures) Reset() { f.failed = 0 }
