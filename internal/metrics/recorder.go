package metrics

import "sync"

// Recorder observes host frames. It keeps the metrics and the most recent
// frame times in a ring, and is safe to read while frames are arriving.
type Recorder struct {
	mu      sync.Mutex
	metrics []Metric
	ring    []float64
	next    int
	full    bool
	times   []float64
	keepAll bool
	frames  int
}

func NewRecorder(capacity int, metrics ...Metric) *Recorder {
	if capacity <= 0 {
		capacity = 1
	}
	return &Recorder{metrics: metrics, ring: make([]float64, capacity)}
}

// Standard is the metric set reported by bench sessions.
func Standard(refreshHz float64) []Metric {
	return []Metric{NewFrameInterval(), NewJitter(), NewDropped(refreshHz), NewFailures()}
}

// KeepAll makes the recorder retain every frame time, not only the ring.
func (r *Recorder) KeepAll() *Recorder {
	r.mu.Lock()
	r.keepAll = true
	r.mu.Unlock()
	return r
}

func (r *Recorder) OnFrame(t float64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		m.Observe(t, err)
	}
	r.ring[r.next] = t
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	if r.keepAll {
		r.times = append(r.times, t)
	}
	r.frames++
}

func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Recent returns the ring contents, oldest first.
func (r *Recorder) Recent() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]float64(nil), r.ring[:r.next]...)
	}
	out := make([]float64, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	return append(out, r.ring[:r.next]...)
}

// Intervals returns the differences between consecutive recent frame times.
func (r *Recorder) Intervals() []float64 {
	times := r.Recent()
	if len(times) < 2 {
		return nil
	}
	out := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		out[i-1] = times[i] - times[i-1]
	}
	return out
}

func (r *Recorder) Times() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.times...)
}

func (r *Recorder) Values() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		m.Reset()
	}
	r.next, r.full, r.frames = 0, false, 0
	r.times = nil
}
