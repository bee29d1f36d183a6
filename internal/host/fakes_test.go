package host

import (
	"errors"
	"sync"

	"github.com/san-kum/fluxsaver/internal/engine"
	"github.com/san-kum/fluxsaver/internal/surface"
)

// journal is an ordered log of GL-side operations shared by the fake
// context and the fake engine.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeBackend struct {
	j     *journal
	swaps int
	mu    sync.Mutex
}

func (b *fakeBackend) ChoosePixelFormat(hint surface.Profile) (surface.PixelFormat, error) {
	return surface.PixelFormat{Profile: hint, Accelerated: true, ColorBits: 32, Buffers: 3}, nil
}

func (b *fakeBackend) CreateContext(surface.PixelFormat) (surface.Context, error) {
	return &fakeContext{b: b}, nil
}

func (b *fakeBackend) swapCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.swaps
}

type fakeContext struct {
	b *fakeBackend
}

func (c *fakeContext) MakeCurrent() error { return nil }
func (c *fakeContext) Release()           {}
func (c *fakeContext) SetView(v surface.View) {
	if v == nil {
		c.b.j.add("detach")
	} else {
		c.b.j.add("attach")
	}
}
func (c *fakeContext) SwapBuffers() error {
	c.b.mu.Lock()
	c.b.swaps++
	c.b.mu.Unlock()
	c.b.j.add("swap")
	return nil
}
func (c *fakeContext) Clear(r, g, b, a float32) { c.b.j.add("clear") }
func (c *fakeContext) Destroy()                 {}

type createCall struct {
	logical, physical engine.Size
	settings          string
}

type fakeDriver struct {
	j         *journal
	mu        sync.Mutex
	createErr error
	stepErr   error
	resizeErr error
	// resizeEntered and resizeGate, when set, make Resize signal entry and
	// then block until the gate is closed.
	resizeEntered chan struct{}
	resizeGate    chan struct{}

	creates   []createCall
	instances []*fakeInstance
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Create(logical, physical engine.Size, settings string) (engine.Instance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates = append(d.creates, createCall{logical, physical, settings})
	if d.createErr != nil {
		return nil, d.createErr
	}
	inst := &fakeInstance{d: d, logical: logical, physical: physical}
	d.instances = append(d.instances, inst)
	d.j.add("create")
	return inst, nil
}

func (d *fakeDriver) createCalls() []createCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]createCall(nil), d.creates...)
}

func (d *fakeDriver) instance(i int) *fakeInstance {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.instances) {
		return nil
	}
	return d.instances[i]
}

type frame struct {
	t        float64
	physical engine.Size
}

type fakeInstance struct {
	d                 *fakeDriver
	logical, physical engine.Size
	frames            []frame
	destroys          int
}

func (i *fakeInstance) Step(t float64) error {
	i.d.mu.Lock()
	defer i.d.mu.Unlock()
	i.d.j.add("step")
	i.frames = append(i.frames, frame{t: t, physical: i.physical})
	return i.d.stepErr
}

func (i *fakeInstance) Resize(logical, physical engine.Size) error {
	if i.d.resizeEntered != nil {
		close(i.d.resizeEntered)
		<-i.d.resizeGate
	}
	i.d.mu.Lock()
	defer i.d.mu.Unlock()
	i.d.j.add("resize")
	if i.d.resizeErr != nil {
		return i.d.resizeErr
	}
	i.logical, i.physical = logical, physical
	return nil
}

func (i *fakeInstance) Destroy() {
	i.d.mu.Lock()
	defer i.d.mu.Unlock()
	i.d.j.add("destroy")
	i.destroys++
}

func (i *fakeInstance) steps() []frame {
	i.d.mu.Lock()
	defer i.d.mu.Unlock()
	return append([]frame(nil), i.frames...)
}

func (i *fakeInstance) destroyCount() int {
	i.d.mu.Lock()
	defer i.d.mu.Unlock()
	return i.destroys
}

func stepTimes(frames []frame) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.t
	}
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	times  []float64
	errors []error
}

func (o *recordingObserver) OnFrame(t float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.times = append(o.times, t)
	o.errors = append(o.errors, err)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.times)
}

var errEngineBroken = errors.New("engine broken")
