package engine

import (
	"errors"
	"testing"

	"github.com/san-kum/fluxsaver/internal/fault"
)

type recordingDriver struct {
	createErr error
	resizeErr error
	calls     []createCall
	inst      *recordingInstance
}

type createCall struct {
	logical, physical Size
	settings          string
}

func (d *recordingDriver) Name() string { return "recording" }

func (d *recordingDriver) Create(logical, physical Size, settings string) (Instance, error) {
	d.calls = append(d.calls, createCall{logical, physical, settings})
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.inst = &recordingInstance{resizeErr: d.resizeErr}
	return d.inst, nil
}

type recordingInstance struct {
	steps     []float64
	resizes   int
	destroys  int
	resizeErr error
}

func (i *recordingInstance) Step(t float64) error { i.steps = append(i.steps, t); return nil }
func (i *recordingInstance) Resize(logical, physical Size) error {
	if i.resizeErr != nil {
		return i.resizeErr
	}
	i.resizes++
	return nil
}
func (i *recordingInstance) Destroy() { i.destroys++ }

func TestCreatePassesGeometryAndSettings(t *testing.T) {
	drv := &recordingDriver{}
	logical := Size{800, 600}
	physical := Size{1600, 1200}

	h, err := Create(drv, logical, physical, `{"mode":"Normal"}`)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !h.Alive() {
		t.Fatal("expected live handle")
	}
	if len(drv.calls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(drv.calls))
	}
	got := drv.calls[0]
	if got.logical != logical || got.physical != physical || got.settings != `{"mode":"Normal"}` {
		t.Errorf("unexpected create call %+v", got)
	}
}

func TestCreateFailure(t *testing.T) {
	drv := &recordingDriver{createErr: errors.New("bad config")}
	h, err := Create(drv, Size{800, 600}, Size{800, 600}, "{}")
	if h != nil {
		t.Error("expected no handle")
	}
	if !errors.Is(err, fault.ErrEngineCreateFailed) {
		t.Fatalf("expected ErrEngineCreateFailed, got %v", err)
	}
}

func TestCreateRejectsEmptySize(t *testing.T) {
	drv := &recordingDriver{}
	_, err := Create(drv, Size{0, 600}, Size{0, 1200}, "{}")
	if !errors.Is(err, fault.ErrEngineCreateFailed) {
		t.Fatalf("expected ErrEngineCreateFailed, got %v", err)
	}
	if len(drv.calls) != 0 {
		t.Error("driver should not be called for an empty size")
	}
}

func TestDestroyTwice(t *testing.T) {
	drv := &recordingDriver{}
	h, err := Create(drv, Size{800, 600}, Size{800, 600}, "{}")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	h.Destroy()
	h.Destroy()

	if h.Alive() {
		t.Error("expected dead handle")
	}
	if drv.inst.destroys != 1 {
		t.Errorf("expected 1 engine destroy, got %d", drv.inst.destroys)
	}
}

func TestDeadHandleFailsExplicitly(t *testing.T) {
	drv := &recordingDriver{}
	h, _ := Create(drv, Size{800, 600}, Size{800, 600}, "{}")
	h.Destroy()

	if err := h.Step(16); !errors.Is(err, fault.ErrDeadHandle) {
		t.Errorf("step: expected ErrDeadHandle, got %v", err)
	}
	if err := h.Resize(Size{10, 10}, Size{10, 10}); !errors.Is(err, fault.ErrDeadHandle) {
		t.Errorf("resize: expected ErrDeadHandle, got %v", err)
	}
	if len(drv.inst.steps) != 0 {
		t.Error("dead handle reached the engine")
	}

	var nilHandle *Handle
	if nilHandle.Alive() {
		t.Error("nil handle reported alive")
	}
}

func TestResizeFailureKeepsGeometry(t *testing.T) {
	drv := &recordingDriver{resizeErr: errors.New("out of memory")}
	h, _ := Create(drv, Size{800, 600}, Size{1600, 1200}, "{}")

	err := h.Resize(Size{1024, 768}, Size{2048, 1536})
	if !errors.Is(err, fault.ErrEngineResizeFailed) {
		t.Fatalf("expected ErrEngineResizeFailed, got %v", err)
	}
	logical, physical := h.Sizes()
	if logical != (Size{800, 600}) || physical != (Size{1600, 1200}) {
		t.Errorf("geometry changed after failed resize: %s %s", logical, physical)
	}
	if !h.Alive() {
		t.Error("failed resize must not kill the handle")
	}
}

func TestNullDriver(t *testing.T) {
	drv := NewNull()
	if _, err := Create(drv, Size{1, 1}, Size{1, 1}, "not json"); !errors.Is(err, fault.ErrEngineCreateFailed) {
		t.Errorf("expected create failure for invalid settings, got %v", err)
	}
	h, err := Create(drv, Size{1, 1}, Size{1, 1}, `{"fluidSize":128}`)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.Step(1); err != nil {
		t.Errorf("step: %v", err)
	}
	h.Destroy()
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("null"); err != nil {
		t.Fatalf("null driver: %v", err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown engine")
	}

	r.Register("recording", func() (Driver, error) { return &recordingDriver{}, nil })
	names := r.List()
	if len(names) != 2 || names[0] != "null" || names[1] != "recording" {
		t.Errorf("unexpected names %v", names)
	}
}
