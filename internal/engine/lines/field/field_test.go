package field

import (
	"math"
	"testing"

	"github.com/san-kum/fluxsaver/internal/config"
)

func TestGridFollowsSize(t *testing.T) {
	s := config.DefaultSettings()
	s.GridSpacing = 20
	f := New(s, 200, 100)

	cols, rows := f.Grid()
	if cols != 11 || rows != 6 {
		t.Errorf("expected 11x6 grid, got %dx%d", cols, rows)
	}

	f.Resize(400, 100)
	if cols, _ := f.Grid(); cols != 21 {
		t.Errorf("expected 21 columns after resize, got %d", cols)
	}
}

func TestVerticesCount(t *testing.T) {
	s := config.DefaultSettings()
	f := New(s, 320, 240)

	v := f.Vertices(nil)
	if len(v) != f.Lines()*2*FloatsPerVertex {
		t.Errorf("expected %d floats, got %d", f.Lines()*2*FloatsPerVertex, len(v))
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) {
			t.Fatalf("NaN at %d", i)
		}
	}
}

func TestAdvanceMovesField(t *testing.T) {
	s := config.DefaultSettings()
	f := New(s, 320, 240)

	f.Advance(0)
	before := f.Angle(100, 100)
	f.Advance(10000)
	after := f.Angle(100, 100)
	if before == after {
		t.Error("expected the field to change over time")
	}

	f.Advance(5000)
	if f.Angle(100, 100) != after {
		t.Error("expected time running backwards to be ignored")
	}
}

func TestAngleWithoutChannels(t *testing.T) {
	s := config.DefaultSettings()
	s.NoiseChannels = nil
	f := New(s, 100, 100)
	if f.Angle(10, 10) != 0 {
		t.Error("expected zero angle without noise channels")
	}
}

func TestNoiseRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		x := float64(i) * 0.37
		n := noise3(x, x*0.5, x*0.25)
		if n < -1 || n > 1 {
			t.Fatalf("noise out of range at %f: %f", x, n)
		}
	}
	if noise3(1.5, 2.5, 3.5) != noise3(1.5, 2.5, 3.5) {
		t.Error("noise is not deterministic")
	}
}

func TestPalette(t *testing.T) {
	p := Palette("Plasma")
	if len(p) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(p))
	}
	if Sample(p, 0) != p[0] || Sample(p, 1) != p[2] {
		t.Error("expected endpoints to match the stops")
	}
	mid := Sample(p, 0.5)
	if mid != p[1] {
		t.Errorf("expected middle stop, got %+v", mid)
	}
	if len(Palette("unknown")) == 0 {
		t.Error("expected fallback palette")
	}
}
