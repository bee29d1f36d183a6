// Package field computes the flow-line geometry drawn by the lines engine.
// It has no graphics dependencies.
package field

import (
	"math"

	"github.com/san-kum/fluxsaver/internal/config"
)

// FloatsPerVertex is x, y, r, g, b.
const FloatsPerVertex = 5

// frameMs is the frame length the noise offset increments are tuned for.
const frameMs = 1000.0 / 60.0

type Field struct {
	settings config.Settings
	palette  []RGB
	width    float64
	height   float64
	cols     int
	rows     int
	offsets  []float64
	lastT    float64
	started  bool
}

func New(s config.Settings, width, height float64) *Field {
	f := &Field{
		settings: s,
		palette:  Palette(s.ColorScheme),
		offsets:  make([]float64, len(s.NoiseChannels)),
	}
	f.Resize(width, height)
	return f
}

// Resize recomputes the grid for a physical size in pixels.
func (f *Field) Resize(width, height float64) {
	f.width, f.height = width, height
	spacing := float64(f.settings.GridSpacing)
	if spacing <= 0 {
		spacing = 1
	}
	f.cols = int(width/spacing) + 1
	f.rows = int(height/spacing) + 1
}

func (f *Field) Grid() (cols, rows int) { return f.cols, f.rows }

func (f *Field) Lines() int { return f.cols * f.rows }

// Advance moves the noise forward to engine time t in milliseconds. Time
// running backwards is ignored.
func (f *Field) Advance(t float64) {
	if !f.started {
		f.lastT, f.started = t, true
		return
	}
	dt := t - f.lastT
	if dt <= 0 {
		return
	}
	f.lastT = t
	for i, ch := range f.settings.NoiseChannels {
		f.offsets[i] += ch.OffsetIncrement * dt / frameMs
	}
}

// Angle is the flow direction at pixel (x, y), in radians.
func (f *Field) Angle(x, y float64) float64 {
	var sum, weight float64
	for i, ch := range f.settings.NoiseChannels {
		scale := ch.Scale
		if scale == 0 {
			continue
		}
		nx := x / f.width * scale
		ny := y / f.height * scale
		sum += noise3(nx, ny, f.offsets[i]*scale) * ch.Multiplier
		weight += math.Abs(ch.Multiplier)
	}
	if weight == 0 {
		return 0
	}
	return sum / weight * math.Pi * 2
}

// Vertices appends two vertices per grid line to dst in normalized device
// coordinates and returns the extended slice.
func (f *Field) Vertices(dst []float32) []float32 {
	spacing := float64(f.settings.GridSpacing)
	viewScale := f.settings.ViewScale
	if viewScale <= 0 {
		viewScale = 1
	}
	baseLen := f.settings.LineLength / 100 * spacing / viewScale

	for r := 0; r < f.rows; r++ {
		for c := 0; c < f.cols; c++ {
			x := float64(c) * spacing
			y := float64(r) * spacing
			angle := f.Angle(x, y)

			variance := 1 + f.settings.LineVariance*math.Sin(angle*3)
			length := baseLen * variance
			dx, dy := math.Cos(angle)*length, math.Sin(angle)*length
			bx := x + dx*f.settings.LineBeginOffset
			by := y + dy*f.settings.LineBeginOffset

			col := Sample(f.palette, (math.Sin(angle)+1)/2)
			dst = f.vertex(dst, bx, by, col)
			dst = f.vertex(dst, bx+dx, by+dy, col)
		}
	}
	return dst
}

func (f *Field) vertex(dst []float32, x, y float64, c RGB) []float32 {
	nx := float32(x/f.width*2 - 1)
	ny := float32(1 - y/f.height*2)
	return append(dst, nx, ny, c.R, c.G, c.B)
}
