package field

import "strings"

type RGB struct{ R, G, B float32 }

var palettes = map[string][]RGB{
	"original": {{0.2, 0.4, 0.9}, {0.4, 0.8, 1.0}, {0.95, 0.95, 1.0}},
	"plasma":   {{0.05, 0.03, 0.53}, {0.8, 0.28, 0.47}, {0.94, 0.98, 0.13}},
	"poolside": {{0.0, 0.45, 0.7}, {0.25, 0.8, 0.85}, {1.0, 0.85, 0.6}},
	"freedom":  {{0.75, 0.1, 0.15}, {0.95, 0.95, 0.95}, {0.1, 0.2, 0.6}},
	"peacock":  {{0.0, 0.35, 0.35}, {0.1, 0.6, 0.5}, {0.85, 0.65, 0.2}},
}

// Palette returns the gradient stops for a color scheme name, falling back
// to the original scheme.
func Palette(name string) []RGB {
	if p, ok := palettes[strings.ToLower(name)]; ok {
		return p
	}
	return palettes["original"]
}

// Sample interpolates the gradient at t in [0, 1].
func Sample(stops []RGB, t float64) RGB {
	if len(stops) == 0 {
		return RGB{1, 1, 1}
	}
	if t <= 0 || len(stops) == 1 {
		return stops[0]
	}
	if t >= 1 {
		return stops[len(stops)-1]
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	f := float32(pos - float64(i))
	a, b := stops[i], stops[i+1]
	return RGB{a.R + (b.R-a.R)*f, a.G + (b.G-a.G)*f, a.B + (b.B-a.B)*f}
}
