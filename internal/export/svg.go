package export

import (
	"fmt"
	"os"
	"strings"
)

// SeriesToSVG draws values as a polyline chart, one point per sample, with a
// dashed reference line at ref when ref is positive.
func SeriesToSVG(values []float64, width, height int, ref float64, strokeColor string) string {
	if len(values) < 2 || width <= 0 || height <= 0 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		if v < minY {
			minY = v
		}
		if v > maxY {
			maxY = v
		}
	}
	if ref > 0 {
		minY = min(minY, ref)
		maxY = max(maxY, ref)
	}

	// 10% vertical margin
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	w, h := float64(width), float64(height)
	x := func(i int) float64 { return float64(i) / float64(len(values)-1) * w }
	y := func(v float64) float64 { return h - (v-minY)/rangeY*h }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if ref > 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.2f" x2="%d" y2="%.2f" stroke="#444444" stroke-dasharray="4 4"/>
`, y(ref), width, y(ref)))
	}

	sb.WriteString(fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="1.5" points="`, strokeColor))
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%.2f,%.2f", x(i), y(v)))
	}
	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}

// WriteSVG writes SeriesToSVG output to path.
func WriteSVG(path string, values []float64, width, height int, ref float64) error {
	svg := SeriesToSVG(values, width, height, ref, "#00ffaa")
	if svg == "" {
		return fmt.Errorf("export: need at least 2 values for a chart, got %d", len(values))
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
