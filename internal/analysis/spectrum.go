package analysis

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitude of the first half of the DFT of the
// mean-removed intervals. Bin k is k/len(intervals) cycles per frame.
func PowerSpectrum(intervals []float64) []float64 {
	n := len(intervals)
	if n < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range intervals {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod finds the strongest periodic component of the intervals.
// period is in frames; strength is that bin's share of the total spectral
// magnitude, in [0, 1]. A flat series returns (0, 0).
func DominantPeriod(intervals []float64) (period float64, strength float64) {
	ps := PowerSpectrum(intervals)
	if len(ps) < 2 {
		return 0, 0
	}
	best, total := 0, 0.0
	for k := 1; k < len(ps); k++ {
		total += ps[k]
		// harmonics of a pulse train tie with the fundamental; keep the lowest
		if best == 0 || ps[k] > ps[best]*(1+1e-6) {
			best = k
		}
	}
	if total < 1e-9 {
		return 0, 0
	}
	return float64(len(intervals)) / float64(best), ps[best] / total
}

type Distribution struct {
	P50 float64
	P95 float64
	P99 float64
	Max float64
}

// Percentiles uses nearest-rank percentiles.
func Percentiles(intervals []float64) Distribution {
	if len(intervals) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), intervals...)
	sort.Float64s(sorted)
	rank := func(p float64) float64 {
		i := int(math.Ceil(p*float64(len(sorted)))) - 1
		if i < 0 {
			i = 0
		}
		return sorted[i]
	}
	return Distribution{
		P50: rank(0.50),
		P95: rank(0.95),
		P99: rank(0.99),
		Max: sorted[len(sorted)-1],
	}
}
