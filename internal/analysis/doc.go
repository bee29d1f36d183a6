// Package analysis characterizes the frame pacing of a recorded session.
//
// The package works on frame intervals, the differences between consecutive
// engine frame times:
//
//   - [Percentiles]: interval distribution (p50, p95, p99, max)
//   - [PowerSpectrum]: magnitude spectrum of the interval series
//   - [DominantPeriod]: the strongest recurring hitch, in frames
//
// # Periodic Hitches
//
// A long frame every N frames shows up as a spectral peak at 1/N cycles per
// frame:
//
//	period, strength := analysis.DominantPeriod(intervals)
//	if strength > 0.5 {
//	    // one slow frame roughly every period frames
//	}
package analysis
