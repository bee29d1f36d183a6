package host

import "time"

// limiter lets one report through per interval and counts what it held back.
type limiter struct {
	interval   time.Duration
	last       time.Time
	suppressed int
}

// allow reports whether a report may go out at now, and how many events the
// report stands for.
func (l *limiter) allow(now time.Time) (bool, int) {
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		l.suppressed++
		return false, 0
	}
	count := l.suppressed + 1
	l.last, l.suppressed = now, 0
	return true, count
}

func (l *limiter) reset() {
	l.last, l.suppressed = time.Time{}, 0
}
