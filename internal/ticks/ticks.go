// Package ticks provides the monotonic tick counter used for all scheduler
// and connection-manager timing. Comparisons are written against unsigned
// wraparound, so deadlines stay correct when the counter rolls over.
package ticks

import "time"

// Ticks is a monotonically increasing tick count. It wraps at 2^32.
type Ticks uint32

// Add returns the deadline d ticks after t.
func (t Ticks) Add(d Ticks) Ticks {
	return t + d
}

// Reached reports whether now is at or past deadline, tolerating counter
// wraparound. The signed difference is valid as long as the two values are
// within 2^31 ticks of each other.
func Reached(now, deadline Ticks) bool {
	return int32(now-deadline) >= 0
}

// Since returns the number of ticks elapsed from then to now.
func Since(now, then Ticks) Ticks {
	return now - then
}

// FromDuration converts a wall-clock duration into ticks given the tick
// interval. Durations shorter than one interval round up to one tick.
func FromDuration(d, interval time.Duration) Ticks {
	if interval <= 0 {
		return 0
	}
	n := d / interval
	if n <= 0 && d > 0 {
		return 1
	}
	return Ticks(n)
}
