package scanner

import "time"

// Scheduler runs callbacks once per display refresh.
// The session only calls Next again after the previous callback has
// finished, so ticks never overlap.
type Scheduler interface {
	// Next arranges for fn to run on the next refresh and returns a
	// function that cancels it if it has not started yet.
	Next(fn func()) (cancel func())
}

// DefaultRefreshRate is the tick rate used when none is configured.
const DefaultRefreshRate = 60

// FrameClock is a timer-driven Scheduler ticking at a fixed rate.
type FrameClock struct {
	interval time.Duration
}

// NewFrameClock returns a scheduler ticking hz times per second.
func NewFrameClock(hz int) *FrameClock {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &FrameClock{interval: time.Second / time.Duration(hz)}
}

// Interval returns the time between ticks.
func (c *FrameClock) Interval() time.Duration {
	return c.interval
}

// Next schedules fn after one interval.
func (c *FrameClock) Next(fn func()) func() {
	t := time.AfterFunc(c.interval, fn)
	return func() { t.Stop() }
}
