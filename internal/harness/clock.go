// v2
// internal/harness/clock.go
package harness

import "time"

// Clock maps wall-clock elapsed time onto the bounded evaluation window at
// a fixed 1:1 real-to-simulated ratio. It is the single source of truth
// for run termination. Pure queries only; a Clock never blocks.
type Clock struct {
	duration time.Duration
	started  time.Time
	now      func() time.Time
}

// NewClock returns an unstarted clock for the given evaluation duration.
func NewClock(duration time.Duration) *Clock {
	return &Clock{duration: duration, now: time.Now}
}

// Start fixes the run's origin. Calling Start again restarts the window.
func (c *Clock) Start() { c.started = c.now() }

// Elapsed returns wall-clock time since Start, zero before Start.
func (c *Clock) Elapsed() time.Duration {
	if c.started.IsZero() {
		return 0
	}
	return c.now().Sub(c.started)
}

// Expired reports whether the evaluation window has been used up.
func (c *Clock) Expired() bool { return c.Elapsed() >= c.duration }

// Remaining returns the unused part of the window, never negative.
func (c *Clock) Remaining() time.Duration {
	r := c.duration - c.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// Duration returns the configured evaluation window.
func (c *Clock) Duration() time.Duration { return c.duration }
