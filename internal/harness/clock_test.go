// v1
// internal/harness/clock_test.go
package harness

import (
	"testing"
	"time"
)

// manualClock returns a clock whose time only moves when advance is called.
func manualClock(d time.Duration) (*Clock, func(time.Duration)) {
	c := NewClock(d)
	t := time.Unix(1000, 0)
	c.now = func() time.Time { return t }
	return c, func(step time.Duration) { t = t.Add(step) }
}

func TestClockBeforeStart(t *testing.T) {
	c, _ := manualClock(time.Minute)
	if c.Elapsed() != 0 {
		t.Fatalf("elapsed before start = %s", c.Elapsed())
	}
	if c.Expired() {
		t.Fatal("clock expired before start")
	}
	if c.Remaining() != time.Minute {
		t.Fatalf("remaining before start = %s", c.Remaining())
	}
}

func TestClockProgression(t *testing.T) {
	c, advance := manualClock(time.Minute)
	c.Start()
	advance(20 * time.Second)
	if c.Elapsed() != 20*time.Second {
		t.Fatalf("elapsed = %s, want 20s", c.Elapsed())
	}
	if c.Remaining() != 40*time.Second {
		t.Fatalf("remaining = %s, want 40s", c.Remaining())
	}
	if c.Expired() {
		t.Fatal("expired at 20s of 60s")
	}
}

func TestClockExpiry(t *testing.T) {
	c, advance := manualClock(time.Minute)
	c.Start()
	advance(time.Minute)
	if !c.Expired() {
		t.Fatal("not expired at exactly the window")
	}
	advance(5 * time.Second)
	if c.Remaining() != 0 {
		t.Fatalf("remaining past expiry = %s, want 0", c.Remaining())
	}
}

func TestClockRestart(t *testing.T) {
	c, advance := manualClock(time.Minute)
	c.Start()
	advance(time.Minute)
	if !c.Expired() {
		t.Fatal("setup: clock should be expired")
	}
	c.Start()
	if c.Expired() {
		t.Fatal("restart did not reset the window")
	}
	if c.Elapsed() != 0 {
		t.Fatalf("elapsed after restart = %s", c.Elapsed())
	}
}
