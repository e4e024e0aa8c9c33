// Package clock provides a monotonic, test-friendly clock for the store
// and ingest pipeline.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timestamp is a monotonic offset from an arbitrary epoch fixed at the
// owning Clock's construction. Two Timestamps are only comparable when
// produced by the same Clock.
type Timestamp struct {
	d time.Duration
}

// Zero is the Timestamp at a Clock's epoch.
var Zero = Timestamp{}

// Duration returns the raw offset since the owning Clock's epoch.
func (t Timestamp) Duration() time.Duration { return t.d }

// Before reports whether t occurred before other.
func (t Timestamp) Before(other Timestamp) bool { return t.d < other.d }

// After reports whether t occurred after other.
func (t Timestamp) After(other Timestamp) bool { return t.d > other.d }

// Equal reports whether t and other represent the same instant.
func (t Timestamp) Equal(other Timestamp) bool { return t.d == other.d }

// SaturatingElapsedSince returns max(0, t - since): how much time elapsed
// between since and t, floored at zero rather than going negative.
func (t Timestamp) SaturatingElapsedSince(since Timestamp) time.Duration {
	if t.d < since.d {
		return 0
	}
	return t.d - since.d
}

// Trunc rounds t down to the nearest multiple of window, the same way a
// wall clock is truncated to a minute boundary.
func (t Timestamp) Trunc(window time.Duration) Timestamp {
	if window <= 0 {
		return t
	}
	return Timestamp{d: t.d.Truncate(window)}
}

// Add returns t shifted forward by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{d: t.d + d}
}

// Sub returns the signed duration between t and other.
func (t Timestamp) Sub(other Timestamp) time.Duration {
	return t.d - other.d
}

// Clock issues monotonically increasing Timestamps relative to the
// instant it was created.
type Clock struct {
	inner clockwork.Clock
	start time.Time
}

// New returns a Clock backed by the real wall-clock monotonic reading.
func New() Clock {
	return newFrom(clockwork.NewRealClock())
}

// NewFake returns a Clock backed by a clockwork.FakeClock the caller can
// advance deterministically, plus that fake clock for driving tests.
func NewFake() (Clock, clockwork.FakeClock) {
	fc := clockwork.NewFakeClock()
	return newFrom(fc), fc
}

func newFrom(c clockwork.Clock) Clock {
	return Clock{inner: c, start: c.Now()}
}

// Now returns the Timestamp elapsed since the Clock's construction.
func (c Clock) Now() Timestamp {
	return Timestamp{d: c.inner.Now().Sub(c.start)}
}
