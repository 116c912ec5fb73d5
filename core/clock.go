package core

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used across the runtime for timer ticks,
// restart backoff waits, plan deadlines and cache TTLs. Using
// clockwork lets tests substitute a FakeClock so that timer and
// restart behaviour (§4.2, §8 scenario 5) is deterministic rather
// than depending on wall-clock sleeps.
type Clock = clockwork.Clock

// NewRealClock returns the real wall-clock time source.
func NewRealClock() Clock {
	return clockwork.NewRealClock()
}

// NewFakeClock returns a controllable clock for tests, starting at
// the given time.
func NewFakeClock(start time.Time) clockwork.FakeClock {
	return clockwork.NewFakeClockAt(start)
}
