package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze "today" via
// SetClock. Production code uses the real clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the injected clock.
func Now() time.Time {
	return clock.Now()
}

// Yesterday returns the previous calendar day in the given location,
// truncated to a day. The daily report always targets yesterday: the portal
// publishes with a lag, so today's data is never complete.
func Yesterday(loc *time.Location) time.Time {
	return DateOf(clock.Now().In(loc).AddDate(0, 0, -1))
}
