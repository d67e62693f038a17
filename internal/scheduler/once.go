package scheduler

import (
	"sync"
	"time"

	"github.com/innoad/adsession/clock"
)

// DefaultMargin is how long before expiry a renewal fires.
const DefaultMargin = 60 * time.Second

// Once holds at most one pending renewal.
type Once struct {
	clock  clock.Clock
	margin time.Duration
	fire   func()

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64
	due   time.Time
}

// NewOnce returns a scheduler that calls fire margin before each scheduled
// expiry. A negative margin is treated as zero.
func NewOnce(clk clock.Clock, margin time.Duration, fire func()) *Once {
	if clk == nil {
		clk = clock.Real()
	}
	if margin < 0 {
		margin = 0
	}
	return &Once{clock: clk, margin: margin, fire: fire}
}

// ScheduleFrom replaces any pending renewal with one firing at
// now + max(0, expiresIn - margin) and returns that instant.
func (o *Once) ScheduleFrom(expiresIn time.Duration) time.Time {
	delay := expiresIn - o.margin
	if delay < 0 {
		delay = 0
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopLocked()
	gen := o.gen
	o.due = o.clock.Now().Add(delay)
	o.timer = o.clock.AfterFunc(delay, func() { o.run(gen) })
	return o.due
}

// Cancel drops the pending renewal. Safe to call with nothing scheduled.
func (o *Once) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

// Pending reports whether a renewal is scheduled and when.
func (o *Once) Pending() (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer == nil {
		return time.Time{}, false
	}
	return o.due, true
}

func (o *Once) stopLocked() {
	o.gen++
	o.timer.Stop()
	o.timer = nil
	o.due = time.Time{}
}

func (o *Once) run(gen uint64) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.gen++
	o.timer = nil
	o.due = time.Time{}
	o.mu.Unlock()

	if o.fire != nil {
		o.fire()
	}
}
