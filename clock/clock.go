package clock

import "time"

// Clock is the time source used by every scheduling component.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// AfterFunc arranges for f to be called once d has elapsed. The
	// returned Timer can cancel the call before it happens.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a handle to a pending AfterFunc callback.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the callback from firing. It returns false if the callback
// already fired or the timer was already stopped. Stop on a nil Timer is a
// no-op.
func (t *Timer) Stop() bool {
	if t == nil || t.stopFunc == nil {
		return false
	}
	return t.stopFunc()
}
