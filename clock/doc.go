// Package clock abstracts wall-clock time and one-shot timers so that the
// session scheduler, the lockout unlock and the integrity interval can be
// driven deterministically in tests.
//
// Production code uses [Real]. Tests use [Fake] and move time forward with
// [FakeClock.Advance]; callbacks registered with AfterFunc run synchronously
// on the goroutine calling Advance, in deadline order.
package clock
