// Package scheduler owns the two sources of spontaneous work in a session:
// the single pending token renewal ([Once]) and the periodic integrity check
// ([Interval]).
//
// Both are single-slot. Scheduling again replaces the pending timer, and a
// generation counter makes a timer that already started firing a no-op once
// it has been replaced or cancelled. Callbacks run without any scheduler lock
// held, so they may call back into Schedule or Cancel.
package scheduler
