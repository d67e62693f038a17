// Package audit records security-relevant occurrences of a session.
//
// # Components
//
//   - [Event]: immutable record with type, time, user, fingerprint and payload.
//   - [Emitter]: publishes every event synchronously to the local [observable.Stream]
//     and, while a server session is active, queues a copy for remote delivery.
//   - [Dispatcher]: buffered relay that delivers queued copies to a [Forwarder]
//     on its own goroutine. Failures are logged and counted, never returned.
//   - [Sink]: consumer attached to the local stream (channel, JSON lines, no-op).
//
// # What this package must NOT do
//
//   - Let a forwarding failure reach the operation that emitted the event.
//   - Persist events.
//   - Import the root package.
package audit
