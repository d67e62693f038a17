// Package limiters holds the client-side login lockout.
//
// # Limiters
//
//   - [LockoutGuard]: counts consecutive failed logins and locks the login
//     path for a fixed duration once the threshold is reached. The unlock is
//     scheduled on the injected clock when the lock starts, so the state
//     clears on time even if nobody asks again.
//
// State is optionally mirrored to a storage scope so that restarting the
// process does not lift an active lock.
//
// # What this package must NOT do
//
//   - Call the network. A locked login is rejected before any I/O.
//   - Import the root package.
package limiters
