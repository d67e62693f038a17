// Package transport is the HTTP client for the platform's auth endpoints:
// POST /auth/login, /auth/refresh, /auth/logout and /audit/security-event.
//
// Response bodies are returned raw; interpreting them belongs to the session
// manager. Failures are classified as [ErrUnavailable] (no usable answer
// from the server) or [*StatusError] (the server answered with a 4xx), with
// the human message extracted from whichever error-body shape the server
// used.
package transport
