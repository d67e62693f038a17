// Package jwt reads claims from access tokens issued by the platform.
//
// Tokens are decoded without signature verification: the client never holds
// the server's keys and uses the claims only to decide when a session is due
// for renewal or has already expired. Authorization decisions stay on the
// server.
package jwt
