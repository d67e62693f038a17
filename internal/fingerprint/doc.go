// Package fingerprint derives a stable digest of the running environment and
// reports when it changes between sessions.
//
// The digest is an anomaly signal only. It is neither secret nor unique and
// must never gate authentication.
package fingerprint
