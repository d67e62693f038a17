// Package prometheus exposes a manager's metrics snapshot as a
// client_golang Collector.
//
// Counters are named adsession_*_total; login and refresh latency are
// histograms in seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. Callers register the
//     Collector or mount Handler.
//   - Mutate manager state.
package prometheus
