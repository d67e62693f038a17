package internaldefs

import (
	"github.com/innoad/adsession"
)

// CounterDef names one counter of the manager's snapshot.
type CounterDef struct {
	ID   adsession.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram of the manager's snapshot.
type HistogramDef struct {
	ID   adsession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: adsession.MetricLoginSuccess, Name: "adsession_login_success_total", Help: "Successful logins, server and offline."},
	{ID: adsession.MetricLoginFailure, Name: "adsession_login_failure_total", Help: "Failed login attempts."},
	{ID: adsession.MetricLoginLocked, Name: "adsession_login_locked_total", Help: "Logins rejected by the lockout without a network call."},
	{ID: adsession.MetricOfflineLogin, Name: "adsession_offline_login_total", Help: "Logins accepted by the offline allow-list."},
	{ID: adsession.MetricRefreshSuccess, Name: "adsession_refresh_success_total", Help: "Successful token refreshes."},
	{ID: adsession.MetricRefreshFailure, Name: "adsession_refresh_failure_total", Help: "Failed token refreshes, each followed by a sign-out."},
	{ID: adsession.MetricLogout, Name: "adsession_logout_total", Help: "User-initiated logouts of an active session."},
	{ID: adsession.MetricSessionExpired, Name: "adsession_session_expired_total", Help: "Sessions ended by the integrity check."},
	{ID: adsession.MetricDeviceChanged, Name: "adsession_device_changed_total", Help: "Device fingerprint changes while authenticated."},
	{ID: adsession.MetricAccountLocked, Name: "adsession_account_locked_total", Help: "Lockouts triggered by consecutive failures."},
	{ID: adsession.MetricProfileUpdated, Name: "adsession_profile_updated_total", Help: "Profile updates."},
}

var HistogramDefs = []HistogramDef{
	{ID: adsession.MetricLoginLatency, Name: "adsession_login_latency_seconds", Help: "Login round-trip latency."},
	{ID: adsession.MetricRefreshLatency, Name: "adsession_refresh_latency_seconds", Help: "Refresh round-trip latency."},
}

// AuditDroppedName and AuditFailedName report the audit forwarder's losses.
const (
	AuditDroppedName = "adsession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the forward queue was full."
	AuditFailedName  = "adsession_audit_forward_failures_total"
	AuditFailedHelp  = "Audit events the platform did not accept."
)

// HistogramBounds are the upper bounds in seconds of all but the last
// (+Inf) bucket.
var HistogramBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding missing buckets
// with zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
