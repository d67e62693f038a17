package adsession

import (
	"errors"
	"io"

	"github.com/innoad/adsession/internal/audit"
)

// AuditEvent is one security-relevant occurrence. Events are immutable once
// emitted.
type AuditEvent = audit.Event

// AuditSink receives every audit event synchronously, in emission order.
type AuditSink = audit.Sink

// Event types.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventTokenRefreshed = "token_refreshed"
	EventRefreshFailed  = "refresh_failed"
	EventSessionExpired = "session_expired"
	EventDeviceChanged  = "device_changed"
	EventAccountLocked  = "account_locked"
	EventOfflineLogin   = "offline_login"
	EventProfileUpdated = "profile_updated"
)

// NewChannelSink returns a sink that buffers events on a channel and drops
// them when the buffer is full.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// errorCode maps a failure to the short code carried in audit events.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidResponseFormat):
		return "invalid_response"
	case errors.Is(err, ErrNetworkUnavailable):
		return "network_unavailable"
	case errors.Is(err, ErrNoRefreshToken):
		return "no_refresh_token"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrLoginSuperseded):
		return "superseded"
	}
	return "internal"
}
