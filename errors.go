package adsession

import "errors"

var (
	// ErrInvalidCredentials is returned when the server (or the offline
	// allow-list) rejects the submitted credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the local lockout is active. No
	// network call is made.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidResponseFormat is returned when a login or refresh body
	// matches neither accepted shape.
	ErrInvalidResponseFormat = errors.New("invalid response format")
	// ErrNoRefreshToken is returned by Refresh when nothing is stored.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNetworkUnavailable is returned when the auth service cannot be
	// reached or answered with a server error.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrSessionExpired is returned by CheckIntegrity after it forced a logout.
	ErrSessionExpired = errors.New("session expired")
	// ErrLocalSession is returned by Refresh for offline sessions.
	ErrLocalSession = errors.New("local session cannot be refreshed")
	// ErrLoginSuperseded is returned when a logout or a newer login finished
	// while the call was in flight; its result was discarded.
	ErrLoginSuperseded = errors.New("superseded by a newer session change")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStorageUnavailable wraps credential storage failures.
	ErrStorageUnavailable = errors.New("credential storage unavailable")
	// ErrInvalidConfig is returned by Config.Validate and Builder.Build.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrManagerClosed is returned by operations started after Close.
	ErrManagerClosed = errors.New("session manager closed")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// Error is the failure type surfaced by Manager operations. Kind is one of
// the sentinel errors above, so errors.Is(err, ErrInvalidCredentials) works.
type Error struct {
	Kind error
	// Message is the human-readable text extracted from the server response,
	// if there was one.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Kind.Error() + ": " + e.Message
	case e.Err != nil:
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Message returns the server-provided message carried by err, or "".
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
