package adsession

import (
	"time"

	"github.com/innoad/adsession/vault"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusSignedOut Status = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusRefreshing
	// StatusLocked is reported while the login lockout is active and no
	// session exists.
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed_out"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshing:
		return "refreshing"
	case StatusLocked:
		return "locked"
	}
	return "unknown"
}

// Mode tells server-issued sessions apart from offline ones.
type Mode int

const (
	ModeServer Mode = iota
	// ModeLocal sessions come from the offline allow-list. They are never
	// refreshed and never reported to the server.
	ModeLocal
)

func (m Mode) String() string {
	if m == ModeLocal {
		return "local"
	}
	return "server"
}

// Persistence selects the storage scope of the token triple.
type Persistence = vault.Persistence

const (
	Ephemeral  = vault.Ephemeral
	Persistent = vault.Persistent
)

// Session is an immutable snapshot of the current authentication state.
// Token fields are set only while Status is Authenticated or Refreshing.
type Session struct {
	Status       Status
	User         *UserProfile
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Persistence  Persistence
	Mode         Mode
}

// IsAuthenticated reports whether s carries a usable session.
func (s Session) IsAuthenticated() bool {
	return (s.Status == StatusAuthenticated || s.Status == StatusRefreshing) && s.AccessToken != ""
}
