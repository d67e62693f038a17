package vault

import (
	"context"
	"errors"
)

var (
	// ErrScopeUnavailable indicates a storage backend failed.
	ErrScopeUnavailable = errors.New("storage scope unavailable")
	// ErrNotFound indicates no credentials are stored in either scope.
	ErrNotFound = errors.New("no stored credentials")
)

// Scope is a string key/value store. Implementations must be safe for
// concurrent use.
type Scope interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetMany writes all values. Implementations should apply the batch
	// atomically where the backend allows it.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Persistence identifies which scope holds the session.
type Persistence int

const (
	// Ephemeral storage ends with the process.
	Ephemeral Persistence = iota
	// Persistent storage survives restarts.
	Persistent
)

func (p Persistence) String() string {
	if p == Persistent {
		return "persistent"
	}
	return "ephemeral"
}

// ForRemember maps a "remember me" flag to a scope.
func ForRemember(remember bool) Persistence {
	if remember {
		return Persistent
	}
	return Ephemeral
}
