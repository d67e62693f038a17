package vault

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrIncomplete is returned by Save when a token field is empty.
var ErrIncomplete = errors.New("incomplete credentials")

// Keys names the storage keys used inside each scope.
type Keys struct {
	AccessToken  string
	RefreshToken string
	Profile      string
	ExpiresAt    string
	Fingerprint  string
	Lockout      string
}

// DefaultKeys returns the key set for prefix ("innoad_" when empty).
func DefaultKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "innoad_"
	}
	return Keys{
		AccessToken:  prefix + "token",
		RefreshToken: prefix + "refresh_token",
		Profile:      prefix + "usuario",
		ExpiresAt:    prefix + "expires_at",
		Fingerprint:  prefix + "device_fingerprint",
		Lockout:      prefix + "lockout",
	}
}

func (k Keys) session() []string {
	return []string{k.AccessToken, k.RefreshToken, k.Profile, k.ExpiresAt}
}

// Credentials is the stored token triple plus the serialized user profile.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Profile      []byte
}

// Vault is the only writer of session credentials.
type Vault struct {
	persistent Scope
	ephemeral  Scope
	keys       Keys

	mu sync.Mutex
}

// New creates a Vault. Nil scopes are replaced by fresh MemoryScopes.
func New(persistent, ephemeral Scope, keys Keys) *Vault {
	if persistent == nil {
		persistent = NewMemoryScope()
	}
	if ephemeral == nil {
		ephemeral = NewMemoryScope()
	}
	return &Vault{persistent: persistent, ephemeral: ephemeral, keys: keys}
}

// Keys returns the configured key set.
func (v *Vault) Keys() Keys {
	return v.keys
}

// Scope returns the backend for p.
func (v *Vault) Scope(p Persistence) Scope {
	if p == Persistent {
		return v.persistent
	}
	return v.ephemeral
}

// Save stores c in the scope selected by p, then clears the other scope.
func (v *Vault) Save(ctx context.Context, c Credentials, p Persistence) error {
	if c.AccessToken == "" || c.RefreshToken == "" || c.ExpiresAt.IsZero() {
		return ErrIncomplete
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	target, other := v.Scope(p), v.Scope(otherScope(p))

	values := map[string]string{
		v.keys.AccessToken:  c.AccessToken,
		v.keys.RefreshToken: c.RefreshToken,
		v.keys.ExpiresAt:    formatInstant(c.ExpiresAt),
	}
	if len(c.Profile) > 0 {
		values[v.keys.Profile] = string(c.Profile)
	}
	if err := target.SetMany(ctx, values); err != nil {
		return fmt.Errorf("save %s scope: %w", p, err)
	}
	if len(c.Profile) == 0 {
		if err := target.Delete(ctx, v.keys.Profile); err != nil {
			return fmt.Errorf("save %s scope: %w", p, err)
		}
	}
	if err := other.Delete(ctx, v.keys.session()...); err != nil {
		return fmt.Errorf("clear %s scope: %w", otherScope(p), err)
	}
	return nil
}

// Load returns the stored credentials and the scope holding them. When an
// interrupted Save left a triple in both scopes, the one expiring later wins
// and the other copy is removed.
func (v *Vault) Load(ctx context.Context) (*Credentials, Persistence, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadLocked(ctx)
}

func (v *Vault) loadLocked(ctx context.Context) (*Credentials, Persistence, error) {
	pc, perr := v.read(ctx, v.persistent)
	ec, eerr := v.read(ctx, v.ephemeral)

	switch {
	case perr != nil && eerr != nil:
		return nil, Ephemeral, errors.Join(perr, eerr)
	case pc == nil && ec == nil:
		if perr != nil {
			return nil, Ephemeral, perr
		}
		if eerr != nil {
			return nil, Ephemeral, eerr
		}
		return nil, Ephemeral, ErrNotFound
	case pc != nil && ec == nil:
		return pc, Persistent, nil
	case pc == nil && ec != nil:
		return ec, Ephemeral, nil
	}

	if ec.ExpiresAt.After(pc.ExpiresAt) {
		_ = v.persistent.Delete(ctx, v.keys.session()...)
		return ec, Ephemeral, nil
	}
	_ = v.ephemeral.Delete(ctx, v.keys.session()...)
	return pc, Persistent, nil
}

func (v *Vault) read(ctx context.Context, s Scope) (*Credentials, error) {
	access, ok, err := s.Get(ctx, v.keys.AccessToken)
	if err != nil || !ok || access == "" {
		return nil, err
	}
	refresh, ok, err := s.Get(ctx, v.keys.RefreshToken)
	if err != nil || !ok || refresh == "" {
		return nil, err
	}
	rawExp, ok, err := s.Get(ctx, v.keys.ExpiresAt)
	if err != nil || !ok {
		return nil, err
	}
	exp, perr := parseInstant(rawExp)
	if perr != nil {
		return nil, nil
	}
	profile, _, err := s.Get(ctx, v.keys.Profile)
	if err != nil {
		return nil, err
	}

	c := &Credentials{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}
	if profile != "" {
		c.Profile = []byte(profile)
	}
	return c, nil
}

// Clear removes session credentials from both scopes. It is idempotent.
func (v *Vault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	keys := v.keys.session()
	return errors.Join(
		v.persistent.Delete(ctx, keys...),
		v.ephemeral.Delete(ctx, keys...),
	)
}

// UpdateAccessToken replaces the access token and expiry in whichever scope
// currently holds the session. It never moves data between scopes.
func (v *Vault) UpdateAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" || expiresAt.IsZero() {
		return ErrIncomplete
	}
	return v.update(ctx, map[string]string{
		v.keys.AccessToken: token,
		v.keys.ExpiresAt:   formatInstant(expiresAt),
	})
}

// UpdateRefreshToken replaces a rotated refresh token in place.
func (v *Vault) UpdateRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrIncomplete
	}
	return v.update(ctx, map[string]string{v.keys.RefreshToken: token})
}

// UpdateProfile replaces the cached profile in place.
func (v *Vault) UpdateProfile(ctx context.Context, profile []byte) error {
	return v.update(ctx, map[string]string{v.keys.Profile: string(profile)})
}

func (v *Vault) update(ctx context.Context, values map[string]string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, p, err := v.loadLocked(ctx)
	if err != nil {
		return err
	}
	if err := v.Scope(p).SetMany(ctx, values); err != nil {
		return fmt.Errorf("update %s scope: %w", p, err)
	}
	return nil
}

func otherScope(p Persistence) Persistence {
	if p == Persistent {
		return Ephemeral
	}
	return Persistent
}

func formatInstant(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseInstant(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
