// Package offline authenticates against a locally configured allow-list
// when the platform cannot be reached.
//
// A successful check yields a local session: opaque tokens with a "local."
// prefix that no server will accept, so they can never be mistaken for
// server-issued credentials.
package offline

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/innoad/adsession/password"
)

const (
	// TokenPrefix marks access tokens of local sessions.
	TokenPrefix = "local."
	// RefreshPrefix marks refresh tokens of local sessions.
	RefreshPrefix = "local-refresh."
)

var (
	// ErrNoMatch is returned for unknown identifiers and wrong passwords alike.
	ErrNoMatch = errors.New("offline credentials rejected")
	// ErrDisabled is returned when no allow-list is configured.
	ErrDisabled = errors.New("offline authentication disabled")
)

// Account is one allow-list entry. PasswordHash is an argon2id PHC string.
type Account struct {
	ID           string `mapstructure:"id" yaml:"id"`
	Username     string `mapstructure:"username" yaml:"username"`
	Email        string `mapstructure:"email" yaml:"email"`
	DisplayName  string `mapstructure:"display_name" yaml:"display_name"`
	Role         string `mapstructure:"role" yaml:"role"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

// Session is the outcome of a successful offline check.
type Session struct {
	Account      Account
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Authenticator checks credentials against the allow-list.
type Authenticator struct {
	accounts []Account
	hasher   *password.Hasher
	ttl      time.Duration
}

// New returns an Authenticator. ttl is the lifetime of issued local sessions.
func New(accounts []Account, ttl time.Duration) (*Authenticator, error) {
	h, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Authenticator{accounts: append([]Account(nil), accounts...), hasher: h, ttl: ttl}, nil
}

// Authenticate matches identifier against username or email
// (case-insensitive) and verifies the password.
func (a *Authenticator) Authenticate(identifier, pass string) (*Session, error) {
	if a == nil || len(a.accounts) == 0 {
		return nil, ErrDisabled
	}

	id := strings.ToLower(strings.TrimSpace(identifier))
	var match *Account
	for i := range a.accounts {
		acct := &a.accounts[i]
		u := subtle.ConstantTimeCompare([]byte(strings.ToLower(acct.Username)), []byte(id))
		e := subtle.ConstantTimeCompare([]byte(strings.ToLower(acct.Email)), []byte(id))
		if (u|e) == 1 && match == nil {
			match = acct
		}
	}
	if match == nil || id == "" {
		return nil, ErrNoMatch
	}

	ok, err := a.hasher.Verify(pass, match.PasswordHash)
	if err != nil || !ok {
		return nil, ErrNoMatch
	}

	return &Session{
		Account:      *match,
		AccessToken:  TokenPrefix + uuid.NewString(),
		RefreshToken: RefreshPrefix + uuid.NewString(),
		ExpiresIn:    a.ttl,
	}, nil
}

// IsLocalToken reports whether token was issued by this package.
func IsLocalToken(token string) bool {
	return strings.HasPrefix(token, TokenPrefix)
}
