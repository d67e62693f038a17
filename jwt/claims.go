package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotJWT indicates the token is not a three-part JWS compact string.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrMalformed indicates the token segments could not be decoded.
	ErrMalformed = errors.New("malformed jwt")
	// ErrNoExpiry indicates the token carries no exp claim.
	ErrNoExpiry = errors.New("jwt has no exp claim")
)

// AccessClaims are the claims the client cares about.
type AccessClaims struct {
	Role  string `json:"rol,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Decoder extracts claims without verifying signatures.
type Decoder struct {
	parser *jwt.Parser
}

// NewDecoder returns a Decoder. It is safe for concurrent use.
func NewDecoder() *Decoder {
	return &Decoder{parser: jwt.NewParser()}
}

// Claims decodes the claim set of token.
func (d *Decoder) Claims(token string) (*AccessClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	claims := &AccessClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of token.
func (d *Decoder) ExpiresAt(token string) (time.Time, error) {
	claims, err := d.Claims(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token's exp claim is at or before now.
func (d *Decoder) Expired(token string, now time.Time) (bool, error) {
	exp, err := d.ExpiresAt(token)
	if err != nil {
		return false, err
	}
	return !now.Before(exp), nil
}
