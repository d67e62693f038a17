package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return tok
}

func TestExpiresAt(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	tok := signed(t, AccessClaims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	d := NewDecoder()
	got, err := d.ExpiresAt(tok)
	if err != nil {
		t.Fatalf("ExpiresAt failed: %v", err)
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}

	claims, err := d.Claims(tok)
	if err != nil {
		t.Fatalf("Claims failed: %v", err)
	}
	if claims.Role != "ADMIN" || claims.Subject != "42" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestExpiredTokenStillDecodes(t *testing.T) {
	now := time.Now()
	tok := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second))})

	expired, err := NewDecoder().Expired(tok, now)
	if err != nil {
		t.Fatalf("Expired failed: %v", err)
	}
	if !expired {
		t.Fatal("expected token to be reported expired")
	}
}

func TestDecoderErrors(t *testing.T) {
	d := NewDecoder()
	if _, err := d.ExpiresAt("local.3f1c"); !errors.Is(err, ErrNotJWT) {
		t.Fatalf("expected ErrNotJWT, got %v", err)
	}
	if _, err := d.ExpiresAt("a.b.c"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	noExp := signed(t, jwt.RegisteredClaims{Subject: "1"})
	if _, err := d.ExpiresAt(noExp); !errors.Is(err, ErrNoExpiry) {
		t.Fatalf("expected ErrNoExpiry, got %v", err)
	}
}

// FuzzDecoderClaims feeds arbitrary strings to the decoder. Goal: no panics.
func FuzzDecoderClaims(f *testing.F) {
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJleHAiOjF9.sig")
	f.Add("local.token")

	d := NewDecoder()
	f.Fuzz(func(t *testing.T, token string) {
		_, _ = d.ExpiresAt(token)
	})
}
