package offline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/innoad/adsession/password"
)

func hashFor(t *testing.T, pw string) string {
	t.Helper()
	h, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}

func TestAuthenticateIssuesLocalSession(t *testing.T) {
	a, err := New([]Account{{
		ID: "local-1", Username: "kiosk", Email: "kiosk@innoad.test", Role: "TECNICO",
		PasswordHash: hashFor(t, "offline-secret"),
	}}, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, ident := range []string{"kiosk", "KIOSK@innoad.test", "  kiosk "} {
		s, err := a.Authenticate(ident, "offline-secret")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", ident, err)
		}
		if !IsLocalToken(s.AccessToken) || !strings.HasPrefix(s.RefreshToken, RefreshPrefix) {
			t.Fatalf("unexpected tokens %q %q", s.AccessToken, s.RefreshToken)
		}
		if strings.Count(s.AccessToken, ".") == 2 {
			t.Fatal("local token must not look like a JWT")
		}
		if s.ExpiresIn != time.Hour || s.Account.ID != "local-1" {
			t.Fatalf("unexpected session %+v", s)
		}
	}
}

func TestAuthenticateRejects(t *testing.T) {
	a, _ := New([]Account{{Username: "kiosk", PasswordHash: hashFor(t, "offline-secret")}}, 0)

	if _, err := a.Authenticate("kiosk", "wrong"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for bad password, got %v", err)
	}
	if _, err := a.Authenticate("nobody", "offline-secret"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for unknown user, got %v", err)
	}
	if _, err := a.Authenticate("", ""); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty identifier, got %v", err)
	}
}

func TestAuthenticateMalformedHash(t *testing.T) {
	a, _ := New([]Account{{Username: "kiosk", PasswordHash: "plaintext"}}, 0)
	if _, err := a.Authenticate("kiosk", "plaintext"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestEmptyAllowList(t *testing.T) {
	a, _ := New(nil, 0)
	if _, err := a.Authenticate("x", "y"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
