package password

import (
	"errors"
	"strings"
	"testing"
)

func testParams() Params {
	return Params{MemoryKiB: 8 * 1024, Passes: 1, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func TestHashAndVerify(t *testing.T) {
	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := h.Hash("kiosk-pass-01")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("kiosk-pass-01", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("kiosk-pass-02", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h, _ := NewHasher(testParams())
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyAcceptsPaddedBase64(t *testing.T) {
	h, _ := NewHasher(testParams())
	hash, _ := h.Hash("padded-ok")

	parts := strings.Split(hash, "$")
	parts[4] += "=="
	ok, err := h.Verify("padded-ok", strings.Join(parts, "$"))
	if err != nil || !ok {
		t.Fatalf("expected padded salt to verify, ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsBadInput(t *testing.T) {
	h, _ := NewHasher(testParams())
	tests := []struct {
		name    string
		encoded string
		want    error
	}{
		{"empty", "", ErrMalformedHash},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv", ErrMalformedHash},
		{"argon2i", "$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5", ErrUnsupportedHash},
		{"old version", "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5", ErrUnsupportedHash},
		{"weak memory", "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5", ErrWeakParams},
		{"bad params", "$argon2id$v=19$memory$c2FsdHNhbHRzYWx0c2FsdA$a2V5", ErrMalformedHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Verify("whatever", tt.encoded)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	p := testParams()
	p.SaltLen = 8
	if _, err := NewHasher(p); !errors.Is(err, ErrWeakParams) {
		t.Fatalf("expected ErrWeakParams, got %v", err)
	}
}

func TestHashEmptyPassword(t *testing.T) {
	h, _ := NewHasher(testParams())
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}
