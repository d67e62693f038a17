package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrMalformedHash   = errors.New("malformed argon2id hash")
	ErrUnsupportedHash = errors.New("unsupported hash algorithm or version")
	ErrWeakParams      = errors.New("argon2id parameters below minimum")
	ErrEmptyPassword   = errors.New("password is empty")
)

const (
	minMemoryKiB = 8 * 1024
	minSaltLen   = 16
	minKeyLen    = 16
)

var b64 = base64.RawStdEncoding

// Params are the Argon2id cost parameters.
type Params struct {
	MemoryKiB uint32
	Passes    uint32
	Threads   uint8
	SaltLen   uint32
	KeyLen    uint32
}

// DefaultParams returns parameters suited to interactive verification on a
// kiosk-class device.
func DefaultParams() Params {
	return Params{
		MemoryKiB: 19 * 1024,
		Passes:    2,
		Threads:   1,
		SaltLen:   16,
		KeyLen:    32,
	}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKiB < minMemoryKiB:
		return fmt.Errorf("%w: memory %d KiB", ErrWeakParams, p.MemoryKiB)
	case p.Passes < 1:
		return fmt.Errorf("%w: passes %d", ErrWeakParams, p.Passes)
	case p.Threads < 1:
		return fmt.Errorf("%w: threads %d", ErrWeakParams, p.Threads)
	case p.SaltLen < minSaltLen:
		return fmt.Errorf("%w: salt length %d", ErrWeakParams, p.SaltLen)
	case p.KeyLen < minKeyLen:
		return fmt.Errorf("%w: key length %d", ErrWeakParams, p.KeyLen)
	}
	return nil
}

// Hasher produces and checks Argon2id hashes.
type Hasher struct {
	params Params
}

// NewHasher validates params and returns a Hasher.
func NewHasher(params Params) (*Hasher, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: params}, nil
}

// Hash derives a PHC-encoded hash for password using a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Passes, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.MemoryKiB, h.params.Passes, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. The comparison is
// constant time in the derived key.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	derived := argon2.IDKey([]byte(password), salt, p.Passes, p.MemoryKiB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return p, nil, nil, ErrMalformedHash
	}
	if fields[1] != "argon2id" {
		return p, nil, nil, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrUnsupportedHash
	}

	var threads uint32
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Passes, &threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if threads == 0 || threads > 255 {
		return p, nil, nil, ErrMalformedHash
	}
	p.Threads = uint8(threads)

	salt, err := decodeSegment(fields[4])
	if err != nil {
		return p, nil, nil, err
	}
	key, err := decodeSegment(fields[5])
	if err != nil {
		return p, nil, nil, err
	}
	p.SaltLen, p.KeyLen = uint32(len(salt)), uint32(len(key))

	if err := p.validate(); err != nil {
		return p, nil, nil, err
	}
	return p, salt, key, nil
}

// decodeSegment accepts both padded and unpadded base64.
func decodeSegment(s string) ([]byte, error) {
	out, err := b64.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, ErrMalformedHash
	}
	return out, nil
}
