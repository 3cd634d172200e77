// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const saltLength = 16

var ErrMalformedHash = errors.New("malformed password hash")

// Argon2Params are the argon2id cost settings encoded into every hash.
type Argon2Params struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
}

var DefaultArgon2 = Argon2Params{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
}

// PasswordHasher hashes and verifies user passwords. Hashes produced under
// different params still verify and are reported for rehash.
type PasswordHasher struct {
	params Argon2Params

	dummyOnce sync.Once
	dummy     string
}

func NewPasswordHasher(params Argon2Params) *PasswordHasher {
	if params.KeyLen == 0 {
		params.KeyLen = DefaultArgon2.KeyLen
	}
	return &PasswordHasher{params: params}
}

var defaultHasher = NewPasswordHasher(DefaultArgon2)

func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	return verify(password, encodedHash)
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against encodedHash. When the hash was made with
// other params and the password matches, rehash holds a fresh hash.
func (h *PasswordHasher) Verify(password, encodedHash string) (ok bool, rehash string, err error) {
	ok, err = verify(password, encodedHash)
	if err != nil || !ok {
		return false, "", err
	}

	if !h.current(encodedHash) {
		if fresh, hashErr := h.Hash(password); hashErr == nil {
			rehash = fresh
		}
	}
	return true, rehash, nil
}

// VerifyUnknown burns the same work as Verify for a login against an
// account that does not exist, and always fails.
func (h *PasswordHasher) VerifyUnknown(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("pipeline-crm-unknown-account") //nolint:errcheck // falls back to a malformed hash
	})
	_, _ = verify(password, h.dummy) //nolint:errcheck // result is discarded
}

func (h *PasswordHasher) current(encodedHash string) bool {
	p, _, _, err := decodeHash(encodedHash)
	return err == nil && *p == h.params
}

func verify(password, encodedHash string) (bool, error) {
	p, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func decodeHash(encodedHash string) (*Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("incompatible argon2 version %d", version)
	}

	p := &Argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: params", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	//nolint:gosec // G115: argon2 keys are a few dozen bytes
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

// GenerateRefreshToken returns 32 random bytes, URL-safe encoded. Only its
// HashToken digest is ever stored.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
