package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters
const (
	// Argon2Time is the number of passes (time cost)
	Argon2Time = 1
	// Argon2Memory is memory in KiB (64MB = 64*1024 KiB)
	Argon2Memory = 64 * 1024
	// Argon2Threads is the degree of parallelism
	Argon2Threads = 4
	// Argon2KeyLen is the derived key length in bytes
	Argon2KeyLen = 32
	// SaltSize is the per-password salt length in bytes
	SaltSize = 16

	argon2ID = "argon2id"
)

// ErrInvalidHash is returned when a stored password secret cannot be parsed.
var ErrInvalidHash = errors.New("invalid password hash format")

// Argon2Params tunes the password hasher.
type Argon2Params struct {
	Memory  uint32
	Time    uint32
	KeyLen  uint32
	SaltLen uint32
	Threads uint8
}

// DefaultArgon2Params returns the production parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:  Argon2Memory,
		Time:    Argon2Time,
		Threads: Argon2Threads,
		KeyLen:  Argon2KeyLen,
		SaltLen: SaltSize,
	}
}

// PasswordHasher produces and verifies salted argon2id password secrets
// encoded as PHC strings: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher creates a hasher with the given parameters
func NewPasswordHasher(params Argon2Params) (*PasswordHasher, error) {
	if params.Memory < 8*1024 {
		return nil, fmt.Errorf("argon2 memory must be >= 8192 KiB")
	}
	if params.Time < 1 || params.Threads < 1 {
		return nil, fmt.Errorf("argon2 time and threads must be >= 1")
	}
	if params.SaltLen < 16 || params.KeyLen < 16 {
		return nil, fmt.Errorf("argon2 salt and key length must be >= 16")
	}
	return &PasswordHasher{params: params}, nil
}

// Hash derives a new secret from password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether candidate matches the encoded secret.
// The parameters stored in the secret are used, so old hashes keep verifying
// after the configured parameters change.
func (h *PasswordHasher) Verify(candidate, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(candidate), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return p, nil, nil, ErrInvalidHash
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidHash, parts[2])
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if p.Memory == 0 || p.Time == 0 || threads == 0 || threads > 255 {
		return p, nil, nil, fmt.Errorf("%w: bad parameters", ErrInvalidHash)
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}
