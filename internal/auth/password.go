package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params controls the cost of password hashing.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   uint32
}

// DefaultArgon2Params returns t=3, m=64 MiB, p=2 with a 32-byte key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   2,
		KeyLen:    32,
		SaltLen:   16,
	}
}

// Upper bounds accepted when decoding a stored hash, so a tampered record
// cannot make verification allocate unbounded memory.
const (
	maxDecodedTime      = 64
	maxDecodedMemoryKiB = 1024 * 1024
	maxDecodedKeyLen    = 128
)

var b64 = base64.RawStdEncoding

// PasswordHasher hashes and verifies passwords with Argon2id. Hashes are PHC
// strings of the form $argon2id$v=19$m=<KiB>,t=<iter>,p=<threads>$<salt>$<key>.
type PasswordHasher struct {
	params Argon2Params
}

// NewPasswordHasher creates a hasher. Zero fields fall back to the defaults.
func NewPasswordHasher(p Argon2Params) *PasswordHasher {
	d := DefaultArgon2Params()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return &PasswordHasher{params: p}
}

// Hash derives a new hash for plaintext with a fresh random salt.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := h.params
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether plaintext produced hash. The parameters encoded in
// hash are used, so hashes made with older settings keep verifying. Malformed
// or foreign hashes simply return false.
func (h *PasswordHasher) Verify(hash, plaintext string) bool {
	p, salt, key, err := decodeHash(hash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(plaintext), salt, p.Time, p.MemoryKiB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("not an argon2id hash")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %q", parts[2])
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, fmt.Errorf("malformed parameter %q", kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		switch name {
		case "m":
			p.MemoryKiB = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, fmt.Errorf("parameter p out of range")
			}
			p.Threads = uint8(n)
		default:
			return p, nil, nil, fmt.Errorf("unknown parameter %q", name)
		}
	}
	if p.Time == 0 || p.Time > maxDecodedTime ||
		p.MemoryKiB == 0 || p.MemoryKiB > maxDecodedMemoryKiB ||
		p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("argon2 parameters out of range")
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("malformed salt")
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxDecodedKeyLen {
		return p, nil, nil, fmt.Errorf("malformed key")
	}
	return p, salt, key, nil
}
