package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Config holds Argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

var (
	// ErrEmptyPassword is returned by Hash for an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrMalformedHash wraps every Verify failure caused by the stored hash itself.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)

// Hasher produces and verifies Argon2id hashes in PHC string format.
// It is stateless after construction and safe for concurrent use.
type Hasher struct {
	config Config
}

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// NewHasher validates cfg against the minimum safe parameters.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Hasher{config: cfg}, nil
}

// Hash derives a salted Argon2id hash of password. Strength rules are not applied
// here; run Policy.Validate first when accepting a new password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	c := h.config
	key := argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, c.Memory, c.Time, c.Parallelism,
		base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(key)), nil
}

// Verify reports whether password matches encodedHash. The parameters embedded in
// the hash are used, so hashes made with older settings still verify.
func (h *Hasher) Verify(password string, encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), stored.salt, stored.time, stored.memory, stored.threads, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(computed, stored.key) == 1, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedHash}, args...)...)
}

func decodePHC(encoded string) (*phc, error) {
	rest, ok := strings.CutPrefix(encoded, "$"+algorithmID+"$")
	if !ok {
		return nil, malformed("not an %s hash", algorithmID)
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return nil, malformed("want 4 fields after the algorithm, got %d", len(fields))
	}

	raw, ok := strings.CutPrefix(fields[0], "v=")
	if !ok {
		return nil, malformed("version field %q", fields[0])
	}
	if version, err := strconv.Atoi(raw); err != nil || version != argon2.Version {
		return nil, malformed("version %q", raw)
	}

	out := &phc{}
	if err := out.decodeCost(fields[1]); err != nil {
		return nil, err
	}

	var err error
	if out.salt, err = base64.StdEncoding.DecodeString(fields[2]); err != nil {
		return nil, malformed("salt: %v", err)
	}
	if len(out.salt) < int(minSaltLength) {
		return nil, malformed("salt of %d bytes", len(out.salt))
	}
	if out.key, err = base64.StdEncoding.DecodeString(fields[3]); err != nil {
		return nil, malformed("key: %v", err)
	}
	if len(out.key) == 0 {
		return nil, malformed("empty key")
	}
	return out, nil
}

// decodeCost reads "m=..,t=..,p=..". Each key must appear exactly once, in any
// order, and be at least the minimum NewHasher accepts.
func (p *phc) decodeCost(field string) error {
	const (
		seenMemory = 1 << iota
		seenTime
		seenThreads
		seenAll = seenMemory | seenTime | seenThreads
	)

	seen := 0
	for _, pair := range strings.Split(field, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return malformed("parameter %q", pair)
		}

		var (
			flag  int
			bits  int
			floor uint64
		)
		switch key {
		case "m":
			flag, bits, floor = seenMemory, 32, uint64(minMemoryKB)
		case "t":
			flag, bits, floor = seenTime, 32, uint64(minTimeCost)
		case "p":
			flag, bits, floor = seenThreads, 8, uint64(minParallelism)
		default:
			return malformed("unknown parameter %q", key)
		}
		if seen&flag != 0 {
			return malformed("repeated parameter %q", key)
		}
		seen |= flag

		n, err := strconv.ParseUint(value, 10, bits)
		if err != nil || n < floor {
			return malformed("parameter %s=%s", key, value)
		}
		switch key {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			p.threads = uint8(n)
		}
	}

	if seen != seenAll {
		return malformed("cost %q needs m, t and p", field)
	}
	return nil
}

func validateConfig(cfg Config) error {
	checks := []struct {
		name     string
		got, min uint32
	}{
		{"memory (KB)", cfg.Memory, minMemoryKB},
		{"time", cfg.Time, minTimeCost},
		{"parallelism", uint32(cfg.Parallelism), uint32(minParallelism)},
		{"salt length", cfg.SaltLength, minSaltLength},
		{"key length", cfg.KeyLength, minKeyLength},
	}
	for _, c := range checks {
		if c.got < c.min {
			return fmt.Errorf("password %s must be >= %d, got %d", c.name, c.min, c.got)
		}
	}
	return nil
}
