package authcore

import (
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/store"
)

// Config is the complete engine configuration. Obtain a populated value from
// [DefaultConfig], adjust it, and pass it to [Builder.WithConfig].
type Config struct {
	JWT        JWTConfig
	Revocation RevocationConfig
	Existence  ExistenceConfig
	Store      StoreConfig
	Password   PasswordConfig
	Audit      AuditConfig
	Metrics    MetricsConfig

	// RejectInactive makes Validate and Refresh fail with ErrPrincipalInactive for
	// disabled or soft-deleted principals. When false the principal is returned
	// and the caller applies its own policy.
	RejectInactive bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	// PrivateKey is the HMAC secret for hs256 or the signing key for ed25519.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	// Leeway tolerates clock drift when checking expiry. At most two minutes.
	Leeway time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// RevocationConfig controls the key layout of the revocation store.
type RevocationConfig struct {
	Prefix string
	// SweepInterval is how often the in-process fallback store drops expired
	// entries. Redis expires keys itself and ignores it.
	SweepInterval time.Duration
}

// ExistenceConfig controls the principal existence cache.
type ExistenceConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
	// LocalCapacity sizes the in-process cache used when no Redis client is configured.
	LocalCapacity int64
}

// StoreConfig bounds every call to the revocation store, existence cache and user store.
type StoreConfig struct {
	// Timeout applies to each attempt.
	Timeout    time.Duration
	RetryDelay time.Duration
	// MaxRetries is the number of extra attempts after a store failure.
	MaxRetries int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters and the minimum password length.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. The signing key is left empty
// and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
		},
		Revocation: RevocationConfig{
			Prefix:        store.DefaultRevocationPrefix,
			SweepInterval: store.DefaultSweepInterval,
		},
		Existence: ExistenceConfig{
			Enabled:       true,
			Prefix:        store.DefaultExistencePrefix,
			TTL:           store.DefaultExistenceTTL,
			LocalCapacity: 100_000,
		},
		Store: StoreConfig{
			Timeout:    500 * time.Millisecond,
			RetryDelay: 10 * time.Millisecond,
			MaxRetries: 1,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		RejectInactive: true,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// Validate reports the first problem that would prevent the engine from
// starting. Every returned error matches [ErrConfiguration].
func (c *Config) Validate() error {
	// JWT
	// Token timestamps carry whole seconds.
	if c.JWT.AccessTTL < time.Second {
		return configError("JWT AccessTTL must be at least 1s")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return configError("JWT RefreshTTL must be greater than AccessTTL")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) == 0 {
			return configError("hs256 requires a signing secret")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return configError("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return configError("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return configError("JWT Leeway must be between 0 and 2m")
	}

	// Stores
	if c.Revocation.Prefix == "" {
		return configError("Revocation Prefix must not be empty")
	}
	if c.Revocation.SweepInterval < 0 {
		return configError("Revocation SweepInterval must be >= 0")
	}
	if c.Existence.Enabled {
		if c.Existence.Prefix == "" {
			return configError("Existence Prefix must not be empty")
		}
		if c.Existence.TTL <= 0 {
			return configError("Existence TTL must be > 0")
		}
	}
	if c.Store.Timeout <= 0 {
		return configError("Store Timeout must be > 0")
	}
	if c.Store.MaxRetries < 0 {
		return configError("Store MaxRetries must be >= 0")
	}
	if c.Store.MaxRetries > 0 && c.Store.RetryDelay <= 0 {
		return configError("Store RetryDelay must be > 0 when retries are enabled")
	}

	// Password
	if c.Password.MinLength < 1 {
		return configError("Password MinLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configError("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
