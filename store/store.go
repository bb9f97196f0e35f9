package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrUnavailable wraps every backend failure, including per-call timeouts.
	ErrUnavailable = errors.New("store unavailable")
	// ErrNonPositiveTTL is returned by Revoke when the token has nothing left to protect.
	ErrNonPositiveTTL = errors.New("revocation ttl must be positive")
	// ErrEmptyKey is returned when a jti is empty.
	ErrEmptyKey = errors.New("empty key")
)

const (
	// DefaultRevocationPrefix namespaces revocation keys.
	DefaultRevocationPrefix = "blacklist:"
	// DefaultExistencePrefix namespaces existence keys.
	DefaultExistencePrefix = "user:"
	// DefaultExistenceTTL is how long a principal stays remembered.
	DefaultExistenceTTL = 2 * time.Minute
)

// RevocationStore records revoked token identities until the token would have expired anyway.
//
// A Revoke that returns nil must be visible to every later IsRevoked, on any instance
// sharing the backend.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ExistenceCache remembers that a principal id was recently resolved.
// A hit is a hint only; callers still confirm against the user store.
type ExistenceCache interface {
	Remember(ctx context.Context, principalID int64) error
	Probe(ctx context.Context, principalID int64) (bool, error)
}

func revocationKey(prefix, jti string) string {
	return prefix + jti
}

func existenceKey(prefix string, principalID int64) string {
	return prefix + strconv.FormatInt(principalID, 10)
}

func checkRevoke(jti string, ttl time.Duration) error {
	if jti == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrNonPositiveTTL
	}
	return nil
}
