package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedMarker = "1"

// RedisRevocationStore keeps one key per revoked jti with a TTL equal to the token's
// remaining lifetime, so entries vanish on their own.
type RedisRevocationStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRevocationStore returns a store writing keys under prefix
// (DefaultRevocationPrefix when empty).
func NewRedisRevocationStore(client redis.UniversalClient, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = DefaultRevocationPrefix
	}
	return &RedisRevocationStore{redis: client, prefix: prefix}
}

// Revoke marks jti revoked for ttl. Revoking an already revoked jti overwrites the
// entry and succeeds.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := checkRevoke(jti, ttl); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, revocationKey(s.prefix, jti), revokedMarker, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether a live revocation entry exists for jti.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyKey
	}
	n, err := s.redis.Exists(ctx, revocationKey(s.prefix, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// RedisExistenceCache stores a short-lived flag per principal id.
type RedisExistenceCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisExistenceCache returns a cache writing keys under prefix with the given ttl.
// Empty or non-positive arguments fall back to the package defaults.
func NewRedisExistenceCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisExistenceCache {
	if prefix == "" {
		prefix = DefaultExistencePrefix
	}
	if ttl <= 0 {
		ttl = DefaultExistenceTTL
	}
	return &RedisExistenceCache{redis: client, prefix: prefix, ttl: ttl}
}

func (c *RedisExistenceCache) Remember(ctx context.Context, principalID int64) error {
	if err := c.redis.Set(ctx, existenceKey(c.prefix, principalID), revokedMarker, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *RedisExistenceCache) Probe(ctx context.Context, principalID int64) (bool, error) {
	n, err := c.redis.Exists(ctx, existenceKey(c.prefix, principalID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
