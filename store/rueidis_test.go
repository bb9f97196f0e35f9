package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRueidisTest(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		ClientSetInfo:     rueidis.DisableClientSetInfo,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return mr, client
}

func TestRueidisRevocationLifecycle(t *testing.T) {
	mr, client := newRueidisTest(t)
	s := NewRueidisRevocationStore(client, "")
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "jti-r", 30*time.Second))
	revoked, err := s.IsRevoked(ctx, "jti-r")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 30*time.Second, mr.TTL("blacklist:jti-r"))

	mr.FastForward(31 * time.Second)
	revoked, err = s.IsRevoked(ctx, "jti-r")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.ErrorIs(t, s.Revoke(ctx, "jti-r", 0), ErrNonPositiveTTL)
}

func TestRueidisAndGoRedisShareKeyLayout(t *testing.T) {
	mr, client := newRueidisTest(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	writer := NewRueidisRevocationStore(client, "shared:")
	reader := NewRedisRevocationStore(rdb, "shared:")
	ctx := context.Background()

	require.NoError(t, writer.Revoke(ctx, "jti-x", time.Minute))
	revoked, err := reader.IsRevoked(ctx, "jti-x")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRueidisExistenceCache(t *testing.T) {
	mr, client := newRueidisTest(t)
	c := NewRueidisExistenceCache(client, "", 0)
	ctx := context.Background()

	hit, err := c.Probe(ctx, 42)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Remember(ctx, 42))
	hit, err = c.Probe(ctx, 42)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, DefaultExistenceTTL, mr.TTL("user:42"))

	mr.FastForward(DefaultExistenceTTL + time.Second)
	hit, err = c.Probe(ctx, 42)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRueidisStoresReportOutage(t *testing.T) {
	mr, client := newRueidisTest(t)
	revocations := NewRueidisRevocationStore(client, "")
	cache := NewRueidisExistenceCache(client, "", time.Minute)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := revocations.IsRevoked(ctx, "jti")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = cache.Probe(ctx, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}
