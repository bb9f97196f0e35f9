package app

import (
	"context"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/cmd/authcore-server/app/options"
	"github.com/MrEthical07/authcore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
)

func init() {
	// miniredis speaks RESP2 only and has no client-side caching.
	tuneRueidis = func(o *rueidis.ClientOption) {
		o.DisableCache = true
		o.AlwaysRESP2 = true
		o.ForceSingleClient = true
		o.ClientSetInfo = rueidis.DisableClientSetInfo
	}
}

func TestSharedStoresDrivers(t *testing.T) {
	for _, client := range []string{options.RedisClientGoRedis, options.RedisClientRueidis} {
		t.Run(client, func(t *testing.T) {
			mr := miniredis.RunT(t)
			ctx := context.Background()

			cfg := authcore.DefaultConfig()
			cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
			cfg.Password.Memory = 8 * 1024
			cfg.Password.Time = 1
			cfg.Password.Parallelism = 1

			shared, err := newSharedStores(&options.RedisOptions{Client: client, Addrs: []string{mr.Addr()}}, cfg)
			require.NoError(t, err)
			t.Cleanup(shared.close)
			require.NoError(t, shared.health(ctx))

			users := memory.New()
			users.Put(authcore.Principal{ID: 42, Username: "alice", Active: true})

			b := authcore.New().WithConfig(cfg).WithUserStore(users)
			shared.bind(b)
			engine, err := b.Build()
			require.NoError(t, err)
			t.Cleanup(engine.Close)

			pair, err := engine.IssuePair(ctx, authcore.Principal{ID: 42})
			require.NoError(t, err)
			_, err = engine.ValidateAccess(ctx, pair.AccessToken)
			require.NoError(t, err)
			require.True(t, mr.Exists("user:42"), "existence cache should live in redis")

			require.NoError(t, engine.Revoke(ctx, pair.AccessToken))
			_, err = engine.ValidateAccess(ctx, pair.AccessToken)
			require.ErrorIs(t, err, authcore.ErrRevoked)
			require.NotEmpty(t, mr.Keys())
		})
	}
}
