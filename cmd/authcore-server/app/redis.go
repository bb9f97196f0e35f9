package app

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/cmd/authcore-server/app/options"
	"github.com/MrEthical07/authcore/internal/httpapi"
	"github.com/MrEthical07/authcore/store"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
)

// tuneRueidis adjusts the rueidis client options before connecting.
var tuneRueidis = func(*rueidis.ClientOption) {}

// sharedStores connects to Redis with the configured driver.
type sharedStores struct {
	// bind points the builder at the Redis-backed stores.
	bind   func(b *authcore.Builder)
	health httpapi.HealthCheck
	close  func()
}

func newSharedStores(opts *options.RedisOptions, cfg authcore.Config) (*sharedStores, error) {
	switch opts.Client {
	case options.RedisClientRueidis:
		clientOpts := rueidis.ClientOption{
			InitAddress: opts.Addrs,
			Username:    opts.Username,
			Password:    opts.Password,
			SelectDB:    opts.DB,
		}
		tuneRueidis(&clientOpts)
		client, err := rueidis.NewClient(clientOpts)
		if err != nil {
			return nil, fmt.Errorf("rueidis connect: %w", err)
		}
		return &sharedStores{
			bind: func(b *authcore.Builder) {
				b.WithRevocationStore(store.NewRueidisRevocationStore(client, cfg.Revocation.Prefix)).
					WithExistenceCache(store.NewRueidisExistenceCache(client, cfg.Existence.Prefix, cfg.Existence.TTL))
			},
			health: func(ctx context.Context) error {
				return client.Do(ctx, client.B().Ping().Build()).Error()
			},
			close: client.Close,
		}, nil

	default:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    opts.Addrs,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.DB,
		})
		return &sharedStores{
			bind: func(b *authcore.Builder) { b.WithRedis(rdb) },
			health: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
			close: func() { _ = rdb.Close() },
		}, nil
	}
}
