//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/store"
	"github.com/MrEthical07/authcore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name string
	addr func(t *testing.T) string
}

// redisModes returns miniredis always, plus a real server when REDIS_ADDR is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		addr: func(t *testing.T) string {
			return miniredis.RunT(t).Addr()
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			addr: func(t *testing.T) string {
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				defer rdb.Close()
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return addr
			},
		})
	}
	return modes
}

func testConfig() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("integration-secret-integration-s")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newUsers() *memory.Store {
	users := memory.New()
	users.Put(authcore.Principal{ID: 42, Username: "alice", Active: true})
	return users
}

func newGoRedisEngine(t *testing.T, addr string, users authcore.UserStore) *authcore.Engine {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	engine, err := authcore.New().WithConfig(testConfig()).WithRedis(rdb).WithUserStore(users).Build()
	if err != nil {
		t.Fatalf("build go-redis engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newRueidisEngine(t *testing.T, addr string, users authcore.UserStore) *authcore.Engine {
	t.Helper()
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       []string{addr},
		DisableCache:      true,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		ClientSetInfo:     rueidis.DisableClientSetInfo,
	})
	if err != nil {
		t.Fatalf("rueidis client: %v", err)
	}
	t.Cleanup(client.Close)

	engine, err := authcore.New().
		WithConfig(testConfig()).
		WithRevocationStore(store.NewRueidisRevocationStore(client, "")).
		WithUserStore(users).
		Build()
	if err != nil {
		t.Fatalf("build rueidis engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
