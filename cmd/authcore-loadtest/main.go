package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/userstore/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		principals  = flag.Int("principals", 10000, "number of principals to seed")
		tokens      = flag.Int("tokens", 50000, "number of access tokens to issue")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		revokeRatio = flag.Float64("revoke-ratio", 0.1, "fraction of mixed-phase operations that revoke")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		secret      = flag.String("secret", "loadtest-secret-loadtest-secret!", "HS256 signing secret")
	)
	flag.Parse()

	if *principals <= 0 || *tokens <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, tokens, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if *revokeRatio < 0 || *revokeRatio > 1 {
		fmt.Fprintln(os.Stderr, "revoke-ratio must be within [0, 1]")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	users := memory.New()
	for i := 1; i <= *principals; i++ {
		users.Put(authcore.Principal{ID: int64(i), Username: fmt.Sprintf("user-%d", i), Active: true})
	}

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(*secret)
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("issuing %d token pairs...\n", *tokens)
	startIssue := time.Now()
	access := make([]string, *tokens)
	for i := range access {
		pair, err := engine.IssuePair(ctx, authcore.Principal{ID: int64(i%*principals + 1)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		access[i] = pair.AccessToken
	}
	fmt.Printf("issued in %s\n", time.Since(startIssue).Round(time.Millisecond))

	validateStats := runPhase(ctx, *ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.ValidateAccess(ctx, access[r.Intn(len(access))])
		return err
	})

	var revoked int64
	mixedStats := runPhase(ctx, *ops, *concurrency, func(r *rand.Rand) error {
		token := access[r.Intn(len(access))]
		if r.Float64() < *revokeRatio {
			atomic.AddInt64(&revoked, 1)
			return engine.Revoke(ctx, token)
		}
		_, err := engine.ValidateAccess(ctx, token)
		if errors.Is(err, authcore.ErrRevoked) {
			return nil
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("validate+revoke", mixedStats)
	fmt.Printf("revocations issued: %d\n", revoked)

	snap := engine.MetricsSnapshot()
	fmt.Printf("existence hits=%d misses=%d store retries=%d\n",
		snap.Counters[authcore.MetricExistenceHit],
		snap.Counters[authcore.MetricExistenceMiss],
		snap.Counters[authcore.MetricStoreRetry],
	)
}

func runPhase(ctx context.Context, ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for ctx.Err() == nil {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
