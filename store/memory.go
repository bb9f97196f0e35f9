package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultSweepInterval is how often StartJanitor removes expired revocations.
const DefaultSweepInterval = time.Minute

// MemoryRevocationStore is an in-process RevocationStore. It is exact (entries are never
// evicted early) but not shared, so it only satisfies the visibility contract when a
// single instance serves all traffic.
//
// Expired entries are removed when IsRevoked finds them and by Cleanup, which
// StartJanitor runs periodically.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore returns an empty store. now defaults to time.Now.
func NewMemoryRevocationStore(now func() time.Time) *MemoryRevocationStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if err := checkRevoke(jti, ttl); err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[jti] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyKey
	}
	now := s.now()
	s.mu.RLock()
	expiresAt, ok := s.entries[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.Before(expiresAt) {
		return true, nil
	}

	s.mu.Lock()
	// A concurrent Revoke may have extended the entry since the read.
	if current, ok := s.entries[jti]; ok && !now.Before(current) {
		delete(s.entries, jti)
	}
	s.mu.Unlock()
	return false, nil
}

// Cleanup drops expired entries and returns how many were removed.
func (s *MemoryRevocationStore) Cleanup() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jti, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, jti)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Cleanup every interval (DefaultSweepInterval when not
// positive) until the returned stop function is called. stop is idempotent and
// waits for the sweeper to exit.
func (s *MemoryRevocationStore) StartJanitor(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-exited
		})
	}
}

// Len returns the number of entries held, expired or not.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MemoryExistenceCache is an in-process ExistenceCache backed by ristretto.
type MemoryExistenceCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewMemoryExistenceCache sizes the cache for roughly capacity principals.
func NewMemoryExistenceCache(capacity int64, ttl time.Duration) (*MemoryExistenceCache, error) {
	if capacity <= 0 {
		capacity = 100_000
	}
	if ttl <= 0 {
		ttl = DefaultExistenceTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("existence cache: %w", err)
	}
	return &MemoryExistenceCache{cache: cache, ttl: ttl}, nil
}

// Remember records principalID. ristretto may reject the write under contention;
// that only costs a later miss.
func (c *MemoryExistenceCache) Remember(_ context.Context, principalID int64) error {
	if c.cache.SetWithTTL(principalID, struct{}{}, 1, c.ttl) {
		c.cache.Wait()
	}
	return nil
}

func (c *MemoryExistenceCache) Probe(_ context.Context, principalID int64) (bool, error) {
	_, ok := c.cache.Get(principalID)
	return ok, nil
}

// Close stops ristretto's background goroutines.
func (c *MemoryExistenceCache) Close() {
	c.cache.Close()
}
