package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RedisStore keeps entries in Redis with a fixed TTL, shared by every
// searcher instance.
type RedisStore struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisStore(client *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.client.GetBytes(ctx, key)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.SetBytes(ctx, key, value, s.ttl)
}

func (s *RedisStore) Flush(ctx context.Context, prefix string) (int64, error) {
	return s.client.DeletePrefix(ctx, prefix)
}

// BreakerStore guards a remote store with a circuit breaker. While the
// circuit is open reads are misses and writes are skipped, so an unreachable
// Redis adds no latency to searches.
type BreakerStore struct {
	next Store
	cb   *resilience.CircuitBreaker
}

func NewBreakerStore(next Store, cb *resilience.CircuitBreaker) *BreakerStore {
	return &BreakerStore{next: next, cb: cb}
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	err := s.cb.Execute(func() error {
		var err error
		data, ok, err = s.next.Get(ctx, key)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, false, nil
	}
	return data, ok, err
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte) error {
	err := s.cb.Execute(func() error {
		return s.next.Set(ctx, key, value)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil
	}
	return err
}

// Flush bypasses the breaker: an invalidation must be attempted even when
// reads are being short-circuited.
func (s *BreakerStore) Flush(ctx context.Context, prefix string) (int64, error) {
	return s.next.Flush(ctx, prefix)
}

// LocalStore is a bounded in-process LRU, used when no Redis is configured.
// Entries do not expire; they are evicted by size or dropped on Flush.
type LocalStore struct {
	cache *lru.Cache[string, []byte]
}

// NewLocalStore creates a LocalStore holding at most size entries.
func NewLocalStore(size int) (*LocalStore, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LocalStore{cache: c}, nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.cache.Get(key)
	return v, ok, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Add(key, value)
	return nil
}

func (s *LocalStore) Flush(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
			n++
		}
	}
	return n, nil
}

// Len is the number of cached entries.
func (s *LocalStore) Len() int {
	return s.cache.Len()
}
