package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*QueryCache, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(64)
	require.NoError(t, err)
	return New(store, normalizer.DefaultOptions()), store
}

func result(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		TotalHits: 1,
		Results:   []executor.Result{{Score: 80, MatchType: "full", ChapterNumber: 1, VerseNumber: 1}},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	opts := executor.DefaultOptions()
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return result("الرحمن"), nil
	}

	first, hit, err := c.GetOrCompute(ctx, 1, "الرحمن", opts, compute)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.GetOrCompute(ctx, 1, "الرحمن", opts, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestKeyFolding(t *testing.T) {
	c, _ := newCache(t)
	opts := executor.DefaultOptions()

	assert.Equal(t, c.buildKey(1, "الرحمن", opts), c.buildKey(1, "  الرَّحْمَٰنِ ", opts))
	assert.Equal(t, c.buildKey(1, "بسم  الله", opts), c.buildKey(1, "بسم الله", opts))
	assert.NotEqual(t, c.buildKey(1, "الرحمن", opts), c.buildKey(2, "الرحمن", opts), "generation is part of the key")

	exact := opts
	exact.ExactMatch = true
	assert.NotEqual(t, c.buildKey(1, "الرحمن", opts), c.buildKey(1, "الرحمن", exact))

	limited := opts
	limited.Limit = 5
	assert.NotEqual(t, c.buildKey(1, "الرحمن", opts), c.buildKey(1, "الرحمن", limited))
}

func TestSharedKeySharesResult(t *testing.T) {
	engine := indexer.NewEngine(config.IndexConfig{Workers: 1}, normalizer.DefaultOptions())
	_, err := engine.Build(context.Background(), &corpus.Corpus{Verses: []corpus.Verse{
		{ChapterNumber: 1, VerseNumber: 1, Text: "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"},
		{ChapterNumber: 1, VerseNumber: 2, Text: "الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ"},
	}})
	require.NoError(t, err)
	exec := executor.New(engine, "", "")
	c, _ := newCache(t)
	ctx := context.Background()
	opts := executor.DefaultOptions()
	opts.ExactMatch = true

	for i, query := range []string{"الحمد  لله", "الحمد لله", "الحمد\tلله"} {
		direct, err := exec.Execute(ctx, query, opts)
		require.NoError(t, err)
		require.Equal(t, 1, direct.TotalHits, query)

		cached, hit, err := c.GetOrCompute(ctx, 1, query, opts, func() (*executor.SearchResult, error) {
			return exec.Execute(ctx, query, opts)
		})
		require.NoError(t, err)
		assert.Equal(t, i > 0, hit, query)
		assert.Equal(t, direct.TotalHits, cached.TotalHits, query)
		assert.Equal(t, direct.Results, cached.Results, query)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	c, store := newCache(t)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), 1, "الله", executor.DefaultOptions(), func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestSingleflightCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newCache(t)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return result("الله"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), 1, "الله", executor.DefaultOptions(), compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestInvalidate(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()
	opts := executor.DefaultOptions()
	c.Set(ctx, 1, "الله", opts, result("الله"))
	c.Set(ctx, 1, "الرحمن", opts, result("الرحمن"))
	require.NoError(t, store.Set(ctx, "other:key", []byte("x")))
	require.Equal(t, 3, store.Len())

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 1, store.Len(), "foreign keys survive")

	_, ok := c.Get(ctx, 1, "الله", opts)
	assert.False(t, ok)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c, store := newCache(t)
	ctx := context.Background()
	opts := executor.DefaultOptions()
	require.NoError(t, store.Set(ctx, c.buildKey(1, "الله", opts), []byte("{not json")))

	_, ok := c.Get(ctx, 1, "الله", opts)
	assert.False(t, ok)
}

func TestLocalStoreEvicts(t *testing.T) {
	store, err := NewLocalStore(2)
	require.NoError(t, err)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, k, []byte(k)))
	}
	assert.Equal(t, 2, store.Len())
	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewLocalStoreRejectsBadSize(t *testing.T) {
	_, err := NewLocalStore(0)
	assert.Error(t, err)
}

type failingStore struct {
	gets atomic.Int32
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.gets.Add(1)
	return nil, false, errors.New("dial tcp: connection refused")
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("dial tcp: connection refused")
}

func (f *failingStore) Flush(ctx context.Context, prefix string) (int64, error) {
	return 0, nil
}

func TestBreakerStoreShortCircuits(t *testing.T) {
	inner := &failingStore{}
	cb := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	store := NewBreakerStore(inner, cb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := store.Get(ctx, "k")
		assert.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, cb.State())

	data, ok, err := store.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.NoError(t, store.Set(ctx, "k", []byte("v")))
	assert.Equal(t, int32(2), inner.gets.Load())
}

func TestBreakerStoreServesThroughCache(t *testing.T) {
	cb := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	c := New(NewBreakerStore(&failingStore{}, cb), normalizer.DefaultOptions())

	res, hit, err := c.GetOrCompute(context.Background(), 1, "الله", executor.DefaultOptions(), func() (*executor.SearchResult, error) {
		return result("الله"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "الله", res.Query)
}
