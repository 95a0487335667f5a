// Package cache memoizes search results. Entries are keyed by the index
// generation, the normalized query and the search options, so a rebuilt
// index never serves results computed against its predecessor. Concurrent
// misses on one key are collapsed into a single execution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "qsearch:"

// Store is the backing key/value store. Get reports a miss with ok == false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Flush(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	store  Store
	norm   normalizer.Options
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache over store. norm must match the engine's
// normalization options so equivalent queries share an entry.
func New(store Store, norm normalizer.Options) *QueryCache {
	return &QueryCache{
		store:  store,
		norm:   norm,
		logger: slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, query string, opts executor.Options) (*executor.SearchResult, bool) {
	key := c.buildKey(generation, query, opts)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, query string, opts executor.Options, result *executor.SearchResult) {
	key := c.buildKey(generation, query, opts)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once for all
// concurrent callers asking for the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	query string,
	opts executor.Options,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, generation, query, opts); ok {
		return result, true, nil
	}
	key := c.buildKey(generation, query, opts)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, generation, query, opts, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.Flush(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// buildKey uses the same normalized form the executor matches against, so
// queries that share a key always share a result.
func (c *QueryCache) buildKey(generation uint64, query string, opts executor.Options) string {
	normalized := normalizer.Normalize(query, c.norm)
	raw := fmt.Sprintf("%d|%s|exact=%t|limit=%d|sort=%t|chapter=%t|text=%t|hl=%t|backoff=%t",
		generation, normalized,
		opts.ExactMatch, opts.Limit, opts.SortByRelevance,
		opts.IncludeChapterInfo, opts.IncludeText, opts.Highlight, opts.PrefixBackoff,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
