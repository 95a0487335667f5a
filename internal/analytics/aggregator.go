package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/kafka"
)

const topQueryCount = 10

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	TotalBuilds       int64            `json:"total_builds"`
	FailedBuilds      int64            `json:"failed_builds"`
	LastGeneration    uint64           `json:"last_generation"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	ModeCounts        map[string]int64 `json:"mode_counts"`
	MatchTypeCounts   map[string]int64 `json:"match_type_counts"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and build events into running totals. Latencies
// are kept in a ring of the most recent maxLatencies samples.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	totalBuilds       atomic.Int64
	failedBuilds      atomic.Int64
	lastGeneration    atomic.Uint64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	latencyNext       int
	maxLatencies      int
	modeCounts        map[string]int64
	matchTypeCounts   map[string]int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator(maxLatencies int) *Aggregator {
	if maxLatencies <= 0 {
		maxLatencies = 10000
	}
	return &Aggregator{
		latencies:         make([]int64, 0, min(maxLatencies, 1024)),
		maxLatencies:      maxLatencies,
		modeCounts:        make(map[string]int64),
		matchTypeCounts:   make(map[string]int64),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and committed so they cannot stall the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.recordSearchEvent(event)
		case EventBuild:
			event, err := kafka.DecodeJSON[BuildEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode build event", "error", err)
				return nil
			}
			agg.recordBuildEvent(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type, "key", string(key))
		}
		return nil
	}
}

// Publish records an event in-process, letting the aggregator stand in for
// Kafka when no broker is configured.
func (a *Aggregator) Publish(_ context.Context, event kafka.Event) error {
	a.Record(event.Value)
	return nil
}

// Record accepts SearchEvent and BuildEvent values or pointers; anything
// else is ignored.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case SearchEvent:
		a.recordSearchEvent(e)
	case *SearchEvent:
		a.recordSearchEvent(*e)
	case BuildEvent:
		a.recordBuildEvent(e)
	case *BuildEvent:
		a.recordBuildEvent(*e)
	}
}

func (a *Aggregator) recordSearchEvent(event SearchEvent) {
	a.totalSearches.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}

	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) < a.maxLatencies {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = event.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % a.maxLatencies
	}
	if event.Mode != "" {
		a.modeCounts[event.Mode]++
	}
	for matchType, n := range event.MatchTypes {
		a.matchTypeCounts[matchType] += int64(n)
	}
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordBuildEvent(event BuildEvent) {
	a.totalBuilds.Add(1)
	if event.Error != "" {
		a.failedBuilds.Add(1)
		return
	}
	for {
		prev := a.lastGeneration.Load()
		if event.Generation <= prev || a.lastGeneration.CompareAndSwap(prev, event.Generation) {
			return
		}
	}
}

// Seed restores cumulative counters from a previously saved snapshot.
// Latency samples and query tables are not carried over.
func (a *Aggregator) Seed(prev AggregatedStats) {
	a.totalSearches.Add(prev.TotalSearches)
	a.totalBuilds.Add(prev.TotalBuilds)
	a.failedBuilds.Add(prev.FailedBuilds)
	a.cacheHits.Add(prev.CacheHits)
	a.cacheMisses.Add(prev.CacheMisses)
	a.zeroResults.Add(prev.ZeroResultCount)
	a.logger.Info("aggregator seeded from snapshot", "total_searches", prev.TotalSearches)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		TotalBuilds:     a.totalBuilds.Load(),
		FailedBuilds:    a.failedBuilds.Load(),
		LastGeneration:  a.lastGeneration.Load(),
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
		ModeCounts:      copyCounts(a.modeCounts),
		MatchTypeCounts: copyCounts(a.matchTypeCounts),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueryCount)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueryCount)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, breaking ties by query text so output is stable.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
