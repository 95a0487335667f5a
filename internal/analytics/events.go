package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
)

type EventType string

const (
	EventSearch EventType = "search"
	EventBuild  EventType = "index_build"
)

// SearchEvent describes one executed query.
type SearchEvent struct {
	Type       EventType      `json:"type"`
	Query      string         `json:"query"`
	Normalized string         `json:"normalized"`
	Words      []string       `json:"words"`
	Mode       string         `json:"mode"`
	TotalHits  int            `json:"total_hits"`
	Returned   int            `json:"returned"`
	MatchTypes map[string]int `json:"match_types,omitempty"`
	LatencyMs  int64          `json:"latency_ms"`
	CacheHit   bool           `json:"cache_hit"`
	Generation uint64         `json:"generation"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id,omitempty"`
}

// BuildEvent describes one index build attempt. Error is empty on success.
type BuildEvent struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Verses     int       `json:"verses"`
	Skipped    int       `json:"skipped"`
	Terms      int       `json:"terms"`
	Postings   int       `json:"postings"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope is decoded first to find out which event a message carries.
type envelope struct {
	Type EventType `json:"type"`
}

// NewSearchEvent summarizes an executed query.
func NewSearchEvent(res *executor.SearchResult, latency time.Duration, cacheHit bool, requestID string) SearchEvent {
	event := SearchEvent{
		Type:      EventSearch,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
	if res == nil {
		return event
	}
	event.Query = res.Query
	event.Normalized = res.Normalized
	event.Words = res.Words
	event.Mode = res.Mode
	event.TotalHits = res.TotalHits
	event.Returned = len(res.Results)
	event.Generation = res.Generation
	if len(res.Results) > 0 {
		event.MatchTypes = make(map[string]int)
		for _, r := range res.Results {
			event.MatchTypes[string(r.MatchType)]++
		}
	}
	return event
}

// NewBuildEvent summarizes a build attempt; err marks it failed.
func NewBuildEvent(report indexer.BuildReport, err error) BuildEvent {
	event := BuildEvent{
		Type:       EventBuild,
		Generation: report.Generation,
		Verses:     report.Verses,
		Skipped:    report.Skipped,
		Terms:      report.Terms,
		Postings:   report.Postings,
		DurationMs: report.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}
