package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
)

// SnapshotSource exposes the index a searcher is serving. *indexer.Engine
// satisfies it.
type SnapshotSource interface {
	Snapshot() (*indexer.Snapshot, error)
}

type Handler struct {
	aggregator *Aggregator
	index      SnapshotSource
	logger     *slog.Logger
}

type HandlerOption func(*Handler)

// WithIndex adds the report of the currently served index to every response.
func WithIndex(src SnapshotSource) HandlerOption {
	return func(h *Handler) { h.index = src }
}

func NewHandler(aggregator *Aggregator, opts ...HandlerOption) *Handler {
	h := &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StatsResponse is the body of GET /api/v1/analytics. Index is present only
// on a process that serves an index and has published one.
type StatsResponse struct {
	AggregatedStats
	Index *indexer.BuildReport `json:"index,omitempty"`
}

// Stats serves the aggregated search and build analytics. The optional top
// parameter trims the top and zero-result query tables.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := -1
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top must be a non-negative integer"})
			return
		}
		top = n
	}

	resp := StatsResponse{AggregatedStats: h.aggregator.Stats()}
	if top >= 0 {
		resp.TopQueries = firstN(resp.TopQueries, top)
		resp.ZeroResultQueries = firstN(resp.ZeroResultQueries, top)
	}
	if h.index != nil {
		if snap, err := h.index.Snapshot(); err == nil {
			report := snap.Report
			resp.Index = &report
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func firstN(counts []QueryCount, n int) []QueryCount {
	if len(counts) > n {
		return counts[:n]
	}
	return counts
}
