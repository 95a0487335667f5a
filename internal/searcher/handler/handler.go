package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/topics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, query string, opts executor.Options) (*executor.SearchResult, error)
}

// SnapshotSource is satisfied by *indexer.Engine.
type SnapshotSource interface {
	Snapshot() (*indexer.Snapshot, error)
}

// Reloader is satisfied by *indexer.Reloader.
type Reloader interface {
	Reload(ctx context.Context) (indexer.BuildReport, error)
}

type Option func(*Handler)

// WithCache enables result caching keyed by snapshot generation.
func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithTracker reports every executed search as an analytics event.
func WithTracker(t analytics.Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithReloader enables POST /api/v1/admin/reload.
func WithReloader(r Reloader) Option {
	return func(h *Handler) { h.reloader = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

type Handler struct {
	executor SearchExecutor
	engine   SnapshotSource
	cache    *cache.QueryCache
	tracker  analytics.Tracker
	reloader Reloader
	metrics  *metrics.Metrics
	cfg      config.SearchConfig
	logger   *slog.Logger
}

func New(exec SearchExecutor, engine SnapshotSource, cfg config.SearchConfig, opts ...Option) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = executor.DefaultLimit
	}
	h := &Handler{
		executor: exec,
		engine:   engine,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every search route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/chapters", h.Chapters)
	mux.HandleFunc("GET /api/v1/topics", h.Topics)
	mux.HandleFunc("GET /api/v1/topics/{name}", h.Topic)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search. A blank q yields an empty result rather
// than an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer span.Finish(log)

	query := r.URL.Query().Get("q")
	opts, err := h.parseOptions(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	snap, err := h.engine.Snapshot()
	if err != nil {
		h.metrics.ObserveSearch("", "error", "none", 0, time.Since(start))
		h.writeAppError(w, err)
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	cacheStatus := "disabled"
	if h.cache != nil && strings.TrimSpace(query) != "" {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, snap.Generation, query, opts, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, query, opts)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		if err == nil {
			h.metrics.ObserveCache(cacheHit)
		}
	} else {
		result, err = h.executor.Execute(ctx, query, opts)
	}

	elapsed := time.Since(start)
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.metrics.ObserveSearch("", "error", cacheStatus, 0, elapsed)
		h.writeAppError(w, err)
		return
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	span.SetAttr("cache", cacheStatus)
	span.SetAttr("total_hits", result.TotalHits)
	h.metrics.ObserveSearch(result.Mode, resultType, cacheStatus, result.TotalHits, elapsed)

	log.Info("search completed",
		"query", query,
		"mode", result.Mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.tracker != nil && len(result.Words) > 0 {
		h.tracker.Track(analytics.NewSearchEvent(result, elapsed, cacheHit, middleware.GetRequestID(ctx)))
	}

	h.writeJSON(w, http.StatusOK, result)
}

// parseOptions reads limit, exact, sort, text, chapter_info and highlight.
// A limit of zero means every match; a limit above MaxResults is clamped.
func (h *Handler) parseOptions(r *http.Request) (executor.Options, error) {
	q := r.URL.Query()
	opts := executor.DefaultOptions()
	opts.Limit = h.cfg.DefaultLimit
	opts.PrefixBackoff = h.cfg.PrefixBackoff

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return opts, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be a non-negative integer")
		}
		if h.cfg.MaxResults > 0 && limit > h.cfg.MaxResults {
			limit = h.cfg.MaxResults
		}
		opts.Limit = limit
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"exact", &opts.ExactMatch},
		{"sort", &opts.SortByRelevance},
		{"text", &opts.IncludeText},
		{"chapter_info", &opts.IncludeChapterInfo},
		{"highlight", &opts.Highlight},
	}
	for _, f := range flags {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"%s must be a boolean", f.name)
		}
		*f.dst = b
	}
	return opts, nil
}

// Chapters serves GET /api/v1/chapters. Without q it lists every chapter.
func (h *Handler) Chapters(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	chapters := snap.Chapters
	if q := r.URL.Query().Get("q"); strings.TrimSpace(q) != "" {
		chapters = chapters.Search(q, snap.Normalization)
	}
	if chapters == nil {
		chapters = corpus.Chapters{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(chapters),
		"chapters": chapters,
	})
}

func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"topics": topics.All()})
}

// Topic serves GET /api/v1/topics/{name}.
func (h *Handler) Topic(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	topic, ok := topics.Find(name)
	if !ok {
		h.writeAppError(w, fmt.Errorf("%w: %q", apperrors.ErrTopicNotFound, name))
		return
	}
	opts, err := h.parseOptions(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	results, err := topics.Search(r.Context(), h.executor, topic, opts)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"topic":   topic,
		"total":   len(results),
		"results": results,
	})
}

// IndexStats serves the report of the build behind the current snapshot.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Report)
}

// Reload rebuilds the index from the configured corpus source.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "reload is not configured")
		return
	}
	report, err := h.reloader.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reload failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err onto its HTTP status. Internal failures are not
// echoed to the client.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.writeError(w, status, message)
}
