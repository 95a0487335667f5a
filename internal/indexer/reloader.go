package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/tracing"
)

// SwapHook runs after a new snapshot has been published.
type SwapHook func(ctx context.Context, report BuildReport)

// FailureHook runs after a load or build fails.
type FailureHook func(ctx context.Context, err error)

// Reloader loads the corpus from its source and rebuilds the engine. Only one
// reload runs at a time; a concurrent request fails with ErrReloadInProgress.
type Reloader struct {
	engine  *Engine
	loader  corpus.Loader
	metrics *metrics.Metrics
	running atomic.Bool
	hooksMu sync.RWMutex
	hooks   []SwapHook
	onFail  []FailureHook
	logger  *slog.Logger
}

// NewReloader ties a loader to an engine. m may be nil.
func NewReloader(engine *Engine, loader corpus.Loader, m *metrics.Metrics) *Reloader {
	return &Reloader{
		engine:  engine,
		loader:  loader,
		metrics: m,
		logger:  slog.Default().With("component", "reloader"),
	}
}

// OnSwap registers a hook that runs after every successful rebuild, in
// registration order.
func (r *Reloader) OnSwap(hook SwapHook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// OnFailure registers a hook that runs after every failed reload.
func (r *Reloader) OnFailure(hook FailureHook) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onFail = append(r.onFail, hook)
}

// Reload loads the corpus and rebuilds the index. On failure the previously
// published snapshot stays in service.
func (r *Reloader) Reload(ctx context.Context) (BuildReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return BuildReport{}, apperrors.ErrReloadInProgress
	}
	defer r.running.Store(false)

	ctx, span := tracing.StartSpan(ctx, "reload", middleware.GetRequestID(ctx))
	defer span.Finish(r.logger)

	_, load := tracing.StartChildSpan(ctx, "load")
	c, err := r.loader.Load(ctx)
	load.End()
	if err != nil {
		r.metrics.ObserveBuild(metrics.BuildStats{}, err)
		r.logger.Error("corpus load failed", "error", err)
		err = fmt.Errorf("loading corpus: %w", err)
		r.fail(ctx, err)
		return BuildReport{}, err
	}
	_, build := tracing.StartChildSpan(ctx, "build")
	report, err := r.engine.Build(ctx, c)
	build.SetAttr("verses", report.Verses)
	build.End()
	r.metrics.ObserveBuild(buildStats(report), err)
	if err != nil {
		r.logger.Error("index build failed, keeping previous snapshot",
			"error", err,
			"serving", r.engine.Ready(),
		)
		r.fail(ctx, err)
		return BuildReport{}, err
	}

	r.hooksMu.RLock()
	hooks := make([]SwapHook, len(r.hooks))
	copy(hooks, r.hooks)
	r.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, report)
	}
	return report, nil
}

func (r *Reloader) fail(ctx context.Context, err error) {
	r.hooksMu.RLock()
	hooks := make([]FailureHook, len(r.onFail))
	copy(hooks, r.onFail)
	r.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, err)
	}
}

func buildStats(report BuildReport) metrics.BuildStats {
	skipped := make(map[string]int, len(report.SkippedByReason))
	for reason, n := range report.SkippedByReason {
		skipped[string(reason)] = n
	}
	return metrics.BuildStats{
		Verses:     report.Verses,
		Terms:      report.Terms,
		Postings:   report.Postings,
		Generation: report.Generation,
		Skipped:    skipped,
		Duration:   report.Duration,
	}
}
