package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/quran-search/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many verses a worker indexes between context
// checks.
const cancelCheckInterval = 256

// BuildReport summarizes one index build.
type BuildReport struct {
	Verses          int                      `json:"verses"`
	Skipped         int                      `json:"skipped"`
	SkippedByReason map[index.SkipReason]int `json:"skipped_by_reason,omitempty"`
	Chapters        int                      `json:"chapters"`
	Terms           int                      `json:"terms"`
	Postings        int                      `json:"postings"`
	SizeBytes       int64                    `json:"size_bytes"`
	Workers         int                      `json:"workers"`
	Duration        time.Duration            `json:"duration_ns"`
	Generation      uint64                   `json:"generation"`
	BuiltAt         time.Time                `json:"built_at"`
}

// Snapshot is an immutable, published index. Readers that obtained a
// snapshot keep using it even after a newer one replaces it.
type Snapshot struct {
	Index         *index.MemoryIndex
	Chapters      corpus.Chapters
	Normalization normalizer.Options
	Report        BuildReport
	Generation    uint64
}

// Engine builds inverted indexes and publishes them for concurrent readers.
// Searches never block on a build: the new snapshot replaces the old one in a
// single atomic store once it is complete.
type Engine struct {
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	buildMu    sync.Mutex
	opts       index.Options
	workers    int
	logger     *slog.Logger
}

// NewEngine creates an engine with no published snapshot.
func NewEngine(cfg config.IndexConfig, norm normalizer.Options) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		opts: index.Options{
			Normalization:   norm,
			ArticleStemming: cfg.ArticleStemming,
		},
		workers: workers,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Build indexes c and, on success, publishes the result as the current
// snapshot. Malformed verses are skipped and counted. If no verse survives,
// Build fails with ErrInvalidCorpus and whatever snapshot was published
// before stays in service.
func (e *Engine) Build(ctx context.Context, c *corpus.Corpus) (BuildReport, error) {
	if c == nil || len(c.Verses) == 0 {
		return BuildReport{}, fmt.Errorf("%w: corpus has no verses", apperrors.ErrInvalidCorpus)
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	chunks := chunk(c.Verses, e.workers)
	parts := make([]*index.MemoryIndex, len(chunks))
	skips := make([]map[index.SkipReason]int, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, verses := range chunks {
		g.Go(func() error {
			part := index.NewMemoryIndex()
			skipped := make(map[index.SkipReason]int)
			for j, v := range verses {
				if j%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if reason, ok := part.AddVerse(v, e.opts); !ok {
					skipped[reason]++
				}
			}
			parts[i] = part
			skips[i] = skipped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BuildReport{}, fmt.Errorf("building index: %w", err)
	}

	merged := parts[0]
	byReason := skips[0]
	for i := 1; i < len(parts); i++ {
		if dropped := merged.Merge(parts[i]); dropped > 0 {
			byReason[index.SkipDuplicateKey] += dropped
		}
		for reason, n := range skips[i] {
			byReason[reason] += n
		}
	}
	skipped := 0
	for _, n := range byReason {
		skipped += n
	}
	for reason, n := range byReason {
		e.logger.Warn("verses skipped", "reason", reason, "count", n)
	}

	if merged.DocCount() == 0 {
		return BuildReport{}, fmt.Errorf("%w: all %d verses are malformed", apperrors.ErrInvalidCorpus, len(c.Verses))
	}

	chapters := c.Chapters
	if len(chapters) == 0 {
		chapters = corpus.DeriveChapters(c.Verses)
	}

	gen := e.generation.Add(1)
	report := BuildReport{
		Verses:          merged.DocCount(),
		Skipped:         skipped,
		SkippedByReason: byReason,
		Chapters:        len(chapters),
		Terms:           merged.Terms(),
		Postings:        merged.PostingCount(),
		SizeBytes:       merged.Size(),
		Workers:         len(chunks),
		Duration:        time.Since(start),
		Generation:      gen,
		BuiltAt:         time.Now().UTC(),
	}
	e.current.Store(&Snapshot{
		Index:         merged,
		Chapters:      chapters,
		Normalization: e.opts.Normalization,
		Report:        report,
		Generation:    gen,
	})
	e.logger.Info("index published",
		"generation", gen,
		"verses", report.Verses,
		"skipped", report.Skipped,
		"terms", report.Terms,
		"postings", report.Postings,
		"workers", report.Workers,
		"duration", report.Duration,
	)
	return report, nil
}

// Snapshot returns the currently published index, or ErrEngineNotInitialized
// if no build has succeeded yet.
func (e *Engine) Snapshot() (*Snapshot, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, apperrors.ErrEngineNotInitialized
	}
	return snap, nil
}

// Ready reports whether a snapshot has been published.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Normalization returns the options every published snapshot is built with.
func (e *Engine) Normalization() normalizer.Options {
	return e.opts.Normalization
}

// chunk splits verses into at most n contiguous, nearly equal parts.
func chunk(verses []corpus.Verse, n int) [][]corpus.Verse {
	if n > len(verses) {
		n = len(verses)
	}
	if n < 1 {
		n = 1
	}
	size := (len(verses) + n - 1) / n
	out := make([][]corpus.Verse, 0, n)
	for start := 0; start < len(verses); start += size {
		end := min(start+size, len(verses))
		out = append(out, verses[start:end])
	}
	return out
}
