package executor

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/quran-search/pkg/tracing"
)

// DefaultLimit caps the result list when the caller does not choose.
const DefaultLimit = 50

// backoffMaxPrefix is the longest query prefix tried when a word has no
// postings of its own. It matches the longest prefix the index stores.
const backoffMaxPrefix = 5

// phraseCheckInterval is how many verses the phrase scan visits between
// context checks.
const phraseCheckInterval = 512

// Search modes reported in SearchResult.Mode.
const (
	ModeWords       = "words"
	ModeExactPhrase = "exact-phrase"
)

// Options tunes a single search.
type Options struct {
	ExactMatch         bool `json:"exact_match"`
	Limit              int  `json:"limit"`
	SortByRelevance    bool `json:"sort_by_relevance"`
	IncludeChapterInfo bool `json:"include_chapter_info"`
	IncludeText        bool `json:"include_text"`
	Highlight          bool `json:"highlight"`
	PrefixBackoff      bool `json:"prefix_backoff"`
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{
		Limit:              DefaultLimit,
		SortByRelevance:    true,
		IncludeChapterInfo: true,
		IncludeText:        true,
		Highlight:          true,
		PrefixBackoff:      true,
	}
}

// Result is one ranked verse, resolved for display.
type Result struct {
	Score           float64          `json:"score"`
	MatchType       ranker.MatchType `json:"match_type"`
	ChapterNumber   int              `json:"chapter_number"`
	VerseNumber     int              `json:"verse_number"`
	GlobalNumber    int              `json:"global_number,omitempty"`
	Page            int              `json:"page,omitempty"`
	Juz             int              `json:"juz,omitempty"`
	ChapterName     string           `json:"chapter_name,omitempty"`
	Text            string           `json:"text,omitempty"`
	HighlightedText string           `json:"highlighted_text,omitempty"`
	MatchedWords    []string         `json:"matched_words,omitempty"`
}

// Key returns the verse the result refers to.
func (r Result) Key() corpus.VerseKey {
	return corpus.VerseKey{Chapter: r.ChapterNumber, Verse: r.VerseNumber}
}

type SearchResult struct {
	Query      string         `json:"query"`
	Normalized string         `json:"normalized"`
	Words      []string       `json:"words"`
	Mode       string         `json:"mode,omitempty"`
	TotalHits  int            `json:"total_hits"`
	Results    []Result       `json:"results"`
	TermStats  map[string]int `json:"term_stats,omitempty"`
	Generation uint64         `json:"generation"`
}

// SnapshotSource is satisfied by *indexer.Engine.
type SnapshotSource interface {
	Snapshot() (*indexer.Snapshot, error)
}

type Executor struct {
	source        SnapshotSource
	highlightPre  string
	highlightPost string
	logger        *slog.Logger
}

// New creates an executor over source. Empty highlight markers use the
// highlighter defaults.
func New(source SnapshotSource, highlightPre, highlightPost string) *Executor {
	return &Executor{
		source:        source,
		highlightPre:  highlightPre,
		highlightPost: highlightPost,
		logger:        slog.Default().With("component", "query-executor"),
	}
}

// Execute runs query against the current snapshot. It fails only when no
// snapshot is published (ErrEngineNotInitialized) or ctx is cancelled; a
// query with nothing to match yields an empty result.
func (e *Executor) Execute(ctx context.Context, query string, opts Options) (*SearchResult, error) {
	snap, err := e.source.Snapshot()
	if err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		opts.Limit = DefaultLimit
	}

	_, span := tracing.StartChildSpan(ctx, "parse")
	plan := parser.Parse(query, snap.Normalization)
	span.SetAttr("words", len(plan.Words))
	span.End()

	result := &SearchResult{
		Query:      query,
		Normalized: plan.Normalized,
		Words:      plan.Words,
		Results:    []Result{},
		Generation: snap.Generation,
	}
	if plan.Empty() {
		return result, nil
	}

	var scored []ranker.ScoredVerse
	matchCtx, span := tracing.StartChildSpan(ctx, "match")
	if opts.ExactMatch && plan.PhraseEligible() {
		result.Mode = ModeExactPhrase
		scored, err = e.matchPhrase(matchCtx, snap.Index, plan)
		if err != nil {
			span.End()
			return nil, err
		}
	} else {
		result.Mode = ModeWords
		scored, result.TermStats = e.matchWords(snap.Index, plan, opts.PrefixBackoff)
	}
	result.TotalHits = len(scored)
	span.SetAttr("mode", result.Mode)
	span.SetAttr("hits", result.TotalHits)
	span.End()

	_, span = tracing.StartChildSpan(ctx, "rank")
	ranker.Sort(scored, opts.SortByRelevance)
	scored = ranker.Truncate(scored, opts.Limit)
	span.End()

	var hl *highlight.Highlighter
	if opts.IncludeText && opts.Highlight {
		hl = highlight.New(e.highlightPre, e.highlightPost, snap.Normalization)
	}
	for _, sv := range scored {
		rec, ok := snap.Index.Record(sv.Key)
		if !ok {
			e.logger.Error("posting references unknown verse", "key", sv.Key.String())
			continue
		}
		result.Results = append(result.Results, resolve(rec, sv, opts, hl))
	}

	e.logger.Debug("query executed",
		"query", query,
		"mode", result.Mode,
		"words", plan.Words,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"generation", snap.Generation,
	)
	return result, nil
}

// matchPhrase scans every verse's stored normalized text for the whole
// normalized query.
func (e *Executor) matchPhrase(ctx context.Context, idx *index.MemoryIndex, plan *parser.QueryPlan) ([]ranker.ScoredVerse, error) {
	out := make([]ranker.ScoredVerse, 0)
	for i, rec := range idx.Records() {
		if i%phraseCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !strings.Contains(rec.Normalized, plan.Normalized) {
			continue
		}
		out = append(out, ranker.ScoredVerse{
			Key:          rec.Key,
			Score:        ranker.PhraseScore,
			MatchType:    ranker.MatchExactPhrase,
			MatchedWords: []string{plan.Normalized},
		})
	}
	return out, nil
}

// matchWords scores verses by how many query words they contain.
func (e *Executor) matchWords(idx *index.MemoryIndex, plan *parser.QueryPlan, backoff bool) ([]ranker.ScoredVerse, map[string]int) {
	acc := ranker.NewAccumulator()
	stats := make(map[string]int, len(plan.Words))
	for _, word := range plan.Words {
		postings, kind := lookup(idx, word, backoff)
		stats[word] = len(postings)
		for _, p := range postings {
			acc.Add(p.Key, word, kind)
		}
	}
	return acc.Score(len(plan.Words)), stats
}

// lookup finds the postings for one query word: whole-word postings first,
// then postings of indexed words starting with it, then, with backoff,
// postings under the longest shorter prefix of it that has any. Everything
// but the first step counts as a partial match.
func lookup(idx *index.MemoryIndex, word string, backoff bool) (index.PostingList, index.Kind) {
	if list := idx.Lookup(word, index.Exact); len(list) > 0 {
		return list, index.Exact
	}
	n := utf8.RuneCountInString(word)
	if n < 3 {
		return nil, index.Partial
	}
	if list := idx.Lookup(word, index.Partial); len(list) > 0 {
		return list, index.Partial
	}
	if !backoff {
		return nil, index.Partial
	}
	runes := []rune(word)
	for l := min(n-1, backoffMaxPrefix); l >= 2; l-- {
		prefix := string(runes[:l])
		exact := idx.Lookup(prefix, index.Exact)
		partial := idx.Lookup(prefix, index.Partial)
		if len(exact)+len(partial) == 0 {
			continue
		}
		list := make(index.PostingList, 0, len(exact)+len(partial))
		list = append(list, exact...)
		list = append(list, partial...)
		return list, index.Partial
	}
	return nil, index.Partial
}

func resolve(rec index.VerseRecord, sv ranker.ScoredVerse, opts Options, hl *highlight.Highlighter) Result {
	r := Result{
		Score:         sv.Score,
		MatchType:     sv.MatchType,
		ChapterNumber: rec.Key.Chapter,
		VerseNumber:   rec.Key.Verse,
		GlobalNumber:  rec.GlobalNumber,
		Page:          rec.Page,
		Juz:           rec.Juz,
		MatchedWords:  sv.MatchedWords,
	}
	if opts.IncludeChapterInfo {
		r.ChapterName = rec.ChapterName
	}
	if opts.IncludeText {
		r.Text = rec.Original
		if hl != nil {
			r.HighlightedText = hl.Highlight(rec.Original, sv.MatchedWords)
		}
	}
	return r
}
