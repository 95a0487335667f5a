// Package ranker scores candidate verses by weighted query-word coverage and
// orders them for display.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/index"
)

const (
	// ExactWeight is the score share of query words matched as whole words.
	ExactWeight = 80.0
	// PartialWeight is the score share of query words matched by prefix.
	PartialWeight = 20.0
	// PhraseScore is the fixed score of an exact-phrase hit.
	PhraseScore = 100.0
)

type MatchType string

const (
	MatchExactPhrase MatchType = "exact-phrase"
	MatchFull        MatchType = "full"
	MatchPartial     MatchType = "partial"
)

// ScoredVerse is a ranked candidate.
type ScoredVerse struct {
	Key          corpus.VerseKey `json:"key"`
	Score        float64         `json:"score"`
	MatchType    MatchType       `json:"match_type"`
	MatchedWords []string        `json:"matched_words"`
}

// Match records which query words hit a verse, split by how they hit.
type Match struct {
	Key     corpus.VerseKey
	Exact   []string
	Partial []string
}

func (m *Match) has(word string) bool {
	for _, w := range m.Exact {
		if w == word {
			return true
		}
	}
	for _, w := range m.Partial {
		if w == word {
			return true
		}
	}
	return false
}

// Accumulator collects matches per verse in discovery order.
type Accumulator struct {
	order []*Match
	byKey map[corpus.VerseKey]*Match
}

func NewAccumulator() *Accumulator {
	return &Accumulator{byKey: make(map[corpus.VerseKey]*Match)}
}

// Add notes that word hit the verse at key. A word counts once per verse,
// however many postings it has there.
func (a *Accumulator) Add(key corpus.VerseKey, word string, kind index.Kind) {
	m, ok := a.byKey[key]
	if !ok {
		m = &Match{Key: key}
		a.byKey[key] = m
		a.order = append(a.order, m)
	}
	if m.has(word) {
		return
	}
	if kind == index.Exact {
		m.Exact = append(m.Exact, word)
	} else {
		m.Partial = append(m.Partial, word)
	}
}

// Len is the number of candidate verses.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Score converts every accumulated match into a ScoredVerse, in discovery
// order. totalWords is the number of distinct query words.
func (a *Accumulator) Score(totalWords int) []ScoredVerse {
	out := make([]ScoredVerse, 0, len(a.order))
	if totalWords <= 0 {
		return out
	}
	for _, m := range a.order {
		matchType := MatchPartial
		if len(m.Exact) == totalWords {
			matchType = MatchFull
		}
		words := make([]string, 0, len(m.Exact)+len(m.Partial))
		words = append(words, m.Exact...)
		words = append(words, m.Partial...)
		out = append(out, ScoredVerse{
			Key:          m.Key,
			Score:        Coverage(len(m.Exact), len(m.Partial), totalWords),
			MatchType:    matchType,
			MatchedWords: words,
		})
	}
	return out
}

// Coverage is the weighted share of query words matched.
func Coverage(exact, partial, total int) float64 {
	if total <= 0 {
		return 0
	}
	t := float64(total)
	return float64(exact)/t*ExactWeight + float64(partial)/t*PartialWeight
}

// Sort orders results by descending score when byRelevance is set. The sort
// is stable, so ties and the unsorted case keep discovery order.
func Sort(results []ScoredVerse, byRelevance bool) {
	if !byRelevance {
		return
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Truncate keeps at most limit results. A limit of zero keeps everything.
func Truncate(results []ScoredVerse, limit int) []ScoredVerse {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
