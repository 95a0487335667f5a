// Package parser turns a raw user query into the normalized form and word
// list the executor works with.
package parser

import (
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/tokenizer"
)

// MinPhraseLength is the shortest normalized query, in runes, that is worth
// an exact-phrase scan. Shorter queries fall back to word matching.
const MinPhraseLength = 3

type QueryPlan struct {
	RawQuery   string
	Normalized string
	// Words holds each distinct query word of at least
	// tokenizer.MinTermLength runes, in first-occurrence order.
	Words []string
}

// Parse normalizes query with the same options the index was built with.
func Parse(query string, opts normalizer.Options) *QueryPlan {
	normalized := normalizer.Normalize(query, opts)
	return &QueryPlan{
		RawQuery:   query,
		Normalized: normalized,
		Words:      tokenizer.Terms(normalized),
	}
}

// Empty reports whether the query has nothing to match.
func (p *QueryPlan) Empty() bool {
	return len(p.Words) == 0
}

// PhraseEligible reports whether the query is long enough for exact-phrase
// matching.
func (p *QueryPlan) PhraseEligible() bool {
	return utf8.RuneCountInString(p.Normalized) >= MinPhraseLength
}
