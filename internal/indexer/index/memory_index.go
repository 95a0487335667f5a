package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/tokenizer"
)

// Options controls how verses are turned into postings.
type Options struct {
	Normalization normalizer.Options
	// ArticleStemming adds partial postings for the form of each word with
	// its definite article removed, and for that form's prefixes.
	ArticleStemming bool
}

// DefaultOptions returns the options the engine builds with by default.
func DefaultOptions() Options {
	return Options{
		Normalization:   normalizer.DefaultOptions(),
		ArticleStemming: true,
	}
}

// MemoryIndex holds the verse records and the inverted index built from
// them. It is filled by a single goroutine and is read-only once published;
// concurrent reads need no locking.
type MemoryIndex struct {
	records  []VerseRecord
	byKey    map[corpus.VerseKey]int
	exact    map[string]PostingList
	partial  map[string]PostingList
	postings int
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		records: make([]VerseRecord, 0),
		byKey:   make(map[corpus.VerseKey]int),
		exact:   make(map[string]PostingList),
		partial: make(map[string]PostingList),
	}
}

// AddVerse normalizes, stores and indexes a verse. A malformed or duplicate
// verse is not indexed and the reason is returned with ok == false.
func (m *MemoryIndex) AddVerse(v corpus.Verse, opts Options) (SkipReason, bool) {
	switch {
	case v.ChapterNumber < corpus.MinChapter || v.ChapterNumber > corpus.MaxChapter:
		return SkipInvalidChapter, false
	case v.VerseNumber < 1:
		return SkipInvalidVerse, false
	case strings.TrimSpace(v.Text) == "":
		return SkipEmptyText, false
	}
	key := v.Key()
	if _, dup := m.byKey[key]; dup {
		return SkipDuplicateKey, false
	}
	normalized := normalizer.Normalize(v.Text, opts.Normalization)
	if normalized == "" {
		return SkipEmptyText, false
	}

	m.byKey[key] = len(m.records)
	m.records = append(m.records, VerseRecord{
		Key:          key,
		Normalized:   normalized,
		Original:     v.Text,
		ChapterName:  v.ChapterName,
		Page:         v.Page,
		Juz:          v.Juz,
		GlobalNumber: v.GlobalNumber,
	})
	m.size += int64(len(normalized) + len(v.Text) + len(v.ChapterName) + 64)

	for _, tok := range tokenizer.Tokenize(normalized) {
		if !tok.Indexable() {
			continue
		}
		m.add(m.exact, tok.Term, Posting{Key: key, Position: tok.Position, Kind: Exact})
		for _, prefix := range partialTerms(tok.Term, opts.ArticleStemming) {
			m.add(m.partial, prefix, Posting{Key: key, Position: tok.Position, Kind: Partial})
		}
	}
	return "", true
}

// partialTerms lists the distinct partial keys for one token.
func partialTerms(term string, stemming bool) []string {
	terms := tokenizer.Prefixes(term)
	if stemming {
		if stem, ok := tokenizer.Stem(term); ok {
			terms = append(terms, stem)
			terms = append(terms, tokenizer.Prefixes(stem)...)
		}
	}
	if len(terms) < 2 {
		return terms
	}
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (m *MemoryIndex) add(postings map[string]PostingList, term string, p Posting) {
	postings[term] = append(postings[term], p)
	m.postings++
	m.size += int64(len(term)/4 + 24)
}

// Merge appends other's verses and postings after m's own. Verses whose key
// m already holds are dropped together with their postings; the number
// dropped is returned. other must not be used afterwards.
func (m *MemoryIndex) Merge(other *MemoryIndex) int {
	rejected := make(map[corpus.VerseKey]struct{})
	for _, rec := range other.records {
		if _, dup := m.byKey[rec.Key]; dup {
			rejected[rec.Key] = struct{}{}
			continue
		}
		m.byKey[rec.Key] = len(m.records)
		m.records = append(m.records, rec)
		m.size += int64(len(rec.Normalized) + len(rec.Original) + len(rec.ChapterName) + 64)
	}
	m.mergePostings(m.exact, other.exact, rejected)
	m.mergePostings(m.partial, other.partial, rejected)
	return len(rejected)
}

func (m *MemoryIndex) mergePostings(dst, src map[string]PostingList, rejected map[corpus.VerseKey]struct{}) {
	for term, list := range src {
		for _, p := range list {
			if _, skip := rejected[p.Key]; skip {
				continue
			}
			dst[term] = append(dst[term], p)
			m.postings++
			m.size += int64(len(term)/4 + 24)
		}
	}
}

// Lookup returns the postings of the given kind for term. The returned slice
// is shared with the index and must not be modified.
func (m *MemoryIndex) Lookup(term string, kind Kind) PostingList {
	if kind == Partial {
		return m.partial[term]
	}
	return m.exact[term]
}

// Record resolves a verse key.
func (m *MemoryIndex) Record(key corpus.VerseKey) (VerseRecord, bool) {
	idx, ok := m.byKey[key]
	if !ok {
		return VerseRecord{}, false
	}
	return m.records[idx], true
}

// Records returns every verse record in corpus order. The slice is shared
// with the index and must not be modified.
func (m *MemoryIndex) Records() []VerseRecord {
	return m.records
}

// DocCount is the number of indexed verses.
func (m *MemoryIndex) DocCount() int {
	return len(m.records)
}

// Terms is the number of distinct index keys across both kinds.
func (m *MemoryIndex) Terms() int {
	n := len(m.exact)
	for term := range m.partial {
		if _, ok := m.exact[term]; !ok {
			n++
		}
	}
	return n
}

// PostingCount is the total number of postings of both kinds.
func (m *MemoryIndex) PostingCount() int {
	return m.postings
}

// Size is a rough estimate of the memory held by the index, in bytes.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

// Snapshot returns every index entry sorted by term, exact before partial.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.exact)+len(m.partial))
	for term, postings := range m.exact {
		entries = append(entries, TermEntry{Term: term, Kind: Exact, Postings: postings})
	}
	for term, postings := range m.partial {
		entries = append(entries, TermEntry{Term: term, Kind: Partial, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Term != entries[j].Term {
			return entries[i].Term < entries[j].Term
		}
		return entries[i].Kind < entries[j].Kind
	})
	return entries
}
