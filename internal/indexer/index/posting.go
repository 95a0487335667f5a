package index

import (
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/corpus"
)

// Kind tells whether a posting records the full term or one of its prefixes.
type Kind uint8

const (
	Exact Kind = iota
	Partial
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

// Posting is one occurrence of a term (or of a prefix of it) in a verse.
// Position is the word position within the verse.
type Posting struct {
	Key      corpus.VerseKey `json:"key"`
	Position int             `json:"position"`
	Kind     Kind            `json:"kind"`
}

// PostingList is kept in insertion order, which is corpus order.
type PostingList []Posting

// VerseRecord is the engine's copy of a verse: the normalized text used for
// matching plus what is needed to display a result.
type VerseRecord struct {
	Key          corpus.VerseKey
	Normalized   string
	Original     string
	ChapterName  string
	Page         int
	Juz          int
	GlobalNumber int
}

// TermEntry pairs a term with its postings, used for sorted dumps.
type TermEntry struct {
	Term     string
	Kind     Kind
	Postings PostingList
}

// SkipReason explains why a verse was left out of the index.
type SkipReason string

const (
	SkipEmptyText      SkipReason = "empty_text"
	SkipInvalidChapter SkipReason = "invalid_chapter"
	SkipInvalidVerse   SkipReason = "invalid_verse"
	SkipDuplicateKey   SkipReason = "duplicate_key"
)
