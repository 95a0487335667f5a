// Package corpus defines the verse collection the search engine is built
// from and the loaders that materialize it from a JSON export or from
// PostgreSQL.
package corpus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinChapter = 1
	MaxChapter = 114
)

// Verse is a single ayah as supplied by a loader. Page, Juz and GlobalNumber
// are optional; zero means unknown.
type Verse struct {
	ChapterNumber int    `json:"chapter_number"`
	ChapterName   string `json:"chapter_name"`
	VerseNumber   int    `json:"verse_number"`
	Text          string `json:"text"`
	Page          int    `json:"page,omitempty"`
	Juz           int    `json:"juz,omitempty"`
	GlobalNumber  int    `json:"global_number,omitempty"`
}

// Key returns the verse's composite identifier.
func (v Verse) Key() VerseKey {
	return VerseKey{Chapter: v.ChapterNumber, Verse: v.VerseNumber}
}

// VerseKey identifies a verse by chapter and verse number.
type VerseKey struct {
	Chapter int `json:"chapter"`
	Verse   int `json:"verse"`
}

func (k VerseKey) String() string {
	return fmt.Sprintf("%d:%d", k.Chapter, k.Verse)
}

// ParseVerseKey parses the "chapter:verse" form produced by String.
func ParseVerseKey(s string) (VerseKey, error) {
	chapter, verse, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return VerseKey{}, fmt.Errorf("verse key %q: missing ':'", s)
	}
	c, err := strconv.Atoi(chapter)
	if err != nil {
		return VerseKey{}, fmt.Errorf("verse key %q: chapter: %w", s, err)
	}
	v, err := strconv.Atoi(verse)
	if err != nil {
		return VerseKey{}, fmt.Errorf("verse key %q: verse: %w", s, err)
	}
	return VerseKey{Chapter: c, Verse: v}, nil
}

// Chapter describes a surah.
type Chapter struct {
	Number                 int    `json:"number"`
	Name                   string `json:"name"`
	EnglishName            string `json:"english_name,omitempty"`
	EnglishNameTranslation string `json:"english_name_translation,omitempty"`
	VerseCount             int    `json:"verse_count"`
}

// Corpus is a fully materialized verse collection.
type Corpus struct {
	Chapters Chapters
	Verses   []Verse
}

// Loader materializes a corpus from some source.
type Loader interface {
	Load(ctx context.Context) (*Corpus, error)
}

// DeriveChapters builds chapter entries from verses when the source carries
// no chapter table of its own. Verses with an out-of-range chapter number
// are ignored.
func DeriveChapters(verses []Verse) Chapters {
	byNumber := make(map[int]int)
	chapters := make(Chapters, 0)
	for _, v := range verses {
		if v.ChapterNumber < MinChapter || v.ChapterNumber > MaxChapter {
			continue
		}
		idx, ok := byNumber[v.ChapterNumber]
		if !ok {
			idx = len(chapters)
			byNumber[v.ChapterNumber] = idx
			chapters = append(chapters, Chapter{
				Number: v.ChapterNumber,
				Name:   v.ChapterName,
			})
		}
		chapters[idx].VerseCount++
	}
	chapters.sort()
	return chapters
}
