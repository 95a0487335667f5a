package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// FileLoader reads a corpus exported from the alquran.cloud API. Both the
// full response envelope ({"data": {"surahs": [...]}}) and a bare array of
// surahs are accepted.
type FileLoader struct {
	path   string
	logger *slog.Logger
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{
		path:   path,
		logger: slog.Default().With("component", "corpus-file"),
	}
}

type surahJSON struct {
	Number                 int        `json:"number"`
	Name                   string     `json:"name"`
	EnglishName            string     `json:"englishName"`
	EnglishNameTranslation string     `json:"englishNameTranslation"`
	Ayahs                  []ayahJSON `json:"ayahs"`
}

type ayahJSON struct {
	Number        int    `json:"number"`
	NumberInSurah int    `json:"numberInSurah"`
	Text          string `json:"text"`
	Page          int    `json:"page"`
	Juz           int    `json:"juz"`
}

type envelopeJSON struct {
	Data struct {
		Surahs []surahJSON `json:"surahs"`
	} `json:"data"`
}

func (l *FileLoader) Load(ctx context.Context) (*Corpus, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", l.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding corpus file %s: %w", l.path, err)
	}
	l.logger.Info("corpus loaded",
		"path", l.path,
		"chapters", len(c.Chapters),
		"verses", len(c.Verses),
	)
	return c, nil
}

// Decode parses alquran.cloud surah JSON into a Corpus.
func Decode(data []byte) (*Corpus, error) {
	var surahs []surahJSON
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &surahs); err != nil {
			return nil, fmt.Errorf("parsing surah array: %w", err)
		}
	} else {
		var env envelopeJSON
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("parsing surah envelope: %w", err)
		}
		surahs = env.Data.Surahs
	}

	c := &Corpus{
		Chapters: make(Chapters, 0, len(surahs)),
		Verses:   make([]Verse, 0, 6236),
	}
	for _, s := range surahs {
		c.Chapters = append(c.Chapters, Chapter{
			Number:                 s.Number,
			Name:                   s.Name,
			EnglishName:            s.EnglishName,
			EnglishNameTranslation: s.EnglishNameTranslation,
			VerseCount:             len(s.Ayahs),
		})
		for _, a := range s.Ayahs {
			c.Verses = append(c.Verses, Verse{
				ChapterNumber: s.Number,
				ChapterName:   s.Name,
				VerseNumber:   a.NumberInSurah,
				Text:          a.Text,
				Page:          a.Page,
				Juz:           a.Juz,
				GlobalNumber:  a.Number,
			})
		}
	}
	c.Chapters.sort()
	return c, nil
}
