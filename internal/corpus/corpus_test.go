package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const envelopeFixture = `{
  "code": 200,
  "data": {
    "surahs": [
      {
        "number": 2,
        "name": "سُورَةُ البَقَرَةِ",
        "englishName": "Al-Baqara",
        "englishNameTranslation": "The Cow",
        "ayahs": [
          {"number": 8, "numberInSurah": 1, "text": "الم", "page": 2, "juz": 1}
        ]
      },
      {
        "number": 1,
        "name": "سُورَةُ ٱلْفَاتِحَةِ",
        "englishName": "Al-Faatiha",
        "englishNameTranslation": "The Opening",
        "ayahs": [
          {"number": 1, "numberInSurah": 1, "text": "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ", "page": 1, "juz": 1},
          {"number": 2, "numberInSurah": 2, "text": "ٱلْحَمْدُ لِلَّهِ رَبِّ ٱلْعَٰلَمِينَ", "page": 1, "juz": 1}
        ]
      }
    ]
  }
}`

func TestDecodeEnvelope(t *testing.T) {
	c, err := Decode([]byte(envelopeFixture))
	require.NoError(t, err)

	require.Len(t, c.Verses, 3)
	require.Len(t, c.Chapters, 2)
	assert.Equal(t, 1, c.Chapters[0].Number, "chapters are sorted by number")
	assert.Equal(t, 2, c.Chapters[0].VerseCount)
	assert.Equal(t, "The Cow", c.Chapters[1].EnglishNameTranslation)

	first := c.Verses[1]
	assert.Equal(t, VerseKey{Chapter: 1, Verse: 1}, first.Key())
	assert.Equal(t, "سُورَةُ ٱلْفَاتِحَةِ", first.ChapterName)
	assert.Equal(t, 1, first.GlobalNumber)
	assert.Equal(t, 1, first.Page)
}

func TestDecodeArray(t *testing.T) {
	c, err := Decode([]byte(` [{"number": 112, "name": "سورة الإخلاص", "ayahs": [{"number": 6222, "numberInSurah": 1, "text": "قُلْ هُوَ ٱللَّهُ أَحَدٌ"}]}]`))
	require.NoError(t, err)
	require.Len(t, c.Verses, 1)
	assert.Equal(t, 6222, c.Verses[0].GlobalNumber)
	assert.Equal(t, 0, c.Verses[0].Page)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"data": [`))
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quran.json")
	require.NoError(t, os.WriteFile(path, []byte(envelopeFixture), 0o644))

	c, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Verses, 3)

	_, err = NewFileLoader(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.Error(t, err)
}

func TestParseVerseKey(t *testing.T) {
	key, err := ParseVerseKey(" 2:255 ")
	require.NoError(t, err)
	assert.Equal(t, VerseKey{Chapter: 2, Verse: 255}, key)
	assert.Equal(t, "2:255", key.String())

	for _, bad := range []string{"", "2", "a:1", "1:b"} {
		_, err := ParseVerseKey(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDeriveChapters(t *testing.T) {
	chapters := DeriveChapters([]Verse{
		{ChapterNumber: 2, ChapterName: "البقرة", VerseNumber: 1},
		{ChapterNumber: 1, ChapterName: "الفاتحة", VerseNumber: 1},
		{ChapterNumber: 1, ChapterName: "الفاتحة", VerseNumber: 2},
		{ChapterNumber: 0, ChapterName: "bogus", VerseNumber: 1},
	})
	require.Len(t, chapters, 2)
	assert.Equal(t, Chapter{Number: 1, Name: "الفاتحة", VerseCount: 2}, chapters[0])
	assert.Equal(t, Chapter{Number: 2, Name: "البقرة", VerseCount: 1}, chapters[1])
}

func TestChaptersSearch(t *testing.T) {
	c, err := Decode([]byte(envelopeFixture))
	require.NoError(t, err)
	opts := normalizer.DefaultOptions()

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{name: "empty", query: "  ", want: []int{}},
		{name: "number", query: "2", want: []int{2}},
		{name: "unknown number", query: "114", want: []int{}},
		{name: "arabic without diacritics", query: "الفاتحة", want: []int{1}},
		{name: "arabic shared word", query: "سورة", want: []int{1, 2}},
		{name: "english name", query: "baqara", want: []int{2}},
		{name: "translation", query: "opening", want: []int{1}},
		{name: "no match", query: "xyz", want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]int, 0)
			for _, ch := range c.Chapters.Search(tt.query, opts) {
				got = append(got, ch.Number)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChaptersLookup(t *testing.T) {
	c, err := Decode([]byte(envelopeFixture))
	require.NoError(t, err)
	ch, ok := c.Chapters.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "Al-Baqara", ch.EnglishName)
	_, ok = c.Chapters.Lookup(3)
	assert.False(t, ok)
}
