package highlight

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/stretchr/testify/assert"
)

const basmala = "بِسْمِ اللَّهِ الرَّحْمَٰنِ الرَّحِيمِ"

func strip(s, pre, post string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, pre, ""), post, "")
}

func TestHighlightASCII(t *testing.T) {
	h := New("", "", normalizer.DefaultOptions())
	assert.Equal(t, "hello <mark>world</mark>", h.Highlight("hello world", []string{"world"}))
}

func TestHighlightUthmani(t *testing.T) {
	h := New("[", "]", normalizer.DefaultOptions())
	words := strings.Fields(basmala)

	got := h.Highlight(basmala, []string{"الرحمن"})
	assert.Equal(t, strings.Join([]string{words[0], words[1], "[" + words[2] + "]", words[3]}, " "), got)
}

func TestHighlightPreservesOriginal(t *testing.T) {
	h := New("<b>", "</b>", normalizer.DefaultOptions())
	tests := [][]string{
		{"الله"},
		{"الرح"},
		{"بسم", "الرحيم"},
		{"الله الرحمن"},
		{"غير"},
		{},
	}
	for _, words := range tests {
		got := h.Highlight(basmala, words)
		assert.Equal(t, basmala, strip(got, "<b>", "</b>"), "words %v", words)
	}
}

func TestHighlightNoMatchUnchanged(t *testing.T) {
	h := New("", "", normalizer.DefaultOptions())
	assert.Equal(t, basmala, h.Highlight(basmala, []string{"غفور"}))
	assert.Equal(t, basmala, h.Highlight(basmala, nil))
	assert.Equal(t, basmala, h.Highlight(basmala, []string{"ب"}), "single letters are ignored")
	assert.Equal(t, "", h.Highlight("", []string{"الله"}))
}

func TestHighlightEveryOccurrence(t *testing.T) {
	h := New("[", "]", normalizer.DefaultOptions())
	verse := "الرَّحْمَٰنِ الرَّحِيمِ"
	got := h.Highlight(verse, []string{"الرح"})
	assert.Equal(t, 2, strings.Count(got, "["))
	assert.True(t, strings.HasPrefix(got, "["))
	assert.Equal(t, verse, strip(got, "[", "]"))
}

func TestHighlightLongestFirstNoOverlap(t *testing.T) {
	h := New("[", "]", normalizer.DefaultOptions())
	got := h.Highlight("الرحمن الرحيم", []string{"الرح", "الرحمن"})
	assert.Equal(t, "[الرحمن] [الرح]يم", got)
}

func TestHighlightPhrase(t *testing.T) {
	h := New("", "", normalizer.DefaultOptions())
	verse := "الْحَمْدُ لِلَّهِ رَبِّ الْعَالَمِينَ"
	words := strings.Fields(verse)

	got := h.Highlight(verse, []string{"الحمد لله"})
	assert.Equal(t, "<mark>"+words[0]+" "+words[1]+"</mark> "+words[2]+" "+words[3], got)
}

func TestHighlightDiacritizedQuery(t *testing.T) {
	h := New("[", "]", normalizer.DefaultOptions())
	assert.Equal(t, "بسم [الله]", h.Highlight("بسم الله", []string{"اللَّهِ"}))
}
