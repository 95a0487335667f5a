package corpus

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
)

// Chapters is a chapter list kept in chapter-number order.
type Chapters []Chapter

func (cs Chapters) sort() {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Number < cs[j].Number
	})
}

// Lookup returns the chapter with the given number.
func (cs Chapters) Lookup(number int) (Chapter, bool) {
	idx := sort.Search(len(cs), func(i int) bool {
		return cs[i].Number >= number
	})
	if idx < len(cs) && cs[idx].Number == number {
		return cs[idx], true
	}
	return Chapter{}, false
}

// Search matches a chapter number exactly, or a substring of the Arabic name
// (after normalization) or of the English name or its translation
// (case-insensitive). Results keep chapter order.
func (cs Chapters) Search(query string, opts normalizer.Options) Chapters {
	query = strings.TrimSpace(query)
	if query == "" {
		return Chapters{}
	}
	if n, err := strconv.Atoi(query); err == nil {
		if ch, ok := cs.Lookup(n); ok {
			return Chapters{ch}
		}
		return Chapters{}
	}

	arabic := normalizer.Normalize(query, opts)
	latin := strings.ToLower(query)
	out := make(Chapters, 0)
	for _, ch := range cs {
		switch {
		case arabic != "" && strings.Contains(normalizer.Normalize(ch.Name, opts), arabic):
		case ch.EnglishName != "" && strings.Contains(strings.ToLower(ch.EnglishName), latin):
		case ch.EnglishNameTranslation != "" && strings.Contains(strings.ToLower(ch.EnglishNameTranslation), latin):
		default:
			continue
		}
		out = append(out, ch)
	}
	return out
}
