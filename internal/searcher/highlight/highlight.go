// Package highlight wraps matched words of a verse in markup. Matching runs
// on normalized text, so a plain query word still lights up the fully
// vocalized Uthmani form; the markup is placed around the original bytes,
// diacritics included.
package highlight

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/quran-search/internal/indexer/tokenizer"
)

const (
	DefaultPre  = "<mark>"
	DefaultPost = "</mark>"
)

type Highlighter struct {
	pre  string
	post string
	opts normalizer.Options
}

// New returns a Highlighter using pre and post as markers. Empty markers
// fall back to the defaults.
func New(pre, post string, opts normalizer.Options) *Highlighter {
	if pre == "" {
		pre = DefaultPre
	}
	if post == "" {
		post = DefaultPost
	}
	return &Highlighter{pre: pre, post: post, opts: opts}
}

type span struct {
	start, end int
}

// Highlight marks every non-overlapping occurrence of words in original.
// Longer words claim their spans first. Words shorter than two runes after
// normalization are ignored; with nothing to mark the text is returned
// unchanged.
func (h *Highlighter) Highlight(original string, words []string) string {
	needles := h.needles(words)
	if len(needles) == 0 || original == "" {
		return original
	}
	mapped := normalizer.NormalizeMapped(original, h.opts)
	hay := mapped.Runes()
	covered := make([]bool, len(hay))
	spans := make([]span, 0)

	for _, needle := range needles {
		n := len(needle)
		for i := 0; i+n <= len(hay); {
			if runesEqual(hay[i:i+n], needle) && free(covered[i:i+n]) {
				for j := i; j < i+n; j++ {
					covered[j] = true
				}
				spans = append(spans, span{start: i, end: i + n})
				i += n
				continue
			}
			i++
		}
	}
	if len(spans) == 0 {
		return original
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	b.Grow(len(original) + len(spans)*(len(h.pre)+len(h.post)))
	last := 0
	for _, sp := range spans {
		start, end := mapped.Span(sp.start, sp.end)
		b.WriteString(original[last:start])
		b.WriteString(h.pre)
		b.WriteString(original[start:end])
		b.WriteString(h.post)
		last = end
	}
	b.WriteString(original[last:])
	return b.String()
}

// needles normalizes and dedupes words, longest first.
func (h *Highlighter) needles(words []string) [][]rune {
	seen := make(map[string]struct{}, len(words))
	out := make([][]rune, 0, len(words))
	for _, w := range words {
		norm := normalizer.Normalize(w, h.opts)
		runes := []rune(norm)
		if len(runes) < tokenizer.MinTermLength {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, runes)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func free(covered []bool) bool {
	for _, c := range covered {
		if c {
			return false
		}
	}
	return true
}
