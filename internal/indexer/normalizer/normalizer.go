// Package normalizer folds Arabic text into the canonical form used as index
// keys. Diacritics and elongation are dropped and letter variants (Alif, Hamza
// carriers, Alif Maksura) collapse onto a single code point, so that Uthmani
// script and plain keyboard input meet on the same terms.
//
// Every step is a per-rune mapping, so the package can also report, for each
// rune of the normalized text, where it came from in the original text. The
// highlighter relies on that to mark spans of the original verse.
//
// All functions are pure and safe for concurrent use.
package normalizer

import (
	"strings"
	"unicode"
)

const (
	tatweel     = '\u0640'
	alif        = 'ا'
	hamza       = 'ء'
	ya          = 'ي'
	alifMaksura = 'ى'
)

// Options toggles the individual folding steps. The zero value disables
// everything; use DefaultOptions for the engine defaults.
type Options struct {
	RemoveTashkeel bool `yaml:"removeTashkeel" json:"remove_tashkeel"`
	RemoveTatweel  bool `yaml:"removeTatweel" json:"remove_tatweel"`
	NormalizeAlif  bool `yaml:"normalizeAlif" json:"normalize_alif"`
	NormalizeHamza bool `yaml:"normalizeHamza" json:"normalize_hamza"`
	NormalizeYa    bool `yaml:"normalizeYa" json:"normalize_ya"`
}

// DefaultOptions enables every folding step.
func DefaultOptions() Options {
	return Options{
		RemoveTashkeel: true,
		RemoveTatweel:  true,
		NormalizeAlif:  true,
		NormalizeHamza: true,
		NormalizeYa:    true,
	}
}

// Normalize returns the canonical form of text: diacritics stripped, then
// elongation stripped, then Alif, Hamza and Ya folded. Every whitespace run,
// including one left behind by a dropped pause mark, becomes a single space,
// and surrounding whitespace is trimmed. Empty input yields an empty string.
func Normalize(text string, opts Options) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	pending := false
	for _, r := range text {
		out, keep := opts.fold(r)
		if !keep {
			continue
		}
		if unicode.IsSpace(out) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(out)
	}
	return b.String()
}

// Mapped is a normalized string together with its offset table.
type Mapped struct {
	Text string
	// Offsets[i] is the byte offset, in the original text, of the rune that
	// produced rune i of Text. The final entry is the byte offset where the
	// mapped region of the original ends, so len(Offsets) == runes(Text)+1.
	Offsets []int
	runes   []rune
}

// NormalizeMapped normalizes text exactly like Normalize and records the
// offset table. Marks dropped after a letter belong to that letter's span; a
// collapsed whitespace run maps to its first rune.
func NormalizeMapped(text string, opts Options) Mapped {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	space := -1
	for i, r := range text {
		out, keep := opts.fold(r)
		if !keep {
			continue
		}
		if unicode.IsSpace(out) {
			if space < 0 {
				space = i
			}
			continue
		}
		if space >= 0 && len(runes) > 0 {
			runes = append(runes, ' ')
			offsets = append(offsets, space)
		}
		space = -1
		runes = append(runes, out)
		offsets = append(offsets, i)
	}

	end := len(text)
	if space >= 0 && len(runes) > 0 {
		end = space
	}
	offsets = append(offsets, end)
	return Mapped{
		Text:    string(runes),
		Offsets: offsets,
		runes:   runes,
	}
}

// Runes returns the normalized text as runes. The slice must not be modified.
func (m Mapped) Runes() []rune {
	return m.runes
}

// Len is the rune length of the normalized text.
func (m Mapped) Len() int {
	return len(m.runes)
}

// Span converts the normalized rune range [start, end) into a byte range of
// the original text.
func (m Mapped) Span(start, end int) (int, int) {
	return m.Offsets[start], m.Offsets[end]
}

func (o Options) fold(r rune) (rune, bool) {
	if o.RemoveTashkeel && isTashkeel(r) {
		return 0, false
	}
	if o.RemoveTatweel && r == tatweel {
		return 0, false
	}
	if o.NormalizeAlif {
		switch r {
		case 'آ', 'أ', 'إ', 'ٱ':
			r = alif
		}
	}
	if o.NormalizeHamza {
		switch r {
		case 'ؤ', 'ئ':
			r = hamza
		}
	}
	if o.NormalizeYa && r == alifMaksura {
		r = ya
	}
	return r, true
}

// isTashkeel covers the harakat block, the superscript (dagger) Alif and the
// Quranic annotation marks used by Uthmani script.
func isTashkeel(r rune) bool {
	switch {
	case r >= '\u064B' && r <= '\u065F':
		return true
	case r == '\u0670':
		return true
	case r >= '\u06D6' && r <= '\u06ED':
		return true
	}
	return false
}
