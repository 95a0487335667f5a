// Package tokenizer splits normalized verse text into position-tagged words.
// Positions count words, not bytes, and are assigned before any length
// filtering so they stay aligned with the original verse.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest term, in runes, that is worth indexing.
const MinTermLength = 2

// proclitics are the definite article and its common conjunction and
// preposition forms, longest first.
var proclitics = []string{"وال", "فال", "بال", "كال", "ال"}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Len returns the term length in runes.
func (t Token) Len() int {
	return utf8.RuneCountInString(t.Term)
}

// Indexable reports whether the term is long enough to be indexed.
func (t Token) Indexable() bool {
	return t.Len() >= MinTermLength
}

// Tokenize splits text on runs of whitespace. Every word is returned, short
// ones included, with a 0-based position in the word sequence.
func Tokenize(text string) []Token {
	words := strings.Fields(text)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns the distinct indexable terms of text in first-seen order.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, tok := range Tokenize(text) {
		if !tok.Indexable() {
			continue
		}
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// Stem strips one leading definite article ("ال", optionally preceded by
// و, ف, ب or ك) from a normalized term. It reports false when the term has
// no such prefix or when fewer than MinTermLength runes would remain.
func Stem(term string) (string, bool) {
	for _, p := range proclitics {
		if !strings.HasPrefix(term, p) {
			continue
		}
		rest := term[len(p):]
		if utf8.RuneCountInString(rest) < MinTermLength {
			return "", false
		}
		return rest, true
	}
	return "", false
}

// Prefixes returns the prefixes of term used for partial matching: lengths
// 2 up to, but excluding, min(len(term), 5). Terms of 3 runes or fewer have
// none.
func Prefixes(term string) []string {
	runes := []rune(term)
	if len(runes) <= 3 {
		return nil
	}
	limit := min(len(runes), 5)
	out := make([]string, 0, limit-MinTermLength)
	for i := MinTermLength; i < limit; i++ {
		out = append(out, string(runes[:i]))
	}
	return out
}
