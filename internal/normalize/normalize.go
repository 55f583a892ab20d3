// Package normalize provides the text normalisation applied to both
// transcription and reference lyrics before n-gram matching.
//
// Normalisation is intentionally aggressive — matching should ignore casing,
// punctuation, and whitespace differences between a transcription and a
// lyric provider's text — while preserving intra-word hyphens and slashes so
// compounds like "up-to-date" or "rock/pop" survive as single tokens.
package normalize

import (
	"strings"
	"unicode"
)

// Normalize lowercases text, strips punctuation (keeping hyphens and slashes
// that sit between two word characters), collapses whitespace runs to single
// spaces, and trims. It is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	lower := strings.ToLower(text)
	runes := []rune(lower)

	var b strings.Builder
	b.Grow(len(lower))

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '-' || r == '/':
			if i > 0 && i < len(runes)-1 && isWordRune(runes[i-1]) && isWordRune(runes[i+1]) {
				b.WriteRune(r)
			}
		case r == '\'':
			// Apostrophes inside a word are dropped entirely so "don't"
			// matches "dont" regardless of which form each source uses.
		default:
			// All other punctuation is dropped.
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens normalises text and splits it into words.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// WordTokens normalises each word text individually, preserving one token
// per input word. A word whose normalised form is empty (pure punctuation)
// yields an empty string at its position so index alignment with the source
// word list is retained.
func WordTokens(wordTexts []string) []string {
	tokens := make([]string, len(wordTexts))
	for i, t := range wordTexts {
		tokens[i] = strings.Join(strings.Fields(Normalize(t)), "")
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
