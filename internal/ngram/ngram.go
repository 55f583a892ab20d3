// Package ngram generates fixed-length sliding windows with positions over a
// token sequence. It is the indexing primitive behind anchor search.
package ngram

import "strings"

// Window is one fixed-length token window and the index of its first token.
type Window struct {
	// Tokens is a subslice of the input token sequence; callers must not
	// mutate it.
	Tokens []string

	// Position is the index of Tokens[0] within the input sequence.
	Position int
}

// Key returns the window's tokens joined by a single space, suitable as a
// map key for equality lookups.
func (w Window) Key() string {
	return strings.Join(w.Tokens, " ")
}

// Windows returns every sliding window of length n over tokens, step 1, in
// position order. Returns nil when n is not in [1, len(tokens)].
func Windows(tokens []string, n int) []Window {
	if n < 1 || n > len(tokens) {
		return nil
	}
	out := make([]Window, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, Window{Tokens: tokens[i : i+n], Position: i})
	}
	return out
}

// Index maps each distinct window key of length n to the ordered positions at
// which it occurs in tokens. Used for constant-time occurrence lookups on the
// reference side of anchor search.
func Index(tokens []string, n int) map[string][]int {
	idx := make(map[string][]int)
	for _, w := range Windows(tokens, n) {
		k := w.Key()
		idx[k] = append(idx[k], w.Position)
	}
	return idx
}
