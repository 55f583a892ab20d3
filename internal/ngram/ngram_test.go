package ngram_test

import (
	"slices"
	"testing"

	"github.com/nomadkaraoke/lyralign/internal/ngram"
)

func TestWindows(t *testing.T) {
	t.Parallel()
	tokens := []string{"a", "b", "c", "d"}

	wins := ngram.Windows(tokens, 2)
	if len(wins) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(wins))
	}
	for i, w := range wins {
		if w.Position != i {
			t.Errorf("window %d has position %d", i, w.Position)
		}
	}
	if got := wins[1].Key(); got != "b c" {
		t.Errorf("window key = %q, want %q", got, "b c")
	}
}

func TestWindowsFullLength(t *testing.T) {
	t.Parallel()
	tokens := []string{"a", "b", "c"}
	wins := ngram.Windows(tokens, 3)
	if len(wins) != 1 {
		t.Fatalf("expected exactly 1 window, got %d", len(wins))
	}
	if !slices.Equal(wins[0].Tokens, tokens) {
		t.Errorf("full-length window tokens = %v", wins[0].Tokens)
	}
}

func TestWindowsOutOfRange(t *testing.T) {
	t.Parallel()
	tokens := []string{"a", "b"}
	if got := ngram.Windows(tokens, 3); got != nil {
		t.Errorf("n > len(tokens) should yield nil, got %v", got)
	}
	if got := ngram.Windows(tokens, 0); got != nil {
		t.Errorf("n = 0 should yield nil, got %v", got)
	}
}

func TestIndexRepeatedPhrase(t *testing.T) {
	t.Parallel()
	tokens := []string{"la", "la", "la", "hey", "la", "la"}

	idx := ngram.Index(tokens, 2)
	got := idx["la la"]
	want := []int{0, 1, 4}
	if !slices.Equal(got, want) {
		t.Errorf(`positions of "la la" = %v, want %v`, got, want)
	}
	if len(idx["hey la"]) != 1 {
		t.Errorf(`expected one occurrence of "hey la", got %v`, idx["hey la"])
	}
}
