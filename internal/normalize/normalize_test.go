package normalize_test

import (
	"slices"
	"testing"

	"github.com/nomadkaraoke/lyralign/internal/normalize"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello world"},
		{"don't", "dont"},
		{"DON'T STOP", "dont stop"},
		{"up-to-date", "up-to-date"},
		{"rock/pop", "rock/pop"},
		{"- leading dash", "leading dash"},
		{"trailing dash -", "trailing dash"},
		{"  lots   of\tspace\n", "lots of space"},
		{"(ooh) [yeah]", "ooh yeah"},
		{"...", ""},
		{"", ""},
		{"99 problems", "99 problems"},
	}
	for _, tc := range cases {
		if got := normalize.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"Hello, World!",
		"don't stop me now",
		"up-to-date rock/pop",
		"  (Ooh)  [Yeah]  ",
		"C'est la vie",
	}
	for _, in := range inputs {
		once := normalize.Normalize(in)
		twice := normalize.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()
	got := normalize.Tokens("Hello, World! Don't stop.")
	want := []string{"hello", "world", "dont", "stop"}
	if !slices.Equal(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestWordTokensPreservesAlignment(t *testing.T) {
	t.Parallel()
	got := normalize.WordTokens([]string{"Hello,", "...", "World!"})
	want := []string{"hello", "", "world"}
	if !slices.Equal(got, want) {
		t.Errorf("WordTokens = %v, want %v", got, want)
	}
	if len(got) != 3 {
		t.Errorf("WordTokens must yield one token per input word, got %d", len(got))
	}
}
