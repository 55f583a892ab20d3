package anchor

import (
	"context"
	"strings"

	"github.com/nomadkaraoke/lyralign/internal/normalize"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// PhraseScorer assesses the phrase quality of a candidate anchor span.
// Implementations must be pure (no side effects), safe for concurrent use,
// and tolerant of arbitrary Unicode text.
//
// The production deployment typically wires a dependency-parse-based scorer;
// [HeuristicScorer] is the in-process default.
type PhraseScorer interface {
	// Score rates wordTexts as a phrase within contextText (the full
	// transcription text). Errors and timeouts are recovered by the caller
	// with [types.NeutralPhraseScore]; implementations should still return a
	// meaningful error for observability.
	Score(ctx context.Context, wordTexts []string, contextText string) (types.PhraseScore, error)
}

// HeuristicScorer is a dictionary-free [PhraseScorer] based purely on line
// structure: a span that sits inside a single line scores by how close its
// edges are to the line's edges, while a span that straddles a line break is
// classified CROSS_BOUNDARY. It needs no external linguistic resources and
// keeps the engine fully functional when no parse-based scorer is wired.
type HeuristicScorer struct {
	// idealLength is the span length (in words) at and beyond which the
	// length component saturates at 1.0.
	idealLength int
}

var _ PhraseScorer = (*HeuristicScorer)(nil)

// ScorerOption is a functional option for [NewHeuristicScorer].
type ScorerOption func(*HeuristicScorer)

// WithIdealLength sets the word count at which the length score saturates.
// Default: 6.
func WithIdealLength(n int) ScorerOption {
	return func(s *HeuristicScorer) {
		if n > 0 {
			s.idealLength = n
		}
	}
}

// NewHeuristicScorer returns a [HeuristicScorer] with the supplied options.
func NewHeuristicScorer(opts ...ScorerOption) *HeuristicScorer {
	s := &HeuristicScorer{idealLength: 6}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score implements [PhraseScorer].
func (s *HeuristicScorer) Score(ctx context.Context, wordTexts []string, contextText string) (types.PhraseScore, error) {
	if err := ctx.Err(); err != nil {
		return types.PhraseScore{}, err
	}

	score := types.PhraseScore{
		PhraseType:        types.PhraseCrossBoundary,
		NaturalBreakScore: 0.0,
		LengthScore:       s.lengthScore(len(wordTexts)),
	}

	span := normalize.WordTokens(wordTexts)
	spanKey := strings.Join(span, " ")
	if spanKey == "" {
		return score, nil
	}

	for _, line := range strings.Split(contextText, "\n") {
		tokens := normalize.Tokens(line)
		pos := indexOfSpan(tokens, span)
		if pos < 0 {
			continue
		}

		atStart := pos == 0
		atEnd := pos+len(span) == len(tokens)

		switch {
		case atStart && atEnd:
			score.PhraseType = types.PhraseComplete
			score.NaturalBreakScore = 1.0
		case atStart || atEnd:
			score.PhraseType = types.PhrasePartial
			score.NaturalBreakScore = 0.8
		default:
			score.PhraseType = types.PhrasePartial
			score.NaturalBreakScore = 0.4
		}
		return score, nil
	}

	// The span was not found inside any single line, so it crosses a line
	// boundary (or the context does not contain it at all).
	return score, nil
}

func (s *HeuristicScorer) lengthScore(n int) float64 {
	if n >= s.idealLength {
		return 1.0
	}
	return float64(n) / float64(s.idealLength)
}

// indexOfSpan returns the first index at which span occurs as a contiguous
// subsequence of tokens, or -1.
func indexOfSpan(tokens, span []string) int {
	if len(span) == 0 || len(span) > len(tokens) {
		return -1
	}
outer:
	for i := 0; i+len(span) <= len(tokens); i++ {
		for j, s := range span {
			if tokens[i+j] != s {
				continue outer
			}
		}
		return i
	}
	return -1
}
