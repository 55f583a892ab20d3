package handlers

import (
	"context"
	"fmt"

	"github.com/antzucaro/matchr"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

const defaultLevenshteinThreshold = 0.65

// LevenshteinHandler replaces individual gap words with position-aligned
// reference words when their normalised edit-distance similarity meets the
// threshold. It applies only to gaps with at least one reference window of
// matching word count, so position alignment is meaningful.
type LevenshteinHandler struct {
	threshold float64
}

var _ correct.Handler = (*LevenshteinHandler)(nil)

// LevenshteinOption is a functional option for [NewLevenshteinHandler].
type LevenshteinOption func(*LevenshteinHandler)

// WithLevenshteinThreshold sets the minimum similarity for a replacement.
// Default: 0.65.
func WithLevenshteinThreshold(t float64) LevenshteinOption {
	return func(h *LevenshteinHandler) { h.threshold = t }
}

// NewLevenshteinHandler returns a LevenshteinHandler with the supplied
// options.
func NewLevenshteinHandler(opts ...LevenshteinOption) *LevenshteinHandler {
	h := &LevenshteinHandler{threshold: defaultLevenshteinThreshold}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Name implements [correct.Handler].
func (*LevenshteinHandler) Name() string { return "levenshtein" }

// CanHandle implements [correct.Handler].
func (h *LevenshteinHandler) CanHandle(g types.GapSequence, hctx *correct.HandlerContext) (bool, map[string]any) {
	if g.Length() == 0 {
		return false, nil
	}
	return len(equalLengthSpans(spans(g, hctx), g.Length())) > 0, nil
}

// Handle implements [correct.Handler].
func (h *LevenshteinHandler) Handle(ctx context.Context, g types.GapSequence, hctx *correct.HandlerContext) ([]types.WordCorrection, error) {
	matched := equalLengthSpans(spans(g, hctx), g.Length())
	if len(matched) == 0 {
		return nil, nil
	}

	gapNorm := normTokens(hctx.GapText(g))

	var corrections []types.WordCorrection
	for i, token := range gapNorm {
		var (
			bestWord   string
			bestScore  float64
			bestSource string
		)
		for _, s := range matched {
			ref := s.tokens[i]
			if ref == "" || ref == token {
				bestWord = ""
				break
			}
			if score := similarity(token, ref); score > bestScore {
				bestWord, bestScore, bestSource = s.words[i], score, s.source
			}
		}
		if bestWord == "" || bestScore < h.threshold {
			continue
		}
		corrections = append(corrections, replacement(
			g, hctx, i, bestWord,
			h.Name(), fmt.Sprintf("edit-distance similarity %.2f to reference word", bestScore),
			bestSource, bestScore, nil,
		))
	}
	return corrections, nil
}

// similarity is 1 − distance/maxLen, the normalised Levenshtein similarity.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(matchr.Levenshtein(a, b))/float64(maxLen)
}
