package handlers

import (
	"context"
	"slices"
	"strings"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// NoSpacePunctuationHandler re-segments a gap whose text matches a reference
// window exactly once spaces and punctuation are ignored, but whose word
// boundaries differ — "any more" vs "anymore", "can not" vs "cannot". It
// emits split corrections (one word → N, sharing a split total) and combine
// corrections (one replacement plus deletions at the following positions).
type NoSpacePunctuationHandler struct{}

var _ correct.Handler = NoSpacePunctuationHandler{}

// NewNoSpacePunctuationHandler returns a NoSpacePunctuationHandler.
func NewNoSpacePunctuationHandler() NoSpacePunctuationHandler {
	return NoSpacePunctuationHandler{}
}

// Name implements [correct.Handler].
func (NoSpacePunctuationHandler) Name() string { return "no_space_punctuation_match" }

// CanHandle implements [correct.Handler].
func (h NoSpacePunctuationHandler) CanHandle(g types.GapSequence, hctx *correct.HandlerContext) (bool, map[string]any) {
	return h.pickSpan(g, hctx) != nil, nil
}

// pickSpan returns the first (source-sorted) reference window whose
// concatenated text equals the gap's concatenated text while the token
// boundaries differ, or nil.
func (h NoSpacePunctuationHandler) pickSpan(g types.GapSequence, hctx *correct.HandlerContext) *referenceSpan {
	if g.Length() == 0 {
		return nil
	}
	gapNorm := normTokens(hctx.GapText(g))
	joined := strings.Join(gapNorm, "")
	if joined == "" {
		return nil
	}
	for _, s := range spans(g, hctx) {
		if strings.Join(s.tokens, "") == joined && !slices.Equal(s.tokens, gapNorm) {
			return &s
		}
	}
	return nil
}

// Handle implements [correct.Handler].
func (h NoSpacePunctuationHandler) Handle(ctx context.Context, g types.GapSequence, hctx *correct.HandlerContext) ([]types.WordCorrection, error) {
	span := h.pickSpan(g, hctx)
	if span == nil {
		return nil, nil
	}

	gapWords := hctx.GapText(g)
	gapNorm := normTokens(gapWords)

	var corrections []types.WordCorrection
	i, j := 0, 0
	for i < len(gapNorm) && j < len(span.tokens) {
		gi, gj := i, j
		gacc, racc := gapNorm[i], span.tokens[j]
		i, j = i+1, j+1
		// Extend the shorter side until both accumulations agree. Total
		// concatenation equality guarantees termination.
		for gacc != racc {
			if len(gacc) < len(racc) {
				gacc += gapNorm[i]
				i++
			} else {
				racc += span.tokens[j]
				j++
			}
		}
		corrections = append(corrections, h.chunk(g, hctx, span, gi, i, gj, j)...)
	}
	return corrections, nil
}

// chunk emits the corrections for one aligned chunk: gap words [gi,gEnd)
// against reference words [rj,rEnd).
func (h NoSpacePunctuationHandler) chunk(g types.GapSequence, hctx *correct.HandlerContext, span *referenceSpan, gi, gEnd, rj, rEnd int) []types.WordCorrection {
	gapCount, refCount := gEnd-gi, rEnd-rj
	if gapCount == 1 && refCount == 1 {
		// Identical token, nothing to change.
		return nil
	}

	reason := "same text with different word boundaries"
	var out []types.WordCorrection

	if gapCount == 1 {
		// Split: one gap word becomes refCount reference words.
		for k := 0; k < refCount; k++ {
			c := replacement(g, hctx, gi, span.words[rj+k], h.Name(), reason, span.source, 1.0, nil)
			c.SplitIndex = k
			c.SplitTotal = refCount
			out = append(out, c)
		}
		return out
	}

	// Combine: the first gap word takes the (first) reference word, the rest
	// are deleted. When the reference side also has several words, the first
	// gap word carries them all as a split and the rest are still deleted.
	if refCount == 1 {
		c := replacement(g, hctx, gi, span.words[rj], h.Name(), reason, span.source, 1.0, nil)
		c.Length = gapCount
		out = append(out, c)
	} else {
		for k := 0; k < refCount; k++ {
			c := replacement(g, hctx, gi, span.words[rj+k], h.Name(), reason, span.source, 1.0, nil)
			c.SplitIndex = k
			c.SplitTotal = refCount
			out = append(out, c)
		}
	}
	for k := gi + 1; k < gEnd; k++ {
		c := replacement(g, hctx, k, "", h.Name(), reason, span.source, 1.0, nil)
		c.IsDeletion = true
		out = append(out, c)
	}
	return out
}
