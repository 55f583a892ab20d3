package handlers

import (
	"context"
	"slices"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// WordCountHandler corrects a gap when at least one reference window has
// exactly as many words as the gap and all such windows agree with each
// other: every differing gap word is replaced one-for-one with the agreed
// reference word.
//
// Confidence is 1.0 when every available reference source agrees, 0.9 when
// only a subset matched.
type WordCountHandler struct{}

var _ correct.Handler = WordCountHandler{}

// NewWordCountHandler returns a WordCountHandler.
func NewWordCountHandler() WordCountHandler {
	return WordCountHandler{}
}

// Name implements [correct.Handler].
func (WordCountHandler) Name() string { return "word_count_match" }

// CanHandle implements [correct.Handler].
func (h WordCountHandler) CanHandle(g types.GapSequence, hctx *correct.HandlerContext) (bool, map[string]any) {
	if g.Length() == 0 {
		return false, nil
	}
	all := spans(g, hctx)
	matched := equalLengthSpans(all, g.Length())
	if len(matched) == 0 {
		return false, nil
	}
	// Every matching window must agree token-for-token.
	for _, s := range matched[1:] {
		if !slices.Equal(s.tokens, matched[0].tokens) {
			return false, nil
		}
	}
	return true, map[string]any{
		"matched_sources": len(matched),
		"total_sources":   len(all),
	}
}

// Handle implements [correct.Handler].
func (h WordCountHandler) Handle(ctx context.Context, g types.GapSequence, hctx *correct.HandlerContext) ([]types.WordCorrection, error) {
	all := spans(g, hctx)
	matched := equalLengthSpans(all, g.Length())
	if len(matched) == 0 {
		return nil, nil
	}

	confidence := 0.9
	if len(matched) == len(all) && len(all) > 0 {
		confidence = 1.0
	}

	agreed := matched[0]
	gapTokens := hctx.GapText(g)
	gapNorm := normTokens(gapTokens)

	var corrections []types.WordCorrection
	for i := range g.TranscribedWordIDs {
		if gapNorm[i] == agreed.tokens[i] {
			continue
		}
		corrections = append(corrections, replacement(
			g, hctx, i, agreed.words[i],
			h.Name(), "reference windows of equal length agree on this word",
			sourceNames(matched), confidence, nil,
		))
	}
	return corrections, nil
}
