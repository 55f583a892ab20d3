package handlers

import (
	"context"
	"fmt"

	"github.com/antzucaro/matchr"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

const defaultSoundAlikeThreshold = 0.70

// SoundAlikeHandler replaces gap words that are phonetically equivalent to a
// position-aligned reference word: the words must share a Double Metaphone
// code, and the Jaro-Winkler similarity of the original strings must meet
// the threshold. Catches mishearings like "know" vs "no" or "there" vs
// "their" that pure edit distance rates poorly relative to their length.
type SoundAlikeHandler struct {
	threshold float64
}

var _ correct.Handler = (*SoundAlikeHandler)(nil)

// SoundAlikeOption is a functional option for [NewSoundAlikeHandler].
type SoundAlikeOption func(*SoundAlikeHandler)

// WithSoundAlikeThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched replacement. Default: 0.70.
func WithSoundAlikeThreshold(t float64) SoundAlikeOption {
	return func(h *SoundAlikeHandler) { h.threshold = t }
}

// NewSoundAlikeHandler returns a SoundAlikeHandler with the supplied options.
func NewSoundAlikeHandler(opts ...SoundAlikeOption) *SoundAlikeHandler {
	h := &SoundAlikeHandler{threshold: defaultSoundAlikeThreshold}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Name implements [correct.Handler].
func (*SoundAlikeHandler) Name() string { return "sound_alike" }

// CanHandle implements [correct.Handler].
func (h *SoundAlikeHandler) CanHandle(g types.GapSequence, hctx *correct.HandlerContext) (bool, map[string]any) {
	if g.Length() == 0 {
		return false, nil
	}
	return len(equalLengthSpans(spans(g, hctx), g.Length())) > 0, nil
}

// Handle implements [correct.Handler].
func (h *SoundAlikeHandler) Handle(ctx context.Context, g types.GapSequence, hctx *correct.HandlerContext) ([]types.WordCorrection, error) {
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
		agreed := false
		for _, s := range matched {
			ref := s.tokens[i]
			if ref == "" || ref == token {
				agreed = true
				break
			}
			if !codesOverlap(token, ref) {
				continue
			}
			if score := matchr.JaroWinkler(token, ref, false); score > bestScore {
				bestWord, bestScore, bestSource = s.words[i], score, s.source
			}
		}
		if agreed || bestWord == "" || bestScore < h.threshold {
			continue
		}
		corrections = append(corrections, replacement(
			g, hctx, i, bestWord,
			h.Name(), fmt.Sprintf("sounds like reference word (similarity %.2f)", bestScore),
			bestSource, bestScore, nil,
		))
	}
	return corrections, nil
}

// codesOverlap reports whether the two words share at least one Double
// Metaphone code. Empty codes (words too short or with no consonants) never
// match.
func codesOverlap(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}
