// Package handlers provides the built-in gap correction strategies: exact
// word-count alignment, edit-distance and sound-alike fuzzy replacement,
// boundary re-segmentation for no-space punctuation matches, and an optional
// LLM-assisted handler.
//
// All handlers implement [correct.Handler] and need no external linguistic
// resources except the LLM handler, which goes through the swappable
// [llm.Provider] interface. Handlers never mutate the gap or the word map;
// they only propose [types.WordCorrection] values for the orchestrator to
// apply.
package handlers

import (
	"sort"
	"strings"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/internal/normalize"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// referenceSpan is one source's resolved reference window for a gap.
type referenceSpan struct {
	source string
	words  []string
	tokens []string
}

// spans resolves every non-empty reference window of the gap, sorted by
// source name for determinism.
func spans(g types.GapSequence, hctx *correct.HandlerContext) []referenceSpan {
	out := make([]referenceSpan, 0, len(g.ReferenceWordIDs))
	for source := range g.ReferenceWordIDs {
		words := hctx.ReferenceText(g, source)
		if len(words) == 0 {
			continue
		}
		out = append(out, referenceSpan{
			source: source,
			words:  words,
			tokens: normalize.WordTokens(words),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].source < out[j].source })
	return out
}

// equalLengthSpans filters spans to those whose word count equals n.
func equalLengthSpans(all []referenceSpan, n int) []referenceSpan {
	var out []referenceSpan
	for _, s := range all {
		if len(s.words) == n {
			out = append(out, s)
		}
	}
	return out
}

// sourceNames joins the span source names for a correction's Source field.
func sourceNames(matched []referenceSpan) string {
	names := make([]string, len(matched))
	for i, s := range matched {
		names[i] = s.source
	}
	return strings.Join(names, ",")
}

// normTokens normalises word texts one token per word.
func normTokens(words []string) []string {
	return normalize.WordTokens(words)
}

// replacement builds a one-for-one replacement correction for the gap word
// at offset i.
func replacement(g types.GapSequence, hctx *correct.HandlerContext, i int, corrected, handler, reason, source string, confidence float64, refPositions map[string]int) types.WordCorrection {
	id := g.TranscribedWordIDs[i]
	return types.WordCorrection{
		OriginalWord:       hctx.WordMap[id].Text,
		CorrectedWord:      corrected,
		OriginalPosition:   g.TranscriptionPosition + i,
		CorrectedPosition:  -1,
		Source:             source,
		Reason:             reason,
		Handler:            handler,
		Confidence:         confidence,
		ReferencePositions: refPositions,
		WordID:             id,
		Length:             1,
	}
}
