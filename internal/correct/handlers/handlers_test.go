package handlers_test

import (
	"fmt"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// makeGap builds a gap at transcription position 0 over gapWords, with one
// reference window per source, and the word map resolving every id.
func makeGap(gapWords []string, refs map[string][]string) (types.GapSequence, *correct.HandlerContext) {
	wordMap := make(map[string]types.Word)

	gapIDs := make([]string, len(gapWords))
	for i, text := range gapWords {
		id := fmt.Sprintf("g%d", i)
		gapIDs[i] = id
		wordMap[id] = types.Word{ID: id, Text: text}
	}

	refIDs := make(map[string][]string, len(refs))
	for source, words := range refs {
		ids := make([]string, len(words))
		for i, text := range words {
			id := fmt.Sprintf("%s%d", source, i)
			ids[i] = id
			wordMap[id] = types.Word{ID: id, Text: text}
		}
		refIDs[source] = ids
	}

	g := types.GapSequence{
		ID:                 "gap1",
		TranscribedWordIDs: gapIDs,
		ReferenceWordIDs:   refIDs,
	}
	return g, &correct.HandlerContext{WordMap: wordMap}
}
