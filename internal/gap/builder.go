// Package gap computes the transcription spans left between accepted
// anchors — the regions the correction pipeline operates on — together with
// the per-source reference windows that bound each span.
package gap

import (
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// Build computes the gaps between the accepted anchors, which must be sorted
// by transcription position (the resolver's output order).
//
// Gaps carry word IDs only, never raw text. A source's reference window is
// populated only when the source contains the gap's bounding anchor(s);
// otherwise no reliable window exists and the entry stays empty. When there
// are no anchors at all, the single gap covers the whole transcription and
// each source's full word list is its window.
func Build(anchors []types.ScoredAnchor, transcribed []types.Word, refs map[string][]types.Word) []types.GapSequence {
	if len(transcribed) == 0 {
		return nil
	}

	if len(anchors) == 0 {
		g := newGap(transcribed, 0, len(transcribed))
		for source, words := range refs {
			g.ReferenceWordIDs[source] = wordIDs(words, 0, len(words))
		}
		return []types.GapSequence{g}
	}

	var gaps []types.GapSequence

	// Initial gap: everything before the first anchor.
	first := anchors[0].Anchor
	if first.TranscriptionPosition > 0 {
		g := newGap(transcribed, 0, first.TranscriptionPosition)
		g.FollowingAnchorID = first.ID
		for source := range refs {
			refPos, ok := first.ReferencePositions[source]
			if !ok {
				g.ReferenceWordIDs[source] = nil
				continue
			}
			g.ReferenceWordIDs[source] = wordIDs(refs[source], 0, refPos)
		}
		gaps = append(gaps, g)
	}

	// Between-gaps: spans strictly between adjacent anchors.
	for i := 0; i < len(anchors)-1; i++ {
		cur := anchors[i].Anchor
		next := anchors[i+1].Anchor
		if next.TranscriptionPosition <= cur.EndPosition() {
			continue
		}

		g := newGap(transcribed, cur.EndPosition(), next.TranscriptionPosition)
		g.PrecedingAnchorID = cur.ID
		g.FollowingAnchorID = next.ID
		for source := range refs {
			curPos, inCur := cur.ReferencePositions[source]
			nextPos, inNext := next.ReferencePositions[source]
			if !inCur || !inNext {
				g.ReferenceWordIDs[source] = nil
				continue
			}
			g.ReferenceWordIDs[source] = wordIDs(refs[source], curPos+cur.Length(), nextPos)
		}
		gaps = append(gaps, g)
	}

	// Final gap: everything after the last anchor.
	last := anchors[len(anchors)-1].Anchor
	if last.EndPosition() < len(transcribed) {
		g := newGap(transcribed, last.EndPosition(), len(transcribed))
		g.PrecedingAnchorID = last.ID
		for source := range refs {
			refPos, ok := last.ReferencePositions[source]
			if !ok {
				g.ReferenceWordIDs[source] = nil
				continue
			}
			g.ReferenceWordIDs[source] = wordIDs(refs[source], refPos+last.Length(), len(refs[source]))
		}
		gaps = append(gaps, g)
	}

	return gaps
}

// newGap builds a gap covering transcribed[start:end) with a fresh id and an
// initialised (empty) reference map.
func newGap(transcribed []types.Word, start, end int) types.GapSequence {
	return types.GapSequence{
		ID:                    types.NewID(),
		TranscribedWordIDs:    wordIDs(transcribed, start, end),
		TranscriptionPosition: start,
		ReferenceWordIDs:      make(map[string][]string),
	}
}

// wordIDs extracts the ids of words[start:end), clamping a misordered or
// out-of-range window to empty.
func wordIDs(words []types.Word, start, end int) []string {
	if start < 0 {
		start = 0
	}
	if end > len(words) {
		end = len(words)
	}
	if start >= end {
		return nil
	}
	ids := make([]string, end-start)
	for i, w := range words[start:end] {
		ids[i] = w.ID
	}
	return ids
}
