package anchor

import (
	"testing"

	"github.com/nomadkaraoke/lyralign/pkg/types"
)

func scoredAnchor(pos, length, sources int, score types.PhraseScore) types.ScoredAnchor {
	ids := make([]string, length)
	refPos := make(map[string]int, sources)
	refIDs := make(map[string][]string, sources)
	for i := range ids {
		ids[i] = "w"
	}
	names := []string{"genius", "spotify", "musixmatch"}
	for i := 0; i < sources; i++ {
		refPos[names[i]] = pos
		refIDs[names[i]] = ids
	}
	return types.ScoredAnchor{
		Anchor: types.AnchorSequence{
			ID:                    "a",
			TranscribedWordIDs:    ids,
			TranscriptionPosition: pos,
			ReferencePositions:    refPos,
			ReferenceWordIDs:      refIDs,
		},
		Score: score,
	}
}

func TestCompareScoredSourceCountWinsOverLength(t *testing.T) {
	t.Parallel()
	twoSources := scoredAnchor(5, 3, 2, types.NeutralPhraseScore())
	longerOneSource := scoredAnchor(20, 8, 1, types.NeutralPhraseScore())

	if compareScored(twoSources, longerOneSource) >= 0 {
		t.Error("an anchor matched by more sources must sort before a longer single-source anchor")
	}
}

func TestCompareScoredLengthBreaksSourceTie(t *testing.T) {
	t.Parallel()
	long := scoredAnchor(5, 6, 1, types.NeutralPhraseScore())
	short := scoredAnchor(20, 3, 1, types.NeutralPhraseScore())

	if compareScored(long, short) >= 0 {
		t.Error("with equal sources the longer anchor must sort first")
	}
}

func TestCompareScoredNaturalBreakBreaksTie(t *testing.T) {
	t.Parallel()
	clean := scoredAnchor(5, 3, 1, types.PhraseScore{PhraseType: types.PhraseComplete, NaturalBreakScore: 1.0, LengthScore: 0.5})
	messy := scoredAnchor(20, 3, 1, types.PhraseScore{PhraseType: types.PhraseComplete, NaturalBreakScore: 0.4, LengthScore: 0.5})

	if compareScored(clean, messy) >= 0 {
		t.Error("with equal sources and length the higher natural break score must sort first")
	}
}

func TestCompareScoredPositionBonus(t *testing.T) {
	t.Parallel()
	opening := scoredAnchor(0, 3, 1, types.NeutralPhraseScore())
	later := scoredAnchor(10, 3, 1, types.NeutralPhraseScore())

	if compareScored(opening, later) >= 0 {
		t.Error("the transcription-opening anchor gets a position bonus and must sort first")
	}
}

func TestCompareScoredFullTieFallsBackToPosition(t *testing.T) {
	t.Parallel()
	early := scoredAnchor(4, 3, 1, types.NeutralPhraseScore())
	late := scoredAnchor(9, 3, 1, types.NeutralPhraseScore())

	if compareScored(early, late) >= 0 {
		t.Error("a full tuple tie must keep the earlier-in-text anchor first")
	}
}

func TestOverlapsAnyTranscriptionRange(t *testing.T) {
	t.Parallel()
	accepted := []types.ScoredAnchor{scoredAnchor(5, 3, 1, types.NeutralPhraseScore())}

	overlapping := scoredAnchor(7, 3, 1, types.NeutralPhraseScore()).Anchor
	if !overlapsAny(overlapping, accepted) {
		t.Error("ranges [5,8) and [7,10) overlap")
	}

	adjacent := scoredAnchor(8, 3, 1, types.NeutralPhraseScore()).Anchor
	delete(adjacent.ReferencePositions, "genius")
	if overlapsAny(adjacent, accepted) {
		t.Error("ranges [5,8) and [8,11) do not overlap")
	}
}

func TestOverlapsAnySharedReferencePosition(t *testing.T) {
	t.Parallel()
	accepted := []types.ScoredAnchor{scoredAnchor(5, 3, 1, types.NeutralPhraseScore())}

	// Disjoint in the transcription but claiming the same reference span.
	conflict := scoredAnchor(20, 3, 1, types.NeutralPhraseScore()).Anchor
	conflict.ReferencePositions["genius"] = 5
	if !overlapsAny(conflict, accepted) {
		t.Error("two anchors must not claim the same reference position of one source")
	}

	other := scoredAnchor(20, 3, 1, types.NeutralPhraseScore()).Anchor
	other.ReferencePositions["genius"] = 12
	if overlapsAny(other, accepted) {
		t.Error("distinct reference positions do not conflict")
	}
}
