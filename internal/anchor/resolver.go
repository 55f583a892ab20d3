package anchor

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// scoreBatchSize is how many candidates one scoring unit of work covers.
const scoreBatchSize = 50

// resolveOverlaps scores every candidate, sorts by the deterministic priority
// tuple, and greedily keeps non-overlapping anchors. The accepted set is
// returned sorted by transcription position.
//
// Selection is greedy by sorted order, not a globally optimal aligner: when
// two disjoint anchors tie on the full tuple, the earlier-in-text one is
// taken first. This is a known heuristic limit of the design, kept on purpose
// so accepted sets stay deterministic across runs.
func (f *Finder) resolveOverlaps(ctx context.Context, candidates []types.AnchorSequence, data searchData, contextText string, deadline time.Time) []types.ScoredAnchor {
	if len(candidates) == 0 {
		return []types.ScoredAnchor{}
	}

	scored := f.scoreCandidates(ctx, candidates, data, contextText, deadline)

	slices.SortFunc(scored, compareScored)

	var accepted []types.ScoredAnchor
	for _, sa := range scored {
		if !overlapsAny(sa.Anchor, accepted) {
			accepted = append(accepted, sa)
		}
	}

	slices.SortFunc(accepted, func(a, b types.ScoredAnchor) int {
		return cmp.Compare(a.Anchor.TranscriptionPosition, b.Anchor.TranscriptionPosition)
	})
	return accepted
}

// scoreCandidates runs the phrase scorer over fixed-size batches of
// candidates on the worker pool. Batches that fail or exceed the remaining
// budget degrade to the neutral score rather than discarding candidates, and
// results are assembled in submission order.
func (f *Finder) scoreCandidates(ctx context.Context, candidates []types.AnchorSequence, data searchData, contextText string, deadline time.Time) []types.ScoredAnchor {
	scored := make([]types.ScoredAnchor, len(candidates))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.workers)

	for start := 0; start < len(candidates); start += scoreBatchSize {
		end := min(start+scoreBatchSize, len(candidates))
		eg.Go(func() error {
			bCtx, cancel := context.WithDeadline(egCtx, deadline)
			defer cancel()

			for i := start; i < end; i++ {
				a := candidates[i]
				score, err := f.scorer.Score(bCtx, anchorTexts(data, a), contextText)
				if err != nil {
					slog.Debug("phrase scoring failed, using neutral score",
						"position", a.TranscriptionPosition, "length", a.Length(), "err", err)
					score = types.NeutralPhraseScore()
				}
				scored[i] = types.ScoredAnchor{Anchor: a, Score: score}
			}
			return nil
		})
	}

	// Workers only ever degrade, never fail; Wait is for completion.
	_ = eg.Wait()

	// Guard against a cancelled pool leaving zero-valued entries behind.
	for i := range scored {
		if scored[i].Anchor.ID == "" {
			scored[i] = types.ScoredAnchor{Anchor: candidates[i], Score: types.NeutralPhraseScore()}
		}
	}
	return scored
}

// anchorTexts resolves the anchor's transcription word texts.
func anchorTexts(data searchData, a types.AnchorSequence) []string {
	texts := make([]string, a.Length())
	for i, w := range data.transWords[a.TranscriptionPosition:a.EndPosition()] {
		texts[i] = w.Text
	}
	return texts
}

// compareScored orders anchors best-first by the priority tuple:
// source count, length × 0.2, natural break score, combined score plus the
// first-position bonus, then earlier transcription position on full ties.
func compareScored(a, b types.ScoredAnchor) int {
	if c := cmp.Compare(len(b.Anchor.ReferencePositions), len(a.Anchor.ReferencePositions)); c != 0 {
		return c
	}
	if c := cmp.Compare(float64(b.Anchor.Length())*0.2, float64(a.Anchor.Length())*0.2); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score.NaturalBreakScore, a.Score.NaturalBreakScore); c != 0 {
		return c
	}
	if c := cmp.Compare(totalScore(b), totalScore(a)); c != 0 {
		return c
	}
	return cmp.Compare(a.Anchor.TranscriptionPosition, b.Anchor.TranscriptionPosition)
}

// totalScore is the combined score with the position bonus for anchors that
// open the transcription.
func totalScore(sa types.ScoredAnchor) float64 {
	bonus := 0.0
	if sa.Anchor.TranscriptionPosition == 0 {
		bonus = 1.0
	}
	return sa.Score.Combined() + bonus
}

// overlapsAny reports whether a conflicts with any accepted anchor: the
// transcription ranges intersect, or a shared reference source was matched at
// the identical reference position.
func overlapsAny(a types.AnchorSequence, accepted []types.ScoredAnchor) bool {
	for _, other := range accepted {
		o := other.Anchor
		if a.TranscriptionPosition < o.EndPosition() && o.TranscriptionPosition < a.EndPosition() {
			return true
		}
		for source, pos := range a.ReferencePositions {
			if oPos, ok := o.ReferencePositions[source]; ok && oPos == pos {
				return true
			}
		}
	}
	return false
}
