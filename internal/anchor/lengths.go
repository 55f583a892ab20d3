package anchor

import (
	"context"
	"slices"

	"github.com/nomadkaraoke/lyralign/internal/ngram"
	"github.com/nomadkaraoke/lyralign/internal/normalize"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// processLength finds every anchor candidate of length n. It is a pure unit
// of work: all mutable search state (the per-source used-position sets) is
// local to the call, so distinct lengths can run on pool workers without
// sharing anything.
//
// The function repeats passes over the transcription windows until a full
// pass finds no new match, the iteration cap is hit, or the stagnation
// detector trips. A cancelled context stops the search between passes;
// candidates found so far are returned with done=false.
func (f *Finder) processLength(ctx context.Context, data searchData, n int) (candidates []types.AnchorSequence, done bool) {
	windows := ngram.Windows(data.transTokens, n)
	if len(windows) == 0 {
		return nil, true
	}

	// Per-source occurrence index and used-position sets for this length.
	refIdx := make(map[string]map[string][]int, len(data.refTokens))
	usedRef := make(map[string]map[int]struct{}, len(data.refTokens))
	for source, tokens := range data.refTokens {
		if len(tokens) < n {
			continue
		}
		refIdx[source] = ngram.Index(tokens, n)
		usedRef[source] = make(map[int]struct{})
	}
	usedTrans := make(map[int]struct{})

	var (
		lastCount  int
		staleChecks int
	)

	for iter := 1; iter <= f.cfg.MaxIterationsPerNGram; iter++ {
		select {
		case <-ctx.Done():
			return candidates, false
		default:
		}

		found := false
		for _, w := range windows {
			if _, used := usedTrans[w.Position]; used {
				continue
			}
			if hasEmptyToken(w.Tokens) {
				continue
			}
			key := w.Key()

			// First unused occurrence per source.
			matches := make(map[string]int)
			for source, idx := range refIdx {
				for _, pos := range idx[key] {
					if _, used := usedRef[source][pos]; !used {
						matches[source] = pos
						break
					}
				}
			}
			if len(matches) < f.cfg.MinSources {
				continue
			}

			f.verifyWindow(data, w, n)

			candidates = append(candidates, buildAnchor(data, w, n, matches))
			usedTrans[w.Position] = struct{}{}
			for source, pos := range matches {
				usedRef[source][pos] = struct{}{}
			}
			found = true
		}

		if !found {
			return candidates, true
		}

		if iter%f.cfg.ProgressCheckInterval == 0 {
			if len(candidates) == lastCount {
				staleChecks++
				if staleChecks >= 3 {
					return candidates, true
				}
			} else {
				staleChecks = 0
			}
			lastCount = len(candidates)
		}
	}

	return candidates, true
}

// verifyWindow asserts that the transcription words at the window's position
// really are the n-gram tokens the matcher searched for. A mismatch means the
// window index and the word list have diverged, which is a bug, never input
// noise.
func (f *Finder) verifyWindow(data searchData, w ngram.Window, n int) {
	texts := make([]string, n)
	for i, word := range data.transWords[w.Position : w.Position+n] {
		texts[i] = word.Text
	}
	actual := normalize.WordTokens(texts)
	if !slices.Equal(actual, w.Tokens) {
		panic(&InconsistencyError{
			Position: w.Position,
			Expected: slices.Clone(w.Tokens),
			Actual:   actual,
		})
	}
}

// buildAnchor constructs the candidate for window w matched at the given
// reference positions.
func buildAnchor(data searchData, w ngram.Window, n int, matches map[string]int) types.AnchorSequence {
	a := types.AnchorSequence{
		ID:                    types.NewID(),
		TranscribedWordIDs:    make([]string, n),
		TranscriptionPosition: w.Position,
		ReferencePositions:    make(map[string]int, len(matches)),
		ReferenceWordIDs:      make(map[string][]string, len(matches)),
		Confidence:            float64(len(matches)) / float64(data.totalSources),
	}
	for i, word := range data.transWords[w.Position : w.Position+n] {
		a.TranscribedWordIDs[i] = word.ID
	}
	for source, pos := range matches {
		a.ReferencePositions[source] = pos
		ids := make([]string, n)
		for i, word := range data.refWords[source][pos : pos+n] {
			ids[i] = word.ID
		}
		a.ReferenceWordIDs[source] = ids
	}
	return a
}

func hasEmptyToken(tokens []string) bool {
	return slices.Contains(tokens, "")
}
