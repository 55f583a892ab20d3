// Package correct runs the gap correction pipeline: an ordered chain of
// pluggable handlers proposes word-level edits for each gap between accepted
// anchors, and the orchestrator applies the accepted edits into a new
// segment stream while preserving word identity lineage and building a
// replayable audit trail.
package correct

import (
	"context"

	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// HandlerContext is the shared read-only context offered to every handler.
type HandlerContext struct {
	// WordMap resolves every word ID reachable from the transcription and
	// from every reference source. Transcription entries win on collision.
	WordMap map[string]types.Word

	// Anchors is the accepted anchor set for the run.
	Anchors []types.ScoredAnchor

	// AudioFileHash identifies the source audio, when known.
	AudioFileHash string

	// Extra carries handler-specific data returned by CanHandle, merged in
	// before Handle is invoked.
	Extra map[string]any
}

// WithExtra returns a shallow copy of hctx with extra merged into Extra.
func (hctx *HandlerContext) WithExtra(extra map[string]any) *HandlerContext {
	if len(extra) == 0 {
		return hctx
	}
	merged := &HandlerContext{
		WordMap:       hctx.WordMap,
		Anchors:       hctx.Anchors,
		AudioFileHash: hctx.AudioFileHash,
		Extra:         make(map[string]any, len(hctx.Extra)+len(extra)),
	}
	for k, v := range hctx.Extra {
		merged.Extra[k] = v
	}
	for k, v := range extra {
		merged.Extra[k] = v
	}
	return merged
}

// GapText resolves the gap's transcribed word texts through the word map.
func (hctx *HandlerContext) GapText(g types.GapSequence) []string {
	return hctx.texts(g.TranscribedWordIDs)
}

// ReferenceText resolves one source's reference window texts for the gap.
// Returns nil when the source has no reliable window.
func (hctx *HandlerContext) ReferenceText(g types.GapSequence, source string) []string {
	ids := g.ReferenceWordIDs[source]
	if len(ids) == 0 {
		return nil
	}
	return hctx.texts(ids)
}

func (hctx *HandlerContext) texts(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = hctx.WordMap[id].Text
	}
	return out
}

// Handler is one pluggable correction strategy in the ordered pipeline.
// The first handler that reports it can handle a gap and returns at least one
// correction wins that gap; a handler returning no corrections falls through
// to the next one. A handler that fails (error or panic) is logged and
// treated as "could not handle" — it never aborts the run.
//
// Implementations must be safe for concurrent use.
type Handler interface {
	// Name identifies the handler in corrections and audit steps.
	Name() string

	// CanHandle reports whether the handler applies to gap, optionally
	// returning extra context to merge in before Handle.
	CanHandle(g types.GapSequence, hctx *HandlerContext) (bool, map[string]any)

	// Handle proposes corrections for gap. An empty slice (with nil error)
	// means the handler found nothing to change.
	Handle(ctx context.Context, g types.GapSequence, hctx *HandlerContext) ([]types.WordCorrection, error)
}
