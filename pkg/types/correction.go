package types

// WordCorrection is a single word-level edit proposed by a correction
// handler and applied by the orchestrator.
//
// A split of one word into N is represented as N corrections sharing
// SplitTotal = N with distinct SplitIndex values. A combine of N words into
// one is one replacement correction plus N−1 deletion corrections at
// contiguous original positions.
type WordCorrection struct {
	// OriginalWord is the transcription word text being edited.
	OriginalWord string `json:"original_word"`

	// CorrectedWord is the replacement text. Empty means deletion.
	CorrectedWord string `json:"corrected_word"`

	// OriginalPosition is the word index in the flattened transcription.
	OriginalPosition int `json:"original_position"`

	// CorrectedPosition is the word index in the corrected word stream, set
	// once the correction has been applied. Negative while unapplied.
	CorrectedPosition int `json:"corrected_position"`

	// Source names the reference source(s) that justified this edit, e.g.
	// "genius" or "genius,spotify".
	Source string `json:"source"`

	// Reason is a human-readable explanation for the review UI.
	Reason string `json:"reason"`

	// Handler is the name of the handler that proposed the edit.
	Handler string `json:"handler"`

	// Confidence is the handler's confidence in the edit (0.0–1.0).
	Confidence float64 `json:"confidence"`

	// IsDeletion marks the word for removal; CorrectedWord is empty.
	IsDeletion bool `json:"is_deletion,omitempty"`

	// SplitIndex and SplitTotal group the pieces of a one-to-many split.
	// SplitTotal is zero for non-split corrections.
	SplitIndex int `json:"split_index,omitempty"`
	SplitTotal int `json:"split_total,omitempty"`

	// ReferencePositions records, per source, the reference word index the
	// replacement was taken from.
	ReferencePositions map[string]int `json:"reference_positions,omitempty"`

	// WordID is the ID of the word being replaced or deleted.
	WordID string `json:"word_id"`

	// CorrectedWordID is the ID of the newly created word, or empty for a
	// deletion. Assigned when the correction is applied.
	CorrectedWordID string `json:"corrected_word_id,omitempty"`

	// Length is the number of original words this correction covers.
	Length int `json:"length"`
}

// CorrectionStep records one successful handler invocation: exactly which
// words and segments were touched, created, and deleted. The ordered list of
// steps forms a replayable, reversible audit log of the whole run.
type CorrectionStep struct {
	// HandlerName is the handler that produced this step's corrections.
	HandlerName string `json:"handler_name"`

	// AffectedWordIDs are the original word IDs touched by this step.
	AffectedWordIDs []string `json:"affected_word_ids"`

	// AffectedSegmentIDs are the original segment IDs whose content changed.
	AffectedSegmentIDs []string `json:"affected_segment_ids"`

	// Corrections are the edits produced by the handler, in gap order.
	Corrections []WordCorrection `json:"corrections"`

	// SegmentsBefore and SegmentsAfter snapshot the affected segments around
	// the step, sufficient to reconstruct or reverse it.
	SegmentsBefore []LyricsSegment `json:"segments_before"`
	SegmentsAfter  []LyricsSegment `json:"segments_after"`

	// CreatedWordIDs and DeletedWordIDs are the word IDs this step created
	// and removed.
	CreatedWordIDs []string `json:"created_word_ids"`
	DeletedWordIDs []string `json:"deleted_word_ids"`
}

// CorrectionResult is the sole output artifact of a correction run, consumed
// by output renderers, the review server, and tests.
type CorrectionResult struct {
	// OriginalSegments is the input transcription, untouched.
	OriginalSegments []LyricsSegment `json:"original_segments"`

	// CorrectedSegments is the corrected transcription. Content-equal to
	// OriginalSegments when no corrections were applied.
	CorrectedSegments []LyricsSegment `json:"corrected_segments"`

	// Corrections is every applied edit across all gaps, in transcription
	// order.
	Corrections []WordCorrection `json:"corrections"`

	// CorrectionSteps is the per-handler-invocation audit log.
	CorrectionSteps []CorrectionStep `json:"correction_steps"`

	// Anchors and Gaps are the alignment that drove the run.
	Anchors []ScoredAnchor `json:"anchors"`
	Gaps    []GapSequence  `json:"gaps"`

	// WordIDMap maps each replaced original word ID to the ID of the word
	// that replaced it (lineage). Deleted words map to the empty string.
	WordIDMap map[string]string `json:"word_id_map"`

	// SegmentIDMap maps each rewritten original segment ID to its new ID.
	SegmentIDMap map[string]string `json:"segment_id_map"`

	// CorrectionsMade is len(Corrections).
	CorrectionsMade int `json:"corrections_made"`

	// Confidence is 1 − CorrectionsMade/total corrected words, clamped to
	// [0,1]; 1.0 when there are no words.
	Confidence float64 `json:"confidence"`

	// Metadata carries run details (audio file hash, timing) for consumers.
	Metadata map[string]string `json:"metadata,omitempty"`
}
