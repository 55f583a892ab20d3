package types

// PhraseType classifies how well an anchor's word span aligns with the
// linguistic phrase structure of the surrounding text.
type PhraseType string

const (
	// PhraseComplete is a grammatically complete phrase.
	PhraseComplete PhraseType = "COMPLETE"

	// PhrasePartial is a fragment contained within a single phrase.
	PhrasePartial PhraseType = "PARTIAL"

	// PhraseCrossBoundary spans a phrase or line boundary.
	PhraseCrossBoundary PhraseType = "CROSS_BOUNDARY"
)

// IsValid reports whether p is a recognised phrase type.
func (p PhraseType) IsValid() bool {
	switch p {
	case PhraseComplete, PhrasePartial, PhraseCrossBoundary:
		return true
	}
	return false
}

// phraseTypeWeights are the combined-score weights per phrase type.
var phraseTypeWeights = map[PhraseType]float64{
	PhraseComplete:      1.0,
	PhrasePartial:       0.7,
	PhraseCrossBoundary: 0.3,
}

// PhraseScore is the phrase-quality assessment of one anchor candidate,
// produced by a phrase scorer collaborator.
type PhraseScore struct {
	// PhraseType classifies the span's relationship to phrase boundaries.
	PhraseType PhraseType `json:"phrase_type"`

	// NaturalBreakScore rates how naturally the span's edges fall on breaks
	// in the text (0.0–1.0).
	NaturalBreakScore float64 `json:"natural_break_score"`

	// LengthScore rates the span length's suitability as an alignment unit
	// (0.0–1.0).
	LengthScore float64 `json:"length_score"`
}

// NeutralPhraseScore is the fallback assigned when scoring fails or times
// out: candidates degrade to a generous score rather than being discarded.
func NeutralPhraseScore() PhraseScore {
	return PhraseScore{PhraseType: PhraseComplete, NaturalBreakScore: 1.0, LengthScore: 1.0}
}

// Combined folds the three components into one score:
// type weight × 0.5 + natural break × 0.3 + length × 0.2.
func (s PhraseScore) Combined() float64 {
	return phraseTypeWeights[s.PhraseType]*0.5 + s.NaturalBreakScore*0.3 + s.LengthScore*0.2
}

// AnchorSequence is a word span confirmed identical, in order, between the
// transcription and at least the configured minimum number of reference
// sources.
type AnchorSequence struct {
	// ID is the stable anchor identifier, fresh per run.
	ID string `json:"id"`

	// TranscribedWordIDs are the IDs of the matched transcription words, in
	// transcription order.
	TranscribedWordIDs []string `json:"transcribed_word_ids"`

	// TranscriptionPosition is the word index of the span's first word within
	// the flattened transcription.
	TranscriptionPosition int `json:"transcription_position"`

	// ReferencePositions maps each matched source name to the word index of
	// the span's first word within that source.
	ReferencePositions map[string]int `json:"reference_positions"`

	// ReferenceWordIDs maps each matched source name to the IDs of the
	// matched reference words. Each entry has the same length as
	// TranscribedWordIDs.
	ReferenceWordIDs map[string][]string `json:"reference_word_ids"`

	// Confidence is matched sources divided by total sources (0.0–1.0].
	Confidence float64 `json:"confidence"`
}

// Length is the number of words in the anchor span.
func (a AnchorSequence) Length() int {
	return len(a.TranscribedWordIDs)
}

// EndPosition is the transcription word index one past the span's last word.
func (a AnchorSequence) EndPosition() int {
	return a.TranscriptionPosition + a.Length()
}

// ScoredAnchor pairs an anchor with its phrase-quality score. This is also
// the element shape of the on-disk anchor cache.
type ScoredAnchor struct {
	Anchor AnchorSequence `json:"anchor"`
	Score  PhraseScore    `json:"phrase_score"`
}

// GapSequence is a transcription span between two accepted anchors (or
// before the first / after the last) that may need correction. Gaps carry
// word IDs only — text must be resolved through a word map.
type GapSequence struct {
	// ID is the stable gap identifier, fresh per run.
	ID string `json:"id"`

	// TranscribedWordIDs are the IDs of the gap's transcription words.
	TranscribedWordIDs []string `json:"transcribed_word_ids"`

	// TranscriptionPosition is the word index of the gap's first word.
	TranscriptionPosition int `json:"transcription_position"`

	// PrecedingAnchorID and FollowingAnchorID bound the gap. Either is empty
	// when the gap sits at the start or end of the transcription.
	PrecedingAnchorID string `json:"preceding_anchor_id,omitempty"`
	FollowingAnchorID string `json:"following_anchor_id,omitempty"`

	// ReferenceWordIDs holds, per source, the reference words that fall in
	// the corresponding reference-side window. A source's entry is empty when
	// that source does not contain both bounding anchors, because no reliable
	// window can be computed for it.
	ReferenceWordIDs map[string][]string `json:"reference_word_ids"`
}

// Length is the number of transcription words in the gap.
func (g GapSequence) Length() int {
	return len(g.TranscribedWordIDs)
}
