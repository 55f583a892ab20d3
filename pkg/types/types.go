// Package types defines the shared types used across all Lyralign packages.
//
// These types form the lingua franca between the anchor finder, the gap
// builder, the correction orchestrator, and downstream consumers (renderers,
// the review UI, tests). They are intentionally minimal — each package defines
// its own domain types, but cross-cutting data structures live here to avoid
// circular imports.
package types

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh stable identifier for a word, segment, anchor, or gap.
func NewID() string {
	return uuid.NewString()
}

// Word is a single transcribed or reference word with its timing information.
//
// Words are immutable once created: a correction that changes a word's text
// constructs a new Word with a new ID and records the lineage in the
// correction result's word ID map. A Word is owned by exactly one
// [LyricsSegment] at a time.
type Word struct {
	// ID is the stable identifier assigned at creation. Never reused.
	ID string `json:"id"`

	// Text is the word as written, including any original casing.
	Text string `json:"text"`

	// StartTime and EndTime delimit the word's audio span in seconds.
	// Reference words that carry no timing have both set to zero.
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	// Confidence is the transcriber's word confidence (0.0–1.0), or nil when
	// the transcription backend does not report per-word confidence.
	Confidence *float64 `json:"confidence,omitempty"`

	// CreatedDuringCorrection marks words synthesised by the correction
	// orchestrator, as opposed to words present in the original transcription.
	CreatedDuringCorrection bool `json:"created_during_correction,omitempty"`
}

// LyricsSegment is an ordered run of words, typically one sung line.
type LyricsSegment struct {
	// ID is the stable segment identifier. Preserved across a correction run
	// only when the segment's content is otherwise unchanged.
	ID string `json:"id"`

	// Text is the display text. Always derivable from Words (joined by a
	// single space) but cached here for rendering.
	Text string `json:"text"`

	// Words is the ordered word list. Never empty for a valid segment.
	Words []Word `json:"words"`

	// StartTime and EndTime delimit the segment's audio span in seconds.
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// NewSegment builds a segment over words, deriving Text and the time span.
func NewSegment(id string, words []Word) LyricsSegment {
	seg := LyricsSegment{ID: id, Words: words}
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	seg.Text = strings.Join(texts, " ")
	if len(words) > 0 {
		seg.StartTime = words[0].StartTime
		seg.EndTime = words[len(words)-1].EndTime
	}
	return seg
}

// LyricsData is one reference lyric source as fetched from an external
// provider (Genius, Spotify, a user file, ...).
type LyricsData struct {
	// Segments is the provider's line structure. Word timing is usually absent.
	Segments []LyricsSegment `json:"segments"`

	// Metadata carries provider-specific details (title, artist, URL).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Words flattens the source's segments into one ordered word list.
func (d LyricsData) Words() []Word {
	var words []Word
	for _, seg := range d.Segments {
		words = append(words, seg.Words...)
	}
	return words
}

// SegmentWords flattens segments into one ordered word list.
func SegmentWords(segments []LyricsSegment) []Word {
	var words []Word
	for _, seg := range segments {
		words = append(words, seg.Words...)
	}
	return words
}
