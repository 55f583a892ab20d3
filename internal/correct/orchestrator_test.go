package correct_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nomadkaraoke/lyralign/internal/anchor"
	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/internal/correct/handlers"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// segmentFromText builds one timed segment per line of text.
func segmentsFromText(prefix, text string) []types.LyricsSegment {
	var segments []types.LyricsSegment
	pos := 0
	for li, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fields := strings.Fields(line)
		words := make([]types.Word, len(fields))
		for i, f := range fields {
			words[i] = types.Word{
				ID:        fmt.Sprintf("%s%d", prefix, pos),
				Text:      f,
				StartTime: float64(pos),
				EndTime:   float64(pos + 1),
			}
			pos++
		}
		segments = append(segments, types.NewSegment(fmt.Sprintf("%s-seg%d", prefix, li), words))
	}
	return segments
}

func referenceData(prefix, text string) types.LyricsData {
	return types.LyricsData{Segments: segmentsFromText(prefix, text)}
}

func newTestOrchestrator(chain ...correct.Handler) *correct.Orchestrator {
	finder := anchor.NewFinder(anchor.NewHeuristicScorer(), anchor.Config{})
	return correct.NewOrchestrator(finder, chain)
}

func TestRunAppliesCorrection(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(handlers.NewWordCountHandler())

	in := correct.Input{
		Transcription: segmentsFromText("t", "hello world my friend shine bright tonight yeah"),
		References: map[string]types.LyricsData{
			"genius": referenceData("r", "hello world my friend shines bright tonight yeah"),
		},
		AudioFileHash: "abc123",
	}

	result := orch.Run(context.Background(), in)
	if result.CorrectionsMade != 1 {
		t.Fatalf("corrections made = %d, want 1", result.CorrectionsMade)
	}
	c := result.Corrections[0]
	if c.OriginalWord != "shine" || c.CorrectedWord != "shines" {
		t.Errorf("correction %q -> %q", c.OriginalWord, c.CorrectedWord)
	}
	if c.Handler != "word_count_match" {
		t.Errorf("handler = %q", c.Handler)
	}
	if c.OriginalPosition != 4 || c.CorrectedPosition != 4 {
		t.Errorf("positions = %d -> %d, want 4 -> 4", c.OriginalPosition, c.CorrectedPosition)
	}

	corrected := types.SegmentWords(result.CorrectedSegments)
	if corrected[4].Text != "shines" {
		t.Errorf("corrected word text = %q", corrected[4].Text)
	}
	if !corrected[4].CreatedDuringCorrection {
		t.Error("replacement word must be marked as created during correction")
	}
	if newID := result.WordIDMap["t4"]; newID != corrected[4].ID {
		t.Errorf("word id map t4 -> %q, want %q", newID, corrected[4].ID)
	}
	if result.Metadata["state"] != "DONE" {
		t.Errorf("state = %q", result.Metadata["state"])
	}
	if result.Metadata["audio_file_hash"] != "abc123" {
		t.Errorf("audio file hash = %q", result.Metadata["audio_file_hash"])
	}
	if want := 1.0 - 1.0/8.0; result.Confidence != want {
		t.Errorf("confidence = %v, want %v", result.Confidence, want)
	}
}

func TestRunPerfectTranscription(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(handlers.NewWordCountHandler())

	text := "hello world my friend"
	in := correct.Input{
		Transcription: segmentsFromText("t", text),
		References: map[string]types.LyricsData{
			"genius": referenceData("r", text),
		},
	}

	result := orch.Run(context.Background(), in)
	if result.CorrectionsMade != 0 {
		t.Fatalf("corrections made = %d, want 0", result.CorrectionsMade)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", result.Confidence)
	}
	if len(result.Anchors) == 0 {
		t.Error("expected the perfect match to be anchored")
	}
	if len(result.Gaps) != 0 {
		t.Errorf("expected no gaps, got %d", len(result.Gaps))
	}
	if result.CorrectedSegments[0].ID != result.OriginalSegments[0].ID {
		t.Error("untouched segments must keep their ids")
	}
}

func TestRunFallbackOnAnchorTimeout(t *testing.T) {
	t.Parallel()
	finder := anchor.NewFinder(anchor.NewHeuristicScorer(), anchor.Config{Timeout: time.Nanosecond})
	orch := correct.NewOrchestrator(finder, []correct.Handler{handlers.NewWordCountHandler()})

	in := correct.Input{
		Transcription: segmentsFromText("t", "hello world my friend"),
		References: map[string]types.LyricsData{
			"genius": referenceData("r", "hello world my friend"),
		},
	}

	result := orch.Run(context.Background(), in)
	if result.Metadata["state"] != "FALLBACK" {
		t.Fatalf("state = %q, want FALLBACK", result.Metadata["state"])
	}
	if result.CorrectionsMade != 0 {
		t.Errorf("fallback must make no corrections, got %d", result.CorrectionsMade)
	}
	if result.Confidence != 1.0 {
		t.Errorf("fallback confidence = %v, want 1.0", result.Confidence)
	}
	if len(result.CorrectedSegments) != len(result.OriginalSegments) {
		t.Error("fallback must return the original transcription verbatim")
	}
}

// panickyHandler claims every gap and panics when invoked.
type panickyHandler struct{}

func (panickyHandler) Name() string { return "panicky" }
func (panickyHandler) CanHandle(types.GapSequence, *correct.HandlerContext) (bool, map[string]any) {
	return true, nil
}
func (panickyHandler) Handle(context.Context, types.GapSequence, *correct.HandlerContext) ([]types.WordCorrection, error) {
	panic("boom")
}

// erroringHandler claims every gap and fails when invoked.
type erroringHandler struct{}

func (erroringHandler) Name() string { return "erroring" }
func (erroringHandler) CanHandle(types.GapSequence, *correct.HandlerContext) (bool, map[string]any) {
	return true, nil
}
func (erroringHandler) Handle(context.Context, types.GapSequence, *correct.HandlerContext) ([]types.WordCorrection, error) {
	return nil, errors.New("backend unavailable")
}

func TestRunFailingHandlerFallsThroughToNext(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(erroringHandler{}, handlers.NewWordCountHandler())

	in := correct.Input{
		Transcription: segmentsFromText("t", "hello world my friend shine bright tonight yeah"),
		References: map[string]types.LyricsData{
			"genius": referenceData("r", "hello world my friend shines bright tonight yeah"),
		},
	}

	result := orch.Run(context.Background(), in)
	if result.CorrectionsMade != 1 {
		t.Fatalf("corrections made = %d, want 1", result.CorrectionsMade)
	}
	if result.Corrections[0].Handler != "word_count_match" {
		t.Errorf("handler = %q, want the next handler in the chain", result.Corrections[0].Handler)
	}
}

func TestRunPanickingHandlerIsContained(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(panickyHandler{})

	in := correct.Input{
		Transcription: segmentsFromText("t", "hello world my friend shine bright tonight yeah"),
		References: map[string]types.LyricsData{
			"genius": referenceData("r", "hello world my friend shines bright tonight yeah"),
		},
	}

	result := orch.Run(context.Background(), in)
	if result.Metadata["state"] != "DONE" {
		t.Fatalf("a contained handler panic must not abort the run, state = %q", result.Metadata["state"])
	}
	if result.CorrectionsMade != 0 {
		t.Errorf("corrections made = %d, want 0", result.CorrectionsMade)
	}
}

func TestRunNoReferences(t *testing.T) {
	t.Parallel()
	orch := newTestOrchestrator(handlers.NewWordCountHandler())

	in := correct.Input{
		Transcription: segmentsFromText("t", "hello world my friend"),
		References:    map[string]types.LyricsData{},
	}

	result := orch.Run(context.Background(), in)
	if result.CorrectionsMade != 0 {
		t.Errorf("no references must mean no corrections, got %d", result.CorrectionsMade)
	}
	if result.Metadata["state"] != "DONE" {
		t.Errorf("state = %q", result.Metadata["state"])
	}
}
