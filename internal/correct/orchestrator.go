package correct

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomadkaraoke/lyralign/internal/anchor"
	"github.com/nomadkaraoke/lyralign/internal/gap"
	"github.com/nomadkaraoke/lyralign/internal/observe"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// State is the orchestrator's per-run progress marker.
type State string

const (
	StateInit                State = "INIT"
	StateProcessingGaps      State = "PROCESSING_GAPS"
	StateApplyingCorrections State = "APPLYING_CORRECTIONS"
	StateDone                State = "DONE"

	// StateFallback is the terminal state entered on any unrecoverable
	// error: the original transcription is returned verbatim rather than
	// surfacing a failure to the caller.
	StateFallback State = "FALLBACK"
)

// Input is one correction run's input.
type Input struct {
	// Transcription is the transcriber's segment list, read-only.
	Transcription []types.LyricsSegment

	// References maps source name to that provider's lyrics.
	References map[string]types.LyricsData

	// AudioFileHash identifies the source audio, when known.
	AudioFileHash string
}

// OrchestratorOption is a functional option for [NewOrchestrator].
type OrchestratorOption func(*Orchestrator)

// WithMetrics attaches OTel instruments for correction telemetry.
func WithMetrics(m *observe.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator drives a full correction run: anchor search, gap building,
// the handler chain, and correction application. Safe for concurrent use —
// all run state is local to Run.
type Orchestrator struct {
	finder   *anchor.Finder
	handlers []Handler
	metrics  *observe.Metrics
}

// NewOrchestrator builds an Orchestrator over finder and the ordered handler
// chain. Handlers are tried in the given order for every gap.
func NewOrchestrator(finder *anchor.Finder, handlers []Handler, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{finder: finder, handlers: handlers}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs a full correction run and always returns a usable result:
// any unrecoverable error moves the run to [StateFallback], which yields the
// original transcription with zero corrections and confidence 1.0.
//
// The one exception is an [anchor.InconsistencyError] panic, which indicates
// a bug in the finder itself and is re-raised rather than degraded.
func (o *Orchestrator) Run(ctx context.Context, in Input) (result *types.CorrectionResult) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "correct.run")
	defer span.End()
	log := observe.Logger(ctx)
	state := StateInit

	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*anchor.InconsistencyError); ok {
				panic(ie)
			}
			log.Error("correction run panicked, falling back to original transcription",
				"state", state, "panic", r)
			result = fallbackResult(in)
		}
		o.metrics.RecordCorrectionRun(ctx, time.Since(start), string(stateOf(result, state)), result.CorrectionsMade)
	}()

	transcribed := types.SegmentWords(in.Transcription)
	refs := make(map[string][]types.Word, len(in.References))
	for source, data := range in.References {
		refs[source] = data.Words()
	}

	hctx := &HandlerContext{
		WordMap:       buildWordMap(transcribed, refs),
		AudioFileHash: in.AudioFileHash,
	}

	anchors, err := o.finder.FindAnchors(ctx, transcribed, refs)
	if err != nil {
		log.Error("anchor search failed, falling back to original transcription",
			"state", state, "err", err)
		return fallbackResult(in)
	}
	hctx.Anchors = anchors
	gaps := gap.Build(anchors, transcribed, refs)

	state = StateProcessingGaps
	type gapOutcome struct {
		handler     string
		corrections []types.WordCorrection
	}
	var outcomes []gapOutcome
	for _, g := range gaps {
		handlerName, corrections := o.processGap(ctx, g, hctx, log)
		if len(corrections) > 0 {
			outcomes = append(outcomes, gapOutcome{handler: handlerName, corrections: corrections})
		}
	}

	state = StateApplyingCorrections
	app := newApplier(in.Transcription)
	var steps []types.CorrectionStep
	for _, out := range outcomes {
		steps = append(steps, app.applyStep(out.handler, out.corrections))
	}
	correctedSegments, totalWords := app.finish()

	var all []types.WordCorrection
	for _, step := range steps {
		all = append(all, step.Corrections...)
	}

	state = StateDone
	result = &types.CorrectionResult{
		OriginalSegments:  in.Transcription,
		CorrectedSegments: correctedSegments,
		Corrections:       all,
		CorrectionSteps:   steps,
		Anchors:           anchors,
		Gaps:              gaps,
		WordIDMap:         app.wordIDMap,
		SegmentIDMap:      app.segIDMap,
		CorrectionsMade:   len(all),
		Confidence:        runConfidence(len(all), totalWords),
		Metadata:          runMetadata(in, start),
	}
	log.Info("correction run complete",
		"anchors", len(anchors), "gaps", len(gaps),
		"corrections", result.CorrectionsMade,
		"confidence", fmt.Sprintf("%.3f", result.Confidence),
		"duration", time.Since(start).Round(time.Millisecond))
	return result
}

// processGap walks the handler chain for one gap. The first handler that can
// handle the gap and returns corrections wins; failing handlers are logged
// and skipped.
func (o *Orchestrator) processGap(ctx context.Context, g types.GapSequence, hctx *HandlerContext, log *slog.Logger) (string, []types.WordCorrection) {
	for _, h := range o.handlers {
		can, extra := h.CanHandle(g, hctx)
		if !can {
			continue
		}

		corrections, err := safeHandle(ctx, h, g, hctx.WithExtra(extra))
		if err != nil {
			log.Warn("correction handler failed, trying next",
				"handler", h.Name(), "gap_position", g.TranscriptionPosition, "err", err)
			o.metrics.AddHandlerOutcome(ctx, h.Name(), "error")
			continue
		}
		if len(corrections) == 0 {
			o.metrics.AddHandlerOutcome(ctx, h.Name(), "no_match")
			continue
		}
		o.metrics.AddHandlerOutcome(ctx, h.Name(), "handled")
		return h.Name(), corrections
	}
	return "", nil
}

// safeHandle invokes the handler, converting a panic into an error so one
// misbehaving handler can never abort the run. Finder inconsistency panics
// are re-raised: they are never a handler's fault to swallow.
func safeHandle(ctx context.Context, h Handler, g types.GapSequence, hctx *HandlerContext) (corrections []types.WordCorrection, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*anchor.InconsistencyError); ok {
				panic(ie)
			}
			err = fmt.Errorf("handler %q panicked: %v", h.Name(), r)
		}
	}()
	return h.Handle(ctx, g, hctx)
}

// buildWordMap indexes every word reachable from the transcription and the
// reference sources by ID. Transcription entries take precedence.
func buildWordMap(transcribed []types.Word, refs map[string][]types.Word) map[string]types.Word {
	m := make(map[string]types.Word)
	for _, words := range refs {
		for _, w := range words {
			m[w.ID] = w
		}
	}
	for _, w := range transcribed {
		m[w.ID] = w
	}
	return m
}

// fallbackResult returns the original transcription verbatim: zero
// corrections, confidence 1.0.
func fallbackResult(in Input) *types.CorrectionResult {
	return &types.CorrectionResult{
		OriginalSegments:  in.Transcription,
		CorrectedSegments: in.Transcription,
		Corrections:       []types.WordCorrection{},
		Anchors:           []types.ScoredAnchor{},
		Gaps:              []types.GapSequence{},
		WordIDMap:         map[string]string{},
		SegmentIDMap:      map[string]string{},
		CorrectionsMade:   0,
		Confidence:        1.0,
		Metadata:          map[string]string{"state": string(StateFallback)},
	}
}

// runConfidence is 1 − made/total clamped to [0,1]; 1.0 when there are no
// words at all.
func runConfidence(made, totalWords int) float64 {
	if totalWords == 0 {
		return 1.0
	}
	c := 1.0 - float64(made)/float64(totalWords)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func runMetadata(in Input, start time.Time) map[string]string {
	md := map[string]string{
		"state":    string(StateDone),
		"started":  start.UTC().Format(time.RFC3339),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}
	if in.AudioFileHash != "" {
		md["audio_file_hash"] = in.AudioFileHash
	}
	return md
}

// stateOf reports the terminal state a result represents.
func stateOf(result *types.CorrectionResult, state State) State {
	if result != nil && result.Metadata["state"] == string(StateFallback) {
		return StateFallback
	}
	if state == StateDone {
		return StateDone
	}
	return state
}
