package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/pkg/provider/llm"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

const (
	defaultLLMTemperature = 0.1
	defaultLLMRatePerMin  = 30
)

// llmSystemPrompt instructs the model to act as a conservative lyric
// transcription corrector returning structured JSON.
const llmSystemPrompt = `You are a lyrics transcription correction assistant.

You are given the words of a possibly mis-transcribed region of a song, plus the corresponding region from one or more published lyric sources.

Rules:
- ONLY correct transcribed words that appear to be mishearings of the reference lyrics.
- Do NOT invent words that appear in neither the transcription nor any reference.
- Be conservative — if you are not confident a word is a mishearing, leave it unchanged.
- position is the 0-based index of the word within the transcribed region.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "corrections": [
    {"position": <int>, "corrected": "<replacement word>", "confidence": <0.0-1.0>}
  ]
}

If no corrections are needed, return an empty corrections array.`

// llmResponse is the expected JSON structure returned by the model.
type llmResponse struct {
	Corrections []struct {
		Position   int     `json:"position"`
		Corrected  string  `json:"corrected"`
		Confidence float64 `json:"confidence"`
	} `json:"corrections"`
}

// LLMOption is a functional option for [NewLLMHandler].
type LLMOption func(*LLMHandler)

// WithLLMTemperature sets the sampling temperature. Default: 0.1.
func WithLLMTemperature(t float64) LLMOption {
	return func(h *LLMHandler) { h.temperature = t }
}

// WithLLMRateLimit sets the maximum model calls per minute. Default: 30.
func WithLLMRateLimit(perMinute int) LLMOption {
	return func(h *LLMHandler) {
		if perMinute > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
		}
	}
}

// LLMHandler asks a language model to resolve gaps the deterministic
// handlers could not. It is intended as the last handler in the chain.
//
// The model's response is parsed defensively: an unparseable reply, an
// out-of-range position, or a suggestion that matches neither the gap nor
// any reference word yields no correction rather than an error, so the
// pipeline degrades gracefully when the model misbehaves.
type LLMHandler struct {
	provider    llm.Provider
	temperature float64
	limiter     *rate.Limiter
}

var _ correct.Handler = (*LLMHandler)(nil)

// NewLLMHandler returns an LLMHandler backed by provider.
func NewLLMHandler(provider llm.Provider, opts ...LLMOption) *LLMHandler {
	h := &LLMHandler{
		provider:    provider,
		temperature: defaultLLMTemperature,
		limiter:     rate.NewLimiter(rate.Limit(float64(defaultLLMRatePerMin)/60.0), 1),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Name implements [correct.Handler].
func (*LLMHandler) Name() string { return "llm" }

// CanHandle implements [correct.Handler]. The handler needs a configured
// provider and at least one reference window to ground the model.
func (h *LLMHandler) CanHandle(g types.GapSequence, hctx *correct.HandlerContext) (bool, map[string]any) {
	if h.provider == nil || g.Length() == 0 {
		return false, nil
	}
	return len(spans(g, hctx)) > 0, nil
}

// Handle implements [correct.Handler].
func (h *LLMHandler) Handle(ctx context.Context, g types.GapSequence, hctx *correct.HandlerContext) ([]types.WordCorrection, error) {
	all := spans(g, hctx)
	if len(all) == 0 {
		return nil, nil
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm handler: rate limiter: %w", err)
	}

	gapWords := hctx.GapText(g)
	resp, err := h.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: llmSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(gapWords, all)},
		},
		Temperature: h.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("llm handler: %w", err)
	}

	parsed, ok := parseResponse(resp.Content)
	if !ok {
		// Graceful degradation: a reply we cannot parse means no corrections.
		return nil, nil
	}

	var corrections []types.WordCorrection
	for _, c := range parsed.Corrections {
		if c.Position < 0 || c.Position >= g.Length() {
			continue
		}
		word := strings.TrimSpace(c.Corrected)
		if word == "" || !justified(word, all) {
			continue
		}
		corrections = append(corrections, replacement(
			g, hctx, c.Position, word,
			h.Name(), "language model matched the word against the reference lyrics",
			sourceNames(all), clamp01(c.Confidence), nil,
		))
	}
	return corrections, nil
}

// buildPrompt renders the gap and each source's reference window.
func buildPrompt(gapWords []string, all []referenceSpan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcribed region: %s\n", strings.Join(gapWords, " "))
	for _, s := range all {
		fmt.Fprintf(&b, "Reference (%s): %s\n", s.source, strings.Join(s.words, " "))
	}
	return b.String()
}

// parseResponse decodes the model's JSON reply, tolerating surrounding
// prose by extracting the outermost object.
func parseResponse(content string) (llmResponse, bool) {
	var parsed llmResponse
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return parsed, false
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return parsed, false
	}
	return parsed, true
}

// justified reports whether the suggested word appears in at least one
// reference window, so the model can never introduce vocabulary of its own.
func justified(word string, all []referenceSpan) bool {
	norm := normTokens([]string{word})[0]
	if norm == "" {
		return false
	}
	for _, s := range all {
		for _, t := range s.tokens {
			if t == norm {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
