package handlers_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nomadkaraoke/lyralign/internal/correct/handlers"
	"github.com/nomadkaraoke/lyralign/pkg/provider/llm"
	"github.com/nomadkaraoke/lyralign/pkg/provider/llm/mock"
)

func TestLLMParsesCorrections(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"corrections": [{"position": 0, "corrected": "world", "confidence": 0.9}]}`,
		},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	can, _ := h.CanHandle(g, hctx)
	if !can {
		t.Fatal("expected CanHandle to accept a gap with a reference window")
	}
	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(corrections))
	}
	c := corrections[0]
	if c.CorrectedWord != "world" || c.Confidence != 0.9 || c.Handler != "llm" {
		t.Errorf("correction = %+v", c)
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.CompleteCalls))
	}
	req := provider.CompleteCalls[0].Req
	if req.SystemPrompt == "" {
		t.Error("request must carry the system prompt")
	}
	if !strings.Contains(req.Messages[0].Content, "wrld") {
		t.Errorf("prompt must list the gap words, got %q", req.Messages[0].Content)
	}
	if !strings.Contains(req.Messages[0].Content, "world") {
		t.Errorf("prompt must list the reference window, got %q", req.Messages[0].Content)
	}
}

func TestLLMToleratesProseAroundJSON(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "Sure! Here is the result:\n{\"corrections\": [{\"position\": 0, \"corrected\": \"world\", \"confidence\": 0.8}]}\nLet me know if you need more.",
		},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 1 {
		t.Errorf("expected the embedded JSON object to be extracted, got %d corrections", len(corrections))
	}
}

func TestLLMUnparseableResponseMeansNoCorrections(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "I cannot help with that."},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("an unparseable reply is not an error, got %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("expected no corrections, got %v", corrections)
	}
}

func TestLLMRejectsInventedWords(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"corrections": [{"position": 0, "corrected": "banana", "confidence": 0.9}]}`,
		},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("a word absent from every reference must be dropped, got %v", corrections)
	}
}

func TestLLMSkipsOutOfRangePositions(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"corrections": [{"position": 7, "corrected": "world", "confidence": 0.9}, {"position": -1, "corrected": "world", "confidence": 0.9}]}`,
		},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("out-of-range positions must be skipped, got %v", corrections)
	}
}

func TestLLMProviderErrorSurfaces(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{CompleteErr: errors.New("rate limited")}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	if _, err := h.Handle(context.Background(), g, hctx); err == nil {
		t.Error("a provider failure must surface so the chain can log and move on")
	}
}

func TestLLMWithoutReferenceWindowRejected(t *testing.T) {
	t.Parallel()
	h := handlers.NewLLMHandler(&mock.Provider{})
	g, hctx := makeGap([]string{"wrld"}, nil)

	if can, _ := h.CanHandle(g, hctx); can {
		t.Error("a gap with no reference window gives the model nothing to ground on")
	}
}

func TestLLMClampsConfidence(t *testing.T) {
	t.Parallel()
	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"corrections": [{"position": 0, "corrected": "world", "confidence": 3.5}]}`,
		},
	}
	h := handlers.NewLLMHandler(provider)
	g, hctx := makeGap(
		[]string{"wrld"},
		map[string][]string{"genius": {"world"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 1 || corrections[0].Confidence != 1.0 {
		t.Errorf("confidence must clamp to [0,1], got %+v", corrections)
	}
}
