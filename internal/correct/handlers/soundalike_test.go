package handlers_test

import (
	"context"
	"testing"

	"github.com/nomadkaraoke/lyralign/internal/correct/handlers"
)

func TestSoundAlikeReplacesHomophone(t *testing.T) {
	t.Parallel()
	h := handlers.NewSoundAlikeHandler()
	g, hctx := makeGap(
		[]string{"no"},
		map[string][]string{"genius": {"know"}},
	)

	can, _ := h.CanHandle(g, hctx)
	if !can {
		t.Fatal("expected CanHandle to accept an equal-length window")
	}
	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 1 {
		t.Fatalf("expected 1 correction, got %d", len(corrections))
	}
	if corrections[0].CorrectedWord != "know" {
		t.Errorf("corrected word = %q", corrections[0].CorrectedWord)
	}
	if corrections[0].Handler != "sound_alike" {
		t.Errorf("handler = %q", corrections[0].Handler)
	}
}

func TestSoundAlikeRejectsPhoneticMismatch(t *testing.T) {
	t.Parallel()
	h := handlers.NewSoundAlikeHandler()
	g, hctx := makeGap(
		[]string{"cat"},
		map[string][]string{"genius": {"dog"}},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("phonetically unrelated words must not be replaced, got %v", corrections)
	}
}

func TestSoundAlikeSkipsWhenAnySourceAgrees(t *testing.T) {
	t.Parallel()
	h := handlers.NewSoundAlikeHandler()
	g, hctx := makeGap(
		[]string{"no"},
		map[string][]string{
			"genius":  {"know"},
			"spotify": {"no"},
		},
	)

	corrections, err := h.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("a word one source confirms verbatim must stay, got %v", corrections)
	}
}

func TestSoundAlikeThresholdOption(t *testing.T) {
	t.Parallel()
	strict := handlers.NewSoundAlikeHandler(handlers.WithSoundAlikeThreshold(0.99))
	g, hctx := makeGap(
		[]string{"no"},
		map[string][]string{"genius": {"know"}},
	)

	corrections, err := strict.Handle(context.Background(), g, hctx)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(corrections) != 0 {
		t.Errorf("a near-impossible threshold must reject everything, got %v", corrections)
	}
}
