// Command lyralign corrects a sung-lyrics transcription against one or more
// published reference lyric sources and writes the correction result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"

	"github.com/nomadkaraoke/lyralign/internal/anchor"
	"github.com/nomadkaraoke/lyralign/internal/cache"
	"github.com/nomadkaraoke/lyralign/internal/config"
	"github.com/nomadkaraoke/lyralign/internal/correct"
	"github.com/nomadkaraoke/lyralign/internal/correct/handlers"
	"github.com/nomadkaraoke/lyralign/internal/observe"
	"github.com/nomadkaraoke/lyralign/pkg/provider/llm"
	"github.com/nomadkaraoke/lyralign/pkg/provider/llm/anyllm"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	transcriptionPath := flag.String("transcription", "", "path to the transcription JSON file (required)")
	refsPath := flag.String("refs", "", "path to the reference sources JSON file (required)")
	outPath := flag.String("out", "", "path to write the correction result JSON (default: stdout)")
	audioHash := flag.String("audio-hash", "", "hash of the source audio file, recorded in the result metadata")
	flag.Parse()

	if *transcriptionPath == "" || *refsPath == "" {
		fmt.Fprintln(os.Stderr, "lyralign: -transcription and -refs are required")
		flag.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lyralign: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lyralign starting",
		"transcription", *transcriptionPath,
		"refs", *refsPath,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Inputs ────────────────────────────────────────────────────────────────
	var transcription types.LyricsData
	if err := readJSON(*transcriptionPath, &transcription); err != nil {
		slog.Error("failed to read transcription", "err", err)
		return 1
	}
	var references map[string]types.LyricsData
	if err := readJSON(*refsPath, &references); err != nil {
		slog.Error("failed to read reference sources", "err", err)
		return 1
	}
	if len(references) == 0 {
		slog.Error("no reference sources provided")
		return 1
	}

	// ── Anchor finder ─────────────────────────────────────────────────────────
	finderOpts := []anchor.Option{anchor.WithMetrics(metrics)}
	if cfg.Cache.Dir != "" {
		store, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.MemoryEntries)
		if err != nil {
			slog.Error("failed to open anchor cache", "dir", cfg.Cache.Dir, "err", err)
			return 1
		}
		finderOpts = append(finderOpts, anchor.WithCache(store))
	}
	if cfg.Anchor.Workers > 0 {
		finderOpts = append(finderOpts, anchor.WithWorkers(cfg.Anchor.Workers))
	}
	finder := anchor.NewFinder(anchor.NewHeuristicScorer(), anchor.Config{
		MinSequenceLength:     cfg.Anchor.MinSequenceLength,
		MinSources:            cfg.Anchor.MinSources,
		Timeout:               cfg.Anchor.Timeout.Std(),
		MaxIterationsPerNGram: cfg.Anchor.MaxIterationsPerNGram,
	}, finderOpts...)

	// ── Handler chain ─────────────────────────────────────────────────────────
	chain, err := buildHandlers(cfg)
	if err != nil {
		slog.Error("failed to build handlers", "err", err)
		return 1
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	orch := correct.NewOrchestrator(finder, chain, correct.WithMetrics(metrics))
	result := orch.Run(ctx, correct.Input{
		Transcription: transcription.Segments,
		References:    references,
		AudioFileHash: *audioHash,
	})

	slog.Info("correction complete",
		"corrections", result.CorrectionsMade,
		"anchors", len(result.Anchors),
		"gaps", len(result.Gaps),
		"confidence", result.Confidence,
	)

	if err := writeJSON(*outPath, result); err != nil {
		slog.Error("failed to write result", "err", err)
		return 1
	}
	return 0
}

// defaultHandlers is the chain used when the config lists none.
var defaultHandlers = []config.HandlerConfig{
	{Name: "word_count_match"},
	{Name: "no_space_punctuation_match"},
	{Name: "sound_alike"},
	{Name: "levenshtein"},
}

// buildHandlers instantiates the configured gap handlers in order.
func buildHandlers(cfg *config.Config) ([]correct.Handler, error) {
	specs := cfg.Handlers
	if len(specs) == 0 {
		specs = defaultHandlers
	}

	var chain []correct.Handler
	for _, h := range specs {
		switch h.Name {
		case "word_count_match":
			chain = append(chain, handlers.NewWordCountHandler())
		case "levenshtein":
			var opts []handlers.LevenshteinOption
			if h.Threshold > 0 {
				opts = append(opts, handlers.WithLevenshteinThreshold(h.Threshold))
			}
			chain = append(chain, handlers.NewLevenshteinHandler(opts...))
		case "sound_alike":
			var opts []handlers.SoundAlikeOption
			if h.Threshold > 0 {
				opts = append(opts, handlers.WithSoundAlikeThreshold(h.Threshold))
			}
			chain = append(chain, handlers.NewSoundAlikeHandler(opts...))
		case "no_space_punctuation_match":
			chain = append(chain, handlers.NewNoSpacePunctuationHandler())
		case "llm":
			provider, err := buildLLMProvider(cfg.LLM)
			if err != nil {
				return nil, fmt.Errorf("create llm provider %q: %w", cfg.LLM.Provider, err)
			}
			var opts []handlers.LLMOption
			if cfg.LLM.Temperature > 0 {
				opts = append(opts, handlers.WithLLMTemperature(cfg.LLM.Temperature))
			}
			if cfg.LLM.RateLimitPerMinute > 0 {
				opts = append(opts, handlers.WithLLMRateLimit(cfg.LLM.RateLimitPerMinute))
			}
			chain = append(chain, handlers.NewLLMHandler(provider, opts...))
			slog.Info("llm handler enabled", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		default:
			return nil, fmt.Errorf("unknown handler %q", h.Name)
		}
	}
	return chain, nil
}

// buildLLMProvider constructs the any-llm backend named in cfg.
func buildLLMProvider(cfg config.LLMConfig) (llm.Provider, error) {
	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return anyllm.New(cfg.Provider, cfg.Model, opts...)
}

// ── I/O helpers ───────────────────────────────────────────────────────────────

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
