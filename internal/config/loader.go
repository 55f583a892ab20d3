package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviders lists the model backends the "llm" handler can use.
// Used by [Validate] to warn about unrecognised provider names.
var ValidLLMProviders = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Anchor.MinSequenceLength < 0 {
		errs = append(errs, fmt.Errorf("anchor.min_sequence_length %d must not be negative", cfg.Anchor.MinSequenceLength))
	}
	if cfg.Anchor.MinSources < 0 {
		errs = append(errs, fmt.Errorf("anchor.min_sources %d must not be negative", cfg.Anchor.MinSources))
	}
	if cfg.Anchor.Timeout < 0 {
		errs = append(errs, fmt.Errorf("anchor.timeout %s must not be negative", cfg.Anchor.Timeout))
	}
	if cfg.Anchor.Workers < 0 {
		errs = append(errs, fmt.Errorf("anchor.workers %d must not be negative", cfg.Anchor.Workers))
	}

	if cfg.Cache.MemoryEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.memory_entries %d must not be negative", cfg.Cache.MemoryEntries))
	}

	seen := make(map[string]int, len(cfg.Handlers))
	llmEnabled := false
	for i, h := range cfg.Handlers {
		prefix := fmt.Sprintf("handlers[%d]", i)
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if !slices.Contains(HandlerNames, h.Name) {
			errs = append(errs, fmt.Errorf("%s.name %q is unknown; valid values: %v", prefix, h.Name, HandlerNames))
			continue
		}
		if prev, ok := seen[h.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of handlers[%d]", prefix, h.Name, prev))
		}
		seen[h.Name] = i
		if h.Threshold < 0 || h.Threshold > 1 {
			errs = append(errs, fmt.Errorf("%s.threshold %.2f is out of range [0, 1]", prefix, h.Threshold))
		}
		if h.Name == "llm" {
			llmEnabled = true
		}
	}

	if llmEnabled {
		if cfg.LLM.Provider == "" {
			errs = append(errs, errors.New("handlers include llm but llm.provider is not configured"))
		} else if !slices.Contains(ValidLLMProviders, cfg.LLM.Provider) {
			slog.Warn("unknown llm provider name — may be a typo or third-party provider",
				"name", cfg.LLM.Provider,
				"known", ValidLLMProviders,
			)
		}
		if cfg.LLM.Model == "" {
			errs = append(errs, errors.New("handlers include llm but llm.model is not configured"))
		}
	}
	if cfg.LLM.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("llm.rate_limit_per_minute %d must not be negative", cfg.LLM.RateLimitPerMinute))
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f is out of range [0, 2]", cfg.LLM.Temperature))
	}

	if len(cfg.Handlers) == 0 {
		slog.Warn("no handlers configured; gaps will be left uncorrected")
	}

	return errors.Join(errs...)
}
