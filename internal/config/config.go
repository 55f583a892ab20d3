// Package config provides the configuration schema and loader for the
// lyralign correction engine.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a [time.Duration] that decodes from YAML strings like "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String returns the standard duration formatting.
func (d Duration) String() string { return time.Duration(d).String() }

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for lyralign.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel  LogLevel        `yaml:"log_level"`
	Anchor    AnchorConfig    `yaml:"anchor"`
	Cache     CacheConfig     `yaml:"cache"`
	Handlers  []HandlerConfig `yaml:"handlers"`
	LLM       LLMConfig       `yaml:"llm"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AnchorConfig holds the anchor search parameters. Zero values fall back to
// the search defaults.
type AnchorConfig struct {
	// MinSequenceLength is the shortest n-gram considered an anchor.
	MinSequenceLength int `yaml:"min_sequence_length"`

	// MinSources is how many reference sources must contain a phrase
	// before it qualifies as an anchor.
	MinSources int `yaml:"min_sources"`

	// Timeout bounds the whole anchor search (e.g. "10m").
	Timeout Duration `yaml:"timeout"`

	// MaxIterationsPerNGram caps the match passes per n-gram length.
	MaxIterationsPerNGram int `yaml:"max_iterations_per_ngram"`

	// Workers is the number of concurrent length searches. Zero means
	// one fewer than the CPU count.
	Workers int `yaml:"workers"`
}

// CacheConfig configures the on-disk anchor result cache.
type CacheConfig struct {
	// Dir is where cached anchor computations are stored. Empty disables
	// the cache.
	Dir string `yaml:"dir"`

	// MemoryEntries bounds the in-process LRU in front of the disk cache.
	MemoryEntries int `yaml:"memory_entries"`
}

// HandlerConfig enables one gap correction handler. Handlers run in the
// order they are listed; the first one that produces corrections for a gap
// wins.
type HandlerConfig struct {
	// Name selects the handler: "word_count_match", "levenshtein",
	// "sound_alike", "no_space_punctuation_match", or "llm".
	Name string `yaml:"name"`

	// Threshold overrides the similarity threshold for the fuzzy handlers.
	// Zero keeps the handler's default. Ignored by exact-match handlers.
	Threshold float64 `yaml:"threshold"`
}

// HandlerNames lists the recognised handler names in their conventional
// chain order.
var HandlerNames = []string{
	"word_count_match",
	"levenshtein",
	"sound_alike",
	"no_space_punctuation_match",
	"llm",
}

// LLMConfig configures the model backing the "llm" handler. Only consulted
// when that handler is listed in Handlers.
type LLMConfig struct {
	// Provider selects the backend (e.g. "anthropic", "openai", "ollama").
	Provider string `yaml:"provider"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider's API if required.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Temperature controls sampling randomness. Zero keeps the default.
	Temperature float64 `yaml:"temperature"`

	// RateLimitPerMinute caps model calls per minute. Zero keeps the default.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// TelemetryConfig holds OpenTelemetry identification settings.
type TelemetryConfig struct {
	// ServiceName overrides the reported service name. Empty means "lyralign".
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the reported service version string.
	ServiceVersion string `yaml:"service_version"`
}
