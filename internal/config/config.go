// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./coursechat.yaml or ~/.coursechat/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Anthropic: model name, temperature, max tokens, endpoint
//   - Embedding: Gemini embedder model for vector embeddings
//   - Retrieval: max results per search, chunk size/overlap, docs directory
//   - Session: conversation history depth
//   - Server: listen address, CORS origins
//   - Tracing: OTLP endpoint (optional)
//
// Error Handling: sentinel errors for errors.Is() checks, wrapped with
// context using fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates the session history depth is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidChunking indicates the chunk size/overlap combination is unusable.
	ErrInvalidChunking = errors.New("invalid chunking")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")
)

// Defaults mirroring the behavior the rest of the system is tuned for.
const (
	// DefaultModel is the Anthropic model used for answer generation.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultEmbedderModel is the Gemini model used for embeddings.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxResults is the number of chunks returned per search.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of (question, answer) exchanges kept
	// per session and rendered into the conversation context.
	DefaultMaxHistory = 2

	// DefaultChunkSize and DefaultChunkOverlap control transcript chunking
	// (characters, sentence-aligned).
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Config stores application configuration.
// SECURITY: API keys are read from the environment only and are never
// written back to the config file.
type Config struct {
	// Anthropic generation settings
	AnthropicAPIKey  string  `mapstructure:"anthropic_api_key"`
	AnthropicBaseURL string  `mapstructure:"anthropic_base_url"`
	Model            string  `mapstructure:"model"`
	Temperature      float32 `mapstructure:"temperature"`
	MaxTokens        int     `mapstructure:"max_tokens"`

	// Embedding settings (Gemini)
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	EmbedderModel string `mapstructure:"embedder_model"`

	// Retrieval settings
	DocsDir      string `mapstructure:"docs_dir"`
	MaxResults   int    `mapstructure:"max_results"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`

	// Session settings
	MaxHistory int `mapstructure:"max_history"`

	// Server settings
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Model-call rate limiting (requests per second, burst)
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	// Tracing (optional; empty endpoint disables the exporter)
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("coursechat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".coursechat"))
	}

	setDefaults(v)

	// COURSECHAT_MODEL, COURSECHAT_MAX_RESULTS, ...
	v.SetEnvPrefix("COURSECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindSecrets(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"config_name", "coursechat.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_tokens", 800)

	v.SetDefault("embedder_model", DefaultEmbedderModel)

	v.SetDefault("docs_dir", "./docs")
	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("max_history", DefaultMaxHistory)

	v.SetDefault("addr", "127.0.0.1:8000")
	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("rate_limit", 2.0)
	v.SetDefault("rate_burst", 4)

	v.SetDefault("environment", "dev")
}

// bindSecrets binds API keys to their conventional environment variables.
// ANTHROPIC_API_KEY and GEMINI_API_KEY are the names the vendors document,
// so they are honored without the COURSECHAT_ prefix.
func bindSecrets(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Note: a missing Anthropic API key is deliberately NOT a validation error.
// The generator answers with a fixed configuration message instead of making
// model calls, so the server can still start and surface the problem in-band.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidModelName)
	}

	// Anthropic documents 0.0..1.0 for temperature.
	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 64000 {
		return fmt.Errorf("%w: must be between 1 and 64,000, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.MaxResults < 1 || c.MaxResults > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidMaxResults, c.MaxResults)
	}

	if c.MaxHistory < 0 || c.MaxHistory > 50 {
		return fmt.Errorf("%w: must be between 0 and 50, got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}

	if c.ChunkSize < 100 {
		return fmt.Errorf("%w: chunk_size must be at least 100, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	return nil
}
