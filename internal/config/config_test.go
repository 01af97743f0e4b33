package config

import (
	"errors"
	"testing"
)

// validConfig returns a config passing Validate, for mutation in tests.
func validConfig() *Config {
	return &Config{
		Model:         DefaultModel,
		Temperature:   0.0,
		MaxTokens:     800,
		EmbedderModel: DefaultEmbedderModel,
		MaxResults:    DefaultMaxResults,
		MaxHistory:    DefaultMaxHistory,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() = %v, want ErrConfigNil", err)
	}
}

func TestValidate_MissingAPIKeyIsNotAnError(t *testing.T) {
	cfg := validConfig()
	cfg.AnthropicAPIKey = ""

	// The generator surfaces a configuration message in-band instead;
	// startup must not fail on a missing key.
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for missing API key", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 1.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "max tokens zero",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "max results zero",
			mutate:  func(c *Config) { c.MaxResults = 0 },
			wantErr: ErrInvalidMaxResults,
		},
		{
			name:    "max results too large",
			mutate:  func(c *Config) { c.MaxResults = 100 },
			wantErr: ErrInvalidMaxResults,
		},
		{
			name:    "negative history",
			mutate:  func(c *Config) { c.MaxHistory = -1 },
			wantErr: ErrInvalidMaxHistory,
		},
		{
			name:    "chunk size too small",
			mutate:  func(c *Config) { c.ChunkSize = 50 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap not smaller than chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Load reads from the working directory; no config file exists in the
	// test environment so defaults apply.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.MaxResults != DefaultMaxResults {
		t.Errorf("MaxResults = %d, want %d", cfg.MaxResults, DefaultMaxResults)
	}
	if cfg.MaxHistory != DefaultMaxHistory {
		t.Errorf("MaxHistory = %d, want %d", cfg.MaxHistory, DefaultMaxHistory)
	}
	if cfg.ChunkSize != DefaultChunkSize || cfg.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("chunking = (%d, %d), want (%d, %d)",
			cfg.ChunkSize, cfg.ChunkOverlap, DefaultChunkSize, DefaultChunkOverlap)
	}
	if cfg.Addr == "" {
		t.Error("Addr should have a default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COURSECHAT_MAX_RESULTS", "10")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MaxResults != 10 {
		t.Errorf("MaxResults = %d, want 10 (env override)", cfg.MaxResults)
	}
	if cfg.AnthropicAPIKey != "sk-ant-test" {
		t.Errorf("AnthropicAPIKey = %q, want value from ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	}
}
