package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/coursechat/coursechat/internal/anthropic"
	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/generator"
	"github.com/coursechat/coursechat/internal/ingest"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/tools"
)

// checkRequiredEnv verifies configuration every command needs.
//
// The Gemini key is required because the vector store cannot embed without
// it. The Anthropic key is deliberately not checked here: a missing key
// still starts the process, and queries answer with a fixed configuration
// message instead.
func checkRequiredEnv(cfg *config.Config) error {
	if cfg.GeminiAPIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "coursechat requires a Gemini API key to embed course content.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")

		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

// buildSystem wires store, tools, generator, sessions and ingestion into
// the QA system.
func buildSystem(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rag.System, error) {
	embed, err := store.NewGeminiEmbedding(ctx, cfg.GeminiAPIKey, cfg.EmbedderModel)
	if err != nil {
		return nil, fmt.Errorf("creating embedding function: %w", err)
	}

	st, err := store.New(embed, cfg.MaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	registry := tools.NewRegistry(logger)

	searchTool, err := tools.NewSearchTool(st, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}
	if err := registry.Register(searchTool); err != nil {
		return nil, fmt.Errorf("registering search tool: %w", err)
	}

	outlineTool, err := tools.NewOutlineTool(st, logger)
	if err != nil {
		return nil, fmt.Errorf("creating outline tool: %w", err)
	}
	if err := registry.Register(outlineTool); err != nil {
		return nil, fmt.Errorf("registering outline tool: %w", err)
	}

	var client generator.CompletionClient
	if generator.KeyLooksValid(cfg.AnthropicAPIKey) {
		c, err := anthropic.New(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			BaseURL:     cfg.AnthropicBaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating model client: %w", err)
		}
		client = c
	} else {
		logger.Warn("no usable Anthropic API key, queries will report the missing configuration")
	}

	gen := generator.New(client, registry, logger)
	sessions := session.NewManager(cfg.MaxHistory, logger)

	ingestor, err := ingest.New(st, ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap), logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestor: %w", err)
	}

	return rag.New(gen, sessions, st, ingestor, logger)
}

// loadStartupDocuments indexes the configured docs folder if it exists.
// A missing folder is not fatal: the server still answers general questions.
func loadStartupDocuments(ctx context.Context, system *rag.System, cfg *config.Config, logger *slog.Logger) {
	if cfg.DocsDir == "" {
		return
	}
	if _, err := os.Stat(cfg.DocsDir); err != nil {
		logger.Warn("docs folder not found, starting with an empty index", "dir", cfg.DocsDir)
		return
	}
	if err := system.LoadDocuments(ctx, cfg.DocsDir); err != nil {
		logger.Error("loading startup documents failed", "dir", cfg.DocsDir, "error", err)
	}
}
