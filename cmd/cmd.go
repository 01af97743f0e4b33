// Package cmd provides the coursechat CLI commands.
//
// Commands:
//   - serve: HTTP API server for the QA assistant
//   - ask: answer a single question from the command line
//   - ingest: load course transcripts into the index
//
// Signal handling and graceful shutdown are implemented for long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/coursechat/coursechat/internal/log"
)

// Execute is the main entry point for the coursechat CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	return run(os.Args[1:])
}

func run(args []string) error {
	if len(args) < 1 {
		runHelp()
		return nil
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "ask":
		return runAsk(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("coursechat - Course materials QA assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coursechat serve [addr]     Start HTTP API server (default: 127.0.0.1:8000)")
	fmt.Println("  coursechat ask <question>   Answer one question and exit")
	fmt.Println("  coursechat ingest [dir]     Index course transcripts from a folder")
	fmt.Println("  coursechat --version        Show version information")
	fmt.Println("  coursechat --help           Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  ANTHROPIC_API_KEY  Anthropic key for answer generation")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini key for embeddings")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
