package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coursechat/coursechat/internal/config"
)

// runAsk answers one question from the command line and exits.
// Documents are loaded from the configured folder first so course
// questions have something to search.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: coursechat ask <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := checkRequiredEnv(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	system, err := buildSystem(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	loadStartupDocuments(ctx, system, cfg, logger)

	answer, sources, err := system.Answer(ctx, question, "")
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(answer)
	if len(sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range sources {
			if src.Link != "" {
				fmt.Printf("  - %s (%s)\n", src.Text, src.Link)
				continue
			}
			fmt.Printf("  - %s\n", src.Text)
		}
	}
	return nil
}
