package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/coursechat/coursechat/internal/config"
)

// runIngest indexes course transcripts from a folder and prints what the
// index now contains.
func runIngest(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := checkRequiredEnv(cfg); err != nil {
		return err
	}

	dir := cfg.DocsDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("usage: coursechat ingest <dir>")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	system, err := buildSystem(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	if err := system.LoadDocuments(ctx, dir); err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	stats := system.CourseAnalytics()
	fmt.Printf("Indexed %d course(s):\n", stats.TotalCourses)
	for _, title := range stats.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}
