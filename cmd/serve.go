package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursechat/coursechat/internal/api"
	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/observability"
)

const tracerShutdownTimeout = 5 * time.Second

// runServe initializes and starts the HTTP API server.
func runServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := checkRequiredEnv(cfg); err != nil {
		return err
	}

	addr, err := parseServeAddr(args, cfg.Addr)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting coursechat server", "version", Version)

	shutdownTracing, err := observability.Setup(ctx, cfg.OTLPEndpoint, "coursechat", logger)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}()

	system, err := buildSystem(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	loadStartupDocuments(ctx, system, cfg, logger)

	srv, err := api.NewServer(system, cfg.CORSOrigins, logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return srv.Run(ctx, addr)
}
