// Package api exposes the question-answering system over HTTP.
//
// Endpoints:
//
//	POST /api/query    →  answer a question (creates a session when absent)
//	GET  /api/courses  →  course analytics (count + titles)
//	GET  /healthz      →  liveness probe
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/tools"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because a query spans up to three model
	// calls plus tool executions.
	WriteTimeout = 120 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// QueryService is the application surface the HTTP layer exposes.
type QueryService interface {
	Answer(ctx context.Context, query, sessionID string) (string, []tools.Source, error)
	CreateSession() string
	CourseAnalytics() rag.Analytics
}

// Server is the HTTP server for the QA API.
type Server struct {
	mux    *http.ServeMux
	cors   []string
	logger *slog.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(service QueryService, corsOrigins []string, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("query service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	qh := &queryHandler{service: service, logger: logger}
	qh.RegisterRoutes(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{mux: mux, cors: corsOrigins, logger: logger}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → cors → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cors),
	)
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
