// Package rag composes retrieval, session history and the orchestration
// loop into the single operation "answer this question".
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coursechat/coursechat/internal/generator"
	"github.com/coursechat/coursechat/internal/tools"
)

// queryPrefix frames every user question for the model.
const queryPrefix = "Answer this question about course materials: "

// AnswerGenerator runs the tool-orchestration loop for one query.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, history string) (generator.Answer, error)
}

// SessionStore supplies and records conversation history.
type SessionStore interface {
	Create() string
	FormatHistory(sessionID string) string
	AddExchange(sessionID, userMessage, assistantMessage string)
}

// Catalog exposes course analytics.
type Catalog interface {
	CourseCount() int
	ExistingCourseTitles() []string
}

// Ingestor loads transcript folders into the catalog.
type Ingestor interface {
	ProcessFolder(ctx context.Context, dir string) (courses, chunks int, err error)
}

// Analytics summarizes the indexed corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System is the externally visible QA surface.
type System struct {
	generator AnswerGenerator
	sessions  SessionStore
	catalog   Catalog
	ingestor  Ingestor
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New wires the system together. ingestor may be nil when document loading
// is handled elsewhere.
func New(gen AnswerGenerator, sessions SessionStore, catalog Catalog, ingestor Ingestor, logger *slog.Logger) (*System, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		generator: gen,
		sessions:  sessions,
		catalog:   catalog,
		ingestor:  ingestor,
		tracer:    otel.Tracer("coursechat/rag"),
		logger:    logger,
	}, nil
}

// Answer runs one query through the orchestration loop and returns the
// answer text with its sources.
//
// History is consulted only when sessionID is non-empty, and the exchange
// is recorded only after a successful answer so failed generations never
// pollute the session.
func (s *System) Answer(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	ctx, span := s.tracer.Start(ctx, "rag.Answer",
		trace.WithAttributes(attribute.Bool("session.present", sessionID != "")))
	defer span.End()

	var history string
	if sessionID != "" {
		history = s.sessions.FormatHistory(sessionID)
	}

	answer, err := s.generator.Generate(ctx, queryPrefix+query, history)
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer.Text)
	}

	s.logger.Debug("answered query",
		"session_id", sessionID,
		"answer_len", len(answer.Text),
		"sources", len(answer.Sources))
	return answer.Text, answer.Sources, nil
}

// CreateSession starts a fresh conversation and returns its ID.
func (s *System) CreateSession() string {
	return s.sessions.Create()
}

// CourseAnalytics reports how many courses are indexed and their titles.
func (s *System) CourseAnalytics() Analytics {
	return Analytics{
		TotalCourses: s.catalog.CourseCount(),
		CourseTitles: s.catalog.ExistingCourseTitles(),
	}
}

// LoadDocuments ingests every transcript in dir, skipping courses that are
// already indexed. Safe to call on startup with a missing ingestor.
func (s *System) LoadDocuments(ctx context.Context, dir string) error {
	if s.ingestor == nil {
		return fmt.Errorf("no ingestor configured")
	}

	courses, chunks, err := s.ingestor.ProcessFolder(ctx, dir)
	if err != nil {
		return err
	}
	s.logger.Info("loaded course documents", "dir", dir, "courses", courses, "chunks", chunks)
	return nil
}
