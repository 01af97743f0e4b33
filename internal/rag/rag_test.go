package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coursechat/coursechat/internal/generator"
	"github.com/coursechat/coursechat/internal/log"
	"github.com/coursechat/coursechat/internal/tools"
)

type fakeGenerator struct {
	answer generator.Answer
	err    error

	lastQuery   string
	lastHistory string
	calls       int
}

func (f *fakeGenerator) Generate(_ context.Context, query, history string) (generator.Answer, error) {
	f.calls++
	f.lastQuery = query
	f.lastHistory = history
	return f.answer, f.err
}

type fakeSessions struct {
	history string

	created    int
	historyFor []string
	recorded   []struct{ id, user, assistant string }
}

func (f *fakeSessions) Create() string {
	f.created++
	return "session_test"
}

func (f *fakeSessions) FormatHistory(sessionID string) string {
	f.historyFor = append(f.historyFor, sessionID)
	return f.history
}

func (f *fakeSessions) AddExchange(sessionID, user, assistant string) {
	f.recorded = append(f.recorded, struct{ id, user, assistant string }{sessionID, user, assistant})
}

type fakeCatalog struct {
	count  int
	titles []string
}

func (f *fakeCatalog) CourseCount() int { return f.count }

func (f *fakeCatalog) ExistingCourseTitles() []string { return f.titles }

func newSystem(t *testing.T, gen AnswerGenerator, sessions SessionStore, catalog Catalog) *System {
	t.Helper()
	s, err := New(gen, sessions, catalog, nil, log.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestAnswer_PrefixesQueryAndReturnsSources(t *testing.T) {
	gen := &fakeGenerator{answer: generator.Answer{
		Text:    "Python is a language.",
		Sources: []tools.Source{{Text: "Python Basics - Lesson 1"}},
	}}
	s := newSystem(t, gen, &fakeSessions{}, &fakeCatalog{})

	answer, sources, err := s.Answer(context.Background(), "What is Python?", "")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if answer != "Python is a language." {
		t.Errorf("answer = %q", answer)
	}
	if len(sources) != 1 || sources[0].Text != "Python Basics - Lesson 1" {
		t.Errorf("sources = %+v", sources)
	}
	if want := "Answer this question about course materials: What is Python?"; gen.lastQuery != want {
		t.Errorf("generator query = %q, want %q", gen.lastQuery, want)
	}
}

func TestAnswer_NoSessionSkipsHistoryAndRecording(t *testing.T) {
	gen := &fakeGenerator{answer: generator.Answer{Text: "ok"}}
	sessions := &fakeSessions{history: "should not be used"}
	s := newSystem(t, gen, sessions, &fakeCatalog{})

	if _, _, err := s.Answer(context.Background(), "q", ""); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if len(sessions.historyFor) != 0 {
		t.Error("history consulted without a session")
	}
	if gen.lastHistory != "" {
		t.Errorf("generator history = %q, want empty", gen.lastHistory)
	}
	if len(sessions.recorded) != 0 {
		t.Error("exchange recorded without a session")
	}
}

func TestAnswer_SessionThreadsHistoryAndRecordsExchange(t *testing.T) {
	gen := &fakeGenerator{answer: generator.Answer{Text: "the answer"}}
	sessions := &fakeSessions{history: "User: earlier\nAssistant: reply"}
	s := newSystem(t, gen, sessions, &fakeCatalog{})

	if _, _, err := s.Answer(context.Background(), "follow-up", "session_1"); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}

	if gen.lastHistory != "User: earlier\nAssistant: reply" {
		t.Errorf("generator history = %q", gen.lastHistory)
	}
	if len(sessions.recorded) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(sessions.recorded))
	}
	rec := sessions.recorded[0]
	if rec.id != "session_1" {
		t.Errorf("recorded session = %q", rec.id)
	}
	// The raw question is recorded, not the prefixed prompt.
	if rec.user != "follow-up" {
		t.Errorf("recorded user message = %q", rec.user)
	}
	if rec.assistant != "the answer" {
		t.Errorf("recorded assistant message = %q", rec.assistant)
	}
}

func TestAnswer_FailureIsNotRecorded(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("transport down")}
	sessions := &fakeSessions{}
	s := newSystem(t, gen, sessions, &fakeCatalog{})

	_, _, err := s.Answer(context.Background(), "q", "session_1")
	if err == nil {
		t.Fatal("Answer() error = nil, want transport failure")
	}
	if !strings.Contains(err.Error(), "transport down") {
		t.Errorf("error = %v", err)
	}
	if len(sessions.recorded) != 0 {
		t.Error("failed exchange recorded into history")
	}
}

func TestCourseAnalytics(t *testing.T) {
	catalog := &fakeCatalog{count: 2, titles: []string{"A", "B"}}
	s := newSystem(t, &fakeGenerator{}, &fakeSessions{}, catalog)

	got := s.CourseAnalytics()
	if got.TotalCourses != 2 {
		t.Errorf("TotalCourses = %d", got.TotalCourses)
	}
	if len(got.CourseTitles) != 2 || got.CourseTitles[0] != "A" {
		t.Errorf("CourseTitles = %v", got.CourseTitles)
	}
}

func TestLoadDocuments_WithoutIngestor(t *testing.T) {
	s := newSystem(t, &fakeGenerator{}, &fakeSessions{}, &fakeCatalog{})

	if err := s.LoadDocuments(context.Background(), "/docs"); err == nil {
		t.Fatal("LoadDocuments() error = nil, want missing ingestor error")
	}
}
