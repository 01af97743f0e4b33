package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/coursechat/coursechat/internal/anthropic"
	"github.com/coursechat/coursechat/internal/store"
)

// SearchToolName is the name the search capability is advertised under.
const SearchToolName = "search_course_content"

// SearchStore is the retrieval surface the search tool needs.
// Defined here, by the consumer.
type SearchStore interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) (store.SearchResults, error)
	LessonLink(courseTitle string, lessonNumber int) string
}

// searchInput is the search tool's argument schema, declared as data.
type searchInput struct {
	Query        string `json:"query" jsonschema:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"Course title to restrict the search to; partial names are matched"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"Specific lesson number to search within (e.g. 1 or 2)"`
}

// SearchTool performs semantic search over course content with optional
// course and lesson filters.
type SearchTool struct {
	store  SearchStore
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewSearchTool creates the search tool.
func NewSearchTool(st SearchStore, logger *slog.Logger) (*SearchTool, error) {
	if st == nil {
		return nil, fmt.Errorf("search store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := jsonschema.For[searchInput](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving search input schema: %w", err)
	}
	return &SearchTool{store: st, schema: schema, logger: logger}, nil
}

// Name implements Tool.
func (t *SearchTool) Name() string { return SearchToolName }

// Definition implements Tool.
func (t *SearchTool) Definition() anthropic.Tool {
	return anthropic.Tool{
		Name: SearchToolName,
		Description: "Search course materials with smart course name matching " +
			"and lesson filtering. Returns matching content grouped by course and lesson.",
		InputSchema: t.schema,
	}
}

// Execute implements Tool.
//
// Retrieval failures come back as the result text, verbatim, so the model
// can explain them; only argument decode failures are Go errors.
func (t *SearchTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var args searchInput
	if err := json.Unmarshal(input, &args); err != nil {
		return Result{}, fmt.Errorf("decoding search arguments: %w", err)
	}

	results, err := t.store.Search(ctx, args.Query, args.CourseName, args.LessonNumber)
	if err != nil {
		return Result{Text: err.Error()}, nil
	}

	if results.Empty() {
		return Result{Text: emptyMessage(args.CourseName, args.LessonNumber)}, nil
	}

	return t.format(results), nil
}

// emptyMessage builds the no-results message, qualified by whichever
// filters were supplied.
func emptyMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// format renders hits as blank-line separated blocks, each under a
// "[Course - Lesson N]" header, preserving ranking order, and collects one
// source per hit.
func (t *SearchTool) format(results store.SearchResults) Result {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]

		courseTitle := meta.CourseTitle
		if courseTitle == "" {
			courseTitle = "unknown"
		}

		header := courseTitle
		var link string
		if meta.LessonNumber != nil {
			header = fmt.Sprintf("%s - Lesson %d", courseTitle, *meta.LessonNumber)
			link = t.store.LessonLink(courseTitle, *meta.LessonNumber)
		}

		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, doc))
		sources = append(sources, Source{Text: header, Link: link})
	}

	return Result{
		Text:    strings.Join(blocks, "\n\n"),
		Sources: sources,
	}
}
