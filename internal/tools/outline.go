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

// OutlineToolName is the name the outline capability is advertised under.
const OutlineToolName = "get_course_outline"

// OutlineStore is the catalog surface the outline tool needs.
type OutlineStore interface {
	Outline(ctx context.Context, courseName string) (store.CourseMeta, error)
}

// outlineInput is the outline tool's argument schema, declared as data.
type outlineInput struct {
	CourseName string `json:"course_name" jsonschema:"Course title to show the outline for; partial names are matched"`
}

// OutlineTool returns a course's title, link and complete lesson list.
type OutlineTool struct {
	store  OutlineStore
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewOutlineTool creates the outline tool.
func NewOutlineTool(st OutlineStore, logger *slog.Logger) (*OutlineTool, error) {
	if st == nil {
		return nil, fmt.Errorf("outline store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := jsonschema.For[outlineInput](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving outline input schema: %w", err)
	}
	return &OutlineTool{store: st, schema: schema, logger: logger}, nil
}

// Name implements Tool.
func (t *OutlineTool) Name() string { return OutlineToolName }

// Definition implements Tool.
func (t *OutlineTool) Definition() anthropic.Tool {
	return anthropic.Tool{
		Name: OutlineToolName,
		Description: "Get the complete outline of a course: its title, link and " +
			"every lesson with its number and title.",
		InputSchema: t.schema,
	}
}

// Execute implements Tool.
func (t *OutlineTool) Execute(ctx context.Context, input json.RawMessage) (Result, error) {
	var args outlineInput
	if err := json.Unmarshal(input, &args); err != nil {
		return Result{}, fmt.Errorf("decoding outline arguments: %w", err)
	}

	meta, err := t.store.Outline(ctx, args.CourseName)
	if err != nil {
		return Result{Text: err.Error()}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", meta.Title)
	if meta.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", meta.Link)
	}
	if meta.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", meta.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):", len(meta.Lessons))
	for _, lesson := range meta.Lessons {
		fmt.Fprintf(&b, "\nLesson %d: %s", lesson.Number, lesson.Title)
	}

	return Result{
		Text:    b.String(),
		Sources: []Source{{Text: meta.Title, Link: meta.Link}},
	}, nil
}
