// Package tools provides the capabilities the model may invoke mid-turn and
// the registry that dispatches invocations by name.
//
// Tools are stateless: every execution returns an explicit Result carrying
// the textual payload for the model plus the sources backing it. Callers
// (the orchestration loop) own source aggregation; nothing is parked in
// shared slots between invocations, so concurrent queries sharing one
// registry cannot race on citation state.
package tools

import (
	"context"
	"encoding/json"

	"github.com/coursechat/coursechat/internal/anthropic"
)

// Source is a citation backing part of a tool result.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Result is the outcome of one tool execution.
// Text is what the model sees; Sources back the eventual answer.
// Collaborator-level failures (search errors, unknown course) are reported
// inside Text, not as Go errors, so the model can react to them.
type Result struct {
	Text    string
	Sources []Source
}

// Tool is a named capability the model may request.
// Execute returns an error only for faults the model cannot be expected to
// handle from text alone (decode failures, panics); the loop converts those
// to a "Tool execution failed" result.
type Tool interface {
	// Name returns the unique identifier advertised to the model.
	Name() string

	// Definition returns the capability advertisement, including the
	// input schema declared as data.
	Definition() anthropic.Tool

	// Execute runs the tool with the model-supplied JSON arguments.
	Execute(ctx context.Context, input json.RawMessage) (Result, error)
}
