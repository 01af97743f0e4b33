// Package anthropic implements a minimal client for the Anthropic Messages
// API: plain request/response with content blocks and tool use, no streaming.
//
// The Messages API differs from OpenAI-style chat APIs:
//  1. Authentication uses the x-api-key header, not a Bearer token
//  2. The system prompt is a top-level field, not a message
//  3. Assistant tool calls and user tool results are typed content blocks
//  4. The stop reason signals whether the model wants tools executed
package anthropic

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Message roles. The Messages API accepts only user and assistant;
// tool results travel inside user messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	ContentText       = "text"
	ContentToolUse    = "tool_use"
	ContentToolResult = "tool_result"
)

// StopReason is the model's signal for why output stopped.
// Values outside the known set are treated as terminal text by callers.
type StopReason string

const (
	// StopEndTurn means the model finished its answer.
	StopEndTurn StopReason = "end_turn"

	// StopToolUse means the model is requesting tool invocations.
	StopToolUse StopReason = "tool_use"
)

// ContentBlock is one element of a message's content array.
// Exactly one of the type-specific field groups is populated,
// selected by Type.
type ContentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use" (assistant requesting an invocation)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// type == "tool_result" (user answering an invocation)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// ToolResultBlock builds a tool_result content block answering the
// tool_use block with the given call id.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: ContentToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage builds a user message from content blocks.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// Tool advertises one callable capability to the model.
// InputSchema is a JSON Schema declared as data (jsonschema.For).
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// ToolChoice selects the tool-choice policy.
// This system always uses {"type": "auto"}.
type ToolChoice struct {
	Type string `json:"type"`
}

// ToolChoiceAuto lets the model decide whether to call tools.
var ToolChoiceAuto = &ToolChoice{Type: "auto"}

// MessageRequest is the Messages API request body.
// Model, MaxTokens and Temperature are filled in by the client.
type MessageRequest struct {
	Model       string      `json:"model"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float32     `json:"temperature"`
	System      string      `json:"system,omitempty"`
	Messages    []Message   `json:"messages"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageResponse is the Messages API response body.
type MessageResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      *Usage         `json:"usage,omitempty"`
}

// Text returns the concatenated text of all text blocks in the response.
func (r *MessageResponse) Text() string {
	var out string
	for _, block := range r.Content {
		if block.Type == ContentText {
			out += block.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks of the response in order.
func (r *MessageResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == ContentToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}

// AssistantMessage converts the response content into an assistant message
// for the next request of the same turn.
func (r *MessageResponse) AssistantMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Content}
}
