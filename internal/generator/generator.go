// Package generator drives the tool-orchestration loop: it sends a query to
// the model, executes any tools the model requests, feeds the results back,
// and repeats up to a fixed round budget before forcing a final answer.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coursechat/coursechat/internal/anthropic"
	"github.com/coursechat/coursechat/internal/tools"
)

// MaxToolRounds bounds the number of tool-bearing rounds per query.
// Total model calls per query never exceed MaxToolRounds + 1.
const MaxToolRounds = 2

const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a search tool and a course outline tool.

Tool Usage:
- Use the search tool **only** for questions about specific course content or detailed educational materials
- Use the outline tool for questions about a course's structure: its title, link and lesson list
- **Up to 2 sequential tool rounds allowed per query** - you can reason about previous results and call tools again if needed
- For complex queries requiring multiple searches (e.g. comparisons, multi-part questions, cross-course information), perform sequential searches
- Synthesize all tool results into accurate, fact-based responses
- If a search yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without searching
- **Course-specific questions**: Search first, then answer
- **Course structure questions**: Use the outline tool, then answer with the course title, link and complete lesson list
- **No meta-commentary**:
 - Provide direct answers only - no reasoning process, search explanations, or question-type analysis
 - Do not mention "based on the search results"

All responses must be:
1. **Brief, Concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// missingKeyAnswer is returned instead of calling the model when no usable
// API key is configured. Plain text on purpose: callers and tests tell it
// apart from a real answer by content, not by type.
const missingKeyAnswer = "I'm sorry, but I need a valid Anthropic API key to generate responses. Please set a valid ANTHROPIC_API_KEY."

// retryFailedAnswer is the terminal fallback when the follow-up call after
// a tool failure itself fails.
const retryFailedAnswer = "I encountered an issue while searching for information. Please try rephrasing your question."

// KeyLooksValid reports whether an API key is worth handing to the client
// at all. Empty keys, keys without the Anthropic prefix and obvious
// placeholders are rejected up front so the process can start without
// credentials and still answer with a readable configuration message.
func KeyLooksValid(key string) bool {
	return key != "" &&
		strings.HasPrefix(key, "sk-ant-") &&
		!strings.Contains(strings.ToLower(key), "placeholder")
}

// CompletionClient is the model-calling surface the generator needs.
type CompletionClient interface {
	CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

// ToolExecutor dispatches tool invocations and advertises definitions.
type ToolExecutor interface {
	Definitions() []anthropic.Tool
	Execute(ctx context.Context, name string, input json.RawMessage) (tools.Result, error)
}

// Answer is the outcome of one orchestrated query.
// Sources reflect the most recent invocation of each tool that ran during
// the turn, in first-use order.
type Answer struct {
	Text    string
	Sources []tools.Source
}

// Generator owns the orchestration loop.
// The zero client is legal: a Generator built without a usable API key
// answers every query with a fixed configuration message.
type Generator struct {
	client CompletionClient
	tools  ToolExecutor
	tracer trace.Tracer
	logger *slog.Logger
}

// New creates a Generator. client may be nil when no usable key is
// configured; executor may be nil for tool-less operation.
func New(client CompletionClient, executor ToolExecutor, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client: client,
		tools:  executor,
		tracer: otel.Tracer("coursechat/generator"),
		logger: logger,
	}
}

// Generate answers one query. history is the opaque prior-conversation
// string and may be empty.
//
// Tool failures and retrieval errors are woven back into the conversation
// as text; only transport failures of the model call itself escape as
// errors.
func (g *Generator) Generate(ctx context.Context, query, history string) (Answer, error) {
	ctx, span := g.tracer.Start(ctx, "generator.Generate")
	defer span.End()

	if g.client == nil {
		g.logger.Warn("no model client configured, returning fixed answer")
		return Answer{Text: missingKeyAnswer}, nil
	}

	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	req := anthropic.MessageRequest{
		System:   system,
		Messages: []anthropic.Message{anthropic.UserMessage(anthropic.TextBlock(query))},
	}
	if g.tools != nil {
		if defs := g.tools.Definitions(); len(defs) > 0 {
			req.Tools = defs
			req.ToolChoice = anthropic.ToolChoiceAuto
		}
	}

	resp, err := g.call(ctx, req, 0)
	if err != nil {
		return Answer{}, err
	}

	if resp.StopReason != anthropic.StopToolUse || g.tools == nil {
		return Answer{Text: resp.Text()}, nil
	}

	return g.runToolRounds(ctx, req, resp)
}

// runToolRounds executes up to MaxToolRounds tool rounds, then forces a
// terminal answer. Tool definitions stay on every follow-up call so the
// model keeps tool access for the whole turn.
func (g *Generator) runToolRounds(ctx context.Context, req anthropic.MessageRequest, resp *anthropic.MessageResponse) (Answer, error) {
	srcs := newSourceSet()

	for round := 0; round < MaxToolRounds; round++ {
		if resp.StopReason != anthropic.StopToolUse {
			// Anything that is not a tool request, including stop
			// reasons this code does not know, is a terminal answer.
			return Answer{Text: resp.Text(), Sources: srcs.merged()}, nil
		}

		req.Messages = append(req.Messages, resp.AssistantMessage())

		results, failed := g.executeRound(ctx, resp, srcs)
		req.Messages = append(req.Messages, anthropic.Message{
			Role:    anthropic.RoleUser,
			Content: results,
		})

		if failed {
			// One more call so the model can retry or explain, then stop.
			final, err := g.call(ctx, req, round+1)
			if err != nil {
				g.logger.Error("follow-up call after tool failure failed", "error", err)
				return Answer{Text: retryFailedAnswer, Sources: srcs.merged()}, nil
			}
			return Answer{Text: final.Text(), Sources: srcs.merged()}, nil
		}

		if round == MaxToolRounds-1 {
			// Budget exhausted: this answer is terminal even if the
			// model asks for yet another tool.
			final, err := g.call(ctx, req, round+1)
			if err != nil {
				return Answer{}, err
			}
			return Answer{Text: final.Text(), Sources: srcs.merged()}, nil
		}

		var err error
		resp, err = g.call(ctx, req, round+1)
		if err != nil {
			return Answer{}, err
		}
	}

	return Answer{Text: resp.Text(), Sources: srcs.merged()}, nil
}

// executeRound invokes every tool_use block of the response in order and
// returns the paired tool_result blocks. A tool fault becomes a textual
// result; it never aborts the round.
func (g *Generator) executeRound(ctx context.Context, resp *anthropic.MessageResponse, srcs *sourceSet) (results []anthropic.ContentBlock, failed bool) {
	for _, use := range resp.ToolUses() {
		tctx, span := g.tracer.Start(ctx, "generator.tool",
			trace.WithAttributes(attribute.String("tool.name", use.Name)))

		result, err := g.tools.Execute(tctx, use.Name, use.Input)
		span.End()

		if err != nil {
			failed = true
			g.logger.Error("tool execution failed", "tool", use.Name, "error", err)
			results = append(results, anthropic.ToolResultBlock(
				use.ID, fmt.Sprintf("Tool execution failed: %s", err)))
			continue
		}

		srcs.record(use.Name, result.Sources)
		results = append(results, anthropic.ToolResultBlock(use.ID, result.Text))
	}
	return results, failed
}

func (g *Generator) call(ctx context.Context, req anthropic.MessageRequest, call int) (*anthropic.MessageResponse, error) {
	ctx, span := g.tracer.Start(ctx, "generator.model_call",
		trace.WithAttributes(attribute.Int("call.index", call)))
	defer span.End()

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model call %d: %w", call, err)
	}
	return resp, nil
}

// sourceSet keeps the most recent sources per tool, in first-use order.
// A later invocation of the same tool overwrites its earlier sources.
type sourceSet struct {
	order  []string
	byTool map[string][]tools.Source
}

func newSourceSet() *sourceSet {
	return &sourceSet{byTool: make(map[string][]tools.Source)}
}

func (s *sourceSet) record(tool string, srcs []tools.Source) {
	if _, seen := s.byTool[tool]; !seen {
		s.order = append(s.order, tool)
	}
	s.byTool[tool] = srcs
}

func (s *sourceSet) merged() []tools.Source {
	var out []tools.Source
	for _, tool := range s.order {
		out = append(out, s.byTool[tool]...)
	}
	return out
}
