package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coursechat/coursechat/internal/anthropic"
)

// ErrToolExists indicates a Register call with an already-taken name.
// Re-registration is rejected rather than overwritten: the registry is
// assembled once at startup, where a duplicate means a wiring bug.
var ErrToolExists = errors.New("tools: tool already registered")

// Registry holds the available tools and dispatches invocations by name.
// It is stateless dispatch only; results flow back to the caller.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool under its declared name.
// Returns ErrToolExists when the name is already present.
func (r *Registry) Register(t Tool) error {
	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %q", ErrToolExists, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Definitions returns all tool definitions in registration order, shaped
// for direct inclusion in a model request.
func (r *Registry) Definitions() []anthropic.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]anthropic.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches one invocation.
//
// An unknown tool name is not an error: the model asked for something that
// does not exist and must be told so in text. A panic inside a tool is
// recovered into an error so a single invocation can never abort the turn.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (result Result, err error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return Result{Text: fmt.Sprintf("Tool '%s' not found", name)}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			result = Result{}
			err = fmt.Errorf("tool %q panicked: %v", name, rec)
		}
	}()

	return tool.Execute(ctx, input)
}
