// Package session tracks per-conversation exchange history in memory.
//
// Sessions exist to give the model short conversational context, not to
// persist chats: restarting the process starts everyone fresh. History is
// capped at a configured number of exchanges so prompts stay bounded.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one completed user/assistant turn.
type Exchange struct {
	UserMessage      string
	AssistantMessage string
}

// Manager creates sessions and maintains their recent exchanges.
// Safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string][]Exchange
	maxHistory int
	logger     *slog.Logger
}

// NewManager creates a Manager that keeps at most maxHistory exchanges per
// session. A non-positive maxHistory disables history entirely: sessions
// still exist but FormatHistory always returns "".
func NewManager(maxHistory int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Create registers a new session and returns its ID.
func (m *Manager) Create() string {
	id := fmt.Sprintf("session_%s", uuid.NewString())

	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()

	m.logger.Debug("created session", "session_id", id)
	return id
}

// AddExchange appends one completed turn to the session, creating the
// session if the ID has not been seen before, and evicts the oldest
// exchanges beyond the cap.
func (m *Manager) AddExchange(sessionID, userMessage, assistantMessage string) {
	if sessionID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[sessionID], Exchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	})
	if m.maxHistory > 0 && len(history) > m.maxHistory {
		history = history[len(history)-m.maxHistory:]
	}
	m.sessions[sessionID] = history
}

// FormatHistory renders the session's retained exchanges as alternating
// "User:" and "Assistant:" lines for prompt inclusion. Unknown or empty
// sessions render as "".
func (m *Manager) FormatHistory(sessionID string) string {
	if sessionID == "" || m.maxHistory <= 0 {
		return ""
	}

	m.mu.RLock()
	history := m.sessions[sessionID]
	m.mu.RUnlock()

	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history)*2)
	for _, ex := range history {
		lines = append(lines,
			fmt.Sprintf("User: %s", ex.UserMessage),
			fmt.Sprintf("Assistant: %s", ex.AssistantMessage),
		)
	}
	return strings.Join(lines, "\n")
}

// Clear drops a session's history but keeps the session alive.
func (m *Manager) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; ok {
		m.sessions[sessionID] = nil
		m.logger.Debug("cleared session", "session_id", sessionID)
	}
}
