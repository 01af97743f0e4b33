package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coursechat/coursechat/internal/tools"
)

// QueryRequest is the body of POST /api/query.
// SessionID is optional; a fresh session is created when it is absent.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

type queryHandler struct {
	service QueryService
	logger  *slog.Logger
}

func (h *queryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.query)
	mux.HandleFunc("GET /api/courses", h.courses)
}

func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.service.CreateSession()
	}

	answer, sources, err := h.service.Answer(r.Context(), req.Query, sessionID)
	if err != nil {
		h.logger.Error("query failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", err.Error())
		return
	}

	if sources == nil {
		// Serialize as [] rather than null.
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (h *queryHandler) courses(w http.ResponseWriter, _ *http.Request) {
	stats := h.service.CourseAnalytics()
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}
