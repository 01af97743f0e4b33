package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		APIKey:  "sk-ant-test",
		BaseURL: srv.URL,
		Model:   "claude-sonnet-4-20250514",
	}, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{Model: "claude-sonnet-4-20250514"}, nil)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("New() = %v, want ErrMissingAPIKey", err)
	}
}

func TestCreateMessage_FillsClientParamsAndHeaders(t *testing.T) {
	var gotReq MessageRequest
	var gotHeaders http.Header

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(MessageResponse{
			StopReason: StopEndTurn,
			Content:    []ContentBlock{TextBlock("hello")},
		})
	})

	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		System:   "system prompt",
		Messages: []Message{UserMessage(TextBlock("hi"))},
	})
	if err != nil {
		t.Fatalf("CreateMessage() error: %v", err)
	}

	if gotHeaders.Get("x-api-key") != "sk-ant-test" {
		t.Errorf("x-api-key = %q", gotHeaders.Get("x-api-key"))
	}
	if gotHeaders.Get("anthropic-version") != apiVersion {
		t.Errorf("anthropic-version = %q", gotHeaders.Get("anthropic-version"))
	}
	if gotReq.Model != "claude-sonnet-4-20250514" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.MaxTokens != 800 {
		t.Errorf("request max_tokens = %d, want default 800", gotReq.MaxTokens)
	}
	if resp.Text() != "hello" {
		t.Errorf("Text() = %q, want %q", resp.Text(), "hello")
	}
}

func TestCreateMessage_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Messages: []Message{UserMessage(TextBlock("hi"))},
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CreateMessage() = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Type != "authentication_error" {
		t.Errorf("Type = %q", apiErr.Type)
	}
}

func TestCreateMessage_MalformedErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.CreateMessage(context.Background(), MessageRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CreateMessage() = %v, want *APIError", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestMessageResponse_Accessors(t *testing.T) {
	resp := &MessageResponse{
		StopReason: StopToolUse,
		Content: []ContentBlock{
			{Type: ContentText, Text: "Let me search. "},
			{Type: ContentToolUse, ID: "toolu_1", Name: "search_course_content", Input: json.RawMessage(`{"query":"x"}`)},
			{Type: ContentToolUse, ID: "toolu_2", Name: "get_course_outline", Input: json.RawMessage(`{"course_name":"y"}`)},
			{Type: ContentText, Text: "done"},
		},
	}

	if got := resp.Text(); got != "Let me search. done" {
		t.Errorf("Text() = %q", got)
	}

	uses := resp.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("ToolUses() returned %d blocks, want 2", len(uses))
	}
	if uses[0].ID != "toolu_1" || uses[1].ID != "toolu_2" {
		t.Errorf("ToolUses() order not preserved: %q, %q", uses[0].ID, uses[1].ID)
	}

	assistant := resp.AssistantMessage()
	if assistant.Role != RoleAssistant {
		t.Errorf("AssistantMessage().Role = %q", assistant.Role)
	}
	if len(assistant.Content) != len(resp.Content) {
		t.Errorf("AssistantMessage() content length = %d, want %d", len(assistant.Content), len(resp.Content))
	}
}
