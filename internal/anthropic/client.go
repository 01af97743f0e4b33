package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// apiVersion is the anthropic-version header value.
	apiVersion = "2023-06-01"

	// messagesPath is the Messages API endpoint path.
	messagesPath = "/v1/messages"

	// defaultTimeout bounds a single model call end to end.
	defaultTimeout = 120 * time.Second
)

// ErrMissingAPIKey indicates the client was constructed without a usable key.
var ErrMissingAPIKey = errors.New("anthropic: missing API key")

// APIError is a structured error returned by the Anthropic API.
// It is a transport-level failure from the loop's perspective and is
// propagated to the caller, never converted to a tool result.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic: %s (status=%d type=%s)", e.Message, e.StatusCode, e.Type)
}

// Config configures the client.
type Config struct {
	APIKey      string
	BaseURL     string  // default: https://api.anthropic.com
	Model       string  // required
	MaxTokens   int     // default: 800
	Temperature float32 // default: 0

	// Limiter throttles outbound calls; nil installs a modest default.
	Limiter *rate.Limiter

	// Timeout bounds one HTTP round trip; zero uses defaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client calls the Anthropic Messages API.
// Safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	limiter     *rate.Limiter
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates a Client. The API key must be non-empty; callers that want the
// "not configured" behavior keep a nil client instead (see generator).
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(2, 4)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		limiter:     limiter,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// errorEnvelope is the API error response body.
type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage issues one Messages API call.
// The request's Model/MaxTokens/Temperature are filled from the client
// configuration; everything else is taken as given.
func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("anthropic: rate limiter: %w", err)
	}

	req.Model = c.model
	req.MaxTokens = c.maxTokens
	req.Temperature = c.temperature

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var out MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("anthropic: decoding response: %w", err)
	}

	c.logger.Debug("model call completed",
		"model", out.Model,
		"stop_reason", out.StopReason,
		"latency", time.Since(start),
	)

	return &out, nil
}

// decodeError turns a non-200 response into an *APIError.
func (c *Client) decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error body"}
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Type:       envelope.Error.Type,
		Message:    envelope.Error.Message,
	}
}
