package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

var ErrNotConfigured = errors.New("OPENAI_API_KEY is required")

// Client returns the JSON object a chat model produced for one prompt pair.
type Client interface {
	CompleteJSON(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Timeout      time.Duration
}

// APIError is a non-2xx answer from the completions endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai request failed with status %d", e.Status)
	}
	return fmt.Sprintf("openai request failed (%d): %s", e.Status, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout || e.Status >= 500
}

// IsPermanent reports errors that retrying the same prompt cannot fix.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrNotConfigured) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && !apiErr.Retryable()
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout bounds requests that do not carry their own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

type HTTPClient struct {
	apiKey   string
	model    string
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// NewHTTPClient talks to the chat completions endpoint. An empty endpoint uses OpenAI's.
func NewHTTPClient(apiKey, model, endpoint string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		apiKey:   strings.TrimSpace(apiKey),
		model:    strings.TrimSpace(model),
		endpoint: strings.TrimSpace(endpoint),
		timeout:  defaultTimeout,
		http:     &http.Client{},
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.endpoint == "" {
		c.endpoint = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPClient) CompleteJSON(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(c.chatRequest(req))
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", apiError(resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai returned zero choices")
	}
	choice := parsed.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai returned empty content (finish_reason=%q)", choice.FinishReason)
	}
	return content, nil
}

func (c *HTTPClient) chatRequest(req CompletionRequest) chatRequest {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
}

func apiError(status int, raw []byte) *APIError {
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return &APIError{Status: status, Message: parsed.Error.Message}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return &APIError{Status: status, Message: msg}
}
