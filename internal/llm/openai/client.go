package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
	// maxErrorBody caps how much of an upstream error body ends up in logs.
	maxErrorBody = 512

	systemPrompt = "You are a data analyst. Answer only from the dataset summary you are given."
)

// Client implements llm.Client on the Chat Completions API or any endpoint
// compatible with it (OPENAI_BASE_URL).
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// APIError is a non-2xx reply from the completions endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai status %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("openai status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewClient reads OPENAI_BASE_URL and OPENAI_TIMEOUT_SECONDS on top of the
// required key and model.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	base := strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := defaultTimeout
	if secs, err := strconv.Atoi(strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS"))); err == nil && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		endpoint:   base + "/chat/completions",
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as the user turn and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(c.newRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("encode openai request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	var out completionResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode >= 400 || out.Error != nil {
		return "", upstreamError(resp.StatusCode, out, raw)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode openai response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai response has no choices")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned empty content (finish_reason=%s)", out.Choices[0].FinishReason)
	}

	telemetry.FromContext(ctx).Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"prompt_tokens":     out.Usage.PromptTokens,
		"completion_tokens": out.Usage.CompletionTokens,
		"duration_ms":       time.Since(started).Milliseconds(),
	})
	return text, nil
}

func (c *Client) newRequest(prompt string) completionRequest {
	req := completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	// gpt-5 family models reject any temperature other than the default.
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.model)), "gpt-5") {
		t := float32(0.2)
		req.Temperature = &t
	}
	return req
}

func upstreamError(status int, out completionResponse, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if out.Error != nil {
		apiErr.Message, apiErr.Type = out.Error.Message, out.Error.Type
		return apiErr
	}
	body := strings.TrimSpace(string(raw))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	apiErr.Message = body
	return apiErr
}

var _ llm.Client = (*Client)(nil)
