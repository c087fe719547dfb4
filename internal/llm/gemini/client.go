package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/google"

	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/shared/telemetry"
)

var baseURL = "https://generativelanguage.googleapis.com/v1beta/models"

const scope = "https://www.googleapis.com/auth/generative-language"

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient authenticates with apiKey, or with application default
// credentials when apiKey is empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if strings.TrimSpace(apiKey) != "" {
		return &Client{apiKey: apiKey, model: model, httpClient: &http.Client{Timeout: 120 * time.Second}}, nil
	}
	hc, err := google.DefaultClient(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("gemini credentials: %w", err)
	}
	hc.Timeout = 120 * time.Second
	return &Client{model: model, httpClient: hc}, nil
}

// NewClientWithHTTP is used by tests and callers that manage transport themselves.
func NewClientWithHTTP(hc *http.Client, apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model, httpClient: hc}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(baseURL, "/"), url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("gemini http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("gemini response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Status)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("gemini http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content (finish reason %q)", parsed.Candidates[0].FinishReason)
	}

	fields := map[string]any{"provider": "gemini", "model": c.model}
	if parsed.UsageMetadata != nil {
		fields["prompt_tokens"] = parsed.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = parsed.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = parsed.UsageMetadata.TotalTokenCount
	}
	telemetry.FromContext(ctx).Info("llm.response", fields)
	return text, nil
}

var _ llm.Client = (*Client)(nil)
