package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, model string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("OPENAI_BASE_URL", server.URL+"/v1/")
	client, err := NewClient("test-key", model)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCompleteReturnsContent(t *testing.T) {
	var body completionRequest
	var auth, path string
	client := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Key trends and patterns\n\nSales rose.  "}}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`))
	})

	out, err := client.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Key trends and patterns\n\nSales rose." {
		t.Fatalf("unexpected content %q", out)
	}
	if auth != "Bearer test-key" || path != "/v1/chat/completions" {
		t.Fatalf("unexpected request auth=%q path=%q", auth, path)
	}
	if body.Temperature == nil {
		t.Fatalf("expected temperature for non gpt-5 model")
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages %+v", body.Messages)
	}
}

func TestCompleteOmitsTemperatureForGPT5(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, "gpt-5-mini", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	if _, err := client.Complete(context.Background(), "x"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := body["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted")
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		temporary bool
		apiErr    bool
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, wantMsg: "quota exceeded", temporary: true, apiErr: true},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"message":"context too long","type":"invalid_request_error"}}`, wantMsg: "context too long", apiErr: true},
		{name: "gateway html", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMsg: "bad gateway", temporary: true, apiErr: true},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantMsg: "no choices"},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "},"finish_reason":"length"}]}`, wantMsg: "finish_reason=length"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, "gpt-4o-mini", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Complete(context.Background(), "x")
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected error containing %q, got %v", tt.wantMsg, err)
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) != tt.apiErr {
				t.Fatalf("APIError match = %v, want %v", !tt.apiErr, tt.apiErr)
			}
			if tt.apiErr && apiErr.Temporary() != tt.temporary {
				t.Fatalf("Temporary() = %v, want %v", apiErr.Temporary(), tt.temporary)
			}
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini"); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient("k", ""); err == nil {
		t.Fatalf("expected missing model error")
	}
}
