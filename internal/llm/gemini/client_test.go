package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	old := baseURL
	baseURL = server.URL + "/v1beta/models"
	t.Cleanup(func() {
		baseURL = old
		server.Close()
	})
}

func TestCompleteJoinsParts(t *testing.T) {
	var path, key string
	var req generateRequest
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&req)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Key trends "},{"text":"and patterns"}]},"finishReason":"STOP"}]}`))
	})

	client := NewClientWithHTTP(http.DefaultClient, "secret", "gemini-1.5-flash")
	out, err := client.Complete(context.Background(), "describe")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Key trends and patterns" {
		t.Fatalf("unexpected output %q", out)
	}
	if path != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("unexpected path %q", path)
	}
	if key != "secret" {
		t.Fatalf("expected api key header, got %q", key)
	}
	if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "describe" {
		t.Fatalf("unexpected request body %+v", req)
	}
}

func TestCompleteSurfacesError(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
	})

	client := NewClientWithHTTP(http.DefaultClient, "bad", "gemini-1.5-flash")
	_, err := client.Complete(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestCompleteEmptyCandidate(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
	})

	client := NewClientWithHTTP(http.DefaultClient, "k", "gemini-1.5-flash")
	_, err := client.Complete(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected finish reason in error, got %v", err)
	}
}

func TestNewClientRequiresModel(t *testing.T) {
	if _, err := NewClient(context.Background(), "k", ""); err == nil {
		t.Fatalf("expected error for empty model")
	}
}
