package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set(userIDKey, "user-1")
		c.Set("fileId", "file-1")
		c.Set("analysisId", "analysis-1")
		c.Set("statusTransition", "processing->completed")
		telemetry.FromContext(c.Request.Context()).Info("handler.line", nil)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected handler and request lines, got %q", buf.String())
	}

	var handlerLine map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &handlerLine); err != nil {
		t.Fatalf("decode handler line: %v", err)
	}
	if handlerLine["request_id"] != "req-42" {
		t.Fatalf("expected scoped logger to carry request id, got %v", handlerLine)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	required := []string{"request_id", "user_id", "file_id", "analysis_id", "duration_ms", "status", "status_transition"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "user-1" || payload["file_id"] != "file-1" {
		t.Fatalf("unexpected ids: %v", payload)
	}
	if payload["status_transition"] != "processing->completed" {
		t.Fatalf("unexpected status_transition: %v", payload["status_transition"])
	}
}

func TestLoggingUsesErrorLevelForServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(prev)

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/api/data/file/:fileId", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/data/file/f-9", nil))

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v (%q)", err, buf.String())
	}
	if payload["level"] != "error" || payload["route"] != "/api/data/file/:fileId" {
		t.Fatalf("unexpected log line %v", payload)
	}
}
