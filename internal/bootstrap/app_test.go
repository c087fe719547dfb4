package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/llm"
	"sheetinsight-backend/internal/shared/config"
)

const salesCSV = "Month,Sales,Region\nJan,10,North\nFeb,20,South\nMar,30,North\n"

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:               "dev",
		ObjectStoreType:   "local",
		LocalStoreDir:     t.TempDir(),
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		MaxUploadBytes:    10 << 20,
		WorkerConcurrency: 1,
		CORSAllowOrigin:   []string{"http://localhost:5173"},
	}
	app, err := BuildWithOptions(context.Background(), cfg, Options{LLM: llm.Disabled{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	c.t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *client) json(method, path, body string, out any) int {
	c.t.Helper()
	w := c.do(method, path, "application/json", bytes.NewBufferString(body))
	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			c.t.Fatalf("%s %s: decode %s: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, router: app.Router}

	w := c.do(http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"database":"memory"`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	w = c.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "analysis_started_total") ||
		!strings.Contains(w.Body.String(), "analysis_local_queue_pending ") {
		t.Fatalf("metrics: %d %s", w.Code, w.Body.String())
	}
	w = c.do(http.MethodGet, "/api/data/files", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestEndToEndFlow(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, router: app.Router}

	var reg struct {
		Token string `json:"token"`
	}
	if code := c.json(http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`, &reg); code != http.StatusCreated {
		t.Fatalf("register: %d", code)
	}
	var login struct {
		Token string `json:"token"`
	}
	if code := c.json(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"secret1"}`, &login); code != http.StatusOK || login.Token == "" {
		t.Fatalf("login: %d", code)
	}
	c.token = login.Token

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "sales.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(salesCSV))
	mw.Close()
	w := c.do(http.MethodPost, "/api/data/upload", mw.FormDataContentType(), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var up struct {
		FileID string `json:"fileId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &up); err != nil || up.FileID == "" {
		t.Fatalf("upload response %s: %v", w.Body.String(), err)
	}

	var chart struct {
		Success    bool   `json:"success"`
		AnalysisID string `json:"analysisId"`
	}
	code := c.json(http.MethodPost, "/api/data/generate-chart",
		`{"fileId":"`+up.FileID+`","chartType":"bar","xColumn":"Month","yColumn":"Sales"}`, &chart)
	if code != http.StatusOK || !chart.Success || chart.AnalysisID == "" {
		t.Fatalf("generate-chart: %d %+v", code, chart)
	}
	w = c.do(http.MethodGet, "/api/data/chart/"+up.FileID, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), chart.AnalysisID) {
		t.Fatalf("latest chart: %d %s", w.Code, w.Body.String())
	}

	w = c.do(http.MethodGet, "/api/data/insights/"+up.FileID, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "statistics") {
		t.Fatalf("insights: %d %s", w.Code, w.Body.String())
	}

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	code = c.json(http.MethodPost, "/api/analysis", `{"name":"Q1","type":"report","excelFileId":"`+up.FileID+`"}`, &created)
	if code != http.StatusCreated || created.Status != "processing" {
		t.Fatalf("create analysis: %d %+v", code, created)
	}

	deadline := time.Now().Add(5 * time.Second)
	var fetched struct {
		Status  string          `json:"status"`
		Results json.RawMessage `json:"results"`
	}
	for {
		if code := c.json(http.MethodGet, "/api/analysis/"+created.ID, "", &fetched); code != http.StatusOK {
			t.Fatalf("get analysis: %d", code)
		}
		if fetched.Status != "processing" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("analysis still processing after deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if fetched.Status != "completed" || len(fetched.Results) == 0 {
		t.Fatalf("unexpected analysis %+v", fetched)
	}

	w = c.do(http.MethodGet, "/api/data/download/"+up.FileID, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), "sales_report.xlsx") {
		t.Fatalf("download: %d %v", w.Code, w.Header())
	}

	w = c.do(http.MethodGet, "/api/history?page=1&limit=50", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Uploaded sales.csv") {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}

	w = c.do(http.MethodGet, "/api/admin/stats", "", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin as user: expected 403, got %d", w.Code)
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	app := newTestApp(t)
	c := &client{t: t, router: app.Router}

	limited := false
	for i := 0; i < 30; i++ {
		if code := c.json(http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, nil); code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("expected login attempts to be rate limited")
	}
}
