package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/server/respond"
)

func newTestRouter(t *testing.T, userID string, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setUser := func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	}
	h := NewHandler(svc)
	h.RegisterRoutes(r.Group("/api/analysis", setUser))
	h.RegisterDataRoutes(r.Group("/api/data", setUser))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateThenFetch(t *testing.T) {
	env := newTestEnv(t, stubLLM{}, false)
	router := newTestRouter(t, "user-1", env.svc)

	w := doJSON(t, router, http.MethodPost, "/api/analysis", `{"name":"Q1","type":"report","excelFileId":"file-1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", created.Status)
	}

	if err := env.svc.ProcessAnalysis(t.Context(), created.ID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	w = doJSON(t, router, http.MethodGet, "/api/analysis/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var fetched Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Status != StatusCompleted || len(fetched.Results) == 0 {
		t.Fatalf("unexpected analysis %+v", fetched)
	}
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "missing file",
			method:     http.MethodPost,
			path:       "/api/analysis",
			body:       `{"name":"Q1","type":"report","excelFileId":"nope"}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Excel file not found",
		},
		{
			name:       "bad type",
			method:     http.MethodPost,
			path:       "/api/analysis",
			body:       `{"name":"Q1","type":"pivot","excelFileId":"file-1"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "type must be one of chart, report, insight",
		},
		{
			name:       "unknown analysis",
			method:     http.MethodGet,
			path:       "/api/analysis/missing",
			wantStatus: http.StatusNotFound,
			wantMsg:    "Analysis not found",
		},
		{
			name:       "unknown column",
			method:     http.MethodPost,
			path:       "/api/data/generate-chart",
			body:       `{"fileId":"file-1","xColumn":"Month","yColumn":"Profit"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    `Column "Profit" not found. Available columns: Month, Sales, Region`,
		},
		{
			name:       "chart missing",
			method:     http.MethodGet,
			path:       "/api/data/chart/file-1",
			wantStatus: http.StatusNotFound,
			wantMsg:    "Chart not found",
		},
		{
			name:       "insights without provider",
			method:     http.MethodPost,
			path:       "/api/analysis/generate/insights",
			body:       `{"excelFileId":"file-1"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Error generating insights: text generation service is not configured",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, stubLLM{}, false)
			router := newTestRouter(t, "user-1", env.svc)
			w := doJSON(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Message != tt.wantMsg {
				t.Fatalf("unexpected envelope %+v", body)
			}
		})
	}
}

func TestHandlerGenerateChartAndHistory(t *testing.T) {
	env := newTestEnv(t, stubLLM{}, false)
	router := newTestRouter(t, "user-1", env.svc)

	w := doJSON(t, router, http.MethodPost, "/api/data/generate-chart",
		`{"fileId":"file-1","chartType":"bar","xColumn":"Month","yColumn":"Sales","maxRows":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var gen struct {
		Success     bool   `json:"success"`
		AnalysisID  string `json:"analysisId"`
		ChartConfig struct {
			Labels []string `json:"labels"`
		} `json:"chartConfig"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &gen); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gen.Success || gen.AnalysisID == "" || len(gen.ChartConfig.Labels) != 2 || gen.Message != "Chart generated successfully" {
		t.Fatalf("unexpected response %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/data/chart/file-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), gen.AnalysisID) {
		t.Fatalf("unexpected latest chart %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/data/history", "")
	var hist struct {
		Success  bool             `json:"success"`
		Files    []map[string]any `json:"files"`
		Analyses []Analysis       `json:"analyses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hist.Success || len(hist.Files) != 1 || len(hist.Analyses) != 1 {
		t.Fatalf("unexpected history %s", w.Body.String())
	}
	if _, ok := hist.Files[0]["data"]; ok {
		t.Fatalf("history should list file summaries without records")
	}
}

func TestHandlerUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, stubLLM{}, false)
	router := newTestRouter(t, "user-1", env.svc)
	a := env.create(t, TypeReport, "")

	w := doJSON(t, router, http.MethodPut, "/api/analysis/"+a.ID, `{"name":"Renamed"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Renamed"`) {
		t.Fatalf("unexpected update %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodDelete, "/api/analysis/"+a.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/analysis", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}
}

func TestHandlerGeneratePassesUpstreamMessage(t *testing.T) {
	tests := []struct {
		name string
		mode string
		path string
	}{
		{name: "insights release", mode: gin.ReleaseMode, path: "/api/analysis/generate/insights"},
		{name: "insights debug", mode: gin.DebugMode, path: "/api/analysis/generate/insights"},
		{name: "chart advice release", mode: gin.ReleaseMode, path: "/api/analysis/generate/chart"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, stubLLM{err: errors.New("quota exceeded for gemini-pro")}, true)
			router := newTestRouter(t, "user-1", env.svc)
			gin.SetMode(tt.mode)
			t.Cleanup(func() { gin.SetMode(gin.TestMode) })

			w := doJSON(t, router, http.MethodPost, tt.path, `{"excelFileId":"file-1"}`)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
			}
			var body respond.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != respond.CodeUpstream {
				t.Fatalf("expected %s, got %s", respond.CodeUpstream, body.Code)
			}
			if !strings.Contains(body.Message, "quota exceeded for gemini-pro") {
				t.Fatalf("expected upstream text in message, got %q", body.Message)
			}
			if strings.Contains(w.Body.String(), `"Err"`) {
				t.Fatalf("raw error struct leaked: %s", w.Body.String())
			}
		})
	}
}
