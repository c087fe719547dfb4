package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group("/api", func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(rg)
	return r
}

func TestHandlerListAndResource(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	svc.Record(context.Background(), Record{UserID: "user-1", Action: ActionCreate, ResourceType: ResourceFile, ResourceID: "f-1"})
	svc.Record(context.Background(), Record{UserID: "user-1", Action: ActionDelete, ResourceType: ResourceFile, ResourceID: "f-2"})
	router := newRouter(svc)

	tests := []struct {
		name   string
		path   string
		status int
		count  int
	}{
		{"list", "/api/history?page=1&limit=1", http.StatusOK, 1},
		{"resource", "/api/history/file/f-2", http.StatusOK, 1},
		{"bad type", "/api/history?type=nope", http.StatusBadRequest, 0},
		{"bad resource type", "/api/history/widget/x", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Success bool     `json:"success"`
				History []Record `json:"history"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !body.Success || len(body.History) != tt.count {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}
