package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, svc *Service, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc)
	h.RegisterPublicRoutes(r.Group("/api/auth"))
	h.RegisterRoutes(r.Group("/api/auth", func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	}))
	return r
}

func postJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerRegisterHidesHash(t *testing.T) {
	svc := newTestService(t)
	r := newTestRouter(t, svc, "")

	w := postJSON(r, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "passwordHash") || strings.Contains(w.Body.String(), "$2a$") || strings.Contains(w.Body.String(), "secret1") {
		t.Fatalf("credential material leaked: %s", w.Body.String())
	}
	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    User   `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Token == "" || body.User.Email != "ada@example.com" {
		t.Fatalf("unexpected body %+v", body)
	}

	w = postJSON(r, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ADA@example.com","password":"secret1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlerLoginAndProfile(t *testing.T) {
	svc := newTestService(t)
	u := register(t, svc, "ada@example.com")
	r := newTestRouter(t, svc, u.ID)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "login ok", method: http.MethodPost, path: "/api/auth/login", body: `{"email":"ada@example.com","password":"secret1"}`, wantStatus: http.StatusOK},
		{name: "login bad password", method: http.MethodPost, path: "/api/auth/login", body: `{"email":"ada@example.com","password":"nope00"}`, wantStatus: http.StatusUnauthorized},
		{name: "login missing fields", method: http.MethodPost, path: "/api/auth/login", body: `{"email":""}`, wantStatus: http.StatusBadRequest},
		{name: "profile", method: http.MethodGet, path: "/api/auth/profile", wantStatus: http.StatusOK},
		{name: "profile update", method: http.MethodPut, path: "/api/auth/profile", body: `{"preferences":{"theme":"dark"}}`, wantStatus: http.StatusOK},
		{name: "password wrong current", method: http.MethodPut, path: "/api/auth/change-password", body: `{"currentPassword":"x","newPassword":"newsecret"}`, wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}
