package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/auth"
)

func newTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return tokens
}

func staticLoader(principals map[string]Principal) PrincipalLoader {
	return func(_ context.Context, id string) (Principal, error) {
		p, ok := principals[id]
		if !ok {
			return Principal{}, ErrUnknownPrincipal
		}
		return p, nil
	}
}

func authRouter(tokens *auth.Tokens, load PrincipalLoader, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{Auth(tokens, load)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserIDFromContext(c), "role": UserRoleFromContext(c)})
	})
	router.GET("/api/data/files", handlers...)
	router.OPTIONS("/api/data/files", handlers...)
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := authRouter(newTokens(t), staticLoader(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/data/files", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("protected handler ran on preflight: %s", resp.Body.String())
	}
}

func TestAuthRejections(t *testing.T) {
	tokens := newTokens(t)
	valid, _ := tokens.Sign("user-1", "user")
	ghost, _ := tokens.Sign("ghost", "user")
	suspended, _ := tokens.Sign("user-2", "user")
	load := staticLoader(map[string]Principal{
		"user-1": {ID: "user-1", Role: "user", Status: "active"},
		"user-2": {ID: "user-2", Role: "user", Status: "suspended"},
	})

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized, message: "Not authorized, no token"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, message: "Not authorized, no token"},
		{name: "garbage token", header: "Bearer nope", status: http.StatusUnauthorized, message: "Not authorized, token failed"},
		{name: "deleted user", header: "Bearer " + ghost, status: http.StatusUnauthorized, message: "Not authorized, user not found"},
		{name: "suspended user", header: "Bearer " + suspended, status: http.StatusForbidden, message: "Account is not active"},
		{name: "valid", header: "Bearer " + valid, status: http.StatusOK},
	}

	router := authRouter(tokens, load)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/data/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
			if tt.message == "" {
				return
			}
			var body map[string]any
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["message"] != tt.message {
				t.Fatalf("expected message %q, got %v", tt.message, body["message"])
			}
		})
	}
}

func TestAuthLoaderFailureIs500(t *testing.T) {
	tokens := newTokens(t)
	raw, _ := tokens.Sign("user-1", "user")
	router := authRouter(tokens, func(context.Context, string) (Principal, error) {
		return Principal{}, errors.New("db down")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data/files", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens(t)
	userToken, _ := tokens.Sign("user-1", "user")
	adminToken, _ := tokens.Sign("admin-1", "admin")
	load := staticLoader(map[string]Principal{
		"user-1":  {ID: "user-1", Role: "user", Status: "active"},
		"admin-1": {ID: "admin-1", Role: "admin", Status: "active"},
	})
	router := authRouter(tokens, load, RequireRole("admin"))

	for token, want := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/api/data/files", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("expected %d, got %d", want, resp.Code)
		}
	}
}

func TestRoleComesFromStorageNotToken(t *testing.T) {
	tokens := newTokens(t)
	raw, _ := tokens.Sign("user-1", "admin")
	load := staticLoader(map[string]Principal{"user-1": {ID: "user-1", Role: "user", Status: "active"}})
	router := authRouter(tokens, load, RequireRole("admin"))

	req := httptest.NewRequest(http.MethodGet, "/api/data/files", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected demoted account to be rejected, got %d", resp.Code)
	}
}
