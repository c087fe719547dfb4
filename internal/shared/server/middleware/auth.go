package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/auth"
	"sheetinsight-backend/internal/shared/server/respond"
	"sheetinsight-backend/internal/shared/telemetry"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"
)

// ErrUnknownPrincipal is returned by a PrincipalLoader when the token subject no longer exists.
var ErrUnknownPrincipal = errors.New("principal not found")

// Principal is the authenticated caller as loaded from storage.
type Principal struct {
	ID     string
	Role   string
	Status string
}

// PrincipalLoader resolves a token subject to its current account state.
type PrincipalLoader func(ctx context.Context, userID string) (Principal, error)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (auth.Claims, error)
}

// Auth validates bearer JWTs, loads the account and stores identity in context.
func Auth(tokens TokenVerifier, load PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, no token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, no token", nil)
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, token failed", nil)
			return
		}

		principal, err := load(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUnknownPrincipal) {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Not authorized, user not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to load account", err)
			return
		}
		if principal.Status != "" && principal.Status != "active" {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Account is not active", nil)
			return
		}

		c.Set(userIDKey, principal.ID)
		c.Set(userRoleKey, principal.Role)
		ctx := telemetry.WithContext(c.Request.Context(), telemetry.FromContext(c.Request.Context()).With(map[string]any{
			"user_id": principal.ID,
		}))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[UserRoleFromContext(c)]; !ok {
			respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Not authorized to access this route", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserRoleFromContext fetches the user role set by the auth middleware.
func UserRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}
