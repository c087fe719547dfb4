package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
)

// Handler serves the /auth routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches signup and login, which need no token.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
}

// RegisterRoutes attaches the authenticated profile routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.profile)
	rg.PUT("/profile", h.updateProfile)
	rg.PUT("/change-password", h.changePassword)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	u, token, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Error registering user")
		return
	}
	respond.Created(c, gin.H{"success": true, "token": token, "user": u})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please provide email and password", nil)
		return
	}
	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, "Error logging in")
		return
	}
	respond.OK(c, gin.H{"success": true, "token": token, "user": u})
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Error fetching profile")
		return
	}
	respond.OK(c, gin.H{"success": true, "user": u})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err, "Error updating profile")
		return
	}
	respond.OK(c, gin.H{"success": true, "user": u})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Please provide current and new password", nil)
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), middleware.UserIDFromContext(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err, "Error changing password")
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Password updated successfully"})
}

// WriteError maps account errors onto the response envelope.
func WriteError(c *gin.Context, err error, fallback string) {
	writeError(c, err, fallback)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation,
			strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "Email is already in use", nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, ErrWrongPassword):
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Current password is incorrect", nil)
	case errors.Is(err, ErrInactive):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, "Account is not active", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "User not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, err)
	}
}
