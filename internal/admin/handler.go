package admin

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
	"sheetinsight-backend/internal/users"
)

// Handler serves the admin routes. Callers mount it behind RequireRole.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches admin routes to the /admin group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.listUsers)
	rg.GET("/users/:id", h.getUser)
	rg.PUT("/users/:id", h.updateUser)
	rg.DELETE("/users/:id", h.deleteUser)
	rg.GET("/stats", h.stats)
	rg.GET("/analytics", h.analytics)
	rg.GET("/export", h.export)
}

func (h *Handler) listUsers(c *gin.Context) {
	out, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to get users", err)
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) getUser(c *gin.Context) {
	out, err := h.Svc.UserDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		users.WriteError(c, err, "Failed to get user")
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) updateUser(c *gin.Context) {
	var req users.AdminUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		users.WriteError(c, err, "Failed to update user")
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "User updated successfully", "data": u})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.UserIDFromContext(c) {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Admins cannot delete their own account", nil)
		return
	}
	if err := h.Svc.DeleteUser(c.Request.Context(), id); err != nil {
		users.WriteError(c, err, "Failed to delete user")
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "User deleted successfully"})
}

func (h *Handler) stats(c *gin.Context) {
	out, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to get platform statistics", err)
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) analytics(c *gin.Context) {
	out, err := h.Svc.Analytics(c.Request.Context(), c.Query("period"))
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to get analytics", err)
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) export(c *gin.Context) {
	var buf bytes.Buffer
	name, contentType, err := h.Svc.Export(c.Request.Context(), c.Query("format"), &buf)
	if err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Failed to export data", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
