package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
)

// Handler serves a user's audit history.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.list)
	rg.GET("/history/:type/:id", h.resource)
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	res, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), page, limit, c.Query("type"))
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid history query", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Error fetching history", err)
		return
	}
	respond.OK(c, gin.H{
		"success":     true,
		"history":     res.History,
		"totalPages":  res.TotalPages,
		"currentPage": res.CurrentPage,
		"total":       res.Total,
	})
}

func (h *Handler) resource(c *gin.Context) {
	records, err := h.Svc.ForResource(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("type"), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid resource type", err.Error())
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Error fetching resource history", err)
		return
	}
	respond.OK(c, gin.H{"success": true, "history": records})
}
