package analyses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/charts"
	"sheetinsight-backend/internal/insights"
	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
)

// Handler exposes analysis routes and the chart and history views of /data.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the /analysis group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.POST("/generate/chart", h.generateChartAdvice)
	rg.POST("/generate/insights", h.generateInsights)
	rg.GET("/:id", h.get)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
}

// RegisterDataRoutes attaches the chart and history views to the /data group.
func (h *Handler) RegisterDataRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate-chart", h.generateChart)
	rg.GET("/chart/:fileId", h.latestChart)
	rg.GET("/history", h.overview)
}

type createRequest struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	ExcelFileID string          `json:"excelFileId"`
	Config      json.RawMessage `json:"config"`
}

type updateRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type generateRequest struct {
	ExcelFileID string          `json:"excelFileId"`
	Config      json.RawMessage `json:"config"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	a, err := h.Svc.Create(ctx, middleware.UserIDFromContext(c), CreateInput{
		Name:   req.Name,
		Type:   req.Type,
		FileID: req.ExcelFileID,
		Config: req.Config,
	})
	if err != nil {
		writeError(c, err, "Error creating analysis")
		return
	}
	c.Set("analysisId", a.ID)
	c.Set("fileId", a.FileID)
	c.Set("statusTransition", "none->queued")
	respond.Created(c, a)
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Error fetching analyses")
		return
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	a, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "Error fetching analysis")
		return
	}
	c.Set("analysisId", a.ID)
	respond.OK(c, a)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	a, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), UpdateInput{
		Name:   req.Name,
		Config: req.Config,
	})
	if err != nil {
		writeError(c, err, "Error updating analysis")
		return
	}
	respond.OK(c, a)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "Error deleting analysis")
		return
	}
	respond.OK(c, gin.H{"success": true, "message": "Analysis deleted successfully"})
}

func (h *Handler) generateChartAdvice(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	var opts insights.ChartOptions
	if err := decodeConfig(req.Config, &opts); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid config", err.Error())
		return
	}
	out, err := h.Svc.GenerateChartAdvice(c.Request.Context(), middleware.UserIDFromContext(c), req.ExcelFileID, opts)
	if err != nil {
		writeError(c, err, "Error generating chart recommendations")
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) generateInsights(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	var opts insights.InsightOptions
	if err := decodeConfig(req.Config, &opts); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid config", err.Error())
		return
	}
	out, err := h.Svc.GenerateInsights(c.Request.Context(), middleware.UserIDFromContext(c), req.ExcelFileID, opts)
	if err != nil {
		writeError(c, err, "Error generating insights")
		return
	}
	respond.OK(c, gin.H{"success": true, "data": out})
}

func (h *Handler) generateChart(c *gin.Context) {
	var req ChartInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", err.Error())
		return
	}
	a, res, err := h.Svc.GenerateChart(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err, "Failed to generate chart")
		return
	}
	c.Set("analysisId", a.ID)
	c.Set("fileId", a.FileID)
	respond.OK(c, gin.H{
		"success":     true,
		"analysisId":  a.ID,
		"chartConfig": res.Config,
		"data":        res.Meta,
		"message":     "Chart generated successfully",
	})
}

func (h *Handler) latestChart(c *gin.Context) {
	a, err := h.Svc.LatestChart(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("fileId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Chart not found", nil)
			return
		}
		writeError(c, err, "Failed to fetch chart")
		return
	}
	respond.OK(c, gin.H{"success": true, "chartConfig": a.ChartConfig, "analysisId": a.ID})
}

func (h *Handler) overview(c *gin.Context) {
	fs, as, err := h.Svc.Overview(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Failed to fetch history")
		return
	}
	respond.OK(c, gin.H{"success": true, "files": fs, "analyses": as})
}

func decodeConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation,
			strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	case errors.Is(err, charts.ErrUnknownColumn), errors.Is(err, charts.ErrNoNumericData):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, charts.ErrUnsupportedChartType):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid chart type", err.Error())
	case errors.Is(err, ErrFileNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Excel file not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "Analysis not found", nil)
	case errors.Is(err, insights.ErrInsightGenerationFailed):
		respond.Error(c, http.StatusInternalServerError, respond.CodeUpstream, fallback+": "+err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, err)
	}
}
