package files

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/insights"
	"sheetinsight-backend/internal/shared/server/middleware"
	"sheetinsight-backend/internal/shared/server/respond"
	"sheetinsight-backend/internal/tabular"
)

const (
	previewRows = 10
	// multipart framing on top of the file itself
	formOverhead = 1 << 20
)

// Handler serves upload, retrieval, local insights and download of files.
type Handler struct {
	Svc      *Service
	Composer *insights.Composer
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, composer *insights.Composer) *Handler {
	return &Handler{Svc: svc, Composer: composer}
}

// RegisterRoutes attaches file routes to the /data group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/files", h.list)
	rg.GET("/file/:fileId", h.get)
	rg.DELETE("/file/:fileId", h.delete)
	rg.GET("/insights/:fileId", h.insights)
	rg.GET("/download/:fileId", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.maxBytes()+formOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, ErrTooLarge, "Failed to upload and parse file")
			return
		}
		h.writeError(c, ErrMissingFile, "Failed to upload and parse file")
		return
	}
	body, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Uploaded file not found. Please try uploading again.", err.Error())
		return
	}
	defer body.Close()

	f, err := h.Svc.Upload(c.Request.Context(), userID, UploadInput{
		FileName:     header.Filename,
		DeclaredMIME: header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         body,
	})
	if err != nil {
		h.writeError(c, err, "Failed to upload and parse file")
		return
	}
	c.Set("fileId", f.ID)

	respond.Created(c, gin.H{
		"success": true,
		"fileId":  f.ID,
		"columns": f.Columns,
		"preview": f.Dataset().Head(previewRows),
		"message": "File uploaded and parsed successfully",
	})
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "Failed to fetch files")
		return
	}
	respond.OK(c, gin.H{"success": true, "files": out})
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("fileId"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch file data")
		return
	}
	c.Set("fileId", f.ID)
	records := f.Records
	if records == nil {
		records = []tabular.Record{}
	}
	respond.OK(c, gin.H{
		"success":      true,
		"fileId":       f.ID,
		"originalName": f.OriginalName,
		"uploadedAt":   f.UploadedAt,
		"columns":      f.Columns,
		"sheetNames":   f.SheetNames,
		"data":         records,
	})
}

func (h *Handler) delete(c *gin.Context) {
	fileID := c.Param("fileId")
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), fileID); err != nil {
		h.writeError(c, err, "Failed to delete file")
		return
	}
	c.Set("fileId", fileID)
	respond.OK(c, gin.H{
		"success": true,
		"message": "File and associated analyses deleted successfully",
	})
}

func (h *Handler) insights(c *gin.Context) {
	f, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("fileId"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch insights")
		return
	}
	c.Set("fileId", f.ID)
	if len(f.Records) == 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "No data in file", nil)
		return
	}
	respond.OK(c, gin.H{
		"success": true,
		"data":    h.Composer.Local(f.OriginalName, f.Dataset()),
	})
}

func (h *Handler) download(c *gin.Context) {
	name, body, err := h.Svc.Report(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("fileId"))
	if err != nil {
		h.writeError(c, err, "Failed to download report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, tabular.MIMEXLSX, body)
}

// writeError maps service errors onto the response envelope.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var ve *validationError
	switch {
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodeTooLarge,
			fmt.Sprintf("File size too large. Maximum size is %dMB.", h.Svc.maxBytes()>>20), nil)
	case errors.As(err, &ve):
		var details interface{}
		if err.Error() != ve.msg {
			details = err.Error()
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ve.msg, details)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "File not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, fallback, err)
	}
}
