package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/relief-tracker/constants"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handlers) health(c *gin.Context) {
	if h.deps.DB != nil {
		if err := h.deps.DB.HealthCheck(c.Request.Context(), 2*time.Second, h.logger); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	body := gin.H{"status": "healthy"}
	if h.deps.Retriever != nil {
		if ix := h.deps.Retriever.Current(); ix != nil {
			body["rules"] = ix.Len()
			body["embedder"] = ix.EmbedderName()
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) processReceipt(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported receipt image type"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.deps.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read upload: " + err.Error()})
		return
	}
	if int64(len(data)) > h.deps.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	img := extract.Image{
		Bytes:    data,
		MIMEType: header.Header.Get("Content-Type"),
		Filename: filepath.Base(header.Filename),
	}
	if img.MIMEType == "" || img.MIMEType == "application/octet-stream" {
		img.MIMEType = constants.MIMEForExt(ext)
	}

	res := h.deps.Processor.ProcessReceipt(c.Request.Context(), c.Param("user_id"), img)
	c.JSON(statusForResult(res), res)
}

// statusForResult maps a pipeline outcome onto an HTTP status.
func statusForResult(res pipeline.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case pipeline.ErrorKindValidation:
		return http.StatusBadRequest
	case pipeline.ErrorKindExtractionFailed:
		return http.StatusUnprocessableEntity
	case pipeline.ErrorKindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *handlers) listExpenses(c *gin.Context) {
	rows, err := h.deps.Relief.Expenses(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": rows, "count": len(rows)})
}

func (h *handlers) taxSummary(c *gin.Context) {
	summary, err := h.deps.Relief.GetTaxSummary(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handlers) spending(c *gin.Context) {
	spend, err := h.deps.Relief.SpendingPatterns(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, spend)
}

func (h *handlers) utilization(c *gin.Context) {
	util, err := h.deps.Relief.Utilization(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reliefs": util})
}

func (h *handlers) exportXLSX(c *gin.Context) {
	if h.deps.Export == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "export disabled"})
		return
	}
	userID := c.Param("user_id")
	data, err := h.deps.Export.TaxSummaryXLSX(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tax-summary-`+userID+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *handlers) listRules(c *gin.Context) {
	ix := h.deps.Retriever.Current()
	if ix == nil {
		h.fail(c, rules.ErrNoIndex)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules":    ix.Rules(),
		"embedder": ix.EmbedderName(),
		"built_at": ix.BuiltAt(),
	})
}

func (h *handlers) reloadRules(c *gin.Context) {
	if h.deps.ReloadRules == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "rule reload disabled"})
		return
	}
	if err := h.deps.ReloadRules(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "rules": h.deps.Retriever.Current().Len()})
}

// fail maps error kinds onto HTTP statuses.
func (h *handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrConfiguration):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, rules.ErrNoIndex):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(c.Request.Context(), h.logger).Error("http.handler.error", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
