package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/relief-tracker/internal/async"
	"github.com/joseph-ayodele/relief-tracker/internal/common"
	"github.com/joseph-ayodele/relief-tracker/internal/export"
	"github.com/joseph-ayodele/relief-tracker/internal/relief"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

// Pinger is satisfied by *repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error
}

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Processor      async.ReceiptProcessor
	Relief         *relief.Service
	Export         *export.Service
	Retriever      *rules.Retriever
	ReloadRules    func(ctx context.Context) error // nil disables POST /rules/reload
	DB             Pinger
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter wires the /api/v1 routes plus health and metrics endpoints.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	h := &handlers{deps: d, logger: d.Logger}

	r := gin.New()
	r.MaxMultipartMemory = d.MaxUploadBytes
	r.Use(gin.Recovery(), requestContext(d.Logger))

	r.GET("/healthz", h.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	{
		users := api.Group("/users/:user_id")
		users.POST("/receipts", h.processReceipt)
		users.GET("/expenses", h.listExpenses)
		users.GET("/tax-summary", h.taxSummary)
		users.GET("/spending", h.spending)
		users.GET("/relief-utilization", h.utilization)
		users.GET("/export.xlsx", h.exportXLSX)

		api.GET("/rules", h.listRules)
		api.POST("/rules/reload", h.reloadRules)
	}
	return r
}

// requestContext tags each request with an id and a request scoped logger.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)

		log := logger.With("req_id", reqID)
		ctx := common.WithRequestID(c.Request.Context(), reqID)
		ctx = common.WithLogger(ctx, log)
		if uid := c.Param("user_id"); uid != "" {
			ctx = common.WithUserID(ctx, uid)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(ctx, level, "http.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
