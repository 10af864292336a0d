package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tareqlive/newsworker/internal/app"
	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
	"github.com/tareqlive/newsworker/internal/ratelimit"
)

const (
	workerName    = "Tareq News Automation"
	workerMessage = "Worker is running. Articles are processed every hour."
)

// RunRegistry starts runs and reports on them.
type RunRegistry interface {
	Start(ctx context.Context, trigger string) string
	Get(id string) (app.Run, bool)
}

// Handler serves the worker's HTTP surface.
type Handler struct {
	runs      RunRegistry
	runSecret string
	version   string
	baseCtx   context.Context
	budget    *ratelimit.Budget
}

// NewHandler creates a handler. Manual runs started over HTTP live in
// baseCtx, not in the request context.
func NewHandler(baseCtx context.Context, runs RunRegistry, runSecret, version string) *Handler {
	return &Handler{runs: runs, runSecret: runSecret, version: version, baseCtx: baseCtx}
}

// WithBudget adds the completion budget to the metrics output.
func (h *Handler) WithBudget(b *ratelimit.Budget) *Handler {
	h.budget = b
	return h
}

// NewServer creates a gin engine with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))
	r.Use(gin.Recovery())

	r.GET("/", handler.Status)
	r.POST("/run", handler.TriggerRun)
	r.GET("/runs/:id", handler.GetRun)
	r.GET("/health", handler.Health)
	r.GET("/metrics", handler.Metrics)

	return r
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "active",
		"worker":  workerName,
		"version": h.version,
		"message": workerMessage,
	})
}

// TriggerRun starts a run when the request carries the run secret as a
// bearer token. An empty secret disables manual runs.
func (h *Handler) TriggerRun(c *gin.Context) {
	if !h.authorized(c.GetHeader("Authorization")) {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := h.runs.Start(h.baseCtx, app.TriggerManual)
	logger.Info("Manual run dispatched", "run_id", id, "client", c.ClientIP())

	c.Header("X-Run-ID", id)
	c.String(http.StatusOK, "Worker started")
}

func (h *Handler) authorized(header string) bool {
	if h.runSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.runSecret)) == 1
}

func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.runs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) Health(c *gin.Context) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !metrics.Global.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (h *Handler) Metrics(c *gin.Context) {
	stats := metrics.Global.GetStats()
	if h.budget != nil {
		stats["completion_budget"] = h.budget.GetStats()
	}
	c.JSON(http.StatusOK, stats)
}
