package rest

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-radar/processor"
)

// ProcessorHandler handles the processor service's HTTP endpoints.
type ProcessorHandler struct {
	svc       *processor.Service
	batchSize int

	// baseCtx parents the continuous-processing goroutine so service
	// shutdown stops it.
	baseCtx context.Context

	mu      sync.Mutex
	running bool
}

// NewProcessorHandler creates a processor handler. baseCtx bounds the
// lifetime of background processing started via /process/continuous.
func NewProcessorHandler(baseCtx context.Context, svc *processor.Service, batchSize int) *ProcessorHandler {
	return &ProcessorHandler{
		svc:       svc,
		batchSize: batchSize,
		baseCtx:   baseCtx,
	}
}

// Register wires the processor routes onto an echo instance.
func (h *ProcessorHandler) Register(e *echo.Echo) {
	e.POST("/process", h.Process)
	e.POST("/process/continuous", h.ProcessContinuous)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	BatchSize int `json:"batch_size"`
}

// ProcessResponse is the body of a completed processing batch.
type ProcessResponse struct {
	Status string           `json:"status"`
	Stats  *processor.Stats `json:"stats"`
}

// Process runs one synchronous batch.
func (h *ProcessorHandler) Process(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = h.batchSize
	}

	stats, err := h.svc.ProcessBatch(c.Request().Context(), batchSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ProcessResponse{Status: "completed", Stats: stats})
}

// ProcessContinuous starts background processing. A second call while it is
// running is a no-op.
func (h *ProcessorHandler) ProcessContinuous(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return c.JSON(http.StatusOK, map[string]string{"status": "already_running"})
	}
	h.running = true

	go func() {
		defer func() {
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
		}()
		h.svc.ProcessContinuous(h.baseCtx, h.batchSize)
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

// Health reports dependency health, 503 when the queue or database is down.
// LLM and object store states are informational only.
func (h *ProcessorHandler) Health(c echo.Context) error {
	health := h.svc.Health(c.Request().Context())
	if !health.Healthy() {
		return c.JSON(http.StatusServiceUnavailable, health)
	}
	return c.JSON(http.StatusOK, health)
}
