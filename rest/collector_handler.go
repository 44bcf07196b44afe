// Package rest exposes the HTTP surfaces of the collector, processor and
// query API services.
package rest

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-radar/collector"
	"content-radar/domain"
)

// CollectorHandler handles the collector service's HTTP endpoints.
type CollectorHandler struct {
	svc *collector.Service
}

// NewCollectorHandler creates a collector handler.
func NewCollectorHandler(svc *collector.Service) *CollectorHandler {
	return &CollectorHandler{svc: svc}
}

// Register wires the collector routes onto an echo instance.
func (h *CollectorHandler) Register(e *echo.Echo) {
	e.POST("/collect", h.Collect)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// CollectRequest is the body of POST /collect. Dates default to the last
// seven days and job_id is generated when absent.
type CollectRequest struct {
	Phrase    string     `json:"phrase"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Sources   []string   `json:"sources"`
	JobID     string     `json:"job_id"`
}

// CollectResponse is the body of a completed collection run.
type CollectResponse struct {
	Status string           `json:"status"`
	JobID  string           `json:"job_id"`
	Stats  *collector.Stats `json:"stats"`
}

// Collect triggers a synchronous collection run.
func (h *CollectorHandler) Collect(c echo.Context) error {
	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Phrase == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phrase is required")
	}

	now := time.Now().UTC()
	search := domain.SearchRequest{
		Phrase:  req.Phrase,
		Sources: req.Sources,
		JobID:   req.JobID,
		EndDate: now,
	}
	if req.EndDate != nil {
		search.EndDate = req.EndDate.UTC()
	}
	search.StartDate = search.EndDate.Add(-7 * 24 * time.Hour)
	if req.StartDate != nil {
		search.StartDate = req.StartDate.UTC()
	}
	if search.JobID == "" {
		search.JobID = "manual-" + uuid.NewString()
	}

	if search.StartDate.After(search.EndDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must not be after end_date")
	}

	stats, err := h.svc.Collect(c.Request().Context(), search)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, CollectResponse{
		Status: "completed",
		JobID:  search.JobID,
		Stats:  stats,
	})
}

// Health reports component health, 503 when anything is down.
func (h *CollectorHandler) Health(c echo.Context) error {
	health := h.svc.Health(c.Request().Context())
	if !health.Healthy() {
		return c.JSON(http.StatusServiceUnavailable, health)
	}
	return c.JSON(http.StatusOK, health)
}
