package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-radar/domain"
	"content-radar/driver"
)

// QueryHandler handles the read-only query API endpoints.
type QueryHandler struct {
	db              *driver.PostgresQuery
	defaultPageSize int
	maxPageSize     int
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(db *driver.PostgresQuery, defaultPageSize, maxPageSize int) *QueryHandler {
	return &QueryHandler{
		db:              db,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Register wires the query API routes onto an echo instance.
func (h *QueryHandler) Register(e *echo.Echo) {
	e.GET("/searches", h.ListSearches)
	e.GET("/items", h.ListItems)
	e.GET("/items/:id", h.GetItem)
	e.GET("/themes", h.GetThemes)
	e.GET("/entities", h.GetEntities)
	e.GET("/sentiment/timeline", h.GetSentimentTimeline)
	e.GET("/sources", h.GetSources)
	e.GET("/search", h.FullTextSearch)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// PaginatedItems is the envelope for paginated item listings.
type PaginatedItems struct {
	Items      []driver.ItemSummary `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

func (h *QueryHandler) filterFromQuery(c echo.Context) (driver.ItemFilter, error) {
	filter := driver.ItemFilter{
		SearchPhrase: c.QueryParam("search_phrase"),
		SourceType:   c.QueryParam("source_type"),
		Sentiment:    c.QueryParam("sentiment"),
	}

	if raw := c.QueryParam("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "start_date must be RFC 3339")
		}
		filter.StartDate = &t
	}
	if raw := c.QueryParam("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "end_date must be RFC 3339")
		}
		filter.EndDate = &t
	}
	return filter, nil
}

func (h *QueryHandler) pageFromQuery(c echo.Context) (page, pageSize int) {
	page = 1
	if raw := c.QueryParam("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			page = n
		}
	}

	pageSize = h.defaultPageSize
	if raw := c.QueryParam("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			pageSize = n
		}
	}
	pageSize = min(pageSize, h.maxPageSize)
	return page, pageSize
}

func (h *QueryHandler) limitFromQuery(c echo.Context) int {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			limit = n
		}
	}
	return min(limit, h.maxPageSize)
}

// ListSearches lists every search phrase with summary statistics.
func (h *QueryHandler) ListSearches(c echo.Context) error {
	searches, err := h.db.GetSearches(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if searches == nil {
		searches = []driver.SearchSummary{}
	}
	return c.JSON(http.StatusOK, searches)
}

// ListItems lists processed items with optional filters, paginated.
func (h *QueryHandler) ListItems(c echo.Context) error {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	page, pageSize := h.pageFromQuery(c)

	items, total, err := h.db.GetItems(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, PaginatedItems{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

// GetItem returns one item with its full analysis.
func (h *QueryHandler) GetItem(c echo.Context) error {
	item, err := h.db.GetItem(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrItemNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

// GetThemes returns themes ranked by frequency.
func (h *QueryHandler) GetThemes(c echo.Context) error {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}

	themes, err := h.db.GetThemes(c.Request().Context(), filter, h.limitFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if themes == nil {
		themes = []driver.ThemeAggregation{}
	}
	return c.JSON(http.StatusOK, themes)
}

// GetEntities returns entities ranked by frequency.
func (h *QueryHandler) GetEntities(c echo.Context) error {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}

	entities, err := h.db.GetEntities(c.Request().Context(), filter, h.limitFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entities == nil {
		entities = []driver.EntityAggregation{}
	}
	return c.JSON(http.StatusOK, entities)
}

// GetSentimentTimeline returns sentiment bucketed over time.
func (h *QueryHandler) GetSentimentTimeline(c echo.Context) error {
	granularity := c.QueryParam("granularity")
	if granularity == "" {
		granularity = "day"
	}
	if !driver.ValidGranularity(granularity) {
		return echo.NewHTTPError(http.StatusBadRequest,
			"granularity must be one of: hour, day, week, month")
	}

	filter, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}

	timeline, err := h.db.GetSentimentTimeline(c.Request().Context(), filter, granularity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if timeline == nil {
		timeline = []driver.TimelineBucket{}
	}
	return c.JSON(http.StatusOK, timeline)
}

// GetSources returns per-source item counts and average sentiment.
func (h *QueryHandler) GetSources(c echo.Context) error {
	breakdown, err := h.db.GetSourceBreakdown(c.Request().Context(), c.QueryParam("search_phrase"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if breakdown == nil {
		breakdown = []driver.SourceBreakdown{}
	}
	return c.JSON(http.StatusOK, breakdown)
}

// FullTextSearch runs ranked full-text search over titles, content and
// summaries.
func (h *QueryHandler) FullTextSearch(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	page, pageSize := h.pageFromQuery(c)

	items, total, err := h.db.FullTextSearch(c.Request().Context(),
		query, c.QueryParam("search_phrase"), page, pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, PaginatedItems{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	})
}

// Health reports database health, 503 when unreachable.
func (h *QueryHandler) Health(c echo.Context) error {
	if !h.db.HealthCheck(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]bool{"database": false})
	}
	return c.JSON(http.StatusOK, map[string]bool{"database": true})
}
