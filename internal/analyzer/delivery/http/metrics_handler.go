package http

import (
	"errors"
	"net/http"
	"strconv"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/service"
	"stock-sentiment-bot/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MetricsHandler handles HTTP requests for validation accuracy metrics.
type MetricsHandler struct {
	metricsService service.MetricsService
	logger         *logger.Logger
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(metricsService service.MetricsService, logger *logger.Logger) *MetricsHandler {
	return &MetricsHandler{metricsService: metricsService, logger: logger}
}

// RegisterRoutes registers the metrics routes to the Echo group.
func (h *MetricsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/metrics", h.GetValidationMetrics)
	g.GET("/metrics/ticker/:ticker", h.GetTickerMetrics)
	g.POST("/metrics/recompute", h.RecomputeMetrics)
}

// GetValidationMetrics returns the latest daily accuracy aggregate.
func (h *MetricsHandler) GetValidationMetrics(c echo.Context) error {
	metrics, err := h.metricsService.GetOverall(c.Request().Context())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "No validation metrics computed yet"})
		}
		h.logger.Error("Failed to get validation metrics", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get validation metrics"})
	}

	return c.JSON(http.StatusOK, metrics)
}

// GetTickerMetrics returns per-ticker accuracy figures with the best and worst
// scored recommendations.
func (h *MetricsHandler) GetTickerMetrics(c echo.Context) error {
	ticker := c.Param("ticker")

	metrics, err := h.metricsService.GetTicker(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Error("Failed to get ticker metrics", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get ticker metrics"})
	}

	return c.JSON(http.StatusOK, metrics)
}

// RecomputeMetrics forces a recomputation of today's metric row.
func (h *MetricsHandler) RecomputeMetrics(c echo.Context) error {
	if err := h.metricsService.RecomputeDaily(c.Request().Context()); err != nil {
		h.logger.Error("Failed to recompute metrics", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to recompute metrics"})
	}

	return c.NoContent(http.StatusNoContent)
}

// intQueryParam parses an integer query parameter, falling back to def when
// absent or malformed.
func intQueryParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
