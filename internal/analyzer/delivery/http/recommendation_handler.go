package http

import (
	"errors"
	"net/http"
	"strconv"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/analyzer/service"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RecommendationHandler handles HTTP requests for recommendations and their
// validation.
type RecommendationHandler struct {
	recommendationRepo repository.RecommendationRepository
	validatorService   service.ValidatorService
	logger             *logger.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendationRepo repository.RecommendationRepository, validatorService service.ValidatorService, logger *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommendationRepo: recommendationRepo, validatorService: validatorService, logger: logger}
}

// RegisterRoutes registers the recommendation routes to the Echo group.
func (h *RecommendationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/recommendations", h.GetRecommendations)
	g.GET("/recommendations/:id", h.GetRecommendationByID)
	g.GET("/recommendations/ticker/:ticker/latest", h.GetLatestForTicker)
	g.POST("/recommendations/:id/validate", h.ValidateRecommendation)
	g.POST("/jobs/validate-pending", h.ValidatePending)
}

// GetRecommendations lists recommendations, optionally filtered by ticker and
// validation status.
func (h *RecommendationHandler) GetRecommendations(c echo.Context) error {
	ticker := c.QueryParam("ticker")
	status := entity.ValidationStatus(c.QueryParam("status"))
	limit := intQueryParam(c, "limit", 50)

	recs, err := h.recommendationRepo.FindAll(c.Request().Context(), ticker, status, limit)
	if err != nil {
		h.logger.Error("Failed to get recommendations", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get recommendations"})
	}

	return c.JSON(http.StatusOK, recs)
}

// GetRecommendationByID retrieves a single recommendation.
func (h *RecommendationHandler) GetRecommendationByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid recommendation ID"})
	}

	rec, err := h.recommendationRepo.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Recommendation not found"})
		}
		h.logger.Error("Failed to get recommendation", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get recommendation"})
	}

	return c.JSON(http.StatusOK, rec)
}

// GetLatestForTicker retrieves the most recent recommendation for a ticker.
func (h *RecommendationHandler) GetLatestForTicker(c echo.Context) error {
	ticker := c.Param("ticker")

	rec, err := h.recommendationRepo.FindLatestByTicker(c.Request().Context(), ticker)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "No recommendations for ticker"})
		}
		h.logger.Error("Failed to get latest recommendation", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get latest recommendation"})
	}

	return c.JSON(http.StatusOK, rec)
}

// ValidateRecommendation validates one recommendation immediately, regardless
// of whether its waiting window has elapsed.
func (h *RecommendationHandler) ValidateRecommendation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid recommendation ID"})
	}

	rec, err := h.recommendationRepo.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Recommendation not found"})
		}
		h.logger.Error("Failed to get recommendation", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get recommendation"})
	}

	if err := h.validatorService.ValidateRecommendation(c.Request().Context(), rec); err != nil {
		switch {
		case errors.Is(err, dto.ErrAlreadyValidated):
			return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, dto.ErrUpstreamUnavailable):
			return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Validation failed", logger.Field("recommendation_id", rec.ID), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Validation failed"})
	}

	return c.JSON(http.StatusOK, rec)
}

// ValidatePending runs the validation sweep over every due recommendation.
func (h *RecommendationHandler) ValidatePending(c echo.Context) error {
	count, err := h.validatorService.ValidatePending(c.Request().Context())
	if err != nil {
		h.logger.Error("Validation sweep failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Validation sweep failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"validated": count})
}
