package http

import (
	"errors"
	"net/http"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/analyzer/service"
	"stock-sentiment-bot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler handles HTTP requests for running analyses and inspecting
// stored articles.
type AnalysisHandler struct {
	analyzerService service.AnalyzerService
	articleRepo     repository.ArticleRepository
	logger          *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analyzerService service.AnalyzerService, articleRepo repository.ArticleRepository, logger *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzerService: analyzerService, articleRepo: articleRepo, logger: logger}
}

// RegisterRoutes registers the analysis routes to the Echo group.
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/analyze/:ticker", h.Analyze)
	g.POST("/news/:ticker/collect", h.CollectNews)
	g.GET("/articles/:ticker", h.GetArticles)
	g.GET("/articles/:ticker/stats", h.GetArticleStats)
	g.DELETE("/articles/old", h.CleanupOldArticles)
}

// Analyze runs the full analysis pipeline for a ticker. Pass force=true to
// re-analyze even when every recent article was already used.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	ticker := c.Param("ticker")
	force := c.QueryParam("force") == "true"

	resp, err := h.analyzerService.Analyze(c.Request().Context(), ticker, force)
	if err != nil {
		switch {
		case errors.Is(err, dto.ErrNoFreshInput):
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "No fresh articles to analyze. Use force=true to re-analyze existing articles."})
		case errors.Is(err, dto.ErrUpstreamUnavailable):
			return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Analysis failed", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Analysis failed"})
	}

	return c.JSON(http.StatusOK, resp)
}

// CollectNews fetches, deduplicates and stores articles for a ticker without
// running an analysis.
func (h *AnalysisHandler) CollectNews(c echo.Context) error {
	ticker := c.Param("ticker")

	saved, err := h.analyzerService.CollectNews(c.Request().Context(), ticker)
	if err != nil {
		if errors.Is(err, dto.ErrUpstreamUnavailable) {
			return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("News collection failed", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "News collection failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"ticker": ticker, "saved": len(saved)})
}

// GetArticles lists stored articles for a ticker, newest first. Pass
// unused=true to restrict to articles not yet consumed by a recommendation.
func (h *AnalysisHandler) GetArticles(c echo.Context) error {
	ticker := c.Param("ticker")
	unusedOnly := c.QueryParam("unused") == "true"
	limit := intQueryParam(c, "limit", 50)

	articles, err := h.articleRepo.FindByTicker(c.Request().Context(), ticker, limit, unusedOnly)
	if err != nil {
		h.logger.Error("Failed to get articles", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get articles"})
	}

	return c.JSON(http.StatusOK, articles)
}

// CleanupOldArticles deletes unused articles older than the retention window.
func (h *AnalysisHandler) CleanupOldArticles(c echo.Context) error {
	deleted, err := h.analyzerService.CleanupOldArticles(c.Request().Context())
	if err != nil {
		h.logger.Error("Article cleanup failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Article cleanup failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// GetArticleStats reports article usage counts for a ticker.
func (h *AnalysisHandler) GetArticleStats(c echo.Context) error {
	ticker := c.Param("ticker")

	stats, err := h.articleRepo.Stats(c.Request().Context(), ticker)
	if err != nil {
		h.logger.Error("Failed to get article stats", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get article stats"})
	}

	return c.JSON(http.StatusOK, stats)
}
