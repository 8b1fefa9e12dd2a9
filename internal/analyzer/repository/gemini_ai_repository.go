package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/pkg/logger"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository implements AIRepository using the Google Gemini API.
type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	genAiClient    *genai.Client
	requestLimiter *rate.Limiter
}

// NewGeminiAIRepository creates a new Gemini-backed analysis repository.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (AIRepository, error) {
	if cfg.Gemini.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("gemini.max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		genAiClient:    genAiClient,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}, nil
}

// GenerateRecommendation builds the analysis prompt, queries Gemini and parses
// the response into a validated result.
func (r *geminiAIRepository) GenerateRecommendation(ctx context.Context, input *dto.AnalysisInput) (*dto.AnalysisResult, error) {
	prompt := BuildAnalysisPrompt(input)

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}
	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		r.logger.ErrorContext(ctx, "Gemini request failed",
			logger.StringField("ticker", input.Ticker), logger.ErrorField(err))
		return nil, fmt.Errorf("%w: gemini: %v", dto.ErrUpstreamUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: gemini returned empty response", dto.ErrUpstreamUnavailable)
	}

	result, err := parseAnalysisResponse(text)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to parse analysis response",
			logger.StringField("ticker", input.Ticker),
			logger.StringField("response", text),
			logger.ErrorField(err))
		return nil, err
	}

	return result, nil
}

// parseAnalysisResponse extracts the JSON object from a model response that
// may be wrapped in markdown fences or surrounding prose.
func parseAnalysisResponse(text string) (*dto.AnalysisResult, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in analysis response")
	}

	var result dto.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis response: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}
