package repository

import (
	"context"

	"stock-sentiment-bot/internal/analyzer/dto"
)

// AIRepository is the opaque analysis collaborator. It consumes the article
// partition plus market data and returns a validated structured
// recommendation.
type AIRepository interface {
	GenerateRecommendation(ctx context.Context, input *dto.AnalysisInput) (*dto.AnalysisResult, error)
}
