package dto

import (
	"fmt"
	"time"

	"stock-sentiment-bot/internal/entity"
)

// Impact classifies a key factor's expected effect on the stock.
type Impact string

const (
	ImpactPositive Impact = "POSITIVE"
	ImpactNegative Impact = "NEGATIVE"
	ImpactNeutral  Impact = "NEUTRAL"
)

// KeyFactor is one driver the analysis identified.
type KeyFactor struct {
	Factor string `json:"factor"`
	Impact Impact `json:"impact"`
}

// AnalysisResult is the structured output of the recommendation collaborator.
// It is validated before anything is persisted, so downstream code never deals
// with half-filled results.
type AnalysisResult struct {
	Recommendation       entity.RecommendationType `json:"recommendation"`
	Confidence           entity.ConfidenceLevel    `json:"confidence"`
	SentimentScore       float64                   `json:"sentiment_score"`
	RiskLevel            entity.RiskLevel          `json:"risk_level"`
	VolatilityAssessment string                    `json:"volatility_assessment"`
	KeyFactors           []KeyFactor               `json:"key_factors"`
	Summary              string                    `json:"summary"`
	Reasoning            string                    `json:"reasoning"`
	PriceTarget          *float64                  `json:"price_target,omitempty"`
	TimeHorizon          entity.TimeHorizon        `json:"time_horizon"`
	Warnings             []string                  `json:"warnings"`
}

// Validate checks that every required field is present and carries a known
// enum value.
func (r *AnalysisResult) Validate() error {
	switch r.Recommendation {
	case entity.RecommendationBuy, entity.RecommendationSell, entity.RecommendationShort, entity.RecommendationHold:
	case "":
		return fmt.Errorf("%w: recommendation", ErrMissingField)
	default:
		return fmt.Errorf("unknown recommendation type %q", r.Recommendation)
	}

	switch r.Confidence {
	case entity.ConfidenceHigh, entity.ConfidenceMedium, entity.ConfidenceLow:
	case "":
		return fmt.Errorf("%w: confidence", ErrMissingField)
	default:
		return fmt.Errorf("unknown confidence level %q", r.Confidence)
	}

	switch r.TimeHorizon {
	case entity.HorizonShortTerm, entity.HorizonMediumTerm, entity.HorizonLongTerm:
	case "":
		return fmt.Errorf("%w: time_horizon", ErrMissingField)
	default:
		return fmt.Errorf("unknown time horizon %q", r.TimeHorizon)
	}

	if r.Summary == "" {
		return fmt.Errorf("%w: summary", ErrMissingField)
	}
	if r.Reasoning == "" {
		return fmt.Errorf("%w: reasoning", ErrMissingField)
	}
	if r.SentimentScore < -1.0 || r.SentimentScore > 1.0 {
		return fmt.Errorf("sentiment_score %.2f out of range [-1,1]", r.SentimentScore)
	}

	return nil
}

// AnalysisInput bundles everything the recommendation collaborator consumes.
// ContextArticles is the full recent picture; NewArticles is the unused subset
// the recommendation must be weighted on.
type AnalysisInput struct {
	Ticker          string
	StockData       *StockData
	ContextArticles []entity.Article
	NewArticles     []entity.Article
	PriceHistory    *PriceHistory
}

// AnalysisResponse is returned by the analyze endpoint.
type AnalysisResponse struct {
	RecommendationID     uint                      `json:"recommendation_id"`
	Ticker               string                    `json:"ticker"`
	CompanyName          string                    `json:"company_name"`
	AnalysisDate         time.Time                 `json:"analysis_date"`
	Recommendation       entity.RecommendationType `json:"recommendation"`
	Confidence           entity.ConfidenceLevel    `json:"confidence"`
	SentimentScore       float64                   `json:"sentiment_score"`
	RiskLevel            entity.RiskLevel          `json:"risk_level"`
	VolatilityAssessment string                    `json:"volatility_assessment"`
	KeyFactors           []KeyFactor               `json:"key_factors"`
	Summary              string                    `json:"summary"`
	Reasoning            string                    `json:"reasoning"`
	PriceTarget          *float64                  `json:"price_target,omitempty"`
	TimeHorizon          entity.TimeHorizon        `json:"time_horizon"`
	Warnings             []string                  `json:"warnings"`
}

// ArticleSelection is the partition produced for one analysis call. New is
// always a subset of Context unless the selection was forced.
type ArticleSelection struct {
	Context []entity.Article
	New     []entity.Article
	Forced  bool
}

// ArticleStats summarizes article usage for a ticker.
type ArticleStats struct {
	Ticker                string     `json:"ticker"`
	TotalArticles         int64      `json:"total_articles"`
	UsedArticles          int64      `json:"used_articles"`
	UnusedArticles        int64      `json:"unused_articles"`
	LastUsedDate          *time.Time `json:"last_used_date,omitempty"`
	NewestUnusedPublished *time.Time `json:"newest_unused_published,omitempty"`
	ReadyForAnalysis      bool       `json:"ready_for_analysis"`
}

// ValidationMetricsResponse is the overall metrics payload.
type ValidationMetricsResponse struct {
	Date                   time.Time                          `json:"date"`
	TotalRecommendations   int                                `json:"total_recommendations"`
	AccurateCount          int                                `json:"accurate_count"`
	PartiallyAccurateCount int                                `json:"partially_accurate_count"`
	InaccurateCount        int                                `json:"inaccurate_count"`
	AvgAccuracyScore       float64                            `json:"avg_accuracy_score"`
	AccuracyPercentage     float64                            `json:"accuracy_percentage"`
	ByConfidence           map[string]entity.ConfidenceBucket `json:"recommendations_by_confidence"`
}

// TickerMetrics summarizes validated recommendations for one ticker.
type TickerMetrics struct {
	Ticker               string                 `json:"ticker"`
	TotalRecommendations int                    `json:"total_recommendations"`
	AvgAccuracyScore     float64                `json:"avg_accuracy_score"`
	Best                 *entity.Recommendation `json:"best_recommendation,omitempty"`
	Worst                *entity.Recommendation `json:"worst_recommendation,omitempty"`
}
