package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/utils"
)

// MetricsService aggregates validated recommendations into daily accuracy
// metrics and serves the read side of those aggregates.
type MetricsService interface {
	RecomputeDaily(ctx context.Context) error
	GetOverall(ctx context.Context) (*dto.ValidationMetricsResponse, error)
	GetTicker(ctx context.Context, ticker string) (*dto.TickerMetrics, error)
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(log *logger.Logger, clock utils.Clock,
	recommendationRepo repository.RecommendationRepository,
	metricRepo repository.ValidationMetricRepository) MetricsService {
	return &metricsService{
		log:                log,
		clock:              clock,
		recommendationRepo: recommendationRepo,
		metricRepo:         metricRepo,
	}
}

type metricsService struct {
	log                *logger.Logger
	clock              utils.Clock
	recommendationRepo repository.RecommendationRepository
	metricRepo         repository.ValidationMetricRepository
}

// RecomputeDaily aggregates every recommendation that reached a terminal
// status and upserts the row keyed by today's UTC date. Running it twice on
// the same day overwrites the earlier figures.
func (s *metricsService) RecomputeDaily(ctx context.Context) error {
	validated, err := s.recommendationRepo.FindValidated(ctx, "")
	if err != nil {
		return fmt.Errorf("load validated recommendations: %w", err)
	}

	metric := entity.ValidationMetric{
		Date:                 s.metricDate(),
		TotalRecommendations: len(validated),
	}

	var scoreSum float64
	buckets := make(map[string]*entity.ConfidenceBucket)
	bucketSums := make(map[string]float64)

	for i := range validated {
		rec := &validated[i]
		switch rec.ValidationStatus {
		case entity.StatusAccurate:
			metric.AccurateCount++
		case entity.StatusPartiallyAccurate:
			metric.PartiallyAccurateCount++
		case entity.StatusInaccurate:
			metric.InaccurateCount++
		}

		score := 0.0
		if rec.AccuracyScore != nil {
			score = *rec.AccuracyScore
		}
		scoreSum += score

		tier := string(rec.Confidence)
		bucket, ok := buckets[tier]
		if !ok {
			bucket = &entity.ConfidenceBucket{}
			buckets[tier] = bucket
		}
		bucket.Total++
		bucketSums[tier] += score
	}

	if len(validated) > 0 {
		metric.AvgAccuracyScore = scoreSum / float64(len(validated))
	}

	byConfidence := make(map[string]entity.ConfidenceBucket, len(buckets))
	for tier, bucket := range buckets {
		bucket.AvgAccuracy = bucketSums[tier] / float64(bucket.Total)
		byConfidence[tier] = *bucket
	}

	encoded, err := json.Marshal(byConfidence)
	if err != nil {
		return fmt.Errorf("encode confidence buckets: %w", err)
	}
	metric.ByConfidence = encoded

	if err := s.metricRepo.Upsert(ctx, &metric); err != nil {
		return fmt.Errorf("upsert daily metric: %w", err)
	}

	s.log.InfoContext(ctx, "Recomputed daily validation metrics",
		logger.IntField("total", metric.TotalRecommendations),
		logger.Float64Field("avg_accuracy_score", metric.AvgAccuracyScore))

	return nil
}

// GetOverall returns the latest daily metric row, expanded with the accuracy
// percentage of fully accurate calls.
func (s *metricsService) GetOverall(ctx context.Context) (*dto.ValidationMetricsResponse, error) {
	metric, err := s.metricRepo.FindLatest(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.ValidationMetricsResponse{
		Date:                   metric.Date,
		TotalRecommendations:   metric.TotalRecommendations,
		AccurateCount:          metric.AccurateCount,
		PartiallyAccurateCount: metric.PartiallyAccurateCount,
		InaccurateCount:        metric.InaccurateCount,
		AvgAccuracyScore:       metric.AvgAccuracyScore,
		ByConfidence:           map[string]entity.ConfidenceBucket{},
	}
	if metric.TotalRecommendations > 0 {
		resp.AccuracyPercentage = float64(metric.AccurateCount) / float64(metric.TotalRecommendations) * 100
	}
	if len(metric.ByConfidence) > 0 {
		if err := json.Unmarshal(metric.ByConfidence, &resp.ByConfidence); err != nil {
			return nil, fmt.Errorf("decode confidence buckets: %w", err)
		}
	}

	return resp, nil
}

// GetTicker aggregates validated recommendations for a single ticker,
// including its best and worst scored calls.
func (s *metricsService) GetTicker(ctx context.Context, ticker string) (*dto.TickerMetrics, error) {
	validated, err := s.recommendationRepo.FindValidated(ctx, ticker)
	if err != nil {
		return nil, err
	}

	result := &dto.TickerMetrics{
		Ticker:               ticker,
		TotalRecommendations: len(validated),
	}
	if len(validated) == 0 {
		return result, nil
	}

	var scoreSum, bestScore, worstScore float64
	var best, worst *entity.Recommendation
	for i := range validated {
		rec := &validated[i]
		score := 0.0
		if rec.AccuracyScore != nil {
			score = *rec.AccuracyScore
		}
		scoreSum += score

		if best == nil || score > bestScore {
			best, bestScore = rec, score
		}
		if worst == nil || score < worstScore {
			worst, worstScore = rec, score
		}
	}

	result.AvgAccuracyScore = scoreSum / float64(len(validated))
	result.Best = best
	result.Worst = worst
	return result, nil
}

// metricDate truncates now to a UTC calendar date so upserts within one day
// collapse onto one row.
func (s *metricsService) metricDate() time.Time {
	now := s.clock.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
