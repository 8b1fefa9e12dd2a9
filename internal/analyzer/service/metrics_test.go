package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func validatedRec(ticker string, confidence entity.ConfidenceLevel, status entity.ValidationStatus, score float64) entity.Recommendation {
	return entity.Recommendation{
		Ticker:           ticker,
		Recommendation:   entity.RecommendationBuy,
		Confidence:       confidence,
		ValidationStatus: status,
		AccuracyScore:    utils.ToPointer(score),
	}
}

func TestRecomputeDaily(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	clock := &utils.FrozenClock{T: now}

	recRepo := newFakeRecommendationRepo(nil)
	recRepo.add(validatedRec("AAPL", entity.ConfidenceHigh, entity.StatusAccurate, 1.0))
	recRepo.add(validatedRec("AAPL", entity.ConfidenceHigh, entity.StatusAccurate, 0.8))
	recRepo.add(validatedRec("TSLA", entity.ConfidenceMedium, entity.StatusPartiallyAccurate, 0.4))
	recRepo.add(validatedRec("MSFT", entity.ConfidenceLow, entity.StatusInaccurate, 0.0))
	recRepo.add(entity.Recommendation{Ticker: "NVDA", ValidationStatus: entity.StatusPending})

	metricRepo := &fakeMetricRepo{}
	svc := NewMetricsService(logger.NewNop(), clock, recRepo, metricRepo)

	require.NoError(t, svc.RecomputeDaily(ctx))

	require.Len(t, metricRepo.metrics, 1)
	metric := metricRepo.metrics[0]
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), metric.Date)
	assert.Equal(t, 4, metric.TotalRecommendations)
	assert.Equal(t, 2, metric.AccurateCount)
	assert.Equal(t, 1, metric.PartiallyAccurateCount)
	assert.Equal(t, 1, metric.InaccurateCount)
	assert.InDelta(t, 0.55, metric.AvgAccuracyScore, 1e-9)

	var buckets map[string]entity.ConfidenceBucket
	require.NoError(t, json.Unmarshal(metric.ByConfidence, &buckets))
	require.Len(t, buckets, 3)
	assert.Equal(t, 2, buckets["HIGH"].Total)
	assert.InDelta(t, 0.9, buckets["HIGH"].AvgAccuracy, 1e-9)
	assert.Equal(t, 1, buckets["MEDIUM"].Total)
	assert.Equal(t, 1, buckets["LOW"].Total)
}

func TestRecomputeDailyIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := &utils.FrozenClock{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	recRepo := newFakeRecommendationRepo(nil)
	recRepo.add(validatedRec("AAPL", entity.ConfidenceHigh, entity.StatusAccurate, 1.0))

	metricRepo := &fakeMetricRepo{}
	svc := NewMetricsService(logger.NewNop(), clock, recRepo, metricRepo)

	require.NoError(t, svc.RecomputeDaily(ctx))

	// A later run on the same day picks up the new validation and overwrites
	// the same row.
	recRepo.add(validatedRec("TSLA", entity.ConfidenceLow, entity.StatusInaccurate, 0.0))
	clock.T = clock.T.Add(6 * time.Hour)
	require.NoError(t, svc.RecomputeDaily(ctx))

	require.Len(t, metricRepo.metrics, 1)
	assert.Equal(t, 2, metricRepo.metrics[0].TotalRecommendations)
	assert.InDelta(t, 0.5, metricRepo.metrics[0].AvgAccuracyScore, 1e-9)
}

func TestGetOverall(t *testing.T) {
	ctx := context.Background()
	clock := &utils.FrozenClock{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	t.Run("no metrics yet", func(t *testing.T) {
		svc := NewMetricsService(logger.NewNop(), clock, newFakeRecommendationRepo(nil), &fakeMetricRepo{})
		_, err := svc.GetOverall(ctx)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("includes accuracy percentage", func(t *testing.T) {
		recRepo := newFakeRecommendationRepo(nil)
		recRepo.add(validatedRec("AAPL", entity.ConfidenceHigh, entity.StatusAccurate, 1.0))
		recRepo.add(validatedRec("TSLA", entity.ConfidenceLow, entity.StatusInaccurate, 0.2))

		metricRepo := &fakeMetricRepo{}
		svc := NewMetricsService(logger.NewNop(), clock, recRepo, metricRepo)
		require.NoError(t, svc.RecomputeDaily(ctx))

		resp, err := svc.GetOverall(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.TotalRecommendations)
		assert.InDelta(t, 50.0, resp.AccuracyPercentage, 1e-9)
		assert.InDelta(t, 0.6, resp.AvgAccuracyScore, 1e-9)
		require.Contains(t, resp.ByConfidence, "HIGH")
		assert.Equal(t, 1, resp.ByConfidence["HIGH"].Total)
	})
}

func TestGetTicker(t *testing.T) {
	ctx := context.Background()
	clock := &utils.FrozenClock{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	recRepo := newFakeRecommendationRepo(nil)
	recRepo.add(validatedRec("AAPL", entity.ConfidenceHigh, entity.StatusAccurate, 1.0))
	recRepo.add(validatedRec("AAPL", entity.ConfidenceMedium, entity.StatusPartiallyAccurate, 0.4))
	recRepo.add(validatedRec("TSLA", entity.ConfidenceHigh, entity.StatusAccurate, 0.8))
	recRepo.add(entity.Recommendation{Ticker: "AAPL", ValidationStatus: entity.StatusPending})

	svc := NewMetricsService(logger.NewNop(), clock, recRepo, &fakeMetricRepo{})

	metrics, err := svc.GetTicker(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.TotalRecommendations)
	assert.InDelta(t, 0.7, metrics.AvgAccuracyScore, 1e-9)
	require.NotNil(t, metrics.Best)
	assert.InDelta(t, 1.0, *metrics.Best.AccuracyScore, 1e-9)
	require.NotNil(t, metrics.Worst)
	assert.InDelta(t, 0.4, *metrics.Worst.AccuracyScore, 1e-9)

	empty, err := svc.GetTicker(ctx, "NVDA")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalRecommendations)
	assert.Nil(t, empty.Best)
}
