package service

import (
	"context"
	"fmt"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/telegram"
	"stock-sentiment-bot/pkg/utils"
)

// validationWindows maps a time horizon to the number of days that must pass
// before the recommendation is judged against the realized price.
var validationWindows = map[entity.TimeHorizon]int{
	entity.HorizonShortTerm:  3,
	entity.HorizonMediumTerm: 7,
	entity.HorizonLongTerm:   30,
}

const defaultValidationWindowDays = 7

// ValidatorService drives the recommendation validation state machine:
// PENDING transitions exactly once to ACCURATE, PARTIALLY_ACCURATE or
// INACCURATE after the horizon's waiting window has elapsed.
type ValidatorService interface {
	ValidateRecommendation(ctx context.Context, rec *entity.Recommendation) error
	ValidatePending(ctx context.Context) (int, error)
	IsDue(rec *entity.Recommendation) bool
	CalculateAccuracyScore(recType entity.RecommendationType, priceChangePercent float64) float64
	DetermineStatus(accuracyScore float64) entity.ValidationStatus
}

// NewValidatorService creates a new validator.
func NewValidatorService(log *logger.Logger, clock utils.Clock,
	recommendationRepo repository.RecommendationRepository,
	priceRepo repository.YahooFinanceRepository,
	metricsSvc MetricsService,
	notifier telegram.Notifier) ValidatorService {
	return &validatorService{
		log:                log,
		clock:              clock,
		recommendationRepo: recommendationRepo,
		priceRepo:          priceRepo,
		metricsSvc:         metricsSvc,
		notifier:           notifier,
	}
}

type validatorService struct {
	log                *logger.Logger
	clock              utils.Clock
	recommendationRepo repository.RecommendationRepository
	priceRepo          repository.YahooFinanceRepository
	metricsSvc         MetricsService
	notifier           telegram.Notifier
}

// IsDue reports whether the recommendation's waiting window has elapsed. The
// boundary is inclusive: a SHORT_TERM recommendation dated exactly three days
// ago is eligible.
func (s *validatorService) IsDue(rec *entity.Recommendation) bool {
	windowDays, ok := validationWindows[rec.TimeHorizon]
	if !ok {
		windowDays = defaultValidationWindowDays
	}
	dueDate := rec.AnalysisDate.AddDate(0, 0, windowDays)
	return !s.clock.Now().Before(dueDate)
}

// CalculateAccuracyScore maps recommendation class and realized percent price
// change onto [0,1]. Unknown classes score 0.5.
func (s *validatorService) CalculateAccuracyScore(recType entity.RecommendationType, priceChangePercent float64) float64 {
	switch recType {
	case entity.RecommendationBuy:
		switch {
		case priceChangePercent > 5:
			return 1.0
		case priceChangePercent > 2:
			return 0.8
		case priceChangePercent > 0:
			return 0.6
		case priceChangePercent > -2:
			return 0.4
		case priceChangePercent > -5:
			return 0.2
		default:
			return 0.0
		}

	case entity.RecommendationSell, entity.RecommendationShort:
		switch {
		case priceChangePercent < -5:
			return 1.0
		case priceChangePercent < -2:
			return 0.8
		case priceChangePercent < 0:
			return 0.6
		case priceChangePercent < 2:
			return 0.4
		case priceChangePercent < 5:
			return 0.2
		default:
			return 0.0
		}

	case entity.RecommendationHold:
		absChange := priceChangePercent
		if absChange < 0 {
			absChange = -absChange
		}
		switch {
		case absChange < 2:
			return 1.0
		case absChange < 5:
			return 0.7
		case absChange < 10:
			return 0.4
		default:
			return 0.2
		}
	}

	return 0.5
}

// DetermineStatus maps an accuracy score onto the terminal status.
func (s *validatorService) DetermineStatus(accuracyScore float64) entity.ValidationStatus {
	switch {
	case accuracyScore >= 0.7:
		return entity.StatusAccurate
	case accuracyScore >= 0.4:
		return entity.StatusPartiallyAccurate
	default:
		return entity.StatusInaccurate
	}
}

// ValidateRecommendation judges a single recommendation as one all-or-nothing
// unit. A price fetch failure leaves it PENDING with no side effects.
func (s *validatorService) ValidateRecommendation(ctx context.Context, rec *entity.Recommendation) error {
	if rec.ValidationStatus.IsTerminal() {
		return fmt.Errorf("%w: recommendation %d is %s", dto.ErrAlreadyValidated, rec.ID, rec.ValidationStatus)
	}
	if rec.PriceAtAnalysis == 0 {
		return fmt.Errorf("recommendation %d has no recorded analysis price", rec.ID)
	}

	stockData, err := s.priceRepo.Get(ctx, rec.Ticker)
	if err != nil {
		return fmt.Errorf("fetch current price for %s: %w", rec.Ticker, err)
	}

	currentPrice := stockData.CurrentPrice
	priceChangePercent := (currentPrice - rec.PriceAtAnalysis) / rec.PriceAtAnalysis * 100

	accuracyScore := s.CalculateAccuracyScore(rec.Recommendation, priceChangePercent)
	status := s.DetermineStatus(accuracyScore)
	outcome := s.buildOutcomeSummary(rec, priceChangePercent, accuracyScore)
	now := s.clock.Now()

	rec.ValidationStatus = status
	rec.ValidationDate = &now
	rec.PriceAtValidation = &currentPrice
	rec.PriceChangePercent = &priceChangePercent
	rec.AccuracyScore = &accuracyScore
	rec.ActualOutcome = &outcome

	if err := s.recommendationRepo.SaveValidation(ctx, rec); err != nil {
		return fmt.Errorf("persist validation of recommendation %d: %w", rec.ID, err)
	}

	s.log.InfoContext(ctx, "Validated recommendation",
		logger.Field("recommendation_id", rec.ID),
		logger.StringField("ticker", rec.Ticker),
		logger.StringField("status", string(status)),
		logger.Float64Field("accuracy_score", accuracyScore))

	return nil
}

// ValidatePending scans all pending recommendations, validates the ones whose
// window has elapsed and returns the count transitioned to a terminal status.
// One failed item never aborts the batch. Metrics recomputation runs strictly
// after every per-item update; its failure is reported as a batch-level
// warning without undoing any validation.
func (s *validatorService) ValidatePending(ctx context.Context) (int, error) {
	pending, err := s.recommendationRepo.FindPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending recommendations: %w", err)
	}

	s.log.InfoContext(ctx, "Found pending recommendations", logger.IntField("count", len(pending)))

	summary := telegram.ValidationSummary{}
	for i := range pending {
		rec := &pending[i]
		if !s.IsDue(rec) {
			continue
		}

		if err := s.ValidateRecommendation(ctx, rec); err != nil {
			summary.FailedCount++
			s.log.WarnContext(ctx, "Failed to validate recommendation",
				logger.Field("recommendation_id", rec.ID),
				logger.StringField("ticker", rec.Ticker),
				logger.ErrorField(err))
			continue
		}

		summary.ValidatedCount++
		switch rec.ValidationStatus {
		case entity.StatusAccurate:
			summary.AccurateCount++
		case entity.StatusPartiallyAccurate:
			summary.PartialCount++
		case entity.StatusInaccurate:
			summary.InaccurateCount++
		}
	}

	s.log.InfoContext(ctx, "Validation batch complete", logger.IntField("validated", summary.ValidatedCount))

	if summary.ValidatedCount == 0 {
		return 0, nil
	}

	if err := s.notifier.SendMessage(telegram.FormatValidationSummary(summary)); err != nil {
		s.log.WarnContext(ctx, "Failed to send validation summary notification", logger.ErrorField(err))
	}

	if err := s.metricsSvc.RecomputeDaily(ctx); err != nil {
		return summary.ValidatedCount, fmt.Errorf("recompute daily metrics after validation batch: %w", err)
	}

	return summary.ValidatedCount, nil
}

func (s *validatorService) buildOutcomeSummary(rec *entity.Recommendation, priceChangePercent, accuracyScore float64) string {
	verdict := "inaccurate"
	switch {
	case accuracyScore >= 0.7:
		verdict = "accurate"
	case accuracyScore >= 0.4:
		verdict = "partially accurate"
	}

	return fmt.Sprintf("%s recommendation with %s confidence. Stock price changed %+.2f%% over %s. Recommendation was %s.",
		rec.Recommendation, rec.Confidence, priceChangePercent, rec.TimeHorizon, verdict)
}
