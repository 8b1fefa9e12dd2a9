package service

import (
	"context"
	"fmt"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/pkg/logger"

	"github.com/robfig/cron/v3"
)

// SchedulerService owns the periodic jobs of the analysis service: the daily
// validation sweep and the article retention cleanup.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}

// NewSchedulerService creates a new scheduler.
func NewSchedulerService(cfg *config.Config, log *logger.Logger,
	validator ValidatorService, analyzer AnalyzerService) SchedulerService {
	return &schedulerService{
		cfg:       cfg,
		log:       log,
		validator: validator,
		analyzer:  analyzer,
		cron:      cron.New(),
	}
}

type schedulerService struct {
	cfg       *config.Config
	log       *logger.Logger
	validator ValidatorService
	analyzer  AnalyzerService
	cron      *cron.Cron
}

// Start registers the cron jobs and starts the scheduler. Jobs carry the
// given context so a service shutdown also cancels in-flight runs.
func (s *schedulerService) Start(ctx context.Context) error {
	validationSpec := fmt.Sprintf("0 %d * * *", s.cfg.Analyzer.RunValidationHour)
	if _, err := s.cron.AddFunc(validationSpec, func() { s.runValidation(ctx) }); err != nil {
		return fmt.Errorf("register validation job: %w", err)
	}

	if _, err := s.cron.AddFunc("30 0 * * *", func() { s.runCleanup(ctx) }); err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("validation_schedule", validationSpec),
		logger.StringField("cleanup_schedule", "30 0 * * *"))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) runValidation(ctx context.Context) {
	s.log.InfoContext(ctx, "Running scheduled validation sweep")
	count, err := s.validator.ValidatePending(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Scheduled validation sweep failed", logger.ErrorField(err))
		return
	}
	s.log.InfoContext(ctx, "Scheduled validation sweep finished", logger.IntField("validated", count))
}

func (s *schedulerService) runCleanup(ctx context.Context) {
	deleted, err := s.analyzer.CleanupOldArticles(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Scheduled article cleanup failed", logger.ErrorField(err))
		return
	}
	s.log.InfoContext(ctx, "Scheduled article cleanup finished", logger.Field("deleted", deleted))
}
