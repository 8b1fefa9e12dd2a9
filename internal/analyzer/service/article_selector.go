package service

import (
	"context"
	"fmt"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/utils"
)

// ArticleSelectorService partitions stored articles into the recent context
// set and the fresh, never-used subset that drives a new recommendation, and
// owns the claim that marks fresh articles used.
type ArticleSelectorService interface {
	Select(ctx context.Context, ticker string, lookbackDays int, forceRefresh bool) (*dto.ArticleSelection, error)
	CommitRecommendation(ctx context.Context, rec *entity.Recommendation, selection *dto.ArticleSelection) error
}

// NewArticleSelectorService creates a new article selector.
func NewArticleSelectorService(cfg *config.Config, log *logger.Logger, clock utils.Clock,
	articleRepo repository.ArticleRepository, recommendationRepo repository.RecommendationRepository) ArticleSelectorService {
	return &articleSelectorService{
		cfg:                cfg,
		log:                log,
		clock:              clock,
		articleRepo:        articleRepo,
		recommendationRepo: recommendationRepo,
	}
}

type articleSelectorService struct {
	cfg                *config.Config
	log                *logger.Logger
	clock              utils.Clock
	articleRepo        repository.ArticleRepository
	recommendationRepo repository.RecommendationRepository
}

// Select produces the context/new partition for one ticker. The new set is
// derived from the context set, so it is a subset of it by construction. It is
// empty only if every context article was already consumed; in that case a
// forced re-analysis reuses the whole context set, otherwise ErrNoFreshInput
// is returned and the analysis collaborator must not be invoked. A forced
// selection over an empty window also fails with ErrNoFreshInput, before any
// collaborator is paid for.
func (s *articleSelectorService) Select(ctx context.Context, ticker string, lookbackDays int, forceRefresh bool) (*dto.ArticleSelection, error) {
	since := s.clock.Now().AddDate(0, 0, -lookbackDays)

	contextSet, err := s.articleRepo.FindInWindow(ctx, ticker, since, s.cfg.Analyzer.ContextArticleLimit, false)
	if err != nil {
		return nil, fmt.Errorf("load context articles: %w", err)
	}

	newSet := make([]entity.Article, 0, s.cfg.Analyzer.NewArticleLimit)
	for _, a := range contextSet {
		if a.UsedInAnalysis != 0 {
			continue
		}
		newSet = append(newSet, a)
		if len(newSet) == s.cfg.Analyzer.NewArticleLimit {
			break
		}
	}

	selection := &dto.ArticleSelection{Context: contextSet, New: newSet}

	if len(newSet) == 0 {
		if !forceRefresh || len(contextSet) == 0 {
			return nil, dto.ErrNoFreshInput
		}
		s.log.InfoContext(ctx, "No unused articles, forced re-analysis reuses full context",
			logger.StringField("ticker", ticker),
			logger.IntField("context_count", len(contextSet)))
		selection.New = contextSet
		selection.Forced = true
	}

	s.log.InfoContext(ctx, "Selected articles for analysis",
		logger.StringField("ticker", ticker),
		logger.IntField("context_count", len(selection.Context)),
		logger.IntField("new_count", len(selection.New)))

	return selection, nil
}

// CommitRecommendation persists the recommendation and marks its new set used
// in the same transaction, stamped with the current time and the new
// recommendation's identity. Articles a concurrent analysis claimed first are
// dropped from the recommendation; losing some rows is expected under
// contention, losing different rows than recorded is not and is logged loudly
// for the reconciliation sweep.
func (s *articleSelectorService) CommitRecommendation(ctx context.Context, rec *entity.Recommendation, selection *dto.ArticleSelection) error {
	articleIDs := make([]int64, 0, len(selection.New))
	for _, a := range selection.New {
		articleIDs = append(articleIDs, int64(a.ID))
	}

	now := s.clock.Now()
	claimed, err := s.recommendationRepo.CreateWithArticles(ctx, rec, articleIDs, now, selection.Forced)
	if err != nil {
		return err
	}

	if len(claimed) != len(articleIDs) {
		s.log.ErrorContext(ctx, "Recommendation committed but some articles were claimed concurrently",
			logger.Field("recommendation_id", rec.ID),
			logger.IntField("selected", len(articleIDs)),
			logger.IntField("claimed", len(claimed)),
			logger.ErrorField(dto.ErrInconsistentState))
	}

	return nil
}
