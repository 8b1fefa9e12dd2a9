package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/common"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/redis"
	"stock-sentiment-bot/pkg/utils"

	"github.com/lib/pq"
	gocache "github.com/patrickmn/go-cache"
)

// AnalyzerService runs the full pipeline for one ticker: collect news,
// deduplicate, select fresh articles, generate a recommendation and commit it
// together with the article usage claim.
type AnalyzerService interface {
	Analyze(ctx context.Context, ticker string, forceRefresh bool) (*dto.AnalysisResponse, error)
	CollectNews(ctx context.Context, ticker string) ([]entity.Article, error)
	CleanupOldArticles(ctx context.Context) (int64, error)
}

// NewAnalyzerService creates a new analyzer pipeline service.
func NewAnalyzerService(cfg *config.Config, log *logger.Logger, clock utils.Clock,
	redisClient *redis.Client,
	stockRepo repository.YahooFinanceRepository,
	newsRepo repository.NewsFeedRepository,
	aiRepo repository.AIRepository,
	articleRepo repository.ArticleRepository,
	deduplicator DeduplicatorService,
	selector ArticleSelectorService) AnalyzerService {
	return &analyzerService{
		cfg:          cfg,
		log:          log,
		clock:        clock,
		redisClient:  redisClient,
		stockRepo:    stockRepo,
		newsRepo:     newsRepo,
		aiRepo:       aiRepo,
		articleRepo:  articleRepo,
		deduplicator: deduplicator,
		selector:     selector,
		recentCache:  gocache.New(cfg.Analyzer.RecentAnalysisTTL, 10*cfg.Analyzer.RecentAnalysisTTL),
	}
}

type analyzerService struct {
	cfg          *config.Config
	log          *logger.Logger
	clock        utils.Clock
	redisClient  *redis.Client
	stockRepo    repository.YahooFinanceRepository
	newsRepo     repository.NewsFeedRepository
	aiRepo       repository.AIRepository
	articleRepo  repository.ArticleRepository
	deduplicator DeduplicatorService
	selector     ArticleSelectorService
	recentCache  *gocache.Cache
}

// Analyze runs the pipeline for one ticker. A recommendation produced within
// the recent-analysis TTL is replayed from cache unless forceRefresh is set.
// Concurrent analyses of the same ticker are serialized with a redis lock.
func (s *analyzerService) Analyze(ctx context.Context, ticker string, forceRefresh bool) (*dto.AnalysisResponse, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	if !forceRefresh {
		if cached, ok := s.recentCache.Get(ticker); ok {
			s.log.InfoContext(ctx, "Returning cached analysis", logger.StringField("ticker", ticker))
			return cached.(*dto.AnalysisResponse), nil
		}
	}

	lockKey := fmt.Sprintf(common.RedisKeyTickerAnalysisLock, ticker)
	acquired, err := s.redisClient.AcquireLock(ctx, lockKey, common.TickerAnalysisLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire analysis lock for %s: %w", ticker, err)
	}
	if !acquired {
		return nil, fmt.Errorf("analysis already in progress for %s", ticker)
	}
	defer func() {
		if err := s.redisClient.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log.WarnContext(ctx, "Failed to release analysis lock", logger.StringField("key", lockKey), logger.ErrorField(err))
		}
	}()

	stockData, err := s.stockRepo.Get(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch stock data for %s: %w", ticker, err)
	}

	if _, err := s.CollectNews(ctx, ticker); err != nil {
		// Stored articles may still satisfy the selection, so a feed outage
		// does not abort the analysis by itself.
		s.log.WarnContext(ctx, "News collection failed, continuing with stored articles",
			logger.StringField("ticker", ticker), logger.ErrorField(err))
	}

	selection, err := s.selector.Select(ctx, ticker, s.cfg.Analyzer.NewsLookbackDays, forceRefresh)
	if err != nil {
		return nil, err
	}

	priceHistory, err := s.stockRepo.GetPriceHistory(ctx, ticker, s.cfg.Analyzer.PriceHistoryDays)
	if err != nil {
		s.log.WarnContext(ctx, "Price history unavailable, analyzing without trends",
			logger.StringField("ticker", ticker), logger.ErrorField(err))
		priceHistory = nil
	}

	input := &dto.AnalysisInput{
		Ticker:          ticker,
		StockData:       stockData,
		ContextArticles: selection.Context,
		NewArticles:     selection.New,
		PriceHistory:    priceHistory,
	}

	result, err := s.aiRepo.GenerateRecommendation(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("generate recommendation for %s: %w", ticker, err)
	}

	rec, err := s.buildRecommendation(ticker, stockData, result)
	if err != nil {
		return nil, err
	}

	if err := s.selector.CommitRecommendation(ctx, rec, selection); err != nil {
		return nil, fmt.Errorf("commit recommendation for %s: %w", ticker, err)
	}

	s.log.InfoContext(ctx, "Analysis complete",
		logger.StringField("ticker", ticker),
		logger.Field("recommendation_id", rec.ID),
		logger.StringField("recommendation", string(rec.Recommendation)),
		logger.StringField("confidence", string(rec.Confidence)),
		logger.IntField("articles_used", len(rec.ArticleIDs)))

	resp := buildAnalysisResponse(rec, result)
	s.recentCache.Set(ticker, resp, gocache.DefaultExpiration)
	return resp, nil
}

// CollectNews fetches candidate articles from the feed, deduplicates them and
// stores the survivors.
func (s *analyzerService) CollectNews(ctx context.Context, ticker string) ([]entity.Article, error) {
	candidates, err := s.newsRepo.FetchArticles(ctx, ticker, s.cfg.Analyzer.NewsLookbackDays)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return s.deduplicator.SaveArticles(ctx, candidates, ticker)
}

// CleanupOldArticles deletes unused articles older than the retention window.
func (s *analyzerService) CleanupOldArticles(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.Analyzer.ArticleRetentionDays)
	deleted, err := s.articleRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "Cleaned up old articles", logger.Field("deleted", deleted))
	return deleted, nil
}

func (s *analyzerService) buildRecommendation(ticker string, stockData *dto.StockData, result *dto.AnalysisResult) (*entity.Recommendation, error) {
	rawAnalysis, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode raw analysis: %w", err)
	}

	return &entity.Recommendation{
		Ticker:           ticker,
		CompanyName:      stockData.CompanyName,
		AnalysisDate:     s.clock.Now(),
		Recommendation:   result.Recommendation,
		Confidence:       result.Confidence,
		Sentiment:        utils.ToPointer(result.SentimentScore),
		RiskLevel:        result.RiskLevel,
		Summary:          result.Summary,
		Reasoning:        result.Reasoning,
		PriceAtAnalysis:  stockData.CurrentPrice,
		PriceTarget:      result.PriceTarget,
		TimeHorizon:      result.TimeHorizon,
		RawAnalysis:      rawAnalysis,
		Warnings:         pq.StringArray(result.Warnings),
		ValidationStatus: entity.StatusPending,
	}, nil
}

func buildAnalysisResponse(rec *entity.Recommendation, result *dto.AnalysisResult) *dto.AnalysisResponse {
	return &dto.AnalysisResponse{
		RecommendationID:     rec.ID,
		Ticker:               rec.Ticker,
		CompanyName:          rec.CompanyName,
		AnalysisDate:         rec.AnalysisDate,
		Recommendation:       rec.Recommendation,
		Confidence:           rec.Confidence,
		SentimentScore:       result.SentimentScore,
		RiskLevel:            rec.RiskLevel,
		VolatilityAssessment: result.VolatilityAssessment,
		KeyFactors:           result.KeyFactors,
		Summary:              rec.Summary,
		Reasoning:            rec.Reasoning,
		PriceTarget:          rec.PriceTarget,
		TimeHorizon:          rec.TimeHorizon,
		Warnings:             result.Warnings,
	}
}
