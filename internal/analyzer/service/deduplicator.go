package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/analyzer/repository"
	"stock-sentiment-bot/internal/entity"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/utils"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// fingerprintContentLen bounds how much of the body participates in the
// fingerprint. Feeds often truncate or re-flow long bodies between deliveries;
// the head is stable.
const fingerprintContentLen = 500

// DeduplicatorService decides whether incoming articles are materially the
// same as ones already stored, and persists the survivors.
type DeduplicatorService interface {
	GenerateFingerprint(title, content string) string
	TitleSimilarity(a, b string) float64
	IsDuplicate(ctx context.Context, candidate dto.NewsArticle, ticker string, checkFuzzy bool) (bool, error)
	FilterDuplicates(ctx context.Context, candidates []dto.NewsArticle, ticker string) ([]dto.NewsArticle, error)
	SaveArticles(ctx context.Context, candidates []dto.NewsArticle, ticker string) ([]entity.Article, error)
}

// NewDeduplicatorService creates a new deduplicator.
func NewDeduplicatorService(cfg *config.Config, log *logger.Logger, articleRepo repository.ArticleRepository) DeduplicatorService {
	return &deduplicatorService{
		cfg:         cfg,
		log:         log,
		articleRepo: articleRepo,
		levenshtein: metrics.NewLevenshtein(),
	}
}

type deduplicatorService struct {
	cfg         *config.Config
	log         *logger.Logger
	articleRepo repository.ArticleRepository
	levenshtein *metrics.Levenshtein
}

// GenerateFingerprint computes the article identity hash over the normalized
// title and the head of the normalized body. The same hash backs the store's
// uniqueness constraint, so fingerprint equality is enforced twice.
func (s *deduplicatorService) GenerateFingerprint(title, content string) string {
	normalizedTitle := normalizeText(title)
	normalizedContent := utils.TruncateRunes(normalizeText(content), fingerprintContentLen)

	sum := sha256.Sum256([]byte(normalizedTitle + "|" + normalizedContent))
	return hex.EncodeToString(sum[:])
}

// TitleSimilarity returns the normalized edit-distance ratio between two
// titles in [0,1]. Symmetric, deterministic, 1.0 for identical input.
func (s *deduplicatorService) TitleSimilarity(a, b string) float64 {
	return strutil.Similarity(normalizeText(a), normalizeText(b), s.levenshtein)
}

// IsDuplicate runs the three duplicate checks in cost order: fingerprint, URL,
// then (optionally) fuzzy title matching against the most recent stored
// articles for the ticker. Any hit classifies the candidate as duplicate.
func (s *deduplicatorService) IsDuplicate(ctx context.Context, candidate dto.NewsArticle, ticker string, checkFuzzy bool) (bool, error) {
	hash := s.GenerateFingerprint(candidate.Title, candidate.Content)
	exists, err := s.articleRepo.ExistsByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	if exists {
		s.log.DebugContext(ctx, "Duplicate found by hash", logger.StringField("title", utils.TruncateRunes(candidate.Title, 50)))
		return true, nil
	}

	if candidate.URL != "" {
		exists, err := s.articleRepo.ExistsByURL(ctx, candidate.URL)
		if err != nil {
			return false, err
		}
		if exists {
			s.log.DebugContext(ctx, "Duplicate found by URL", logger.StringField("url", candidate.URL))
			return true, nil
		}
	}

	if checkFuzzy {
		recent, err := s.articleRepo.FindRecentByTicker(ctx, ticker, s.cfg.Analyzer.FuzzyWindowSize)
		if err != nil {
			return false, err
		}
		for _, stored := range recent {
			if s.TitleSimilarity(candidate.Title, stored.Title) >= s.cfg.Analyzer.SimilarityThreshold {
				s.log.DebugContext(ctx, "Duplicate found by fuzzy title match",
					logger.StringField("title", utils.TruncateRunes(candidate.Title, 50)),
					logger.StringField("matched", utils.TruncateRunes(stored.Title, 50)))
				return true, nil
			}
		}
	}

	return false, nil
}

// FilterDuplicates removes duplicates from a candidate batch. Fingerprints
// seen earlier in the same batch suppress later members before the store is
// consulted at all.
func (s *deduplicatorService) FilterDuplicates(ctx context.Context, candidates []dto.NewsArticle, ticker string) ([]dto.NewsArticle, error) {
	seenHashes := make(map[string]struct{}, len(candidates))
	unique := make([]dto.NewsArticle, 0, len(candidates))

	for _, candidate := range candidates {
		hash := s.GenerateFingerprint(candidate.Title, candidate.Content)
		if _, seen := seenHashes[hash]; seen {
			continue
		}

		dup, err := s.IsDuplicate(ctx, candidate, ticker, true)
		if err != nil {
			return nil, err
		}
		if dup {
			continue
		}

		unique = append(unique, candidate)
		seenHashes[hash] = struct{}{}
	}

	s.log.InfoContext(ctx, "Filtered duplicate articles",
		logger.StringField("ticker", ticker),
		logger.IntField("filtered", len(candidates)-len(unique)),
		logger.IntField("unique", len(unique)))

	return unique, nil
}

// SaveArticles filters a candidate batch and persists the survivors in one
// transaction. Returns the articles actually inserted.
func (s *deduplicatorService) SaveArticles(ctx context.Context, candidates []dto.NewsArticle, ticker string) ([]entity.Article, error) {
	unique, err := s.FilterDuplicates(ctx, candidates, ticker)
	if err != nil {
		return nil, err
	}

	articles := make([]entity.Article, 0, len(unique))
	for _, candidate := range unique {
		article := entity.Article{
			ArticleHash: s.GenerateFingerprint(candidate.Title, candidate.Content),
			Ticker:      strings.ToUpper(ticker),
			Title:       candidate.Title,
			Content:     candidate.Content,
			Source:      candidate.Source,
			PublishedAt: candidate.PublishedAt,
		}
		if candidate.URL != "" {
			url := candidate.URL
			article.URL = &url
		}
		articles = append(articles, article)
	}

	saved, err := s.articleRepo.SaveBatch(ctx, articles)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to save articles", logger.StringField("ticker", ticker), logger.ErrorField(err))
		return nil, err
	}

	s.log.InfoContext(ctx, "Saved new articles",
		logger.StringField("ticker", ticker),
		logger.IntField("count", len(saved)))

	return saved, nil
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
