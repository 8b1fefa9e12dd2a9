package repository

import (
	"context"
	"time"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository defines the interface for interacting with persisted
// articles.
type ArticleRepository interface {
	SaveBatch(ctx context.Context, articles []entity.Article) ([]entity.Article, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	FindRecentByTicker(ctx context.Context, ticker string, limit int) ([]entity.Article, error)
	FindInWindow(ctx context.Context, ticker string, since time.Time, limit int, unusedOnly bool) ([]entity.Article, error)
	FindByTicker(ctx context.Context, ticker string, limit int, unusedOnly bool) ([]entity.Article, error)
	Stats(ctx context.Context, ticker string) (*dto.ArticleStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewArticleRepository creates a new GORM-based article repository.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

type articleRepository struct {
	db *gorm.DB
}

// SaveBatch inserts the given articles in a single transaction. Rows that
// collide with an existing fingerprint or URL are skipped (the uniqueness
// constraints double as the concurrency safety net); any other failure rolls
// the whole batch back. Returns the articles that were actually inserted.
func (r *articleRepository) SaveBatch(ctx context.Context, articles []entity.Article) ([]entity.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&articles).Error
	})
	if err != nil {
		return nil, err
	}

	// Conflict-skipped rows keep a zero ID.
	saved := make([]entity.Article, 0, len(articles))
	for _, a := range articles {
		if a.ID != 0 {
			saved = append(saved, a)
		}
	}
	return saved, nil
}

// ExistsByHash reports whether an article with this fingerprint is stored.
func (r *articleRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Article{}).
		Where("article_hash = ?", hash).
		Count(&count).Error
	return count > 0, err
}

// ExistsByURL reports whether an article with this URL is stored. An empty URL
// never matches.
func (r *articleRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Article{}).
		Where("url = ?", url).
		Count(&count).Error
	return count > 0, err
}

// FindRecentByTicker returns the most recently published articles for a
// ticker, bounding the cost of fuzzy title comparison.
func (r *articleRepository) FindRecentByTicker(ctx context.Context, ticker string, limit int) ([]entity.Article, error) {
	var articles []entity.Article
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("published_at DESC").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// FindInWindow returns articles for a ticker published at or after since, most
// recent first.
func (r *articleRepository) FindInWindow(ctx context.Context, ticker string, since time.Time, limit int, unusedOnly bool) ([]entity.Article, error) {
	q := r.db.WithContext(ctx).
		Where("ticker = ? AND published_at >= ?", ticker, since)
	if unusedOnly {
		q = q.Where("used_in_analysis = 0")
	}

	var articles []entity.Article
	err := q.Order("published_at DESC").Limit(limit).Find(&articles).Error
	return articles, err
}

// FindByTicker returns articles for a ticker regardless of publication window.
func (r *articleRepository) FindByTicker(ctx context.Context, ticker string, limit int, unusedOnly bool) ([]entity.Article, error) {
	q := r.db.WithContext(ctx).Where("ticker = ?", ticker)
	if unusedOnly {
		q = q.Where("used_in_analysis = 0")
	}

	var articles []entity.Article
	err := q.Order("published_at DESC").Limit(limit).Find(&articles).Error
	return articles, err
}

// Stats aggregates article usage counters for a ticker.
func (r *articleRepository) Stats(ctx context.Context, ticker string) (*dto.ArticleStats, error) {
	stats := &dto.ArticleStats{Ticker: ticker}

	base := r.db.WithContext(ctx).Model(&entity.Article{}).Where("ticker = ?", ticker)
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalArticles).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("used_in_analysis = 1").Count(&stats.UsedArticles).Error; err != nil {
		return nil, err
	}
	stats.UnusedArticles = stats.TotalArticles - stats.UsedArticles
	stats.ReadyForAnalysis = stats.UnusedArticles > 0

	var lastUsed entity.Article
	err := r.db.WithContext(ctx).
		Where("ticker = ? AND used_in_analysis = 1", ticker).
		Order("last_used_date DESC").
		First(&lastUsed).Error
	if err == nil {
		stats.LastUsedDate = lastUsed.LastUsedDate
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var newestUnused entity.Article
	err = r.db.WithContext(ctx).
		Where("ticker = ? AND used_in_analysis = 0", ticker).
		Order("published_at DESC").
		First(&newestUnused).Error
	if err == nil {
		stats.NewestUnusedPublished = &newestUnused.PublishedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return stats, nil
}

// DeleteOlderThan removes articles published before the cutoff and returns the
// number of rows deleted.
func (r *articleRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("published_at < ?", cutoff).
		Delete(&entity.Article{})
	return result.RowsAffected, result.Error
}
