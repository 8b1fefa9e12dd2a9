package repository

import (
	"context"
	"fmt"
	"time"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/entity"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// RecommendationRepository defines the interface for interacting with
// recommendations.
type RecommendationRepository interface {
	CreateWithArticles(ctx context.Context, rec *entity.Recommendation, articleIDs []int64, now time.Time, forced bool) ([]int64, error)
	FindByID(ctx context.Context, id uint) (*entity.Recommendation, error)
	FindLatestByTicker(ctx context.Context, ticker string) (*entity.Recommendation, error)
	FindAll(ctx context.Context, ticker string, status entity.ValidationStatus, limit int) ([]entity.Recommendation, error)
	FindPending(ctx context.Context) ([]entity.Recommendation, error)
	FindValidated(ctx context.Context, ticker string) ([]entity.Recommendation, error)
	SaveValidation(ctx context.Context, rec *entity.Recommendation) error
}

// NewRecommendationRepository creates a new GORM-based recommendation
// repository.
func NewRecommendationRepository(db *gorm.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

type recommendationRepository struct {
	db *gorm.DB
}

// CreateWithArticles persists a recommendation and claims its source articles
// in one transaction. The claim is conditional: only rows still unused flip to
// used, so a concurrent analysis that got there first simply wins those rows.
// The recommendation's article list is narrowed to the ids actually claimed;
// if nothing could be claimed the transaction aborts with ErrNoFreshInput.
// A forced re-analysis deliberately reuses consumed articles, so its claim
// re-stamps them unconditionally instead.
func (r *recommendationRepository) CreateWithArticles(ctx context.Context, rec *entity.Recommendation, articleIDs []int64, now time.Time, forced bool) ([]int64, error) {
	var claimed []int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec.ArticleIDs = pq.Int64Array(articleIDs)
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}

		claimQuery := `UPDATE articles
			 SET used_in_analysis = 1, last_used_date = ?, used_in_recommendation_id = ?
			 WHERE id IN ? AND used_in_analysis = 0
			 RETURNING id`
		if forced {
			claimQuery = `UPDATE articles
			 SET used_in_analysis = 1, last_used_date = ?, used_in_recommendation_id = ?
			 WHERE id IN ?
			 RETURNING id`
		}

		err := tx.Raw(claimQuery, now, rec.ID, articleIDs).Scan(&claimed).Error
		if err != nil {
			return fmt.Errorf("claim articles: %w", err)
		}

		if len(claimed) == 0 {
			return dto.ErrNoFreshInput
		}

		if len(claimed) != len(articleIDs) {
			rec.ArticleIDs = pq.Int64Array(claimed)
			if err := tx.Model(rec).Update("article_ids", rec.ArticleIDs).Error; err != nil {
				return fmt.Errorf("narrow article ids: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// FindByID retrieves a recommendation by its ID.
func (r *recommendationRepository) FindByID(ctx context.Context, id uint) (*entity.Recommendation, error) {
	var rec entity.Recommendation
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindLatestByTicker retrieves the most recent recommendation for a ticker.
func (r *recommendationRepository) FindLatestByTicker(ctx context.Context, ticker string) (*entity.Recommendation, error) {
	var rec entity.Recommendation
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("analysis_date DESC").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAll retrieves recommendations with optional ticker and status filters.
func (r *recommendationRepository) FindAll(ctx context.Context, ticker string, status entity.ValidationStatus, limit int) ([]entity.Recommendation, error) {
	q := r.db.WithContext(ctx).Model(&entity.Recommendation{})
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if status != "" {
		q = q.Where("validation_status = ?", status)
	}

	var recs []entity.Recommendation
	err := q.Order("analysis_date DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

// FindPending retrieves all recommendations still awaiting validation.
func (r *recommendationRepository) FindPending(ctx context.Context) ([]entity.Recommendation, error) {
	var recs []entity.Recommendation
	err := r.db.WithContext(ctx).
		Where("validation_status = ?", entity.StatusPending).
		Order("analysis_date ASC").
		Find(&recs).Error
	return recs, err
}

// FindValidated retrieves all recommendations that reached a terminal status,
// optionally restricted to one ticker.
func (r *recommendationRepository) FindValidated(ctx context.Context, ticker string) ([]entity.Recommendation, error) {
	q := r.db.WithContext(ctx).
		Where("validation_status <> ?", entity.StatusPending)
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}

	var recs []entity.Recommendation
	err := q.Order("analysis_date ASC").Find(&recs).Error
	return recs, err
}

// SaveValidation persists the validation fields of a recommendation in a
// single update.
func (r *recommendationRepository) SaveValidation(ctx context.Context, rec *entity.Recommendation) error {
	return r.db.WithContext(ctx).Model(rec).Updates(map[string]interface{}{
		"validation_status":    rec.ValidationStatus,
		"validation_date":      rec.ValidationDate,
		"price_at_validation":  rec.PriceAtValidation,
		"price_change_percent": rec.PriceChangePercent,
		"accuracy_score":       rec.AccuracyScore,
		"actual_outcome":       rec.ActualOutcome,
	}).Error
}
