package repository

import (
	"context"

	"stock-sentiment-bot/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidationMetricRepository defines the interface for daily validation
// metrics.
type ValidationMetricRepository interface {
	Upsert(ctx context.Context, metric *entity.ValidationMetric) error
	FindLatest(ctx context.Context) (*entity.ValidationMetric, error)
}

// NewValidationMetricRepository creates a new GORM-based metric repository.
func NewValidationMetricRepository(db *gorm.DB) ValidationMetricRepository {
	return &validationMetricRepository{db: db}
}

type validationMetricRepository struct {
	db *gorm.DB
}

// Upsert inserts the metric row for its date, or updates it in place when a
// row for that date already exists.
func (r *validationMetricRepository) Upsert(ctx context.Context, metric *entity.ValidationMetric) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_recommendations",
			"accurate_count",
			"partially_accurate_count",
			"inaccurate_count",
			"avg_accuracy_score",
			"by_confidence",
		}),
	}).Create(metric).Error
}

// FindLatest retrieves the most recently created metric row.
func (r *validationMetricRepository) FindLatest(ctx context.Context) (*entity.ValidationMetric, error) {
	var metric entity.ValidationMetric
	err := r.db.WithContext(ctx).
		Order("date DESC").
		First(&metric).Error
	if err != nil {
		return nil, err
	}
	return &metric, nil
}
