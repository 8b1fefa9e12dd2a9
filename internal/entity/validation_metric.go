package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ValidationMetric is one daily aggregate over all validated recommendations.
// Rows are keyed by calendar date and upserted, so recomputing within the same
// day is idempotent.
type ValidationMetric struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Date                   time.Time      `gorm:"uniqueIndex;not null" json:"date"`
	TotalRecommendations   int            `json:"total_recommendations"`
	AccurateCount          int            `json:"accurate_count"`
	PartiallyAccurateCount int            `json:"partially_accurate_count"`
	InaccurateCount        int            `json:"inaccurate_count"`
	AvgAccuracyScore       float64        `json:"avg_accuracy_score"`
	ByConfidence           datatypes.JSON `gorm:"type:jsonb" json:"recommendations_by_confidence"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the ValidationMetric model.
func (ValidationMetric) TableName() string {
	return "validation_metrics"
}

// ConfidenceBucket is the per-confidence-tier slice of a daily metric.
type ConfidenceBucket struct {
	Total       int     `json:"total"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}
