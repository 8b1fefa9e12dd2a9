package entity

import (
	"time"
)

// Article represents a deduplicated news item with usage tracking. An article
// is marked used exactly once, when it is selected as fresh input for a
// recommendation, and is never reset.
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ArticleHash string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"article_hash"`
	URL         *string   `gorm:"type:varchar(1024);uniqueIndex" json:"url,omitempty"`
	Ticker      string    `gorm:"type:varchar(10);index;not null" json:"ticker"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	Source      string    `gorm:"type:varchar(100)" json:"source"`
	PublishedAt time.Time `gorm:"index;not null" json:"published_at"`
	CollectedAt time.Time `gorm:"autoCreateTime" json:"collected_at"`
	Sentiment   *float64  `gorm:"column:sentiment_score" json:"sentiment_score,omitempty"`

	// Usage tracking. Stored as an integer rather than a boolean so a partial
	// migration from other engines cannot leave the column tri-state ambiguous.
	UsedInAnalysis         int        `gorm:"default:0;index" json:"used_in_analysis"`
	LastUsedDate           *time.Time `json:"last_used_date,omitempty"`
	UsedInRecommendationID *uint      `json:"used_in_recommendation_id,omitempty"`
}

// TableName specifies the table name for the Article model.
func (Article) TableName() string {
	return "articles"
}

// IsUsed reports whether the article has already fed a recommendation.
func (a *Article) IsUsed() bool {
	return a.UsedInAnalysis != 0
}
