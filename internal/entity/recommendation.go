package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// RecommendationType is the trading action of a recommendation.
type RecommendationType string

const (
	RecommendationBuy   RecommendationType = "BUY"
	RecommendationSell  RecommendationType = "SELL"
	RecommendationShort RecommendationType = "SHORT"
	RecommendationHold  RecommendationType = "HOLD"
)

// ConfidenceLevel is the model's confidence in a recommendation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// RiskLevel is the assessed risk of acting on a recommendation.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
)

// TimeHorizon is the holding period a recommendation targets. It determines
// how long validation waits before judging the outcome.
type TimeHorizon string

const (
	HorizonShortTerm  TimeHorizon = "SHORT_TERM"  // 3 days
	HorizonMediumTerm TimeHorizon = "MEDIUM_TERM" // 7 days
	HorizonLongTerm   TimeHorizon = "LONG_TERM"   // 30 days
)

// ValidationStatus is the state of a recommendation in the validation state
// machine. PENDING transitions exactly once to one of the terminal states.
type ValidationStatus string

const (
	StatusPending           ValidationStatus = "PENDING"
	StatusAccurate          ValidationStatus = "ACCURATE"
	StatusPartiallyAccurate ValidationStatus = "PARTIALLY_ACCURATE"
	StatusInaccurate        ValidationStatus = "INACCURATE"
)

// IsTerminal reports whether the status is a terminal validation outcome.
func (s ValidationStatus) IsTerminal() bool {
	return s == StatusAccurate || s == StatusPartiallyAccurate || s == StatusInaccurate
}

// Recommendation represents one trading judgment for a ticker, created from a
// set of fresh articles and later scored against the realized price move.
type Recommendation struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	Ticker          string             `gorm:"type:varchar(10);index;not null" json:"ticker"`
	CompanyName     string             `gorm:"type:varchar(255)" json:"company_name"`
	AnalysisDate    time.Time          `gorm:"autoCreateTime;index" json:"analysis_date"`
	Recommendation  RecommendationType `gorm:"type:varchar(20);not null" json:"recommendation"`
	Confidence      ConfidenceLevel    `gorm:"type:varchar(20);not null" json:"confidence"`
	Sentiment       *float64           `gorm:"column:sentiment_score" json:"sentiment_score,omitempty"`
	RiskLevel       RiskLevel          `gorm:"type:varchar(20)" json:"risk_level"`
	Summary         string             `gorm:"type:text" json:"summary"`
	Reasoning       string             `gorm:"type:text" json:"reasoning"`
	PriceAtAnalysis float64            `json:"price_at_analysis"`
	PriceTarget     *float64           `json:"price_target,omitempty"`
	TimeHorizon     TimeHorizon        `gorm:"type:varchar(20)" json:"time_horizon"`
	RawAnalysis     datatypes.JSON     `gorm:"type:jsonb" json:"raw_analysis"`
	ArticleIDs      pq.Int64Array      `gorm:"type:bigint[]" json:"article_ids"`
	Warnings        pq.StringArray     `gorm:"type:text[]" json:"warnings"`

	// Validation fields, write-once when the state machine fires.
	ValidationStatus   ValidationStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"validation_status"`
	ValidationDate     *time.Time       `json:"validation_date,omitempty"`
	PriceAtValidation  *float64         `json:"price_at_validation,omitempty"`
	PriceChangePercent *float64         `json:"price_change_percent,omitempty"`
	AccuracyScore      *float64         `json:"accuracy_score,omitempty"`
	ActualOutcome      *string          `gorm:"type:text" json:"actual_outcome,omitempty"`
}

// TableName specifies the table name for the Recommendation model.
func (Recommendation) TableName() string {
	return "recommendations"
}
