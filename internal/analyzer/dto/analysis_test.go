package dto

import (
	"testing"

	"stock-sentiment-bot/internal/entity"

	"github.com/stretchr/testify/assert"
)

func validResult() AnalysisResult {
	return AnalysisResult{
		Recommendation: entity.RecommendationBuy,
		Confidence:     entity.ConfidenceHigh,
		SentimentScore: 0.6,
		RiskLevel:      entity.RiskMedium,
		Summary:        "Strong quarter.",
		Reasoning:      "Earnings beat with raised guidance.",
		TimeHorizon:    entity.HorizonShortTerm,
	}
}

func TestAnalysisResultValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := validResult()
		assert.NoError(t, r.Validate())
	})

	t.Run("missing recommendation", func(t *testing.T) {
		r := validResult()
		r.Recommendation = ""
		assert.ErrorIs(t, r.Validate(), ErrMissingField)
	})

	t.Run("unknown recommendation", func(t *testing.T) {
		r := validResult()
		r.Recommendation = "WATCH"
		err := r.Validate()
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrMissingField)
	})

	t.Run("missing confidence", func(t *testing.T) {
		r := validResult()
		r.Confidence = ""
		assert.ErrorIs(t, r.Validate(), ErrMissingField)
	})

	t.Run("missing time horizon", func(t *testing.T) {
		r := validResult()
		r.TimeHorizon = ""
		assert.ErrorIs(t, r.Validate(), ErrMissingField)
	})

	t.Run("missing summary", func(t *testing.T) {
		r := validResult()
		r.Summary = ""
		assert.ErrorIs(t, r.Validate(), ErrMissingField)
	})

	t.Run("sentiment out of range", func(t *testing.T) {
		r := validResult()
		r.SentimentScore = 1.5
		assert.Error(t, r.Validate())
	})
}
