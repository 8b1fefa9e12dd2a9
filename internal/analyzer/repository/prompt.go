package repository

import (
	"fmt"
	"math"
	"strings"
	"time"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/pkg/utils"
)

const (
	promptMaxArticles       = 15
	promptArticleExcerptLen = 300
)

// BuildAnalysisPrompt renders the full analysis prompt. Articles from the new
// set are marked as breaking news so the model weights its recommendation on
// them; the rest of the context set is labeled as prior background.
func BuildAnalysisPrompt(input *dto.AnalysisInput) string {
	newIDs := make(map[uint]struct{}, len(input.NewArticles))
	for _, a := range input.NewArticles {
		newIDs[a.ID] = struct{}{}
	}

	var articles strings.Builder
	count := 0
	for _, a := range input.ContextArticles {
		if count >= promptMaxArticles {
			break
		}
		count++
		marker := " [Previous Context]"
		if _, ok := newIDs[a.ID]; ok {
			marker = " [NEW - BREAKING NEWS]"
		}
		fmt.Fprintf(&articles, "Article %d%s:\nTitle: %s\nSource: %s\nDate: %s\nSummary: %s\n\n",
			count, marker, a.Title, a.Source, a.PublishedAt.Format("2006-01-02"),
			utils.TruncateRunes(a.Content, promptArticleExcerptLen))
	}
	news := strings.TrimSpace(articles.String())
	if news == "" {
		news = "No news articles available."
	}

	var b strings.Builder
	b.WriteString("You are a professional financial analyst specializing in market sentiment analysis and risk assessment. Provide an objective, data-driven trading recommendation.\n\n")

	fmt.Fprintf(&b, "## STOCK INFORMATION\nTicker: %s\nCompany: %s\nAnalysis Date: %s\n\n",
		input.Ticker, input.StockData.CompanyName, time.Now().Format("2006-01-02"))

	b.WriteString("## FUNDAMENTAL DATA\n")
	b.WriteString(formatFundamentals(input.StockData))
	b.WriteString("\n\n## PRICE TRENDS\n")
	b.WriteString(formatPriceTrends(input.PriceHistory))
	b.WriteString("\n\n## RECENT NEWS & SENTIMENT\n")
	b.WriteString(news)

	b.WriteString(`

## YOUR TASK
Articles marked "[NEW - BREAKING NEWS]" are fresh developments that have not been analyzed yet; articles marked "[Previous Context]" are older background. Weight your recommendation heavily toward the NEW articles; use the context articles for the summary only. If new news contradicts previous context, the new news dominates. If new data is insufficient or conflicting, recommend HOLD with LOW confidence. Base the time horizon on the nature of the new developments.

## OUTPUT FORMAT
Respond with ONLY valid JSON in this exact structure, no additional text:

{
  "recommendation": "BUY|SELL|SHORT|HOLD",
  "confidence": "HIGH|MEDIUM|LOW",
  "sentiment_score": <float between -1.0 and 1.0>,
  "risk_level": "LOW|MEDIUM|HIGH|VERY_HIGH",
  "volatility_assessment": "<brief assessment of price volatility>",
  "key_factors": [{"factor": "<description>", "impact": "POSITIVE|NEGATIVE|NEUTRAL"}],
  "summary": "<2-3 sentence executive summary>",
  "reasoning": "<detailed explanation, 3-5 sentences>",
  "price_target": <number or null>,
  "time_horizon": "SHORT_TERM|MEDIUM_TERM|LONG_TERM",
  "warnings": ["<risk warning>"]
}
`)

	return b.String()
}

func formatFundamentals(data *dto.StockData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current Price: $%.2f\n", data.CurrentPrice)
	fmt.Fprintf(&b, "Previous Close: $%.2f\n", data.PrevClose)
	fmt.Fprintf(&b, "Day Change: %+.2f%%\n", data.DayChangePercent)
	fmt.Fprintf(&b, "Volume: %d\n", data.Volume)
	fmt.Fprintf(&b, "Market Cap: %s\n", formatOptional(data.MarketCap, "$%.0f"))
	fmt.Fprintf(&b, "P/E Ratio: %s\n", formatOptional(data.PERatio, "%.2f"))
	fmt.Fprintf(&b, "52-Week High: %s\n", formatOptional(data.FiftyTwoWeekHigh, "$%.2f"))
	fmt.Fprintf(&b, "52-Week Low: %s\n", formatOptional(data.FiftyTwoWeekLow, "$%.2f"))
	fmt.Fprintf(&b, "Beta: %s", formatOptional(data.Beta, "%.2f"))
	return b.String()
}

func formatPriceTrends(history *dto.PriceHistory) string {
	if history == nil || len(history.Close) < 2 {
		return "Insufficient price history."
	}

	closes := history.Close
	current := closes[len(closes)-1]
	monthAgo := closes[0]
	weekAgo := closes[0]
	if len(closes) >= 7 {
		weekAgo = closes[len(closes)-7]
	}

	weekChange := percentChange(weekAgo, current)
	monthChange := percentChange(monthAgo, current)

	volatility := "N/A"
	if len(closes) >= 7 {
		recent := closes[len(closes)-7:]
		var sum float64
		for _, c := range recent {
			sum += c
		}
		avg := sum / float64(len(recent))
		var variance float64
		for _, c := range recent {
			variance += (c - avg) * (c - avg)
		}
		variance /= float64(len(recent))
		volatility = fmt.Sprintf("%.2f%%", math.Sqrt(variance)/avg*100)
	}

	return fmt.Sprintf("7-Day Change: %+.2f%%\n30-Day Change: %+.2f%%\nRecent Volatility (7d): %s",
		weekChange, monthChange, volatility)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
