package dto

import "time"

// NewsArticle is a raw candidate article as returned by the news collaborator,
// before deduplication and persistence.
type NewsArticle struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// StockData holds fundamentals and current price for a ticker.
type StockData struct {
	Ticker           string   `json:"ticker"`
	CompanyName      string   `json:"company_name"`
	CurrentPrice     float64  `json:"current_price"`
	PrevClose        float64  `json:"prev_close"`
	DayChangePercent float64  `json:"day_change_percent"`
	Volume           int64    `json:"volume"`
	AvgVolume        float64  `json:"avg_volume"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	PERatio          *float64 `json:"pe_ratio,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fifty_two_week_high,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fifty_two_week_low,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
}

// PriceHistory holds daily OHLC-style price history for a ticker.
type PriceHistory struct {
	Dates  []time.Time `json:"dates"`
	Close  []float64   `json:"close"`
	High   []float64   `json:"high"`
	Low    []float64   `json:"low"`
	Volume []int64     `json:"volume"`
}
