package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/pkg/logger"

	"golang.org/x/time/rate"
)

// YahooFinanceRepository fetches price data from the Yahoo Finance chart API.
type YahooFinanceRepository interface {
	Get(ctx context.Context, ticker string) (*dto.StockData, error)
	GetPriceHistory(ctx context.Context, ticker string, days int) (*dto.PriceHistory, error)
}

type yahooFinanceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a new Yahoo Finance repository.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) (YahooFinanceRepository, error) {
	if cfg.YahooFinance.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("yahoo_finance.max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.YahooFinance.MaxRequestPerMinute)
	return &yahooFinanceRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}, nil
}

// Get fetches the current price and fundamentals snapshot for a ticker.
func (r *yahooFinanceRepository) Get(ctx context.Context, ticker string) (*dto.StockData, error) {
	chart, err := r.fetchChart(ctx, ticker, 5)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	meta := result.Meta
	if meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("%w: no market price for %s", dto.ErrUpstreamUnavailable, ticker)
	}

	companyName := meta.LongName
	if companyName == "" {
		companyName = meta.Symbol
	}

	prevClose := meta.ChartPreviousClose
	dayChange := 0.0
	if prevClose != 0 {
		dayChange = (meta.RegularMarketPrice - prevClose) / prevClose * 100
	}

	data := &dto.StockData{
		Ticker:           ticker,
		CompanyName:      companyName,
		CurrentPrice:     meta.RegularMarketPrice,
		PrevClose:        prevClose,
		DayChangePercent: dayChange,
		Volume:           meta.RegularMarketVolume,
	}
	if meta.FiftyTwoWeekHigh != 0 {
		high := meta.FiftyTwoWeekHigh
		data.FiftyTwoWeekHigh = &high
	}
	if meta.FiftyTwoWeekLow != 0 {
		low := meta.FiftyTwoWeekLow
		data.FiftyTwoWeekLow = &low
	}

	return data, nil
}

// GetPriceHistory fetches daily closes for the trailing number of days.
func (r *yahooFinanceRepository) GetPriceHistory(ctx context.Context, ticker string, days int) (*dto.PriceHistory, error) {
	chart, err := r.fetchChart(ctx, ticker, days)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote data for %s", dto.ErrUpstreamUnavailable, ticker)
	}
	quote := result.Indicators.Quote[0]

	history := &dto.PriceHistory{}
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		history.Dates = append(history.Dates, time.Unix(ts, 0).UTC())
		history.Close = append(history.Close, *quote.Close[i])
		if i < len(quote.High) && quote.High[i] != nil {
			history.High = append(history.High, *quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			history.Low = append(history.Low, *quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			history.Volume = append(history.Volume, *quote.Volume[i])
		}
	}

	return history, nil
}

func (r *yahooFinanceRepository) fetchChart(ctx context.Context, ticker string, days int) (*dto.YahooChartResponse, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%dd", r.cfg.YahooFinance.BaseURL, ticker, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", dto.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.log.ErrorContext(ctx, "Yahoo Finance request failed",
			logger.StringField("ticker", ticker),
			logger.IntField("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d for %s", dto.ErrUpstreamUnavailable, resp.StatusCode, ticker)
	}

	var chart dto.YahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", dto.ErrUpstreamUnavailable, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", dto.ErrUpstreamUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", dto.ErrUpstreamUnavailable, ticker)
	}

	return &chart, nil
}
