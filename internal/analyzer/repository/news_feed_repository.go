package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/pkg/logger"
	"stock-sentiment-bot/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// NewsFeedRepository fetches raw candidate articles for a ticker from a
// per-ticker RSS feed. Output is unfiltered; deduplication happens downstream.
type NewsFeedRepository interface {
	FetchArticles(ctx context.Context, ticker string, lookbackDays int) ([]dto.NewsArticle, error)
}

type newsFeedRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	clock          utils.Clock
	parser         *gofeed.Parser
	httpClient     *http.Client
	requestLimiter *rate.Limiter
}

// NewNewsFeedRepository creates a new RSS-backed news repository.
func NewNewsFeedRepository(cfg *config.Config, log *logger.Logger, clock utils.Clock) (NewsFeedRepository, error) {
	if cfg.NewsFeed.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("news_feed.max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.NewsFeed.MaxRequestPerMinute)
	return &newsFeedRepository{
		cfg:    cfg,
		log:    log,
		clock:  clock,
		parser: gofeed.NewParser(),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}, nil
}

// FetchArticles returns candidate articles published within the lookback
// window. Feed failures surface as ErrUpstreamUnavailable; a single article
// page that cannot be scraped falls back to the feed description.
func (r *newsFeedRepository) FetchArticles(ctx context.Context, ticker string, lookbackDays int) ([]dto.NewsArticle, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	feedURL := fmt.Sprintf("%s/rss/2.0/headline?s=%s&region=US&lang=en-US", r.cfg.NewsFeed.BaseURL, ticker)
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed for %s: %v", dto.ErrUpstreamUnavailable, ticker, err)
	}

	cutoff := r.clock.Now().AddDate(0, 0, -lookbackDays)

	var articles []dto.NewsArticle
	for _, item := range feed.Items {
		if item.PublishedParsed == nil || item.PublishedParsed.Before(cutoff) {
			continue
		}

		content := strings.TrimSpace(item.Description)
		if r.cfg.NewsFeed.FetchFullContent && item.Link != "" {
			if full, err := r.scrapeContent(ctx, item.Link); err != nil {
				r.log.DebugContext(ctx, "Failed to scrape article content, using feed description",
					logger.StringField("link", item.Link), logger.ErrorField(err))
			} else if full != "" {
				content = full
			}
		}

		source := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			source = item.Author.Name
		}

		articles = append(articles, dto.NewsArticle{
			Title:       strings.TrimSpace(item.Title),
			Content:     content,
			URL:         item.Link,
			Source:      source,
			PublishedAt: item.PublishedParsed.UTC(),
		})
	}

	r.log.InfoContext(ctx, "Collected candidate articles",
		logger.StringField("ticker", ticker),
		logger.IntField("count", len(articles)))

	return articles, nil
}

func (r *newsFeedRepository) scrapeContent(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", err
	}

	// readability returns cleaned HTML; reduce it to plain text.
	content := doc.Content()
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(gq.Text())
	return strings.Join(strings.Fields(text), " "), nil
}
