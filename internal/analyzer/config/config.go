package config

import (
	"time"

	"stock-sentiment-bot/pkg/config"
)

// Analyzer holds the policy knobs of the deduplication, selection and
// validation pipeline. Defaults preserve the behavior the accuracy metrics
// were calibrated against.
type Analyzer struct {
	NewsLookbackDays     int           `mapstructure:"news_lookback_days"`
	ArticleRetentionDays int           `mapstructure:"article_retention_days"`
	ContextArticleLimit  int           `mapstructure:"context_article_limit"`
	NewArticleLimit      int           `mapstructure:"new_article_limit"`
	FuzzyWindowSize      int           `mapstructure:"fuzzy_window_size"`
	SimilarityThreshold  float64       `mapstructure:"similarity_threshold"`
	RecentAnalysisTTL    time.Duration `mapstructure:"recent_analysis_ttl"`
	RunValidationHour    int           `mapstructure:"run_validation_hour"`
	PriceHistoryDays     int           `mapstructure:"price_history_days"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// YahooFinance holds the configuration for the Yahoo Finance chart API.
type YahooFinance struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// NewsFeed holds the configuration for the per-ticker RSS news source.
type NewsFeed struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	FetchFullContent    bool   `mapstructure:"fetch_full_content"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the analysis service.
type Config struct {
	App          config.App      `mapstructure:"app"`
	Logger       config.Logger   `mapstructure:"logger"`
	Database     config.Database `mapstructure:"database"`
	Redis        config.Redis    `mapstructure:"redis"`
	API          config.API      `mapstructure:"api"`
	Analyzer     Analyzer        `mapstructure:"analyzer"`
	Gemini       Gemini          `mapstructure:"gemini"`
	YahooFinance YahooFinance    `mapstructure:"yahoo_finance"`
	NewsFeed     NewsFeed        `mapstructure:"news_feed"`
	Telegram     Telegram        `mapstructure:"telegram"`
}

// Load loads the analysis service configuration from the given path and fills
// in policy defaults for anything left unset.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Analyzer.NewsLookbackDays == 0 {
		cfg.Analyzer.NewsLookbackDays = 7
	}
	if cfg.Analyzer.ArticleRetentionDays == 0 {
		cfg.Analyzer.ArticleRetentionDays = 30
	}
	if cfg.Analyzer.ContextArticleLimit == 0 {
		cfg.Analyzer.ContextArticleLimit = 30
	}
	if cfg.Analyzer.NewArticleLimit == 0 {
		cfg.Analyzer.NewArticleLimit = 20
	}
	if cfg.Analyzer.FuzzyWindowSize == 0 {
		cfg.Analyzer.FuzzyWindowSize = 50
	}
	if cfg.Analyzer.SimilarityThreshold == 0 {
		cfg.Analyzer.SimilarityThreshold = 0.85
	}
	if cfg.Analyzer.RecentAnalysisTTL == 0 {
		cfg.Analyzer.RecentAnalysisTTL = time.Hour
	}
	if cfg.Analyzer.PriceHistoryDays == 0 {
		cfg.Analyzer.PriceHistoryDays = 30
	}

	return &cfg, nil
}
