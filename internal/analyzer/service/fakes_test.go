package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/internal/entity"

	"gorm.io/gorm"
)

// fakeArticleRepo is an in-memory ArticleRepository with the same conflict
// semantics as the real one.
type fakeArticleRepo struct {
	mu       sync.Mutex
	nextID   uint
	articles []entity.Article
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{nextID: 1}
}

func (f *fakeArticleRepo) SaveBatch(ctx context.Context, articles []entity.Article) ([]entity.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var saved []entity.Article
	for _, a := range articles {
		if f.hasHashLocked(a.ArticleHash) {
			continue
		}
		if a.URL != nil && f.hasURLLocked(*a.URL) {
			continue
		}
		a.ID = f.nextID
		f.nextID++
		a.CollectedAt = time.Now()
		f.articles = append(f.articles, a)
		saved = append(saved, a)
	}
	return saved, nil
}

func (f *fakeArticleRepo) hasHashLocked(hash string) bool {
	for _, a := range f.articles {
		if a.ArticleHash == hash {
			return true
		}
	}
	return false
}

func (f *fakeArticleRepo) hasURLLocked(url string) bool {
	for _, a := range f.articles {
		if a.URL != nil && *a.URL == url {
			return true
		}
	}
	return false
}

func (f *fakeArticleRepo) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasHashLocked(hash), nil
}

func (f *fakeArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasURLLocked(url), nil
}

func (f *fakeArticleRepo) FindRecentByTicker(ctx context.Context, ticker string, limit int) ([]entity.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Article
	for _, a := range f.articles {
		if a.Ticker == ticker {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeArticleRepo) FindInWindow(ctx context.Context, ticker string, since time.Time, limit int, unusedOnly bool) ([]entity.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Article
	for _, a := range f.articles {
		if a.Ticker != ticker || a.PublishedAt.Before(since) {
			continue
		}
		if unusedOnly && a.UsedInAnalysis != 0 {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeArticleRepo) FindByTicker(ctx context.Context, ticker string, limit int, unusedOnly bool) ([]entity.Article, error) {
	return f.FindInWindow(ctx, ticker, time.Time{}, limit, unusedOnly)
}

func (f *fakeArticleRepo) Stats(ctx context.Context, ticker string) (*dto.ArticleStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &dto.ArticleStats{Ticker: ticker}
	for _, a := range f.articles {
		if a.Ticker != ticker {
			continue
		}
		stats.TotalArticles++
		if a.UsedInAnalysis != 0 {
			stats.UsedArticles++
		} else {
			stats.UnusedArticles++
		}
	}
	stats.ReadyForAnalysis = stats.UnusedArticles > 0
	return stats, nil
}

func (f *fakeArticleRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []entity.Article
	var deleted int64
	for _, a := range f.articles {
		if a.UsedInAnalysis == 0 && a.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	f.articles = kept
	return deleted, nil
}

// markUsed flips an article to consumed, simulating a concurrent claim.
func (f *fakeArticleRepo) markUsed(id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles[i].UsedInAnalysis = 1
		}
	}
}

// fakeRecommendationRepo is an in-memory RecommendationRepository whose claim
// step mirrors the conditional usage marking of the real one.
type fakeRecommendationRepo struct {
	mu       sync.Mutex
	nextID   uint
	recs     []entity.Recommendation
	articles *fakeArticleRepo

	saveValidationErr error
}

func newFakeRecommendationRepo(articles *fakeArticleRepo) *fakeRecommendationRepo {
	return &fakeRecommendationRepo{nextID: 1, articles: articles}
}

func (f *fakeRecommendationRepo) CreateWithArticles(ctx context.Context, rec *entity.Recommendation, articleIDs []int64, now time.Time, forced bool) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec.ID = f.nextID
	f.nextID++

	var claimed []int64
	if f.articles != nil {
		f.articles.mu.Lock()
		for i := range f.articles.articles {
			a := &f.articles.articles[i]
			for _, id := range articleIDs {
				if int64(a.ID) != id {
					continue
				}
				if !forced && a.UsedInAnalysis != 0 {
					continue
				}
				a.UsedInAnalysis = 1
				a.LastUsedDate = &now
				recID := rec.ID
				a.UsedInRecommendationID = &recID
				claimed = append(claimed, id)
			}
		}
		f.articles.mu.Unlock()
	} else {
		claimed = articleIDs
	}

	if len(claimed) == 0 {
		return nil, dto.ErrNoFreshInput
	}

	ids := make([]int64, len(claimed))
	copy(ids, claimed)
	rec.ArticleIDs = ids
	f.recs = append(f.recs, *rec)
	return claimed, nil
}

func (f *fakeRecommendationRepo) FindByID(ctx context.Context, id uint) (*entity.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == id {
			rec := f.recs[i]
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecommendationRepo) FindLatestByTicker(ctx context.Context, ticker string) (*entity.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *entity.Recommendation
	for i := range f.recs {
		if f.recs[i].Ticker != ticker {
			continue
		}
		if latest == nil || f.recs[i].AnalysisDate.After(latest.AnalysisDate) {
			latest = &f.recs[i]
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	rec := *latest
	return &rec, nil
}

func (f *fakeRecommendationRepo) FindAll(ctx context.Context, ticker string, status entity.ValidationStatus, limit int) ([]entity.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Recommendation
	for _, r := range f.recs {
		if ticker != "" && r.Ticker != ticker {
			continue
		}
		if status != "" && r.ValidationStatus != status {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecommendationRepo) FindPending(ctx context.Context) ([]entity.Recommendation, error) {
	return f.FindAll(ctx, "", entity.StatusPending, len(f.recs)+1)
}

func (f *fakeRecommendationRepo) FindValidated(ctx context.Context, ticker string) ([]entity.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Recommendation
	for _, r := range f.recs {
		if !r.ValidationStatus.IsTerminal() {
			continue
		}
		if ticker != "" && r.Ticker != ticker {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRecommendationRepo) SaveValidation(ctx context.Context, rec *entity.Recommendation) error {
	if f.saveValidationErr != nil {
		return f.saveValidationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.recs {
		if f.recs[i].ID == rec.ID {
			f.recs[i] = *rec
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// add seeds a recommendation directly, bypassing the claim step.
func (f *fakeRecommendationRepo) add(rec entity.Recommendation) entity.Recommendation {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = f.nextID
	f.nextID++
	if rec.ValidationStatus == "" {
		rec.ValidationStatus = entity.StatusPending
	}
	f.recs = append(f.recs, rec)
	return rec
}

// fakeMetricRepo stores at most one metric row per date.
type fakeMetricRepo struct {
	mu      sync.Mutex
	metrics []entity.ValidationMetric
}

func (f *fakeMetricRepo) Upsert(ctx context.Context, metric *entity.ValidationMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.metrics {
		if f.metrics[i].Date.Equal(metric.Date) {
			id := f.metrics[i].ID
			f.metrics[i] = *metric
			f.metrics[i].ID = id
			return nil
		}
	}
	metric.ID = uint(len(f.metrics) + 1)
	f.metrics = append(f.metrics, *metric)
	return nil
}

func (f *fakeMetricRepo) FindLatest(ctx context.Context) (*entity.ValidationMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.metrics) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	latest := f.metrics[0]
	for _, m := range f.metrics[1:] {
		if m.Date.After(latest.Date) {
			latest = m
		}
	}
	return &latest, nil
}

// fakePriceRepo returns canned prices per ticker, or a configured error.
type fakePriceRepo struct {
	prices map[string]float64
	err    error
}

func (f *fakePriceRepo) Get(ctx context.Context, ticker string) (*dto.StockData, error) {
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[ticker]
	if !ok {
		return nil, dto.ErrUpstreamUnavailable
	}
	return &dto.StockData{Ticker: ticker, CurrentPrice: price}, nil
}

func (f *fakePriceRepo) GetPriceHistory(ctx context.Context, ticker string, days int) (*dto.PriceHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.PriceHistory{}, nil
}

// captureNotifier records every message sent.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}
