package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"stock-sentiment-bot/internal/analyzer/config"
	"stock-sentiment-bot/internal/analyzer/dto"
	"stock-sentiment-bot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Analyzer: config.Analyzer{
			NewsLookbackDays:    7,
			ContextArticleLimit: 30,
			NewArticleLimit:     20,
			FuzzyWindowSize:     50,
			SimilarityThreshold: 0.85,
		},
	}
}

func newTestDeduplicator(repo *fakeArticleRepo) DeduplicatorService {
	return NewDeduplicatorService(testConfig(), logger.NewNop(), repo)
}

func TestGenerateFingerprint(t *testing.T) {
	d := newTestDeduplicator(newFakeArticleRepo())

	t.Run("deterministic", func(t *testing.T) {
		a := d.GenerateFingerprint("Apple beats earnings", "Revenue up 12% in Q3.")
		b := d.GenerateFingerprint("Apple beats earnings", "Revenue up 12% in Q3.")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		a := d.GenerateFingerprint("Apple Beats Earnings", "Revenue up 12% in Q3.")
		b := d.GenerateFingerprint("  apple beats earnings  ", "  revenue up 12% in q3.  ")
		assert.Equal(t, a, b)
	})

	t.Run("content beyond head does not matter", func(t *testing.T) {
		head := strings.Repeat("x", 500)
		a := d.GenerateFingerprint("title", head+"tail one")
		b := d.GenerateFingerprint("title", head+"completely different tail")
		assert.Equal(t, a, b)
	})

	t.Run("different titles differ", func(t *testing.T) {
		a := d.GenerateFingerprint("Apple beats earnings", "body")
		b := d.GenerateFingerprint("Apple misses earnings", "body")
		assert.NotEqual(t, a, b)
	})
}

func TestTitleSimilarity(t *testing.T) {
	d := newTestDeduplicator(newFakeArticleRepo())

	assert.Equal(t, 1.0, d.TitleSimilarity("Same Title", "same title"))

	// 20 runes, edit distance 3: ratio is exactly the 0.85 threshold.
	base := strings.Repeat("a", 20)
	atThreshold := strings.Repeat("a", 17) + "bbb"
	belowThreshold := strings.Repeat("a", 16) + "bbbb"
	assert.InDelta(t, 0.85, d.TitleSimilarity(base, atThreshold), 1e-9)
	assert.InDelta(t, 0.80, d.TitleSimilarity(base, belowThreshold), 1e-9)

	assert.Less(t, d.TitleSimilarity("Fed raises interest rates", "Quarterly dividend announced"), 0.5)
}

func TestIsDuplicate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("by fingerprint", func(t *testing.T) {
		repo := newFakeArticleRepo()
		d := newTestDeduplicator(repo)

		original := dto.NewsArticle{Title: "Apple beats earnings", Content: "Revenue up.", URL: "https://example.com/a", PublishedAt: now}
		_, err := d.SaveArticles(ctx, []dto.NewsArticle{original}, "AAPL")
		require.NoError(t, err)

		dup, err := d.IsDuplicate(ctx, dto.NewsArticle{Title: "Apple beats earnings", Content: "Revenue up.", URL: "https://other.com/b"}, "AAPL", false)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("by url", func(t *testing.T) {
		repo := newFakeArticleRepo()
		d := newTestDeduplicator(repo)

		original := dto.NewsArticle{Title: "Apple beats earnings", Content: "Revenue up.", URL: "https://example.com/a", PublishedAt: now}
		_, err := d.SaveArticles(ctx, []dto.NewsArticle{original}, "AAPL")
		require.NoError(t, err)

		dup, err := d.IsDuplicate(ctx, dto.NewsArticle{Title: "totally new headline text", Content: "other body", URL: "https://example.com/a"}, "AAPL", false)
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("empty url never matches empty url", func(t *testing.T) {
		repo := newFakeArticleRepo()
		d := newTestDeduplicator(repo)

		_, err := d.SaveArticles(ctx, []dto.NewsArticle{{Title: "first story", Content: "a", PublishedAt: now}}, "AAPL")
		require.NoError(t, err)

		dup, err := d.IsDuplicate(ctx, dto.NewsArticle{Title: "unrelated second story entirely", Content: "b"}, "AAPL", false)
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("fuzzy title at threshold", func(t *testing.T) {
		repo := newFakeArticleRepo()
		d := newTestDeduplicator(repo)

		base := strings.Repeat("a", 20)
		_, err := d.SaveArticles(ctx, []dto.NewsArticle{{Title: base, Content: "a", PublishedAt: now}}, "AAPL")
		require.NoError(t, err)

		dup, err := d.IsDuplicate(ctx, dto.NewsArticle{Title: strings.Repeat("a", 17) + "bbb", Content: "b"}, "AAPL", true)
		require.NoError(t, err)
		assert.True(t, dup, "similarity exactly at the threshold is a duplicate")

		dup, err = d.IsDuplicate(ctx, dto.NewsArticle{Title: strings.Repeat("a", 16) + "bbbb", Content: "c"}, "AAPL", true)
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("fuzzy check skipped when disabled", func(t *testing.T) {
		repo := newFakeArticleRepo()
		d := newTestDeduplicator(repo)

		base := strings.Repeat("a", 20)
		_, err := d.SaveArticles(ctx, []dto.NewsArticle{{Title: base, Content: "a", PublishedAt: now}}, "AAPL")
		require.NoError(t, err)

		dup, err := d.IsDuplicate(ctx, dto.NewsArticle{Title: strings.Repeat("a", 17) + "bbb", Content: "b"}, "AAPL", false)
		require.NoError(t, err)
		assert.False(t, dup)
	})
}

func TestFilterDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newFakeArticleRepo()
	d := newTestDeduplicator(repo)

	batch := []dto.NewsArticle{
		{Title: "Apple beats earnings", Content: "Revenue up.", URL: "https://example.com/a"},
		{Title: "Apple Beats Earnings", Content: "revenue up.", URL: "https://example.com/b"}, // same fingerprint
		{Title: "Fed raises interest rates", Content: "Economy.", URL: "https://example.com/c"},
	}

	unique, err := d.FilterDuplicates(ctx, batch, "AAPL")
	require.NoError(t, err)
	require.Len(t, unique, 2)
	assert.Equal(t, "Apple beats earnings", unique[0].Title)
	assert.Equal(t, "Fed raises interest rates", unique[1].Title)
}

func TestSaveArticlesIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeArticleRepo()
	d := newTestDeduplicator(repo)

	batch := []dto.NewsArticle{
		{Title: "Apple beats earnings", Content: "Revenue up.", URL: "https://example.com/a", Source: "wire", PublishedAt: time.Now()},
		{Title: "Fed raises interest rates", Content: "Economy.", PublishedAt: time.Now()},
	}

	saved, err := d.SaveArticles(ctx, batch, "aapl")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "AAPL", saved[0].Ticker)
	require.NotNil(t, saved[0].URL)
	assert.Nil(t, saved[1].URL)

	again, err := d.SaveArticles(ctx, batch, "aapl")
	require.NoError(t, err)
	assert.Empty(t, again)
}
