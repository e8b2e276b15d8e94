package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

type stubSource struct {
	name     string
	articles []model.Article
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Fetch(ctx context.Context, query string) []model.Article {
	return s.articles
}

func testCfg(mode string) *config.Config {
	return &config.Config{AggregatorMode: mode, SeenSetWatermark: 1000}
}

// Scenario 1: dedup across sources.
func TestAggregateDedupesAcrossSources(t *testing.T) {
	article := model.Article{Title: "X Corp Q4 beats", CanonicalURL: "https://x.com/q4"}
	sourceA := &stubSource{name: "a", articles: []model.Article{article}}
	sourceB := &stubSource{name: "b", articles: []model.Article{article}}

	agg := New([]Source{sourceA, sourceB}, testCfg("union"), logger.NewLogger())
	out := agg.Aggregate(context.Background(), "")

	require.Len(t, out, 1)
	assert.Equal(t, Fingerprint(article), out[0].Fingerprint)
}

func TestAggregateUnionCombinesDistinctArticles(t *testing.T) {
	sourceA := &stubSource{name: "a", articles: []model.Article{{Title: "Alpha", CanonicalURL: "https://a.com/1"}}}
	sourceB := &stubSource{name: "b", articles: []model.Article{{Title: "Beta", CanonicalURL: "https://b.com/1"}}}

	agg := New([]Source{sourceA, sourceB}, testCfg("union"), logger.NewLogger())
	out := agg.Aggregate(context.Background(), "")

	assert.Len(t, out, 2)
}

func TestAggregateOrderedFailoverStopsAtFirstNonEmpty(t *testing.T) {
	sourceA := &stubSource{name: "a", articles: nil}
	sourceB := &stubSource{name: "b", articles: []model.Article{{Title: "Beta", CanonicalURL: "https://b.com/1"}}}
	sourceC := &stubSource{name: "c", articles: []model.Article{{Title: "Gamma", CanonicalURL: "https://c.com/1"}}}

	agg := New([]Source{sourceA, sourceB, sourceC}, testCfg("ordered-failover"), logger.NewLogger())
	out := agg.Aggregate(context.Background(), "")

	require.Len(t, out, 1)
	assert.Equal(t, "Beta", out[0].Title)
}

func TestAggregateAllEmptyReturnsEmpty(t *testing.T) {
	sourceA := &stubSource{name: "a"}
	agg := New([]Source{sourceA}, testCfg("union"), logger.NewLogger())
	out := agg.Aggregate(context.Background(), "")
	assert.Empty(t, out)
}
