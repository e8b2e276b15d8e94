package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

const breakingNewsBaseURL = "https://api.marketpulse-news.internal/v1/breaking"

// NewBreakingNews builds the breaking-news variant: a free-text query,
// no symbol requirement, general rotation when query is empty.
func NewBreakingNews(cfg config.AdapterConfig, log *logger.Logger, quota Quota) *Adapter {
	return New(cfg, log, func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		q := query
		if q == "" {
			q = "markets"
		}
		endpoint := fmt.Sprintf("%s?q=%s", breakingNewsBaseURL, url.QueryEscape(q))

		body, err := doGet(ctx, client, endpoint, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		raws, err := decodeEnvelope(body)
		if err != nil {
			return nil, err
		}
		return normalizeAll(raws, cfg.Name, time.Now()), nil
	}, quota)
}
