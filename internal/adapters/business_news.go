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

const businessNewsBaseURL = "https://api.marketpulse-news.internal/v1/business"

// NewBusinessNews builds the business-news variant: broad free-text
// query, defaults to a sector-agnostic rotation term when empty.
func NewBusinessNews(cfg config.AdapterConfig, log *logger.Logger, quota Quota) *Adapter {
	return New(cfg, log, func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		q := query
		if q == "" {
			q = "business"
		}
		endpoint := fmt.Sprintf("%s?category=%s", businessNewsBaseURL, url.QueryEscape(q))

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
