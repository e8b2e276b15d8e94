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

const publicFeedBaseURL = "https://api.marketpulse-news.internal/v1/public-feed"

// NewPublicFeed builds the public-feed variant: an unauthenticated,
// low-rate-limit feed of general market headlines. Its provider disagrees
// on date formatting more than the others, so it leans hardest on
// ParsePublishedAt's relaxed layout list — borrowed from how a loose RSS
// poller tries several formats before giving up.
func NewPublicFeed(cfg config.AdapterConfig, log *logger.Logger, quota Quota) *Adapter {
	return New(cfg, log, func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		q := query
		if q == "" {
			q = "headlines"
		}
		endpoint := fmt.Sprintf("%s?feed=%s", publicFeedBaseURL, url.QueryEscape(q))

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
