package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

const companyNewsBaseURL = "https://api.marketpulse-news.internal/v1/company"

// defaultCompanyRotation is the small default rotation substituted when a
// non-symbol query is supplied to a symbol-requiring adapter.
var defaultCompanyRotation = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

// NewCompanyNews builds the company-news variant: requires a subject
// symbol; non-symbol queries rotate through a small default set.
func NewCompanyNews(cfg config.AdapterConfig, log *logger.Logger, quota Quota) *Adapter {
	var rotationIdx atomic.Int64
	return New(cfg, log, func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		symbol := query
		if !IsSymbol(symbol) {
			n := rotationIdx.Add(1) - 1
			symbol = defaultCompanyRotation[int(n)%len(defaultCompanyRotation)]
		}
		endpoint := fmt.Sprintf("%s?symbol=%s", companyNewsBaseURL, url.QueryEscape(symbol))

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
