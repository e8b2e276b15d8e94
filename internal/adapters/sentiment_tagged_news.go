package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

func decodeSentimentEnvelope(body []byte, out *sentimentEnvelope) error {
	return json.Unmarshal(body, out)
}

const sentimentTaggedNewsBaseURL = "https://api.marketpulse-news.internal/v1/sentiment"

// sentimentEnvelope's articles carry the provider's own sentiment tag, which
// this adapter discards — sentiment scoring is the sentiment LLM
// adapter's job (C10), not C1's.
type sentimentEnvelope struct {
	Articles []struct {
		rawArticle
		ProviderSentiment string `json:"provider_sentiment"`
	} `json:"articles"`
}

// NewSentimentTaggedNews builds the sentiment-tagged-news variant. Like
// company-news it prefers a subject symbol but falls back to a general
// ticker query instead of a fixed rotation.
func NewSentimentTaggedNews(cfg config.AdapterConfig, log *logger.Logger, quota Quota) *Adapter {
	return New(cfg, log, func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		ticker := query
		if !IsSymbol(ticker) {
			ticker = "general"
		}
		endpoint := fmt.Sprintf("%s?ticker=%s", sentimentTaggedNewsBaseURL, url.QueryEscape(ticker))

		body, err := doGet(ctx, client, endpoint, cfg.APIKey)
		if err != nil {
			return nil, err
		}

		var env sentimentEnvelope
		if err := decodeSentimentEnvelope(body, &env); err != nil {
			return nil, err
		}

		raws := make([]rawArticle, 0, len(env.Articles))
		for _, a := range env.Articles {
			raws = append(raws, a.rawArticle)
		}
		return normalizeAll(raws, cfg.Name, time.Now()), nil
	}, quota)
}
