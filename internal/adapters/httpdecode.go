package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketpulse/core/internal/model"
)

// rawArticle is the common JSON shape every provider variant's envelope
// decodes into before normalization. Field names differ slightly across
// real providers; each variant's own envelope type maps onto this one.
type rawArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	SourceName  string `json:"source_name"`
	PublishedAt string `json:"published_at"`
}

// doGet executes a GET against url with the adapter's API key attached as
// a bearer token, returning the raw body or a transient/auth error.
func doGet(ctx context.Context, client *http.Client, url, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrAuthFailed
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("transient provider error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// normalizeRaw converts a decoded rawArticle into the canonical shape,
// applying every rule in §4.1's normalization block. The returned
// article has no ID/Fingerprint set — the aggregator assigns those.
func normalizeRaw(ra rawArticle, adapterName string, now time.Time) model.Article {
	canonicalURL := CanonicalizeURL(ra.URL)
	description := TruncateDescription(ra.Description)
	return model.Article{
		Title:        ra.Title,
		Description:  description,
		Content:      ContentOrDescription(ra.Content, description),
		SourceName:   SourceNameOrFallback(ra.SourceName, adapterName),
		CanonicalURL: canonicalURL,
		ImageURL:     ra.ImageURL,
		PublishedAt:  ParsePublishedAt(ra.PublishedAt, now),
		FirstSeenAt:  now,
	}
}

type envelope struct {
	Articles []rawArticle `json:"articles"`
}

func decodeEnvelope(body []byte) ([]rawArticle, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Articles, nil
}

// normalizeAll normalizes every raw article, dropping any with neither a
// title nor a URL (schema failure — the offending article is dropped,
// others in the same fetch survive per §7).
func normalizeAll(raws []rawArticle, adapterName string, now time.Time) []model.Article {
	out := make([]model.Article, 0, len(raws))
	for _, ra := range raws {
		if ra.Title == "" && ra.URL == "" {
			continue
		}
		out = append(out, normalizeRaw(ra, adapterName, now))
	}
	return out
}
