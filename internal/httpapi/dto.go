package httpapi

import (
	"time"

	"github.com/marketpulse/core/internal/adapters"
	"github.com/marketpulse/core/internal/model"
)

// recommendRequest is the optional JSON body for POST /recommend; the
// subject itself travels as a path param, this just carries the
// free-text override query from §4.1's "optional free-text query".
type recommendRequest struct {
	Query string `json:"query" validate:"omitempty,max=200"`
}

// ingestRequest is the externally supplied article accepted by the
// ingest RPC (§6), normalized the same way C1's adapters normalize a
// provider response.
type ingestRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=500"`
	Description  string `json:"description" validate:"max=2000"`
	Content      string `json:"content"`
	SourceName   string `json:"source_name" validate:"max=200"`
	CanonicalURL string `json:"url" validate:"required,url"`
	ImageURL     string `json:"image_url" validate:"omitempty,url"`
	PublishedAt  string `json:"published_at"`
}

func (r ingestRequest) toArticle() model.Article {
	now := time.Now()
	return model.Article{
		Title:        r.Title,
		Description:  r.Description,
		Content:      r.Content,
		SourceName:   r.SourceName,
		CanonicalURL: r.CanonicalURL,
		ImageURL:     r.ImageURL,
		PublishedAt:  adapters.ParsePublishedAt(r.PublishedAt, now),
		FirstSeenAt:  now,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
