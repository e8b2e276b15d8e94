package adapters

import (
	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/pkg/logger"
)

// BuildAll constructs the five spec-named variants from config, the
// composition root's single entry point into this package. quota backs
// the cross-process request budget shared by every instance polling with
// the same provider credential; pass nil to run on the in-process
// limiter alone (e.g. in tests).
func BuildAll(cfg config.AdapterConfigs, log *logger.Logger, quota Quota) []*Adapter {
	return []*Adapter{
		NewBreakingNews(cfg.BreakingNews, log, quota),
		NewCompanyNews(cfg.CompanyNews, log, quota),
		NewSentimentTaggedNews(cfg.SentimentTaggedNews, log, quota),
		NewBusinessNews(cfg.BusinessNews, log, quota),
		NewPublicFeed(cfg.PublicFeed, log, quota),
	}
}
