// Package cache adapts the teacher's Redis-backed caching idiom
// (Get/SetEx with JSON-encoded entries, redis.Nil as the miss signal,
// hit/miss statistics) from article-list caching to two much narrower
// jobs this domain actually needs: a verdict cache for C10's synchronous
// recommend RPC, and a cross-process quota counter backing C1's adapter
// rate limiting when multiple core instances share one set of provider
// credentials.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

// VerdictCache stores the most recently assembled verdict per subject,
// so repeated recommend(subject) calls within the TTL window skip the
// full retrieve+adapter-chain assembly.
type VerdictCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

func NewVerdictCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *VerdictCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &VerdictCache{redis: client, ttl: ttl, log: log.Named("verdict_cache")}
}

func key(subject string) string {
	return "marketpulse:verdict:" + subject
}

// Get returns the cached verdict for subject, or (zero, false, nil) on a
// clean miss. A decode failure is treated as a miss rather than an error
// — a stale/corrupt cache entry should never block the synchronous
// recommend path.
func (c *VerdictCache) Get(ctx context.Context, subject string) (model.Verdict, bool, error) {
	data, err := c.redis.Get(ctx, key(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.recordMiss()
			return model.Verdict{}, false, nil
		}
		return model.Verdict{}, false, err
	}

	var v model.Verdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.log.Warn("discarding corrupt verdict cache entry", "subject", subject, "error", err)
		c.recordMiss()
		return model.Verdict{}, false, nil
	}
	c.recordHit()
	return v, true, nil
}

func (c *VerdictCache) Set(ctx context.Context, v model.Verdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.redis.SetEx(ctx, key(v.Subject), data, c.ttl).Err()
}

func (c *VerdictCache) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
}

func (c *VerdictCache) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
}

// Stats reports hit/miss counters for the health/metrics surface.
func (c *VerdictCache) Stats() (hits, misses int64) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.hits, c.misses
}
