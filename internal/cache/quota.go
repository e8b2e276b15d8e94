package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaCounter is a cross-process fixed-window counter for an
// adapter's per-window request budget, backing the in-process
// ratelimit.Counter when multiple core instances share one provider
// credential. Uses INCR+EXPIRE rather than a sorted set: adequate for
// the coarse per-minute windows these adapters use, and it's the pattern
// the teacher's cache service already reaches for (simple key + TTL).
type QuotaCounter struct {
	redis  *redis.Client
	window time.Duration
}

func NewQuotaCounter(client *redis.Client, window time.Duration) *QuotaCounter {
	return &QuotaCounter{redis: client, window: window}
}

// Allow increments the window bucket for adapterName and reports whether
// the caller is still within limit. The bucket key rotates every window
// so a stale counter never needs an explicit reset.
func (q *QuotaCounter) Allow(ctx context.Context, adapterName string, limit int) (bool, error) {
	bucket := time.Now().UnixNano() / q.window.Nanoseconds()
	k := fmt.Sprintf("marketpulse:quota:%s:%d", adapterName, bucket)

	count, err := q.redis.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		q.redis.Expire(ctx, k, q.window)
	}
	return count <= int64(limit), nil
}
