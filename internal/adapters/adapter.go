// Package adapters implements C1: one capability record per provider
// variant (breaking-news, company-news, sentiment-tagged-news,
// business-news, public-feed), each polymorphic over {name, fetch}. No
// inheritance — a tagged variant plus embedded rate-limit state, per the
// "re-architect as a small capability record" design note.
package adapters

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/ratelimit"
	"github.com/marketpulse/core/pkg/logger"
)

// ErrAuthFailed is returned by a FetchFunc to signal an authentication
// failure, which flips the adapter into a sticky disabled state.
var ErrAuthFailed = errors.New("adapter: authentication failed")

// FetchFunc performs the provider-specific HTTP call and maps the
// response into the canonical article shape. It must never panic on a
// transport error — the wrapping Adapter.Fetch already treats any
// returned error as "log and return empty" except ErrAuthFailed.
type FetchFunc func(ctx context.Context, client *http.Client, query string) ([]model.Article, error)

// symbolPattern matches a 1-5 letter uppercase subject symbol.
var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// IsSymbol reports whether query looks like a subject symbol.
func IsSymbol(query string) bool {
	return symbolPattern.MatchString(query)
}

// Quota is the cross-process rate budget an adapter consults alongside
// its own in-process ratelimit.Counter, so a provider credential shared
// by multiple core instances still sees one aggregate window rather than
// each instance independently believing it has the full budget.
type Quota interface {
	Allow(ctx context.Context, adapterName string, limit int) (bool, error)
}

// Adapter is the capability record: a name, embedded rate-limit state,
// and a fetch function. Fetch never throws for transport errors; it logs
// and returns an empty list instead.
type Adapter struct {
	name     string
	client   *http.Client
	counter  *ratelimit.Counter
	breaker  *ratelimit.Breaker
	quota    Quota
	disabled atomic.Bool
	log      *logger.Logger
	fetch    FetchFunc
	cfg      config.AdapterConfig
}

// New builds an adapter. A missing credential (cfg.Enabled == false)
// starts the adapter pre-disabled, per "disabled silently" in §6. quota
// may be nil, in which case Fetch relies solely on the in-process
// limiter (used by tests that don't stand up Redis).
func New(cfg config.AdapterConfig, log *logger.Logger, fetch FetchFunc, quota Quota) *Adapter {
	a := &Adapter{
		name:    cfg.Name,
		client:  &http.Client{Timeout: 15 * time.Second},
		counter: ratelimit.NewCounter(time.Duration(cfg.MinIntervalMS)*time.Millisecond, cfg.WindowRequests, cfg.Window),
		breaker: ratelimit.NewBreaker(cfg.CircuitThreshold, cfg.CircuitReset),
		quota:   quota,
		log:     log.Named(cfg.Name),
		fetch:   fetch,
		cfg:     cfg,
	}
	a.disabled.Store(!cfg.Enabled)
	return a
}

func (a *Adapter) Name() string { return a.name }

// Fetch returns a finite list of normalized articles. Never throws for
// transport errors (logs + returns empty); returns empty immediately if
// the adapter is disabled or self-rate-limited, without a network call.
func (a *Adapter) Fetch(ctx context.Context, query string) []model.Article {
	if a.disabled.Load() {
		return nil
	}
	if !a.breaker.Allow() {
		a.log.Debug("skipping fetch, circuit open")
		return nil
	}
	if !a.counter.Allow() {
		a.log.Debug("skipping fetch, rate limited")
		return nil
	}
	if a.quota != nil {
		ok, err := a.quota.Allow(ctx, a.name, a.cfg.WindowRequests)
		if err != nil {
			a.log.Warn("quota check failed, proceeding on in-process limiter only", "error", err)
		} else if !ok {
			a.log.Debug("skipping fetch, cross-process quota exhausted")
			return nil
		}
	}

	articles, err := a.fetch(ctx, a.client, query)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			a.log.Error("auth failure, disabling adapter until restart", "error", err)
			a.disabled.Store(true)
			return nil
		}
		a.log.Warn("fetch failed, returning empty", "error", err)
		a.breaker.RecordFailure()
		return nil
	}

	a.breaker.RecordSuccess()
	if articles == nil {
		return []model.Article{}
	}
	return articles
}

// Status reports the adapter's current operational state for health
// checks and the /healthz façade.
func (a *Adapter) Status() map[string]interface{} {
	return map[string]interface{}{
		"name":            a.name,
		"disabled":        a.disabled.Load(),
		"circuit_state":   a.breaker.State(),
		"remaining_quota": a.counter.Remaining(),
	}
}
