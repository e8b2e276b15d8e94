// Package aggregator implements C2: parallel fan-out to every enabled
// source adapter, union of results, fingerprint dedup against a
// persistent seen-set. Two modes, per design note 9's resolved open
// question: "union" (default, parallel, wait for all) and
// "ordered-failover" (sequential, stop at first adapter with results).
package aggregator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/seenset"
	"github.com/marketpulse/core/pkg/logger"
)

// Source is the narrow surface the aggregator needs from a C1 adapter.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) []model.Article
}

// Mode selects the aggregation strategy.
type Mode string

const (
	ModeUnion          Mode = "union"
	ModeOrderedFailover Mode = "ordered-failover"
)

// Aggregator fans out to its sources, dedupes by content fingerprint
// against a persistent seen-set kept across invocations (exclusive to
// this component, per the concurrency model).
type Aggregator struct {
	sources []Source
	mode    Mode
	seen    *seenset.Set
	log     *logger.Logger
}

// New builds an Aggregator over sources using cfg's mode and seen-set
// watermark.
func New(sources []Source, cfg *config.Config, log *logger.Logger) *Aggregator {
	mode := Mode(cfg.AggregatorMode)
	if mode != ModeUnion && mode != ModeOrderedFailover {
		mode = ModeUnion
	}
	return &Aggregator{
		sources: sources,
		mode:    mode,
		seen:    seenset.New(cfg.SeenSetWatermark),
		log:     log.Named("aggregator"),
	}
}

// Aggregate submits one fetch task per enabled adapter, awaits them all
// (union mode) or stops at the first non-empty adapter (ordered-failover
// mode), concatenates, then dedupes against the seen-set. Fails softly:
// if every adapter returns empty, Aggregate returns an empty slice.
func (a *Aggregator) Aggregate(ctx context.Context, query string) []model.Article {
	var raw []model.Article
	switch a.mode {
	case ModeOrderedFailover:
		raw = a.aggregateOrderedFailover(ctx, query)
	default:
		raw = a.aggregateUnion(ctx, query)
	}

	return a.dedupe(raw)
}

// statusReporter is the optional surface a Source may implement to
// contribute to HealthCheck; adapters.Adapter satisfies it via Status().
type statusReporter interface {
	Status() map[string]interface{}
}

// HealthCheck reports this component's status plus a per-source status
// map for every Source that exposes one, using the teacher's
// status+issues idiom (a flat map rather than a typed struct, so callers
// across package boundaries don't need to import a health-report type).
func (a *Aggregator) HealthCheck() map[string]interface{} {
	sources := make(map[string]interface{}, len(a.sources))
	var issues []string
	for _, src := range a.sources {
		if reporter, ok := src.(statusReporter); ok {
			status := reporter.Status()
			sources[src.Name()] = status
			if disabled, _ := status["disabled"].(bool); disabled {
				issues = append(issues, src.Name()+" disabled")
			}
		}
	}
	return map[string]interface{}{
		"status":     "healthy",
		"mode":       string(a.mode),
		"seen_count": a.seen.Len(),
		"sources":    sources,
		"issues":     issues,
	}
}

// aggregateUnion fans out to all sources in parallel and waits for every
// one to complete or its own per-adapter HTTP timeout to expire; no task
// is cancelled on a peer's success since each adapter is cheap and
// independent.
func (a *Aggregator) aggregateUnion(ctx context.Context, query string) []model.Article {
	results := make([][]model.Article, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = src.Fetch(gctx, query)
			return nil
		})
	}
	_ = g.Wait() // adapters never return errors here; Fetch already swallows them

	var out []model.Article
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// aggregateOrderedFailover tries sources in declared order, returning the
// first adapter's non-empty result instead of unioning every source.
func (a *Aggregator) aggregateOrderedFailover(ctx context.Context, query string) []model.Article {
	for _, src := range a.sources {
		articles := src.Fetch(ctx, query)
		if len(articles) > 0 {
			a.log.Debug("ordered-failover served by source", "source", src.Name(), "count", len(articles))
			return articles
		}
	}
	return nil
}

// dedupe assigns each surviving article its fingerprint identity and
// drops duplicates against the persistent seen-set (I1). Order of the
// input is preserved among survivors.
func (a *Aggregator) dedupe(articles []model.Article) []model.Article {
	out := make([]model.Article, 0, len(articles))
	now := time.Now().UTC()
	for _, article := range articles {
		fp := Fingerprint(article)
		if !a.seen.Add(fp) {
			continue
		}
		article.Fingerprint = fp
		if article.FirstSeenAt.IsZero() {
			article.FirstSeenAt = now
		}
		if article.ID == "" {
			article.ID = fp
		}
		out = append(out, article)
	}
	return out
}

// DedupeOne runs a single externally supplied article (the httpapi
// ingest RPC, §6) through the same fingerprint/seen-set check as a
// fetched batch, bypassing C1's adapters and C2's fan-out but not its
// dedup memory. Returns ok=false if the article is a duplicate.
func (a *Aggregator) DedupeOne(article model.Article) (model.Article, bool) {
	out := a.dedupe([]model.Article{article})
	if len(out) == 0 {
		return model.Article{}, false
	}
	return out[0], true
}

// SeenCount exposes the seen-set size for health/metrics reporting.
func (a *Aggregator) SeenCount() int {
	return a.seen.Len()
}
