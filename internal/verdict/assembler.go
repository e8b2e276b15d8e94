// Package verdict implements C10: for a given subject, retrieves
// supporting chunks, runs the sentiment → technical → risk → decision
// adapter chain, assembles the response document, updates the subject
// state registry under I4, and broadcasts it through the push hub.
package verdict

import (
	"context"
	"sync"
	"time"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/retrieve"
	"github.com/marketpulse/core/pkg/logger"
)

const (
	maxKeyFactors = 5
	maxSources    = 5
	retrieveTopK  = 5
)

// Retriever is the narrow surface the assembler needs from C6.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieve.Result, error)
}

// Hub is the narrow surface the assembler needs from C11.
type Hub interface {
	BroadcastSubject(subject string, frame model.Frame)
}

// Cache is the narrow surface the assembler needs from internal/cache's
// verdict cache: a short-TTL read-through in front of the adapter chain
// so a burst of identical-subject recommend calls doesn't refire the
// whole sentiment/technical/risk/decision chain per request.
type Cache interface {
	Get(ctx context.Context, subject string) (model.Verdict, bool, error)
	Set(ctx context.Context, v model.Verdict) error
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithReportAdapter attaches the optional fifth adapter that turns an
// assembled verdict into a narrative paragraph.
func WithReportAdapter(r ReportAdapter) Option {
	return func(a *Assembler) { a.report = r }
}

// WithCache attaches a read-through verdict cache to the synchronous
// Recommend path. Recompute always assembles fresh since it exists to
// refresh the cache's and the registry's view of the world.
func WithCache(c Cache) Option {
	return func(a *Assembler) { a.cache = c }
}

// Assembler implements §4.10.
type Assembler struct {
	retriever  Retriever
	sentiment  SentimentAdapter
	technical  TechnicalAdapter
	risk       RiskAdapter
	decision   DecisionAdapter
	report     ReportAdapter
	registry   *Registry
	hub        Hub
	cache      Cache
	log        *logger.Logger

	reportUnavailableOnce sync.Once
}

func New(retriever Retriever, sentiment SentimentAdapter, technical TechnicalAdapter, risk RiskAdapter, decision DecisionAdapter, registry *Registry, hub Hub, log *logger.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		retriever: retriever,
		sentiment: sentiment,
		technical: technical,
		risk:      risk,
		decision:  decision,
		registry:  registry,
		hub:       hub,
		log:       log.Named("verdict_assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute implements subject.Recomputer: assembles a fresh verdict for
// subject and broadcasts it to every subscriber, without returning
// anything to a caller — this is the async path triggered by C9.
func (a *Assembler) Recompute(ctx context.Context, subject string) {
	v := a.assemble(ctx, subject, "")
	if !a.registry.CompareAndSwap(stateFromVerdict(v)) {
		a.log.Info("stale recompute dropped by I4 compare-and-swap", "subject", subject)
		return
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, v); err != nil {
			a.log.Warn("verdict cache write failed", "subject", subject, "error", err)
		}
	}
	a.hub.BroadcastSubject(subject, model.Frame{Type: "verdict", Data: v})
}

// Recommend implements the synchronous recommend(subject, query?) RPC
// (§6). It always returns a verdict, degraded or not; it never surfaces
// a raw adapter error to the caller. A cache hit only applies to the
// default query (an explicit override always assembles fresh, since the
// cache is keyed by subject alone).
func (a *Assembler) Recommend(ctx context.Context, subject, query string) model.Verdict {
	if query == "" && a.cache != nil {
		if cached, ok, err := a.cache.Get(ctx, subject); err == nil && ok {
			return cached
		}
	}

	v := a.assemble(ctx, subject, query)
	a.registry.CompareAndSwap(stateFromVerdict(v))
	if query == "" && a.cache != nil {
		if err := a.cache.Set(ctx, v); err != nil {
			a.log.Warn("verdict cache write failed", "subject", subject, "error", err)
		}
	}
	return v
}

func (a *Assembler) assemble(ctx context.Context, subject, query string) model.Verdict {
	start := time.Now()
	if query == "" {
		query = subject + " stock news"
	}

	results, err := a.retriever.Retrieve(ctx, query, retrieveTopK)
	if err != nil {
		a.log.Warn("retrieval failed during verdict assembly, proceeding with no supporting chunks", "subject", subject, "error", err)
		results = nil
	}

	chunkTexts := make([]string, len(results))
	for i, r := range results {
		chunkTexts[i] = r.Chunk.Text
	}

	sentimentOut := a.callSentiment(ctx, subject, chunkTexts)
	technicalOut := a.callTechnical(ctx, subject)
	riskOut := a.callRisk(ctx, subject, technicalOut)
	decisionOut := a.callDecision(ctx, subject, sentimentOut, technicalOut, riskOut)

	v := model.Verdict{
		Subject:        subject,
		Timestamp:      time.Now(),
		Recommendation: model.Recommendation(decisionOut.Recommendation),
		Confidence:     decisionOut.Confidence * 100,
		SentimentScore: sentimentOut.Score,
		SentimentLabel: model.LabelForScore(sentimentOut.Score),
		TechnicalScore: technicalOut.TechnicalScore,
		RiskScore:      riskOut.RiskScore,
		KeyFactors:     capStrings(sentimentOut.KeyFactors, maxKeyFactors),
		Sources:        sourcesFromResults(results, maxSources),
		PrimaryDriver:  decisionOut.PrimaryDriver,
	}
	v.LatencyMS = time.Since(start).Milliseconds()

	if a.report != nil {
		narrative, err := a.report.Report(ctx, v)
		if err != nil {
			a.reportUnavailableOnce.Do(func() {
				a.log.Info("report adapter unavailable, verdict served without narrative")
			})
		} else {
			v.Narrative = narrative
		}
	}

	return v
}

func (a *Assembler) callSentiment(ctx context.Context, subject string, chunkTexts []string) SentimentOutput {
	out, err := a.sentiment.Sentiment(ctx, subject, chunkTexts)
	if err != nil {
		a.log.Warn("sentiment adapter failed, substituting neutral reading", "subject", subject, "error", err)
		return SentimentOutput{Score: 0, Label: string(model.LabelNeutral), Confidence: 0}
	}
	return out
}

func (a *Assembler) callTechnical(ctx context.Context, subject string) TechnicalOutput {
	out, err := a.technical.Technical(ctx, subject)
	if err != nil {
		a.log.Warn("technical adapter failed, substituting neutral reading", "subject", subject, "error", err)
		return TechnicalOutput{Signal: "HOLD", TechnicalScore: 0}
	}
	return out
}

func (a *Assembler) callRisk(ctx context.Context, subject string, technical TechnicalOutput) RiskOutput {
	out, err := a.risk.Risk(ctx, subject, technical)
	if err != nil {
		a.log.Warn("risk adapter failed, substituting medium-risk default", "subject", subject, "error", err)
		return RiskOutput{RiskLevel: "MEDIUM", RiskScore: 0.5}
	}
	return out
}

// callDecision substitutes the deterministic heuristic fallback from §7
// when the decision adapter fails: final = 0.6*sentiment + 0.4*technical;
// BUY if >0.3, SELL if <-0.3, else HOLD; confidence 0.5; primary_driver
// "Heuristic".
func (a *Assembler) callDecision(ctx context.Context, subject string, sentiment SentimentOutput, technical TechnicalOutput, risk RiskOutput) DecisionOutput {
	out, err := a.decision.Decision(ctx, subject, sentiment, technical, risk)
	if err == nil {
		return out
	}
	a.log.Warn("decision adapter failed, applying heuristic fallback", "subject", subject, "error", err)

	final := 0.6*sentiment.Score + 0.4*technical.TechnicalScore
	rec := "HOLD"
	switch {
	case final > 0.3:
		rec = "BUY"
	case final < -0.3:
		rec = "SELL"
	}
	return DecisionOutput{
		Recommendation: rec,
		Confidence:     0.5,
		Reasoning:      "heuristic",
		PrimaryDriver:  "Heuristic",
	}
}

func capStrings(in []string, max int) []string {
	if len(in) <= max {
		return in
	}
	return in[:max]
}

func sourcesFromResults(results []retrieve.Result, max int) []model.ArticleRef {
	if len(results) > max {
		results = results[:max]
	}
	out := make([]model.ArticleRef, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ArticleRef
	}
	return out
}
