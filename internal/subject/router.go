// Package subject implements C9: maps a committed batch of chunks to the
// subjects it touches, and schedules a verdict recomputation through C10
// for every subject that currently has an active subscriber. Recomputation
// is coalesced per subject (P5): at most one in flight, at most one queued
// follow-up, so a burst of articles about the same subject triggers a
// single recompute pass rather than a storm of redundant ones.
package subject

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

// marketToken is the literal token whose presence in any chunk triggers
// the pseudo-subject "*market*" fan-out, per §4.9.
const marketToken = "MARKET"

// MarketSubject is the pseudo-subject key used for market-wide updates.
const MarketSubject = "*market*"

// ActiveSubjects is the narrow surface the router needs from C11: the set
// of subjects that currently have at least one live subscriber. Only
// active subjects are worth recomputing.
type ActiveSubjects interface {
	ActiveSubjects() []string
}

// Recomputer is the narrow surface the router needs from C10.
type Recomputer interface {
	Recompute(ctx context.Context, subject string)
}

// StateReader is the narrow surface the router needs from C10's subject
// registry: the latest known score/label for a subject, used to fill the
// market_update delta broadcast alongside the scheduling it already does.
type StateReader interface {
	Get(subject string) (model.SubjectState, bool)
}

// GlobalBroadcaster is the narrow surface the router needs from C11 to
// emit market_update frames (§6), distinct from ActiveSubjects since the
// hub here is acting as a sink for every subscriber, not a subject-scoped
// lookup.
type GlobalBroadcaster interface {
	BroadcastGlobal(frame model.Frame)
}

// Router implements the ingest.Router interface C8 depends on.
type Router struct {
	hub    ActiveSubjects
	assemb Recomputer
	state  StateReader
	global GlobalBroadcaster
	log    *logger.Logger

	mu     sync.Mutex
	flight map[string]*inflight
}

type inflight struct {
	running bool
	queued  bool
}

func New(hub ActiveSubjects, assembler Recomputer, state StateReader, global GlobalBroadcaster, log *logger.Logger) *Router {
	return &Router{
		hub:    hub,
		assemb: assembler,
		state:  state,
		global: global,
		log:    log.Named("subject_router"),
		flight: make(map[string]*inflight),
	}
}

// OnCommitted implements ingest.Router. It computes the union of subject
// tags across the committed chunks plus the *market* pseudo-subject, then
// schedules a coalesced recomputation for every subject that intersects
// the hub's active subscription set.
func (r *Router) OnCommitted(ctx context.Context, articles []model.Article, chunks []model.Chunk) {
	touched := touchedSubjects(chunks)
	if len(touched) == 0 {
		return
	}

	active := make(map[string]struct{})
	for _, s := range r.hub.ActiveSubjects() {
		active[s] = struct{}{}
	}

	var entries []model.MarketUpdateEntry
	for subject := range touched {
		if _, ok := active[subject]; !ok {
			continue
		}
		r.schedule(ctx, subject)
		entries = append(entries, r.marketUpdateEntry(subject))
	}

	if len(entries) > 0 {
		r.global.BroadcastGlobal(model.Frame{Type: "market_update", Data: entries})
	}
}

// marketUpdateEntry builds the market_update delta for subject from
// whatever C10 currently has on record. A subject touched for the first
// time has no prior state yet (its recompute is still in flight), so the
// entry is stamped with a zero score and the current time rather than
// waiting on the async recompute to finish.
func (r *Router) marketUpdateEntry(subject string) model.MarketUpdateEntry {
	if state, ok := r.state.Get(subject); ok {
		return model.MarketUpdateEntry{Subject: subject, Score: state.Score, Updated: state.LastUpdated}
	}
	return model.MarketUpdateEntry{Subject: subject, Score: 0, Updated: time.Now()}
}

// touchedSubjects computes the union of subject tags across chunks, plus
// the *market* pseudo-subject when any chunk's text contains the literal
// token MARKET.
func touchedSubjects(chunks []model.Chunk) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range chunks {
		for _, tag := range c.SubjectTags {
			out[tag] = struct{}{}
		}
		if containsMarketToken(c.Text) {
			out[MarketSubject] = struct{}{}
		}
	}
	return out
}

func containsMarketToken(text string) bool {
	for _, field := range strings.Fields(text) {
		if strings.Trim(field, ".,!?;:\"'()") == marketToken {
			return true
		}
	}
	return false
}

// schedule enforces the per-subject single-flight: at most one recompute
// goroutine active per subject, at most one queued follow-up (P5).
func (r *Router) schedule(ctx context.Context, subject string) {
	r.mu.Lock()
	state, ok := r.flight[subject]
	if !ok {
		state = &inflight{}
		r.flight[subject] = state
	}
	if state.running {
		state.queued = true
		r.mu.Unlock()
		return
	}
	state.running = true
	r.mu.Unlock()

	go r.run(ctx, subject, state)
}

func (r *Router) run(ctx context.Context, subject string, state *inflight) {
	for {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("recompute panicked", "subject", subject, "panic", rec)
				}
			}()
			r.assemb.Recompute(ctx, subject)
		}()

		r.mu.Lock()
		if state.queued {
			state.queued = false
			r.mu.Unlock()
			continue
		}
		state.running = false
		r.mu.Unlock()
		return
	}
}
