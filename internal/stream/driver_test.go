package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

type stubSource struct {
	batches [][]model.Article
	idx     int
	mu      sync.Mutex
}

func (s *stubSource) Aggregate(ctx context.Context, query string) []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.batches) {
		return nil
	}
	b := s.batches[s.idx]
	s.idx++
	return b
}

type recordingSink struct {
	mu     sync.Mutex
	events []ArticleAdmitted
}

func (r *recordingSink) Admit(ctx context.Context, event ArticleAdmitted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) snapshot() []ArticleAdmitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArticleAdmitted, len(r.events))
	copy(out, r.events)
	return out
}

func TestDriverEmitsMonotonicSequenceNumbers(t *testing.T) {
	source := &stubSource{batches: [][]model.Article{
		{{ID: "a1"}, {ID: "a2"}},
		{{ID: "a3"}},
	}}
	sink := &recordingSink{}
	d := New(source, sink, 5*time.Millisecond, logger.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	events := sink.snapshot()
	require.GreaterOrEqual(t, len(events), 2)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
}

// panickingSink panics when admitting the article with ID "boom" and
// records every other event.
type panickingSink struct {
	recordingSink
}

func (p *panickingSink) Admit(ctx context.Context, event ArticleAdmitted) {
	if event.Article.ID == "boom" {
		panic("sink failure")
	}
	p.recordingSink.Admit(ctx, event)
}

func TestDriverSurvivesPanicInTick(t *testing.T) {
	source := &stubSource{batches: [][]model.Article{{{ID: "boom"}}, {{ID: "a2"}}}}
	sink := &panickingSink{}
	d := New(source, sink, 5*time.Millisecond, logger.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.NotPanics(t, func() {
		d.Run(ctx)
	})

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "a2", events[0].Article.ID)
}
