package subject

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

type stubHub struct {
	subjects []string
}

func (s *stubHub) ActiveSubjects() []string { return s.subjects }

type stubStateReader struct {
	states map[string]model.SubjectState
}

func (s *stubStateReader) Get(subject string) (model.SubjectState, bool) {
	st, ok := s.states[subject]
	return st, ok
}

type stubGlobalBroadcaster struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (s *stubGlobalBroadcaster) BroadcastGlobal(frame model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *stubGlobalBroadcaster) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *stubGlobalBroadcaster) last() model.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[len(s.frames)-1]
}

type blockingRecomputer struct {
	mu      sync.Mutex
	calls   map[string]int
	release chan struct{}
	started chan string
}

func newBlockingRecomputer() *blockingRecomputer {
	return &blockingRecomputer{
		calls:   make(map[string]int),
		release: make(chan struct{}),
		started: make(chan string, 16),
	}
}

func (b *blockingRecomputer) Recompute(ctx context.Context, subject string) {
	b.mu.Lock()
	b.calls[subject]++
	b.mu.Unlock()
	b.started <- subject
	<-b.release
}

func (b *blockingRecomputer) count(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[subject]
}

func TestRouterOnlySchedulesActiveSubjects(t *testing.T) {
	hub := &stubHub{subjects: []string{"AAPL"}}
	rec := newBlockingRecomputer()
	close(rec.release) // recompute returns immediately
	r := New(hub, rec, &stubStateReader{}, &stubGlobalBroadcaster{}, logger.NewLogger())

	chunks := []model.Chunk{
		{ChunkID: "c1", SubjectTags: []string{"AAPL"}},
		{ChunkID: "c2", SubjectTags: []string{"TSLA"}},
	}
	r.OnCommitted(context.Background(), nil, chunks)

	require.Eventually(t, func() bool { return rec.count("AAPL") == 1 }, 200*time.Millisecond, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.count("TSLA"), "inactive subject must not trigger a recompute")
}

func TestRouterMarketPseudoSubject(t *testing.T) {
	hub := &stubHub{subjects: []string{MarketSubject}}
	rec := newBlockingRecomputer()
	close(rec.release)
	global := &stubGlobalBroadcaster{}
	r := New(hub, rec, &stubStateReader{}, global, logger.NewLogger())

	chunks := []model.Chunk{{ChunkID: "c1", Text: "Broad MARKET rally continues today."}}
	r.OnCommitted(context.Background(), nil, chunks)

	require.Eventually(t, func() bool { return rec.count(MarketSubject) == 1 }, 200*time.Millisecond, 5*time.Millisecond)
}

// Scenario 4: an ingested batch that touches an active subject produces
// exactly one market_update frame on the push channel, covering every
// touched+active subject in that batch.
func TestRouterBroadcastsOneMarketUpdatePerBatch(t *testing.T) {
	hub := &stubHub{subjects: []string{"AAPL", "TSLA"}}
	rec := newBlockingRecomputer()
	close(rec.release)
	states := &stubStateReader{states: map[string]model.SubjectState{
		"AAPL": {Subject: "AAPL", Score: 0.5, Label: model.Label("bullish")},
	}}
	global := &stubGlobalBroadcaster{}
	r := New(hub, rec, states, global, logger.NewLogger())

	chunks := []model.Chunk{
		{ChunkID: "c1", SubjectTags: []string{"AAPL"}},
		{ChunkID: "c2", SubjectTags: []string{"TSLA"}},
	}
	r.OnCommitted(context.Background(), nil, chunks)

	require.Eventually(t, func() bool { return global.count() == 1 }, 200*time.Millisecond, 5*time.Millisecond)

	frame := global.last()
	assert.Equal(t, "market_update", frame.Type)
	entries, ok := frame.Data.([]model.MarketUpdateEntry)
	require.True(t, ok)
	assert.Len(t, entries, 2)

	var sawAAPL bool
	for _, e := range entries {
		if e.Subject == "AAPL" {
			sawAAPL = true
			assert.Equal(t, 0.5, e.Score)
		}
	}
	assert.True(t, sawAAPL)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, global.count(), "one batch must produce exactly one market_update frame, not one per subject")
}

func TestRouterCoalescesBurstIntoOneFollowUp(t *testing.T) {
	hub := &stubHub{subjects: []string{"AAPL"}}
	rec := newBlockingRecomputer()
	r := New(hub, rec, &stubStateReader{}, &stubGlobalBroadcaster{}, logger.NewLogger())

	chunks := []model.Chunk{{ChunkID: "c1", SubjectTags: []string{"AAPL"}}}

	r.OnCommitted(context.Background(), nil, chunks)
	<-rec.started // first recompute now running/blocked

	// Fire two more triggers while the first is in flight: both must
	// coalesce into a single queued follow-up (P5).
	r.OnCommitted(context.Background(), nil, chunks)
	r.OnCommitted(context.Background(), nil, chunks)

	rec.release <- struct{}{} // let the first call return
	<-rec.started             // the single coalesced follow-up starts
	rec.release <- struct{}{}

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 2, rec.count("AAPL"), "burst of 3 triggers must coalesce to exactly 2 recompute calls")
}
