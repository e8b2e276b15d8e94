// Package hub implements C11: a subject-keyed subscriber registry with
// per-sink FIFO delivery and drop-oldest backpressure. Grounded on the
// improved pub-sub broker pattern from the example pack (per-subscriber
// buffered delivery, a drain goroutine per subscriber, non-blocking
// publish) adapted from drop-newest to drop-oldest, since a subscriber
// here wants the latest market state, not the oldest queued frame.
package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

// Sink is the push transport a subscriber registers. Send delivers one
// frame; an error is logged and the delivery dropped, but the sink is
// never unsubscribed by the hub itself (the transport layer owns its own
// connection lifecycle and unsubscribes on terminal disconnect).
type Sink interface {
	Send(ctx context.Context, frame model.Frame) error
}

// Hub implements C11.
type Hub struct {
	mu        sync.RWMutex
	bySubject map[string]map[string]*subscriberQueue
	watermark int
	log       *logger.Logger
}

func New(watermark int, log *logger.Logger) *Hub {
	if watermark <= 0 {
		watermark = 256
	}
	return &Hub{
		bySubject: make(map[string]map[string]*subscriberQueue),
		watermark: watermark,
		log:       log.Named("push_hub"),
	}
}

// Subscribe registers sink for subject and returns its subscriber id.
// Starts a dedicated drain goroutine that delivers frames to sink in
// FIFO order until Unsubscribe is called.
func (h *Hub) Subscribe(ctx context.Context, subject string, sink Sink) string {
	id := uuid.NewString()
	q := newSubscriberQueue(h.watermark)

	h.mu.Lock()
	if h.bySubject[subject] == nil {
		h.bySubject[subject] = make(map[string]*subscriberQueue)
	}
	h.bySubject[subject][id] = q
	h.mu.Unlock()

	go h.drain(ctx, subject, id, sink, q)
	return id
}

// Unsubscribe removes the subscriber and stops its drain goroutine. A
// subsequent Subscribe/Unsubscribe pair leaves the registry identical to
// its pre-subscribe snapshot, per the idempotence property in §8.
func (h *Hub) Unsubscribe(subject, id string) {
	h.mu.Lock()
	subs, ok := h.bySubject[subject]
	if !ok {
		h.mu.Unlock()
		return
	}
	q, ok := subs[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.bySubject, subject)
	}
	h.mu.Unlock()

	q.close()
}

// ActiveSubjects implements subject.ActiveSubjects: subjects with at
// least one live subscriber are worth recomputing on ingest.
func (h *Hub) ActiveSubjects() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.bySubject))
	for subject, subs := range h.bySubject {
		if len(subs) > 0 {
			out = append(out, subject)
		}
	}
	return out
}

// BroadcastSubject delivers frame to every sink registered for subject.
// Per-sink isolation: a slow or failing sink never blocks delivery to its
// peers.
func (h *Hub) BroadcastSubject(subject string, frame model.Frame) {
	h.mu.RLock()
	subs := h.bySubject[subject]
	queues := make([]*subscriberQueue, 0, len(subs))
	for _, q := range subs {
		queues = append(queues, q)
	}
	h.mu.RUnlock()

	for _, q := range queues {
		q.enqueue(frame)
	}
}

// BroadcastGlobal delivers frame to the union of all sinks across every
// subject, used for market_update and metrics_update frames.
func (h *Hub) BroadcastGlobal(frame model.Frame) {
	h.mu.RLock()
	var queues []*subscriberQueue
	for _, subs := range h.bySubject {
		for _, q := range subs {
			queues = append(queues, q)
		}
	}
	h.mu.RUnlock()

	for _, q := range queues {
		q.enqueue(frame)
	}
}

// HealthCheck reports subscriber counts using the teacher's
// status+issues map idiom.
func (h *Hub) HealthCheck() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subjects := len(h.bySubject)
	subscribers := 0
	for _, subs := range h.bySubject {
		subscribers += len(subs)
	}

	return map[string]interface{}{
		"status":            "healthy",
		"active_subjects":   subjects,
		"total_subscribers": subscribers,
		"watermark":         h.watermark,
		"issues":            []string{},
	}
}

func (h *Hub) drain(ctx context.Context, subject, id string, sink Sink, q *subscriberQueue) {
	for {
		frame, ok := q.next()
		if !ok {
			return
		}
		if err := sink.Send(ctx, frame); err != nil {
			h.log.Warn("sink delivery failed, dropping frame", "subject", subject, "subscriber", id, "error", err)
		}
	}
}
