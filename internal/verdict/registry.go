package verdict

import (
	"sync"

	"github.com/marketpulse/core/internal/model"
)

// Registry is the subject → state map C10 updates and C9's router reads
// from. Writes go through compare-and-swap on timestamp (I4): a subject's
// last_updated never decreases.
type Registry struct {
	mu    sync.RWMutex
	state map[string]model.SubjectState
}

func NewRegistry() *Registry {
	return &Registry{state: make(map[string]model.SubjectState)}
}

// CompareAndSwap stores the given state for subject if and only if its
// timestamp is not older than whatever is currently stored. Returns false
// (and leaves the registry untouched) when the write is stale.
func (r *Registry) CompareAndSwap(next model.SubjectState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.state[next.Subject]
	if ok && next.LastUpdated.Before(current.LastUpdated) {
		return false
	}
	r.state[next.Subject] = next
	return true
}

func (r *Registry) Get(subject string) (model.SubjectState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.state[subject]
	return s, ok
}

// Snapshot returns every tracked subject's state. (market_update frames
// are built per subject through Get, not from Snapshot.)
func (r *Registry) Snapshot() []model.SubjectState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.SubjectState, 0, len(r.state))
	for _, s := range r.state {
		out = append(out, s)
	}
	return out
}

func stateFromVerdict(v model.Verdict) model.SubjectState {
	return model.SubjectState{
		Subject:     v.Subject,
		Score:       v.SentimentScore,
		Label:       v.SentimentLabel,
		LastUpdated: v.Timestamp,
	}
}
