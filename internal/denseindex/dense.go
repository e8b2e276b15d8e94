// Package denseindex implements C4: embedding generation plus cosine KNN
// search over chunks. Single-writer (Add), many-readers (Search), kept
// in lockstep with the sparse index by the ingest coordinator's single
// write-exclusive critical section (C8) — this package only guarantees
// that its own Add is atomic with respect to its own Search.
package denseindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/marketpulse/core/internal/model"
)

// Hit is one search result: a chunk id and its cosine similarity.
type Hit struct {
	ChunkID string
	Score   float64
}

// Store holds dense records and an embedder collaborator.
type Store struct {
	mu       sync.RWMutex
	records  []model.DenseRecord
	embedder Embedder
}

func New(embedder Embedder) *Store {
	return &Store{embedder: embedder}
}

// Add generates embeddings for chunks in a single batch, then appends the
// resulting (chunk_id, vector) rows under the write lock so no reader
// observes a partially-appended batch.
func (s *Store) Add(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]model.DenseRecord, len(chunks))
	for i, c := range chunks {
		records[i] = model.DenseRecord{ChunkID: c.ChunkID, Vector: vectors[i]}
	}

	s.mu.Lock()
	s.records = append(s.records, records...)
	s.mu.Unlock()
	return nil
}

// Search L2-normalizes the query and every stored vector at query time,
// returns the top-k by descending cosine similarity, ties broken by
// insertion order.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	qvec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qnorm := normalize(qvec)

	s.mu.RLock()
	records := make([]model.DenseRecord, len(s.records))
	copy(records, s.records)
	s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	scoredHits := make([]scored, 0, len(records))
	for i, r := range records {
		score := dot(qnorm, normalize(r.Vector))
		scoredHits = append(scoredHits, scored{idx: i, score: score})
	}

	sort.SliceStable(scoredHits, func(i, j int) bool {
		return scoredHits[i].score > scoredHits[j].score
	})

	if k > len(scoredHits) {
		k = len(scoredHits)
	}
	out := make([]Hit, k)
	for i := 0; i < k; i++ {
		out[i] = Hit{ChunkID: records[scoredHits[i].idx].ChunkID, Score: scoredHits[i].score}
	}
	return out, nil
}

// Size returns the number of indexed dense records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
