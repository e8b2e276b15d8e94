package retrieve

import (
	"sync"

	"github.com/marketpulse/core/internal/model"
)

// ChunkMetadata is the source-of-truth chunk store the ingest coordinator
// populates in the same commit that updates the dense and sparse
// indices. It exists so the retriever can resolve chunk text and article
// provenance without either index needing to carry it.
type ChunkMetadata struct {
	mu     sync.RWMutex
	chunks map[string]model.Chunk
}

func NewChunkMetadata() *ChunkMetadata {
	return &ChunkMetadata{chunks: make(map[string]model.Chunk)}
}

// Save records chunks under the same critical section C8 uses to commit
// to the dense and sparse indices.
func (m *ChunkMetadata) Save(chunks []model.Chunk) {
	if len(chunks) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ChunkID] = c
	}
}

// Get resolves chunk ids to their stored chunks, skipping any id not
// found (can happen transiently if an index reports a chunk whose
// metadata write raced — resolved defensively rather than panicking).
func (m *ChunkMetadata) Get(ids []string) []model.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (m *ChunkMetadata) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
