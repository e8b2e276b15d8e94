package sparseindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/model"
)

// Scenario 2 half: hybrid retrieval ranking, sparse side.
func TestSearchRanksRelevantChunksAboveIrrelevant(t *testing.T) {
	s := New(1.5, 0.75)
	s.Add([]model.Chunk{
		{ChunkID: "c1", Text: "alpha reports record quarterly revenue"},
		{ChunkID: "c2", Text: "alpha shares jump on earnings beat"},
		{ChunkID: "c3", Text: "the weather is pleasant in geneva"},
	})

	hits := s.Search("alpha financial performance", 2)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, "c3", h.ChunkID)
	}
}

func TestSearchFiltersZeroScores(t *testing.T) {
	s := New(1.5, 0.75)
	s.Add([]model.Chunk{{ChunkID: "c1", Text: "completely unrelated content"}})
	hits := s.Search("nonexistent query terms", 5)
	assert.Empty(t, hits)
}

func TestSearchEmptyCorpus(t *testing.T) {
	s := New(1.5, 0.75)
	hits := s.Search("anything", 5)
	assert.Empty(t, hits)
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	s := New(1.5, 0.75)
	s.Add([]model.Chunk{
		{ChunkID: "first", Text: "market rally continues"},
		{ChunkID: "second", Text: "market rally continues"},
	})
	hits := s.Search("market rally", 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].ChunkID)
	assert.Equal(t, "second", hits[1].ChunkID)
}
