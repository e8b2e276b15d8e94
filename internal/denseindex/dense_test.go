package denseindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/model"
)

func TestAddAndSearchOrdersByCosineSimilarity(t *testing.T) {
	store := New(NewHashEmbedder(64))
	ctx := context.Background()

	chunks := []model.Chunk{
		{ChunkID: "c1", Text: "alpha reports record quarterly revenue"},
		{ChunkID: "c2", Text: "alpha shares jump on earnings beat"},
		{ChunkID: "c3", Text: "the weather is pleasant in geneva"},
	}
	require.NoError(t, store.Add(ctx, chunks))
	assert.Equal(t, 3, store.Size())

	hits, err := store.Search(ctx, "alpha financial performance", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	ids := map[string]bool{hits[0].ChunkID: true, hits[1].ChunkID: true}
	assert.True(t, ids["c1"] || ids["c2"])
}

func TestSearchEmptyStoreReturnsNoHits(t *testing.T) {
	store := New(NewHashEmbedder(32))
	hits, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAddIsAtomicUnderConcurrentSearch(t *testing.T) {
	store := New(NewHashEmbedder(32))
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = store.Add(ctx, []model.Chunk{{ChunkID: "x", Text: "market update"}})
		}
	}()
	for i := 0; i < 50; i++ {
		_, _ = store.Search(ctx, "market", 5)
	}
	<-done
	assert.Equal(t, 50, store.Size())
}
