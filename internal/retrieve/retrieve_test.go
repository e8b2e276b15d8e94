package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/denseindex"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/sparseindex"
	"github.com/marketpulse/core/pkg/logger"
)

func buildTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	dense := denseindex.New(denseindex.NewHashEmbedder(64))
	sparse := sparseindex.New(1.5, 0.75)
	chunks := NewChunkMetadata()

	cs := []model.Chunk{
		{ChunkID: "c1", ArticleID: "a1", Text: "Alpha reports record quarterly revenue."},
		{ChunkID: "c2", ArticleID: "a2", Text: "Alpha shares jump on earnings beat."},
		{ChunkID: "c3", ArticleID: "a3", Text: "The weather is pleasant in Geneva."},
	}
	require.NoError(t, dense.Add(context.Background(), cs))
	sparse.Add(cs)
	chunks.Save(cs)

	return New(dense, sparse, chunks, 60, logger.NewLogger())
}

// Scenario 2: hybrid retrieval ranking.
func TestRetrieveRanksRelevantChunksFirst(t *testing.T) {
	r := buildTestRetriever(t)
	results, err := r.Retrieve(context.Background(), "Alpha financial performance", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, res := range results {
		assert.NotEqual(t, "c3", res.Chunk.ChunkID)
	}
}

type fakeReranker struct {
	available bool
	order     []int // indices into the input texts, descending preference
}

func (f *fakeReranker) Available(ctx context.Context) bool { return f.available }
func (f *fakeReranker) Rank(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for rank, idx := range f.order {
		scores[idx] = float64(len(f.order) - rank)
	}
	return scores, nil
}

func TestRerankReordersResults(t *testing.T) {
	dense := denseindex.New(denseindex.NewHashEmbedder(64))
	sparse := sparseindex.New(1.5, 0.75)
	chunks := NewChunkMetadata()
	cs := []model.Chunk{
		{ChunkID: "c1", Text: "alpha beta gamma"},
		{ChunkID: "c2", Text: "alpha beta gamma delta"},
	}
	require.NoError(t, dense.Add(context.Background(), cs))
	sparse.Add(cs)
	chunks.Save(cs)

	reranker := &fakeReranker{available: true, order: []int{1, 0}}
	r := New(dense, sparse, chunks, 60, logger.NewLogger(), WithReranker(reranker))

	results, err := r.Retrieve(context.Background(), "alpha beta", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].Chunk.ChunkID)
}

// A reranker that always promotes the candidate named in promote, if it's
// in the window it was handed. Used to probe exactly which slice of the
// fused list the reranker sees.
type windowProbeReranker struct {
	promote   string
	sawWindow int
}

func (p *windowProbeReranker) Available(ctx context.Context) bool { return true }
func (p *windowProbeReranker) Rank(ctx context.Context, query string, texts []string) ([]float64, error) {
	p.sawWindow = len(texts)
	return make([]float64, len(texts)), nil
}

// Scenario: spec.md §4.6 step 4 requires reranking only the top 2k of the
// fused list, never the entire fused candidate set.
func TestRerankOnlySeesTop2K(t *testing.T) {
	dense := denseindex.New(denseindex.NewHashEmbedder(64))
	sparse := sparseindex.New(1.5, 0.75)
	chunks := NewChunkMetadata()

	var cs []model.Chunk
	for i := 0; i < 10; i++ {
		cs = append(cs, model.Chunk{ChunkID: "dense-only-" + string(rune('a'+i)), Text: "unrelated filler content"})
	}
	for i := 0; i < 10; i++ {
		cs = append(cs, model.Chunk{ChunkID: "sparse-only-" + string(rune('a'+i)), Text: "alpha beta gamma distinct tokens"})
	}
	require.NoError(t, dense.Add(context.Background(), cs))
	sparse.Add(cs)
	chunks.Save(cs)

	probe := &windowProbeReranker{}
	r := New(dense, sparse, chunks, 60, logger.NewLogger(), WithReranker(probe))

	k := 3
	_, err := r.Retrieve(context.Background(), "alpha beta gamma", k)
	require.NoError(t, err)
	assert.LessOrEqual(t, probe.sawWindow, 2*k)
}

func TestRerankSkippedWhenUnavailable(t *testing.T) {
	r := buildTestRetriever(t)
	r.reranker = &fakeReranker{available: false}
	results, err := r.Retrieve(context.Background(), "Alpha financial performance", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFuseGivesZeroContributionForAbsentList(t *testing.T) {
	out := fuse([]string{"a", "b"}, []float64{0.9, 0.5}, nil, nil, 60)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].chunkID)
	assert.Equal(t, 0.0, out[0].bm25Score)
}
