// Package retrieve implements C6: RRF fusion of the dense and sparse
// indices, with an optional cross-encoder rerank pass. Safe to call
// concurrently with ingestion — reads are snapshots of whatever C4/C5
// happen to hold at call time; commit discipline in C8 keeps the two in
// lockstep (I3), this package just must not crash on asymmetry.
package retrieve

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marketpulse/core/internal/denseindex"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/sparseindex"
	"github.com/marketpulse/core/pkg/logger"
)

// Result is one ranked chunk returned to a caller of Retrieve.
type Result struct {
	Chunk     model.Chunk
	Score     float64
	BM25Score float64
	VecScore  float64
}

// Option configures a Retriever. Mirrors the functional-options idiom
// used across this codebase's constructors.
type Option func(*Retriever)

// WithReranker attaches an optional cross-encoder.
func WithReranker(r Reranker) Option {
	return func(ret *Retriever) { ret.reranker = r }
}

// Retriever fuses C4 (dense) and C5 (sparse) with Reciprocal Rank Fusion
// and an optional rerank pass.
type Retriever struct {
	dense    *denseindex.Store
	sparse   *sparseindex.Store
	chunks   *ChunkMetadata
	reranker Reranker
	rrfK     int
	log      *logger.Logger

	rerankUnavailableOnce sync.Once
}

func New(dense *denseindex.Store, sparse *sparseindex.Store, chunks *ChunkMetadata, rrfK int, log *logger.Logger, opts ...Option) *Retriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	r := &Retriever{
		dense:  dense,
		sparse: sparse,
		chunks: chunks,
		rrfK:   rrfK,
		log:    log.Named("retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve implements §4.6: ask C4/C5 for 2k candidates each, fuse by
// RRF, optionally rerank the top 2k, return the top k.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = 5
	}
	askK := 2 * k

	var denseHits []denseindex.Hit
	var sparseHits []sparseindex.Hit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.dense.Search(gctx, query, askK)
		if err != nil {
			// Dense failure degrades to sparse-only rather than failing
			// the whole query — an unreachable chunk in one list is
			// tolerated per §4.6.
			r.log.Warn("dense search failed, degrading to sparse-only", "error", err)
			return nil
		}
		denseHits = hits
		return nil
	})
	g.Go(func() error {
		sparseHits = r.sparse.Search(query, askK)
		return nil
	})
	_ = g.Wait()

	denseIDs := make([]string, len(denseHits))
	denseScores := make([]float64, len(denseHits))
	for i, h := range denseHits {
		denseIDs[i] = h.ChunkID
		denseScores[i] = h.Score
	}
	sparseIDs := make([]string, len(sparseHits))
	sparseScores := make([]float64, len(sparseHits))
	for i, h := range sparseHits {
		sparseIDs[i] = h.ChunkID
		sparseScores[i] = h.Score
	}

	fused := fuse(denseIDs, denseScores, sparseIDs, sparseScores, r.rrfK)

	// §4.6 step 4: the reranker only ever sees the top 2k of the RRF
	// fusion, never the full (up to ~4k) fused candidate set, so a chunk
	// ranked outside that window can't win the final top-k on reranker
	// score alone.
	rerankWindow := 2 * k
	if rerankWindow > len(fused) {
		rerankWindow = len(fused)
	}
	fused = r.rerank(ctx, query, fused[:rerankWindow])

	if k > len(fused) {
		k = len(fused)
	}
	fused = fused[:k]

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.chunkID
	}
	chunks := r.chunks.Get(ids)
	byID := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		c, ok := byID[f.chunkID]
		if !ok {
			continue
		}
		results = append(results, Result{
			Chunk:     c,
			Score:     f.rrfScore,
			BM25Score: f.bm25Score,
			VecScore:  f.vecScore,
		})
	}
	return results, nil
}

// rerank applies the optional cross-encoder to the top 2k of the fused
// list, skipping gracefully (logged once) if no reranker is configured,
// fewer than 2 candidates exist, or the reranker reports unavailable.
func (r *Retriever) rerank(ctx context.Context, query string, fused []fusedResult) []fusedResult {
	if r.reranker == nil || len(fused) < 2 {
		return fused
	}
	if !r.reranker.Available(ctx) {
		r.rerankUnavailableOnce.Do(func() {
			r.log.Info("reranker unavailable, returning fused ranking")
		})
		return fused
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.chunkID
	}
	chunks := r.chunks.Get(ids)
	byID := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}

	texts := make([]string, len(fused))
	for i, f := range fused {
		texts[i] = byID[f.chunkID].Text
	}

	scores, err := r.reranker.Rank(ctx, query, texts)
	if err != nil || len(scores) != len(fused) {
		r.log.Warn("rerank failed, returning fused ranking", "error", err)
		return fused
	}

	ranked := make([]scoredIdx, len(fused))
	for i := range fused {
		ranked[i] = scoredIdx{idx: i, score: scores[i]}
	}
	sortScoredIdxDesc(ranked)

	out := make([]fusedResult, len(fused))
	for i, s := range ranked {
		out[i] = fused[s.idx]
	}
	return out
}
