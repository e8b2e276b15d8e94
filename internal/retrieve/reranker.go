package retrieve

import "context"

// Reranker is the optional injected cross-encoder collaborator from §6:
// rank(query, texts) -> [score]. May be absent (nil Retriever.reranker).
type Reranker interface {
	Available(ctx context.Context) bool
	Rank(ctx context.Context, query string, texts []string) ([]float64, error)
}
