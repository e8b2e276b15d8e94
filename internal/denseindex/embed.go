package denseindex

import "context"

// Embedder is the injected collaborator contract from §6: a pure,
// deterministic, thread-safe text -> vector mapping with a fixed output
// dimension. The concrete embedder (a real model client) lives outside
// this repo; this interface is the only thing C4 depends on.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}
