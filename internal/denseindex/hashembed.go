package denseindex

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashEmbedder is a deterministic, dependency-free default Embedder:
// feature-hashed bag-of-words into a fixed dimension. It exists so the
// composition root has something concrete to wire when no external
// embedding model is configured — the real model is an injected
// collaborator (§6) and can replace this without touching C4.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 128
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dim() int { return h.dim }

func (h *HashEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		idx := int(hasher.Sum32()) % h.dim
		if idx < 0 {
			idx += h.dim
		}
		vec[idx]++
	}
	return vec, nil
}

func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.EmbedOne(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
