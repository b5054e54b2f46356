package testsupport

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic embeddings provider for tests: tokens
// are hashed into a fixed-size bag-of-words vector, normalized to unit
// length. Similar texts share tokens and therefore cosine similarity,
// which is all the memory tests need.
type HashEmbedder struct {
	Dim int
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dim: 64}
}

func (e *HashEmbedder) Name() string    { return "hash-embedder" }
func (e *HashEmbedder) Dimensions() int { return e.Dim }

func (e *HashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.Dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(tok, ".,:;!?()[]")))
		vec[h.Sum32()%uint32(e.Dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
