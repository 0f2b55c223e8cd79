package testutil

import (
	"context"
	"hash/fnv"
	"math"

	chromem "github.com/philippgille/chromem-go"
)

// EmbeddingDim is the dimensionality of HashEmbedding vectors.
const EmbeddingDim = 64

// HashEmbedding is a deterministic chromem.EmbeddingFunc for tests. Each
// word hashes into a fixed-size bag-of-words vector, so texts sharing
// vocabulary land close together under cosine similarity while identical
// inputs always embed identically. No network, no model.
func HashEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, EmbeddingDim)

	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(word)))
		vec[h.Sum32()%EmbeddingDim]++
		word = word[:0]
	}
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == ':' || r == ',' {
			flush()
			continue
		}
		word = append(word, r)
	}
	flush()

	// Normalize so chromem sees unit vectors.
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

var _ chromem.EmbeddingFunc = HashEmbedding
