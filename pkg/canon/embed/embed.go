// Package embed defines the embedding capability the similarity scorer depends
// on, plus the cosine matrix computed from it.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/cognicore/canon/pkg/canon/internalerr"
)

// Provider turns tokens into dense vectors. Implementations must return one
// vector per input token, in input order, all of the same dimension, and must
// be stable for a given token and model version.
type Provider interface {
	Embed(ctx context.Context, tokens []string) ([][]float32, error)
}

// Named is implemented by providers that can identify their model. The name
// keys persisted embeddings so vectors from different models never mix.
type Named interface {
	ModelName() string
}

// ModelName returns p's model name, or "unknown".
func ModelName(p Provider) string {
	if n, ok := p.(Named); ok {
		return n.ModelName()
	}
	return "unknown"
}

// Static serves fixed vectors from a map. Unknown tokens are an error.
// It is meant for tests and for replaying vectors exported from another tool.
type Static map[string][]float32

// Embed implements Provider.
func (s Static) Embed(_ context.Context, tokens []string) ([][]float32, error) {
	out := make([][]float32, len(tokens))
	for i, tok := range tokens {
		vec, ok := s[tok]
		if !ok {
			return nil, fmt.Errorf("%w: no vector for %q", internalerr.ErrEmbedding, tok)
		}
		out[i] = vec
	}
	return out, nil
}

// ModelName implements Named.
func (s Static) ModelName() string { return "static" }

// Hash is an offline provider that hashes padded character 1-3 grams into a
// fixed number of buckets. It needs no model files or network, and its cosine
// scores track lexical overlap rather than meaning, so pairing it with the
// Jaccard check only filters weak overlaps.
type Hash struct {
	Dimensions int
}

// DefaultHashDimensions is used when Hash.Dimensions is not set.
const DefaultHashDimensions = 256

// Embed implements Provider.
func (h Hash) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	dim := h.Dimensions
	if dim <= 0 {
		dim = DefaultHashDimensions
	}

	out := make([][]float32, len(tokens))
	for i, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec := make([]float32, dim)
		runes := []rune("#" + tok + "#")
		for n := 1; n <= 3; n++ {
			for j := 0; j+n <= len(runes); j++ {
				f := fnv.New32a()
				f.Write([]byte(string(runes[j : j+n])))
				vec[f.Sum32()%uint32(dim)] += float32(n)
			}
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// ModelName implements Named.
func (h Hash) ModelName() string {
	dim := h.Dimensions
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return fmt.Sprintf("hash-%d", dim)
}

// normalize performs in-place L2 normalization.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
