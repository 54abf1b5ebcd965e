package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/cognicore/canon/pkg/canon/internalerr"
)

// Matrix holds the pairwise cosine similarity of a fixed token order.
type Matrix struct {
	n    int
	data []float64
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return m.n
}

// At returns the cosine similarity of tokens i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

// NewMatrix validates vectors and computes their full cosine matrix.
//
// A degenerate vector set would silently turn every pair into a non-match, so
// empty vectors, mixed dimensions, NaN/Inf components and zero vectors are
// rejected instead of scored.
func NewMatrix(vectors [][]float32) (*Matrix, error) {
	n := len(vectors)
	if n == 0 {
		return &Matrix{}, nil
	}

	dim := len(vectors[0])
	unit := make([][]float64, n)
	for i, vec := range vectors {
		norm, err := validateVector(i, vec, dim)
		if err != nil {
			return nil, err
		}
		u := make([]float64, dim)
		for k, v := range vec {
			u[k] = float64(v) / norm
		}
		unit[i] = u
	}

	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
		for j := i + 1; j < n; j++ {
			var dot float64
			for k := 0; k < dim; k++ {
				dot += unit[i][k] * unit[j][k]
			}
			m.data[i*n+j] = dot
			m.data[j*n+i] = dot
		}
	}
	return m, nil
}

// validateVector checks vector i against dim and returns its L2 norm.
func validateVector(i int, vec []float32, dim int) (float64, error) {
	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: vector %d is empty", internalerr.ErrEmbedding, i)
	}
	if len(vec) != dim {
		return 0, fmt.Errorf("%w: %w: vector %d has %d dimensions, want %d",
			internalerr.ErrEmbedding, internalerr.ErrDimensionMismatch, i, len(vec), dim)
	}
	var norm float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: vector %d has non-finite component", internalerr.ErrEmbedding, i)
		}
		norm += f * f
	}
	if norm == 0 {
		return 0, fmt.Errorf("%w: vector %d is all zeros", internalerr.ErrEmbedding, i)
	}
	return math.Sqrt(norm), nil
}

// Compute asks p for one vector per token and builds the cosine matrix.
func Compute(ctx context.Context, p Provider, tokens []string) (*Matrix, error) {
	if len(tokens) == 0 {
		return &Matrix{}, nil
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no provider configured", internalerr.ErrEmbedding)
	}

	vectors, err := p.Embed(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrEmbedding, err)
	}
	if len(vectors) != len(tokens) {
		return nil, fmt.Errorf("%w: got %d vectors for %d tokens",
			internalerr.ErrEmbedding, len(vectors), len(tokens))
	}
	return NewMatrix(vectors)
}
