package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// VectorStore persists embeddings between runs, keyed by model and token.
type VectorStore interface {
	GetEmbeddings(ctx context.Context, model string, tokens []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error
}

// DefaultCacheSize is the LRU capacity used when none is given.
const DefaultCacheSize = 4096

// Cached fronts a Provider with an in-process LRU and, optionally, a
// persistent VectorStore. Only tokens missing from both are sent upstream.
type Cached struct {
	provider Provider
	model    string
	lru      *lru.Cache[string, []float32]
	store    VectorStore
}

// NewCached wraps p. store may be nil.
func NewCached(p Provider, size int, store VectorStore) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &Cached{
		provider: p,
		model:    ModelName(p),
		lru:      c,
		store:    store,
	}, nil
}

// ModelName implements Named.
func (c *Cached) ModelName() string { return c.model }

// Embed implements Provider.
func (c *Cached) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	out := make([][]float32, len(tokens))

	var missing []string
	for i, tok := range tokens {
		if vec, ok := c.lru.Get(tok); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, tok)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found := make(map[string][]float32, len(missing))
	if c.store != nil {
		stored, err := c.store.GetEmbeddings(ctx, c.model, missing)
		if err != nil {
			return nil, fmt.Errorf("load cached embeddings: %w", err)
		}
		for tok, vec := range stored {
			found[tok] = vec
		}
	}

	var upstream []string
	for _, tok := range missing {
		if _, ok := found[tok]; !ok {
			upstream = append(upstream, tok)
		}
	}

	if len(upstream) > 0 {
		vecs, err := c.provider.Embed(ctx, upstream)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(upstream) {
			return nil, fmt.Errorf("provider returned %d vectors for %d tokens", len(vecs), len(upstream))
		}
		// Nothing is cached until the whole batch is known to be usable.
		dim := len(vecs[0])
		for i, vec := range vecs {
			if _, err := validateVector(i, vec, dim); err != nil {
				return nil, fmt.Errorf("embedding for %q: %w", upstream[i], err)
			}
		}
		fresh := make(map[string][]float32, len(upstream))
		for i, tok := range upstream {
			fresh[tok] = vecs[i]
			found[tok] = vecs[i]
		}
		if c.store != nil {
			if err := c.store.PutEmbeddings(ctx, c.model, fresh); err != nil {
				return nil, fmt.Errorf("store embeddings: %w", err)
			}
		}
	}

	for i, tok := range tokens {
		if out[i] != nil {
			continue
		}
		vec := found[tok]
		c.lru.Add(tok, vec)
		out[i] = vec
	}
	return out, nil
}
