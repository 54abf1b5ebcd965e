// Package vocab counts token occurrences across a corpus of cleaned documents
// and prunes rare tokens before pairwise comparison.
package vocab

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultMinCount is the default NCUT: tokens must occur more than this many
// times to survive Filter.
const DefaultMinCount = 5

// Vocabulary maps a token to its total number of occurrences.
type Vocabulary map[string]int64

// Builder accumulates token counts one document at a time.
type Builder struct {
	counts Vocabulary
	docs   int64
}

// NewBuilder creates an empty vocabulary builder.
func NewBuilder() *Builder {
	return &Builder{counts: make(Vocabulary)}
}

// Add counts every token of a whitespace-joined document.
// Empty fields produced by repeated spaces are skipped.
func (b *Builder) Add(doc string) {
	b.AddTokens(strings.Split(doc, " "))
}

// AddTokens counts an already split document.
func (b *Builder) AddTokens(tokens []string) {
	b.docs++
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		b.counts[tok]++
	}
}

// Vocabulary returns the accumulated counts. The map is owned by the builder.
func (b *Builder) Vocabulary() Vocabulary {
	return b.counts
}

// TotalDocs returns the number of documents added.
func (b *Builder) TotalDocs() int64 {
	return b.docs
}

// UniqueTokens returns the number of distinct tokens seen.
func (b *Builder) UniqueTokens() int {
	return len(b.counts)
}

// Build counts tokens across all documents.
func Build(docs []string) Vocabulary {
	b := NewBuilder()
	for _, d := range docs {
		b.Add(d)
	}
	return b.Vocabulary()
}

// Merge sums the counts of several vocabularies into a new one.
func Merge(parts ...Vocabulary) Vocabulary {
	size := 0
	for _, p := range parts {
		if len(p) > size {
			size = len(p)
		}
	}
	out := make(Vocabulary, size)
	for _, p := range parts {
		for tok, n := range p {
			out[tok] += n
		}
	}
	return out
}

// BuildParallel splits docs into contiguous chunks, builds a local vocabulary
// per worker and merges them once every worker has finished. The result equals
// Build(docs). workers <= 0 means one worker per chunk of 1024 documents.
func BuildParallel(ctx context.Context, docs []string, workers int) (Vocabulary, error) {
	if len(docs) == 0 {
		return Vocabulary{}, nil
	}
	if workers <= 0 {
		workers = (len(docs) + 1023) / 1024
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	partials := make([]Vocabulary, workers)
	chunk := (len(docs) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(docs))
		if start >= end {
			continue
		}
		g.Go(func() error {
			b := NewBuilder()
			for _, d := range docs[start:end] {
				if err := ctx.Err(); err != nil {
					return err
				}
				b.Add(d)
			}
			partials[w] = b.Vocabulary()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Merge(partials...), nil
}

// Filtered is the working vocabulary: tokens that occur more than the cutoff,
// ordered by descending count, plus their counts.
type Filtered struct {
	Tokens []string
	Counts map[string]int64
}

// Len returns the number of surviving tokens.
func (f Filtered) Len() int {
	return len(f.Tokens)
}

// Filter keeps tokens with count strictly greater than ncut.
//
// Ordering is by descending count; equal counts are ordered by ascending token
// so the result does not depend on map iteration order.
func Filter(v Vocabulary, ncut int64) Filtered {
	tokens := make([]string, 0, len(v))
	counts := make(map[string]int64)
	for tok, n := range v {
		if n > ncut {
			tokens = append(tokens, tok)
			counts[tok] = n
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		ci, cj := counts[tokens[i]], counts[tokens[j]]
		if ci != cj {
			return ci > cj
		}
		return tokens[i] < tokens[j]
	})

	return Filtered{Tokens: tokens, Counts: counts}
}
