package ingest

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CleanAll runs the cleaner over texts with a pool of workers.
// Each text is cleaned exactly once; out[i] is the cleaned form of texts[i].
// workers <= 0 uses GOMAXPROCS.
func (c *Cleaner) CleanAll(ctx context.Context, texts []string, workers int) ([]string, error) {
	out := make([]string, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range texts {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = c.Clean(texts[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pipeline cleans docs and hands back the cleaned abstracts keyed by doc ID.
type Pipeline struct {
	cleaner *Cleaner
	workers int
}

// NewPipeline creates an ingestion pipeline around a cleaner.
func NewPipeline(cleaner *Cleaner, workers int) *Pipeline {
	return &Pipeline{cleaner: cleaner, workers: workers}
}

// ProcessedDoc represents a document after the cleaning pass.
type ProcessedDoc struct {
	ID      string
	Cleaned string
}

// Process cleans the abstract of each doc.
// Output order follows input order.
func (p *Pipeline) Process(ctx context.Context, docs []Doc) ([]ProcessedDoc, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Abstract
	}

	cleaned, err := p.cleaner.CleanAll(ctx, texts, p.workers)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessedDoc, len(docs))
	for i, d := range docs {
		out[i] = ProcessedDoc{ID: d.ID, Cleaned: cleaned[i]}
	}
	return out, nil
}
