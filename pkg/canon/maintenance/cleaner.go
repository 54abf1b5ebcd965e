package maintenance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cognicore/canon/pkg/canon/ingest"
	"github.com/cognicore/canon/pkg/canon/store"
)

// Cleaner reprocesses stored abstracts after stoplist or lexicon updates.
type Cleaner struct {
	Store   store.Store
	Cleaner *ingest.Cleaner
	Filter  store.PaperFilter
	Workers int
	Logger  *slog.Logger
}

// Result summarizes a maintenance run.
type Result struct {
	Processed int
	Updated   int
	Errors    int
}

// Clean re-runs the cleaning pass over stored papers and writes back every
// cleaned abstract that changed. Per-paper store errors are counted, not fatal.
func (c *Cleaner) Clean(ctx context.Context) (Result, error) {
	var res Result
	if c.Store == nil || c.Cleaner == nil {
		return res, errors.New("cleaner: invalid configuration")
	}

	papers, err := c.Store.ListPapers(ctx, c.Filter)
	if err != nil {
		return res, err
	}
	docs := make([]ingest.Doc, len(papers))
	for i, p := range papers {
		docs[i] = ingest.Doc{ID: p.ID, Title: p.Title, Abstract: p.Abstract}
	}

	processed, err := ingest.NewPipeline(c.Cleaner, c.Workers).Process(ctx, docs)
	if err != nil {
		return res, err
	}

	for i, p := range papers {
		res.Processed++
		cleaned := processed[i].Cleaned
		if cleaned == p.Cleaned {
			continue
		}
		if err := c.Store.SetCleaned(ctx, p.ID, cleaned); err != nil {
			logger(c.Logger).Warn("failed to store cleaned abstract", "paper", p.ID, "err", err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	logger(c.Logger).Info("cleaning pass done", "processed", res.Processed, "updated", res.Updated, "errors", res.Errors)
	return res, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
