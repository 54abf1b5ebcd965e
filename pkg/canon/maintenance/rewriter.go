package maintenance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cognicore/canon/pkg/canon/lexicon"
	"github.com/cognicore/canon/pkg/canon/store"
)

// Rewriter replaces every token of the cleaned abstracts with its canonical.
type Rewriter struct {
	Store   store.Store
	Lexicon *lexicon.Lexicon
	Filter  store.PaperFilter
	Logger  *slog.Logger
}

// Rewrite applies the lexicon to each cleaned paper. Papers that were never
// cleaned are skipped.
func (r *Rewriter) Rewrite(ctx context.Context) (Result, error) {
	var res Result
	if r.Store == nil || r.Lexicon == nil {
		return res, errors.New("rewriter: invalid configuration")
	}

	filter := r.Filter
	filter.CleanedOnly = true
	papers, err := r.Store.ListPapers(ctx, filter)
	if err != nil {
		return res, err
	}

	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++

		rewritten := r.Lexicon.Rewrite(p.Cleaned)
		if rewritten == p.Rewritten {
			continue
		}
		if err := r.Store.SetRewritten(ctx, p.ID, rewritten); err != nil {
			logger(r.Logger).Warn("failed to store rewritten abstract", "paper", p.ID, "err", err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	logger(r.Logger).Info("rewrite pass done", "processed", res.Processed, "updated", res.Updated, "errors", res.Errors)
	return res, nil
}
