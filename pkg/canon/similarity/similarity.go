// Package similarity finds pairs of vocabulary tokens that are near-duplicates
// under a hybrid lexical and semantic test.
//
// A pair is accepted when the Jaccard similarity of the tokens' padded
// character n-grams reaches JaccardThreshold and the cosine similarity of their
// embeddings reaches CosineThreshold. A JaccardThreshold of 0.9 or more turns
// the check off entirely: every pair that survives the exclusion and length
// filters is accepted, whatever its scores.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/canon/pkg/canon/embed"
	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/ngram"
)

// LexicalOnlyThreshold is the Jaccard threshold at or above which the scorer
// accepts every filtered pair without consulting either score.
const LexicalOnlyThreshold = 0.9

// Config controls pair acceptance.
type Config struct {
	NGram            int
	JaccardThreshold float64
	CosineThreshold  float64
	MaxLengthDiff    int
	Exclude          []string // substrings that remove a token from pairing
	Workers          int      // 0 = GOMAXPROCS
}

// DefaultConfig returns the thresholds used for arXiv astrophysics abstracts.
func DefaultConfig() Config {
	return Config{
		NGram:            ngram.DefaultN,
		JaccardThreshold: 0.5,
		CosineThreshold:  0.90,
		MaxLengthDiff:    4,
		Exclude:          []string{"mission"},
	}
}

// Validate rejects thresholds outside [0,1] and nonsensical sizes.
func (c Config) Validate() error {
	if c.NGram < 1 {
		return fmt.Errorf("%w: ngram must be >= 1, got %d", internalerr.ErrInvalidConfig, c.NGram)
	}
	if c.JaccardThreshold < 0 || c.JaccardThreshold > 1 {
		return fmt.Errorf("%w: jaccard_threshold must be between 0 and 1, got %v", internalerr.ErrInvalidConfig, c.JaccardThreshold)
	}
	if c.CosineThreshold < 0 || c.CosineThreshold > 1 {
		return fmt.Errorf("%w: cosine_threshold must be between 0 and 1, got %v", internalerr.ErrInvalidConfig, c.CosineThreshold)
	}
	if c.MaxLengthDiff < 0 {
		return fmt.Errorf("%w: max_length_diff must be >= 0, got %d", internalerr.ErrInvalidConfig, c.MaxLengthDiff)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", internalerr.ErrInvalidConfig, c.Workers)
	}
	return nil
}

// LexicalOnly reports whether the configuration bypasses both score checks.
func (c Config) LexicalOnly() bool {
	return c.JaccardThreshold >= LexicalOnlyThreshold
}

// Pair is an accepted unordered token pair. A precedes B in the scored order.
type Pair struct {
	A, B    string
	Jaccard float64
	Cosine  float64

	i, j int
}

// Scorer evaluates every unordered token pair of a vocabulary.
type Scorer struct {
	cfg      Config
	provider embed.Provider
	logger   *slog.Logger
}

// NewScorer creates a scorer that obtains vectors from provider.
func NewScorer(cfg Config, provider embed.Provider, logger *slog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.LexicalOnly() {
		logger.Warn("jaccard threshold disables similarity checks; every length-compatible pair will be accepted",
			"jaccard_threshold", cfg.JaccardThreshold)
	}
	return &Scorer{cfg: cfg, provider: provider, logger: logger}, nil
}

// Config returns the scorer configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score returns the accepted pairs of tokens, ordered by token index.
// tokens must be distinct. The embedding provider is called once for the whole
// vocabulary; a provider failure aborts scoring.
func (s *Scorer) Score(ctx context.Context, tokens []string) ([]Pair, error) {
	if len(tokens) < 2 {
		return nil, nil
	}

	grams := make([]ngram.Set, len(tokens))
	lengths := make([]int, len(tokens))
	excluded := make([]bool, len(tokens))
	for i, tok := range tokens {
		grams[i] = ngram.Grams(tok, s.cfg.NGram)
		lengths[i] = utf8.RuneCountInString(tok)
		excluded[i] = s.isExcluded(tok)
	}

	matrix, err := embed.Compute(ctx, s.provider, tokens)
	if err != nil {
		return nil, err
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(tokens))

	// Rows are dealt round-robin so the triangular workload spreads evenly.
	partials := make([][]Pair, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var local []Pair
			for i := w; i < len(tokens); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				if excluded[i] {
					continue
				}
				for j := i + 1; j < len(tokens); j++ {
					if excluded[j] {
						continue
					}
					if abs(lengths[i]-lengths[j]) > s.cfg.MaxLengthDiff {
						continue
					}
					jac := ngram.Jaccard(grams[i], grams[j])
					cos := matrix.At(i, j)
					if s.accept(jac, cos) {
						local = append(local, Pair{
							A: tokens[i], B: tokens[j],
							Jaccard: jac, Cosine: cos,
							i: i, j: j,
						})
					}
				}
			}
			partials[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []Pair
	for _, p := range partials {
		pairs = append(pairs, p...)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})

	s.logger.Debug("scored vocabulary", "tokens", len(tokens), "pairs", len(pairs), "workers", workers)
	return pairs, nil
}

func (s *Scorer) accept(jac, cos float64) bool {
	return (jac >= s.cfg.JaccardThreshold && cos >= s.cfg.CosineThreshold) || s.cfg.LexicalOnly()
}

func (s *Scorer) isExcluded(tok string) bool {
	for _, sub := range s.cfg.Exclude {
		if sub != "" && strings.Contains(tok, sub) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
