// Package canon finds near-duplicate spellings in a corpus of cleaned
// abstracts and maps each group onto one canonical token.
package canon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/canon/internal/llm"
	"github.com/cognicore/canon/pkg/canon/canonical"
	"github.com/cognicore/canon/pkg/canon/cluster"
	"github.com/cognicore/canon/pkg/canon/config"
	"github.com/cognicore/canon/pkg/canon/embed"
	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/lexicon"
	"github.com/cognicore/canon/pkg/canon/report"
	"github.com/cognicore/canon/pkg/canon/similarity"
	"github.com/cognicore/canon/pkg/canon/store"
	"github.com/cognicore/canon/pkg/canon/vocab"
)

// Engine is the canonicalization facade
type Engine struct {
	cfg    config.Config
	store  store.Store
	embed  *embed.Cached
	scorer *similarity.Scorer
	logger *slog.Logger
	ids    *report.IDs
}

// Options configures an Engine
type Options struct {
	Config   config.Config
	Embedder embed.Provider // nil builds one from Config.Embedding
	Store    store.Store    // optional: persists runs and caches vectors
	Logger   *slog.Logger
}

// New validates the configuration and wires the stages together.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	provider := opts.Embedder
	if provider == nil {
		provider = NewProvider(opts.Config.Embedding)
	}
	var vectors embed.VectorStore
	if opts.Store != nil {
		vectors = opts.Store
	}
	cached, err := embed.NewCached(provider, opts.Config.Embedding.CacheSize, vectors)
	if err != nil {
		return nil, err
	}

	scorer, err := similarity.NewScorer(opts.Config.Similarity.ScorerConfig(), cached, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    opts.Config,
		store:  opts.Store,
		embed:  cached,
		scorer: scorer,
		logger: logger,
		ids:    report.NewIDs(),
	}, nil
}

// NewProvider builds the embedding provider named by cfg.Provider.
func NewProvider(cfg config.Embedding) embed.Provider {
	if cfg.Provider == config.ProviderHTTP {
		return &llm.Client{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		}
	}
	return embed.Hash{Dimensions: cfg.Dimensions}
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Result is the output of one canonicalization run.
type Result struct {
	RunID      string
	Vocabulary vocab.Vocabulary
	Filtered   vocab.Filtered
	Pairs      []similarity.Pair
	Components []cluster.Component
	Map        canonical.Map
	Lexicon    *lexicon.Lexicon
	Stats      Stats
}

// Stats summarizes a run.
type Stats struct {
	Docs           int
	VocabularySize int
	FilteredSize   int
	PairCount      int
	ComponentCount int
	Rewrites       int // tokens whose canonical differs from themselves
	Model          string
	Elapsed        time.Duration
}

// Build runs vocabulary, filter, scoring, clustering and canonical selection
// over docs, in that order. Each doc is a space-joined token string.
// An empty corpus yields an empty result.
func (e *Engine) Build(ctx context.Context, docs []string) (Result, error) {
	start := time.Now()
	res := Result{RunID: e.ids.At(start)}
	log := e.logger.With("run", res.RunID)

	stage := time.Now()
	v, err := vocab.BuildParallel(ctx, docs, e.cfg.Vocabulary.Workers)
	if err != nil {
		return Result{}, fmt.Errorf("build vocabulary: %w", err)
	}
	res.Vocabulary = v
	log.Debug("vocabulary built", "docs", len(docs), "tokens", len(v), "elapsed", time.Since(stage))

	stage = time.Now()
	res.Filtered = vocab.Filter(v, e.cfg.Vocabulary.MinCount)
	log.Debug("vocabulary filtered", "min_count", e.cfg.Vocabulary.MinCount, "kept", res.Filtered.Len(), "elapsed", time.Since(stage))

	stage = time.Now()
	res.Pairs, err = e.scorer.Score(ctx, res.Filtered.Tokens)
	if err != nil {
		return Result{}, fmt.Errorf("score pairs: %w", err)
	}
	log.Debug("pairs scored", "pairs", len(res.Pairs), "model", e.embed.ModelName(), "elapsed", time.Since(stage))

	stage = time.Now()
	res.Components = cluster.Components(res.Pairs)
	res.Map = canonical.Select(res.Components, res.Filtered.Counts, canonical.Options{
		IncludeSingletons: e.cfg.Clustering.IncludeSingletons,
		Vocabulary:        res.Filtered.Tokens,
	})
	res.Lexicon = lexicon.FromMap(res.Map)
	log.Debug("canonical map selected", "components", len(res.Components), "elapsed", time.Since(stage))

	res.Stats = Stats{
		Docs:           len(docs),
		VocabularySize: len(res.Vocabulary),
		FilteredSize:   res.Filtered.Len(),
		PairCount:      len(res.Pairs),
		ComponentCount: len(res.Components),
		Rewrites:       res.Map.Rewrites(),
		Model:          e.embed.ModelName(),
		Elapsed:        time.Since(start),
	}
	log.Info("canonicalization done",
		"docs", res.Stats.Docs,
		"vocabulary", res.Stats.VocabularySize,
		"filtered", res.Stats.FilteredSize,
		"pairs", res.Stats.PairCount,
		"components", res.Stats.ComponentCount,
		"rewrites", res.Stats.Rewrites,
		"elapsed", res.Stats.Elapsed)

	if e.store != nil {
		if err := e.save(ctx, start, res); err != nil {
			return Result{}, err
		}
		log.Debug("run saved")
	}
	return res, nil
}

// BuildStored runs Build over the cleaned abstracts held by the store.
func (e *Engine) BuildStored(ctx context.Context, f store.PaperFilter) (Result, error) {
	if e.store == nil {
		return Result{}, fmt.Errorf("%w: engine has no store", internalerr.ErrInvalidConfig)
	}
	f.CleanedOnly = true
	papers, err := e.store.ListPapers(ctx, f)
	if err != nil {
		return Result{}, err
	}
	docs := make([]string, len(papers))
	for i, p := range papers {
		docs[i] = p.Cleaned
	}
	return e.Build(ctx, docs)
}

func (e *Engine) save(ctx context.Context, createdAt time.Time, res Result) error {
	snapshot := e.cfg
	snapshot.Embedding.APIKey = ""
	cfgYAML, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("snapshot config: %w", err)
	}

	pairs := make([]store.Pair, len(res.Pairs))
	for i, p := range res.Pairs {
		pairs[i] = store.Pair{A: p.A, B: p.B, Jaccard: p.Jaccard, Cosine: p.Cosine}
	}

	run := store.Run{
		ID:             res.RunID,
		CreatedAt:      createdAt,
		Docs:           res.Stats.Docs,
		VocabularySize: res.Stats.VocabularySize,
		FilteredSize:   res.Stats.FilteredSize,
		PairCount:      res.Stats.PairCount,
		ComponentCount: res.Stats.ComponentCount,
		Config:         string(cfgYAML),
		Vocabulary:     res.Filtered.Counts,
		Pairs:          pairs,
		Map:            res.Map,
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	return nil
}

// Apply rewrites every token of docs to its canonical form.
func (r Result) Apply(docs []string) []string {
	lex := r.Lexicon
	if lex == nil {
		lex = lexicon.FromMap(r.Map)
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = lex.Rewrite(d)
	}
	return out
}

// LoadRun returns a persisted run and its lexicon. An empty id selects the
// latest run.
func (e *Engine) LoadRun(ctx context.Context, id string) (store.Run, *lexicon.Lexicon, error) {
	if e.store == nil {
		return store.Run{}, nil, fmt.Errorf("%w: engine has no store", internalerr.ErrInvalidConfig)
	}
	var (
		run store.Run
		err error
	)
	if strings.TrimSpace(id) == "" {
		run, err = e.store.LatestRun(ctx)
	} else {
		run, err = e.store.GetRun(ctx, id)
	}
	if err != nil {
		return store.Run{}, nil, err
	}
	return run, lexicon.FromMap(run.Map), nil
}
