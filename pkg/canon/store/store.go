package store

import (
	"context"
	"time"
)

// Store is the main interface for persisting papers, canonicalization runs
// and cached embeddings.
type Store interface {
	Close() error

	// Papers
	UpsertPaper(ctx context.Context, p Paper) (inserted bool, err error)
	GetPaper(ctx context.Context, id string) (Paper, error)
	ListPapers(ctx context.Context, f PaperFilter) ([]Paper, error)
	CountPapers(ctx context.Context) (int64, error)
	SetCleaned(ctx context.Context, id, cleaned string) error
	SetRewritten(ctx context.Context, id, rewritten string) error

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	LatestRun(ctx context.Context) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Embedding cache
	GetEmbeddings(ctx context.Context, model string, tokens []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error
}

// Paper represents a stored paper record.
type Paper struct {
	ID         string // arXiv identifier, e.g. 2401.01234v1
	Title      string
	Abstract   string
	Authors    []string
	Categories []string
	Published  time.Time
	Updated    time.Time
	Cleaned    string // abstract after the cleaning pass, space-joined tokens
	Rewritten  string // cleaned abstract after canonical rewriting
}

// PaperFilter narrows ListPapers. Zero values select everything.
type PaperFilter struct {
	Category    string
	CleanedOnly bool
	Limit       int
}

// Run is a persisted canonicalization run.
type Run struct {
	ID             string
	CreatedAt      time.Time
	Docs           int
	VocabularySize int
	FilteredSize   int
	PairCount      int
	ComponentCount int
	Config         string // YAML snapshot of the configuration used

	// Filtered vocabulary counts.
	Vocabulary map[string]int64
	// Accepted pairs in scored order.
	Pairs []Pair
	// Token -> canonical.
	Map map[string]string
}

// Pair is an accepted similarity pair.
type Pair struct {
	A, B    string
	Jaccard float64
	Cosine  float64
}
