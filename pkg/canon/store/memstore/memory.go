package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu         sync.RWMutex
	papers     map[string]store.Paper
	runs       map[string]store.Run
	embeddings map[string]map[string][]float32 // model -> token -> vector
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		papers:     make(map[string]store.Paper),
		runs:       make(map[string]store.Run),
		embeddings: make(map[string]map[string][]float32),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertPaper inserts or updates a paper, keyed by arXiv ID.
func (s *Store) UpsertPaper(ctx context.Context, p store.Paper) (bool, error) {
	if strings.TrimSpace(p.ID) == "" {
		return false, fmt.Errorf("%w: paper id is required", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.papers[p.ID]
	if ok && existing.Abstract == p.Abstract {
		p.Cleaned = existing.Cleaned
		p.Rewritten = existing.Rewritten
	} else if ok {
		p.Cleaned = ""
		p.Rewritten = ""
	}
	s.papers[p.ID] = copyPaper(p)
	return !ok, nil
}

// GetPaper returns a paper by arXiv ID.
func (s *Store) GetPaper(ctx context.Context, id string) (store.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.papers[id]
	if !ok {
		return store.Paper{}, fmt.Errorf("paper %s: %w", id, internalerr.ErrNotFound)
	}
	return copyPaper(p), nil
}

// ListPapers returns papers ordered by publication date, then ID.
func (s *Store) ListPapers(ctx context.Context, f store.PaperFilter) ([]store.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Paper
	for _, p := range s.papers {
		if f.Category != "" && !contains(p.Categories, f.Category) {
			continue
		}
		if f.CleanedOnly && p.Cleaned == "" {
			continue
		}
		out = append(out, copyPaper(p))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Published.Equal(out[j].Published) {
			return out[i].Published.Before(out[j].Published)
		}
		return out[i].ID < out[j].ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountPapers returns the number of stored papers.
func (s *Store) CountPapers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.papers)), nil
}

// SetCleaned stores the cleaned abstract and clears any rewrite.
func (s *Store) SetCleaned(ctx context.Context, id, cleaned string) error {
	return s.update(id, func(p *store.Paper) {
		p.Cleaned = cleaned
		p.Rewritten = ""
	})
}

// SetRewritten stores the rewritten abstract.
func (s *Store) SetRewritten(ctx context.Context, id, rewritten string) error {
	return s.update(id, func(p *store.Paper) { p.Rewritten = rewritten })
}

func (s *Store) update(id string, fn func(p *store.Paper)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("paper %s: %w", id, internalerr.ErrNotFound)
	}
	fn(&p)
	s.papers[id] = p
	return nil
}

// SaveRun stores a run. Run IDs are unique.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("%w: run %s already exists", internalerr.ErrInvalidInput, r.ID)
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// LatestRun returns the run with the greatest ID.
func (s *Store) LatestRun(ctx context.Context) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest string
	for id := range s.runs {
		if id > latest {
			latest = id
		}
	}
	if latest == "" {
		return store.Run{}, fmt.Errorf("run latest: %w", internalerr.ErrNotFound)
	}
	return copyRun(s.runs[latest]), nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		r.Vocabulary, r.Pairs, r.Map = nil, nil, nil
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetEmbeddings returns cached vectors for the tokens that have one.
func (s *Store) GetEmbeddings(ctx context.Context, model string, tokens []string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]float32)
	byToken := s.embeddings[model]
	for _, tok := range tokens {
		if vec, ok := byToken[tok]; ok {
			out[tok] = append([]float32(nil), vec...)
		}
	}
	return out, nil
}

// PutEmbeddings stores vectors for a model.
func (s *Store) PutEmbeddings(ctx context.Context, model string, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byToken, ok := s.embeddings[model]
	if !ok {
		byToken = make(map[string][]float32, len(vectors))
		s.embeddings[model] = byToken
	}
	for tok, vec := range vectors {
		byToken[tok] = append([]float32(nil), vec...)
	}
	return nil
}

func copyPaper(p store.Paper) store.Paper {
	p.Authors = append([]string(nil), p.Authors...)
	p.Categories = append([]string(nil), p.Categories...)
	return p
}

func copyRun(r store.Run) store.Run {
	if r.Vocabulary != nil {
		vocab := make(map[string]int64, len(r.Vocabulary))
		for k, v := range r.Vocabulary {
			vocab[k] = v
		}
		r.Vocabulary = vocab
	}
	if r.Map != nil {
		m := make(map[string]string, len(r.Map))
		for k, v := range r.Map {
			m[k] = v
		}
		r.Map = m
	}
	r.Pairs = append([]store.Pair(nil), r.Pairs...)
	return r
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
