package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func samplePaper(id string, published time.Time) store.Paper {
	return store.Paper{
		ID:         id,
		Title:      "Paper " + id,
		Abstract:   "Dwarf galaxies and their satellites.",
		Authors:    []string{"A. Author", "B. Author"},
		Categories: []string{"astro-ph.GA", "astro-ph.CO"},
		Published:  published,
		Updated:    published.Add(24 * time.Hour),
	}
}

func TestSQLitePaperRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := samplePaper("2401.00001v1", published)

	inserted, err := st.UpsertPaper(ctx, p)
	if err != nil {
		t.Fatalf("UpsertPaper: %v", err)
	}
	if !inserted {
		t.Error("first upsert should report insert")
	}

	got, err := st.GetPaper(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPaper: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("GetPaper() = %+v, want %+v", got, p)
	}

	inserted, err = st.UpsertPaper(ctx, p)
	if err != nil {
		t.Fatalf("UpsertPaper (again): %v", err)
	}
	if inserted {
		t.Error("second upsert should not report insert")
	}

	n, err := st.CountPapers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountPapers() = %d, want 1", n)
	}
}

func TestSQLiteGetPaperNotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetPaper(context.Background(), "missing")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetPaper(missing) error = %v, want ErrNotFound", err)
	}
	if err := st.SetCleaned(context.Background(), "missing", "x"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SetCleaned(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteUpsertRejectsEmptyID(t *testing.T) {
	st := openTestStore(t)

	_, err := st.UpsertPaper(context.Background(), store.Paper{Title: "x", Abstract: "y"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("UpsertPaper(no id) error = %v, want ErrInvalidInput", err)
	}
}

func TestSQLiteCleanedSurvivesMetadataUpdate(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	p := samplePaper("2401.00002v1", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	if _, err := st.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := st.SetCleaned(ctx, p.ID, "dwarf galaxies satellites"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetRewritten(ctx, p.ID, "dwarf galaxy satellites"); err != nil {
		t.Fatal(err)
	}

	// Title change keeps the cleaned text.
	p.Title = "Renamed"
	if _, err := st.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetPaper(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cleaned != "dwarf galaxies satellites" || got.Rewritten != "dwarf galaxy satellites" {
		t.Errorf("cleaned/rewritten lost on title update: %+v", got)
	}

	// Abstract change invalidates it.
	p.Abstract = "A different abstract."
	if _, err := st.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err = st.GetPaper(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cleaned != "" || got.Rewritten != "" {
		t.Errorf("cleaned/rewritten should reset on abstract change: %+v", got)
	}
}

func TestSQLiteListPapers(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 3; i >= 1; i-- {
		p := samplePaper(fmt.Sprintf("2402.0000%dv1", i), base.Add(time.Duration(i)*time.Hour))
		if i == 2 {
			p.Categories = []string{"astro-ph.SR"}
		}
		if _, err := st.UpsertPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.SetCleaned(ctx, "2402.00003v1", "cleaned text"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter store.PaperFilter
		want   []string
	}{
		{"all by date", store.PaperFilter{}, []string{"2402.00001v1", "2402.00002v1", "2402.00003v1"}},
		{"category", store.PaperFilter{Category: "astro-ph.GA"}, []string{"2402.00001v1", "2402.00003v1"}},
		{"cleaned only", store.PaperFilter{CleanedOnly: true}, []string{"2402.00003v1"}},
		{"limit", store.PaperFilter{Limit: 1}, []string{"2402.00001v1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := st.ListPapers(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListPapers: %v", err)
			}
			var ids []string
			for _, p := range papers {
				ids = append(ids, p.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("ListPapers(%+v) = %v, want %v", tt.filter, ids, tt.want)
			}
		})
	}
}

func TestSQLiteRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	if _, err := st.LatestRun(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("LatestRun(empty) error = %v, want ErrNotFound", err)
	}

	older := store.Run{
		ID:             "01HQ0000000000000000000000",
		CreatedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Docs:           3,
		VocabularySize: 10,
		FilteredSize:   4,
		PairCount:      1,
		ComponentCount: 1,
		Config:         "vocabulary:\n  min_count: 5\n",
		Vocabulary:     map[string]int64{"galaxy": 7, "galaxies": 6, "cluster": 8, "clusters": 6},
		Pairs:          []store.Pair{{A: "cluster", B: "clusters", Jaccard: 0.7, Cosine: 0.95}},
		Map:            map[string]string{"cluster": "cluster", "clusters": "cluster"},
	}
	newer := older
	newer.ID = "01HQ0000000000000000000001"
	newer.Pairs = nil
	newer.Map = map[string]string{}

	for _, r := range []store.Run{older, newer} {
		if err := st.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun(%s): %v", r.ID, err)
		}
	}

	got, err := st.GetRun(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !reflect.DeepEqual(got, older) {
		t.Errorf("GetRun() = %+v, want %+v", got, older)
	}

	latest, err := st.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != newer.ID {
		t.Errorf("LatestRun().ID = %s, want %s", latest.ID, newer.ID)
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != newer.ID {
		t.Errorf("ListRuns() = %+v, want newest first", runs)
	}

	if err := st.SaveRun(ctx, older); err == nil {
		t.Error("saving a duplicate run id should fail")
	}
	if _, err := st.GetRun(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("GetRun(nope) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteEmbeddings(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	vectors := map[string][]float32{
		"galaxy":   {0.1, -0.2, 0.3},
		"galaxies": {0.11, -0.19, 0.29},
	}
	if err := st.PutEmbeddings(ctx, "hash-3", vectors); err != nil {
		t.Fatalf("PutEmbeddings: %v", err)
	}

	got, err := st.GetEmbeddings(ctx, "hash-3", []string{"galaxy", "galaxies", "quasar", "galaxy"})
	if err != nil {
		t.Fatalf("GetEmbeddings: %v", err)
	}
	if !reflect.DeepEqual(got, vectors) {
		t.Errorf("GetEmbeddings() = %v, want %v", got, vectors)
	}

	other, err := st.GetEmbeddings(ctx, "other-model", []string{"galaxy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("vectors should be scoped by model, got %v", other)
	}
}

func TestSQLiteEmbeddingsManyTokens(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	vectors := make(map[string][]float32)
	tokens := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		tok := fmt.Sprintf("tok%04d", i)
		tokens = append(tokens, tok)
		vectors[tok] = []float32{float32(i)}
	}
	if err := st.PutEmbeddings(ctx, "m", vectors); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetEmbeddings(ctx, "m", tokens)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(tokens) {
		t.Errorf("GetEmbeddings returned %d vectors, want %d", len(got), len(tokens))
	}
}

func TestSQLiteConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := samplePaper(fmt.Sprintf("2403.%05dv1", i), time.Now())
			if _, err := st.UpsertPaper(ctx, p); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent UpsertPaper: %v", err)
	}
	n, err := st.CountPapers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Errorf("CountPapers() = %d, want 20", n)
	}
}
