package memstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
)

func TestPaperUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := store.Paper{
		ID:         "2401.00001v1",
		Title:      "Dwarf galaxies",
		Abstract:   "We study dwarf galaxies.",
		Authors:    []string{"A. Author"},
		Categories: []string{"astro-ph.GA"},
		Published:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	inserted, err := s.UpsertPaper(ctx, p)
	if err != nil || !inserted {
		t.Fatalf("UpsertPaper() = %v, %v; want true, nil", inserted, err)
	}

	got, err := s.GetPaper(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("GetPaper() = %+v, want %+v", got, p)
	}

	// Returned slices are copies.
	got.Authors[0] = "mutated"
	again, _ := s.GetPaper(ctx, p.ID)
	if again.Authors[0] != "A. Author" {
		t.Error("GetPaper should return a copy")
	}

	inserted, err = s.UpsertPaper(ctx, p)
	if err != nil || inserted {
		t.Errorf("second UpsertPaper() = %v, %v; want false, nil", inserted, err)
	}
}

func TestPaperCleanedLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := store.Paper{ID: "x", Title: "t", Abstract: "a", Published: time.Now()}
	if _, err := s.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCleaned(ctx, "x", "cleaned"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRewritten(ctx, "x", "rewritten"); err != nil {
		t.Fatal(err)
	}

	p.Title = "new title"
	if _, err := s.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetPaper(ctx, "x")
	if got.Cleaned != "cleaned" || got.Rewritten != "rewritten" {
		t.Errorf("metadata update should keep cleaned text, got %+v", got)
	}

	if err := s.SetCleaned(ctx, "x", "recleaned"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetPaper(ctx, "x")
	if got.Rewritten != "" {
		t.Errorf("SetCleaned should clear the rewrite, got %q", got.Rewritten)
	}

	p.Abstract = "changed"
	if _, err := s.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetPaper(ctx, "x")
	if got.Cleaned != "" {
		t.Errorf("abstract change should clear cleaned text, got %q", got.Cleaned)
	}

	if err := s.SetCleaned(ctx, "missing", "x"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SetCleaned(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListPapers(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	papers := []store.Paper{
		{ID: "c", Abstract: "x", Categories: []string{"astro-ph.GA"}, Published: base.Add(2 * time.Hour)},
		{ID: "a", Abstract: "x", Categories: []string{"astro-ph.SR"}, Published: base},
		{ID: "b", Abstract: "x", Categories: []string{"astro-ph.GA"}, Published: base},
	}
	for _, p := range papers {
		if _, err := s.UpsertPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetCleaned(ctx, "c", "done"); err != nil {
		t.Fatal(err)
	}

	ids := func(ps []store.Paper) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	all, _ := s.ListPapers(ctx, store.PaperFilter{})
	if got := ids(all); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("ListPapers() = %v, want [a b c]", got)
	}
	ga, _ := s.ListPapers(ctx, store.PaperFilter{Category: "astro-ph.GA", Limit: 1})
	if got := ids(ga); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("ListPapers(GA, 1) = %v, want [b]", got)
	}
	cleaned, _ := s.ListPapers(ctx, store.PaperFilter{CleanedOnly: true})
	if got := ids(cleaned); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("ListPapers(cleaned) = %v, want [c]", got)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.LatestRun(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("LatestRun(empty) error = %v, want ErrNotFound", err)
	}

	r1 := store.Run{ID: "01A", Map: map[string]string{"galaxies": "galaxy"}, Vocabulary: map[string]int64{"galaxies": 6}}
	r2 := store.Run{ID: "01B"}
	for _, r := range []store.Run{r1, r2} {
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveRun(ctx, r1); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("duplicate SaveRun error = %v, want ErrInvalidInput", err)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil || latest.ID != "01B" {
		t.Errorf("LatestRun() = %v, %v; want 01B", latest.ID, err)
	}

	got, err := s.GetRun(ctx, "01A")
	if err != nil {
		t.Fatal(err)
	}
	if got.Map["galaxies"] != "galaxy" {
		t.Errorf("GetRun().Map = %v", got.Map)
	}

	runs, _ := s.ListRuns(ctx, 0)
	if len(runs) != 2 || runs[0].ID != "01B" || runs[1].Map != nil {
		t.Errorf("ListRuns() = %+v, want summaries newest first", runs)
	}
}

func TestEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.PutEmbeddings(ctx, "m", map[string][]float32{"galaxy": {1, 0}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetEmbeddings(ctx, "m", []string{"galaxy", "quasar"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got["galaxy"], []float32{1, 0}) {
		t.Errorf("GetEmbeddings() = %v", got)
	}
	if other, _ := s.GetEmbeddings(ctx, "n", []string{"galaxy"}); len(other) != 0 {
		t.Errorf("vectors should be scoped by model, got %v", other)
	}
}
