package vocab

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

func TestBuildCounts(t *testing.T) {
	docs := []string{
		"galaxy cluster simulation",
		"galaxies cluster simulation",
		"galaxy cluster model",
	}

	v := Build(docs)
	want := Vocabulary{
		"galaxy":     2,
		"galaxies":   1,
		"cluster":    3,
		"simulation": 2,
		"model":      1,
	}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("Build() = %v, want %v", v, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	if v := Build(nil); len(v) != 0 {
		t.Errorf("Build(nil) should be empty, got %v", v)
	}
	if v := Build([]string{"", "  "}); len(v) != 0 {
		t.Errorf("blank documents should produce no tokens, got %v", v)
	}
}

func TestBuildNoCaseFolding(t *testing.T) {
	v := Build([]string{"Galaxy galaxy"})
	if v["Galaxy"] != 1 || v["galaxy"] != 1 {
		t.Errorf("tokens must be counted verbatim, got %v", v)
	}
}

func TestBuilderTotals(t *testing.T) {
	b := NewBuilder()
	b.Add("alpha beta")
	b.AddTokens([]string{"beta", "", "gamma"})

	if b.TotalDocs() != 2 {
		t.Errorf("TotalDocs() = %d, want 2", b.TotalDocs())
	}
	if b.UniqueTokens() != 3 {
		t.Errorf("UniqueTokens() = %d, want 3", b.UniqueTokens())
	}
	if b.Vocabulary()["beta"] != 2 {
		t.Errorf("beta count = %d, want 2", b.Vocabulary()["beta"])
	}
}

func TestMergeIsAdditive(t *testing.T) {
	batchA := []string{"stellar wind", "stellar mass loss", "wind"}
	batchB := []string{"stellar wind speed", "speed"}

	whole := Build(append(append([]string{}, batchA...), batchB...))
	merged := Merge(Build(batchA), Build(batchB))

	if !reflect.DeepEqual(whole, merged) {
		t.Errorf("Merge(Build(a), Build(b)) = %v, want %v", merged, whole)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := Vocabulary{"x": 1}
	b := Vocabulary{"x": 2}
	_ = Merge(a, b)
	if a["x"] != 1 || b["x"] != 2 {
		t.Errorf("inputs mutated: a=%v b=%v", a, b)
	}
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	docs := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		docs = append(docs, fmt.Sprintf("token%d shared token%d", i%17, i%5))
	}
	want := Build(docs)

	for _, workers := range []int{0, 1, 3, 8, 1000} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := BuildParallel(context.Background(), docs, workers)
			if err != nil {
				t.Fatalf("BuildParallel: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("BuildParallel differs from Build")
			}
		})
	}
}

func TestBuildParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildParallel(ctx, []string{"a b", "c d"}, 2)
	if err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestFilterOrderingAndCutoff(t *testing.T) {
	v := Vocabulary{
		"cluster":    3,
		"galaxy":     2,
		"simulation": 2,
		"galaxies":   1,
		"model":      1,
	}

	f := Filter(v, 1)
	wantTokens := []string{"cluster", "galaxy", "simulation"}
	if !reflect.DeepEqual(f.Tokens, wantTokens) {
		t.Errorf("Filter tokens = %v, want %v", f.Tokens, wantTokens)
	}
	if len(f.Counts) != 3 {
		t.Errorf("Filter counts should hold 3 tokens, got %d", len(f.Counts))
	}
	if _, ok := f.Counts["model"]; ok {
		t.Error("model has count 1 and must not survive NCUT=1")
	}
}

func TestFilterStrictlyGreater(t *testing.T) {
	f := Filter(Vocabulary{"exact": 5, "above": 6}, DefaultMinCount)
	if f.Len() != 1 || f.Tokens[0] != "above" {
		t.Errorf("only counts > NCUT survive, got %v", f.Tokens)
	}
}

func TestFilterTieBreakIsLexicographic(t *testing.T) {
	v := Vocabulary{"delta": 4, "alpha": 4, "charlie": 4, "bravo": 9}
	for i := 0; i < 20; i++ {
		f := Filter(v, 0)
		want := []string{"bravo", "alpha", "charlie", "delta"}
		if !reflect.DeepEqual(f.Tokens, want) {
			t.Fatalf("Filter tokens = %v, want %v", f.Tokens, want)
		}
	}
}

func TestFilterSubsetOfVocabulary(t *testing.T) {
	v := Build([]string{"a a a b b c"})
	f := Filter(v, 0)
	for _, tok := range f.Tokens {
		if f.Counts[tok] != v[tok] {
			t.Errorf("count for %q = %d, want %d", tok, f.Counts[tok], v[tok])
		}
	}
}

func TestFilterEmpty(t *testing.T) {
	f := Filter(Vocabulary{}, DefaultMinCount)
	if f.Len() != 0 || len(f.Counts) != 0 {
		t.Errorf("empty vocabulary should filter to empty, got %+v", f)
	}
}
