package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCleanAllPreservesOrder(t *testing.T) {
	c := NewCleaner(nil, 0)

	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("Galaxy %d spectra", i)
	}
	texts[7] = "Quasars and blazars"

	for _, workers := range []int{0, 1, 3, 500} {
		got, err := c.CleanAll(context.Background(), texts, workers)
		if err != nil {
			t.Fatalf("CleanAll(workers=%d) error = %v", workers, err)
		}
		if len(got) != len(texts) {
			t.Fatalf("CleanAll(workers=%d) returned %d docs, want %d", workers, len(got), len(texts))
		}
		for i, text := range texts {
			if want := c.Clean(text); got[i] != want {
				t.Errorf("workers=%d out[%d] = %q, want %q", workers, i, got[i], want)
			}
		}
	}
}

func TestCleanAllEmpty(t *testing.T) {
	got, err := NewCleaner(nil, 0).CleanAll(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("CleanAll(nil) = %v, want empty", got)
	}
}

func TestCleanAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	texts := []string{"galaxy spectra", "stellar streams"}
	_, err := NewCleaner(nil, 0).CleanAll(ctx, texts, 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CleanAll() error = %v, want context.Canceled", err)
	}
}

func TestPipelineProcess(t *testing.T) {
	p := NewPipeline(NewCleaner(nil, 0), 2)
	docs := []Doc{
		{ID: "a", Title: "One", Abstract: "Dwarf galaxies", Published: time.Now()},
		{ID: "b", Title: "Two", Abstract: "Stellar streams", Published: time.Now()},
	}

	got, err := p.Process(context.Background(), docs)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []ProcessedDoc{
		{ID: "a", Cleaned: "dwarf galaxies"},
		{ID: "b", Cleaned: "stellar streams"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Process()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
