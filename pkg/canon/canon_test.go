package canon

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/canon/internal/llm"
	"github.com/cognicore/canon/pkg/canon/canonical"
	"github.com/cognicore/canon/pkg/canon/config"
	"github.com/cognicore/canon/pkg/canon/embed"
	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/store"
	"github.com/cognicore/canon/pkg/canon/store/memstore"
)

// corpus yields galaxy x10, galaxies x7, quasar x6, spectra x2.
func corpus() []string {
	docs := make([]string, 10)
	for i := range docs {
		tokens := []string{"galaxy"}
		if i < 7 {
			tokens = append(tokens, "galaxies")
		}
		if i < 6 {
			tokens = append(tokens, "quasar")
		}
		if i < 2 {
			tokens = append(tokens, "spectra")
		}
		docs[i] = strings.Join(tokens, " ")
	}
	return docs
}

var vectors = embed.Static{
	"galaxy":   {1, 0, 0},
	"galaxies": {0.99, 0.1, 0},
	"quasar":   {0, 1, 0},
}

type countingProvider struct {
	embed.Static
	calls  int
	tokens int
}

func (c *countingProvider) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	c.calls++
	c.tokens += len(tokens)
	return c.Static.Embed(ctx, tokens)
}

type failingProvider struct{}

func (failingProvider) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	return nil, errors.New("model offline")
}

func testConfig() config.Config {
	cfg := config.Default()
	// galaxy/galaxies share 5 of 11 padded bigrams.
	cfg.Similarity.JaccardThreshold = 0.4
	return cfg
}

func newEngine(t *testing.T, cfg config.Config, p embed.Provider, st store.Store) *Engine {
	t.Helper()
	e, err := New(Options{Config: cfg, Embedder: p, Store: st})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestBuildGalaxyExample(t *testing.T) {
	e := newEngine(t, testConfig(), vectors, nil)

	res, err := e.Build(context.Background(), corpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := res.Vocabulary["spectra"]; got != 2 {
		t.Errorf("Vocabulary[spectra] = %d, want 2", got)
	}
	wantTokens := []string{"galaxy", "galaxies", "quasar"}
	if !reflect.DeepEqual(res.Filtered.Tokens, wantTokens) {
		t.Errorf("Filtered.Tokens = %v, want %v", res.Filtered.Tokens, wantTokens)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].A != "galaxy" || res.Pairs[0].B != "galaxies" {
		t.Fatalf("Pairs = %+v, want one galaxy/galaxies pair", res.Pairs)
	}

	want := canonical.Map{"galaxy": "galaxy", "galaxies": "galaxy"}
	if !reflect.DeepEqual(res.Map, want) {
		t.Errorf("Map = %v, want %v", res.Map, want)
	}
	if res.Stats.ComponentCount != 1 || res.Stats.Rewrites != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}

	got := res.Apply([]string{"galaxies quasar", ""})
	if got[0] != "galaxy quasar" || got[1] != "" {
		t.Errorf("Apply() = %q", got)
	}
}

func TestBuildIncludeSingletons(t *testing.T) {
	cfg := testConfig()
	cfg.Clustering.IncludeSingletons = true
	e := newEngine(t, cfg, vectors, nil)

	res, err := e.Build(context.Background(), corpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Map["quasar"] != "quasar" {
		t.Errorf("Map[quasar] = %q, want quasar", res.Map["quasar"])
	}
	if _, ok := res.Map["spectra"]; ok {
		t.Error("filtered-out token must not be mapped")
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	p := &countingProvider{Static: vectors}
	e := newEngine(t, testConfig(), p, nil)

	res, err := e.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Vocabulary) != 0 || res.Filtered.Len() != 0 || len(res.Map) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for an empty corpus", p.calls)
	}
}

func TestBuildLexicalOnlyAcceptsDissimilarPairs(t *testing.T) {
	cfg := testConfig()
	cfg.Vocabulary.MinCount = 0
	cfg.Similarity.JaccardThreshold = 0.95

	p := embed.Static{"alpha": {1, 0}, "omega": {0, 1}}
	e := newEngine(t, cfg, p, nil)

	res, err := e.Build(context.Background(), []string{"alpha alpha omega"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := canonical.Map{"alpha": "alpha", "omega": "alpha"}
	if !reflect.DeepEqual(res.Map, want) {
		t.Errorf("Map = %v, want %v", res.Map, want)
	}
}

func TestBuildExcludesMissionTokens(t *testing.T) {
	cfg := testConfig()
	cfg.Vocabulary.MinCount = 0

	p := embed.Static{"mission": {1, 0}, "missions": {1, 0}}
	e := newEngine(t, cfg, p, nil)

	res, err := e.Build(context.Background(), []string{"mission missions"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Pairs) != 0 || len(res.Map) != 0 {
		t.Errorf("mission tokens were paired: %+v", res.Pairs)
	}
}

func TestBuildProviderFailure(t *testing.T) {
	st := memstore.New()
	e := newEngine(t, testConfig(), failingProvider{}, st)

	_, err := e.Build(context.Background(), corpus())
	if err == nil || !strings.Contains(err.Error(), "model offline") {
		t.Fatalf("Build() error = %v, want provider error", err)
	}
	if _, err := st.LatestRun(context.Background()); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("failed run was persisted: %v", err)
	}
}

// flakyProvider returns a zero vector for quasar on its first call.
type flakyProvider struct {
	embed.Static
	calls int
}

func (f *flakyProvider) Embed(ctx context.Context, tokens []string) ([][]float32, error) {
	f.calls++
	out, err := f.Static.Embed(ctx, tokens)
	if err != nil || f.calls > 1 {
		return out, err
	}
	for i, tok := range tokens {
		if tok == "quasar" {
			out[i] = []float32{0, 0, 0}
		}
	}
	return out, nil
}

func TestBuildRecoversFromMalformedEmbedding(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	p := &flakyProvider{Static: vectors}

	if _, err := newEngine(t, testConfig(), p, st).Build(ctx, corpus()); !errors.Is(err, internalerr.ErrEmbedding) {
		t.Fatalf("first Build() error = %v, want ErrEmbedding", err)
	}
	cached, err := st.GetEmbeddings(ctx, "static", []string{"galaxy", "galaxies", "quasar"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 0 {
		t.Errorf("failed batch left %d cached vectors", len(cached))
	}

	res, err := newEngine(t, testConfig(), p, st).Build(ctx, corpus())
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2", p.calls)
	}
	if res.Map["galaxies"] != "galaxy" {
		t.Errorf("Map = %v", res.Map)
	}
}

func TestBuildCancelled(t *testing.T) {
	e := newEngine(t, testConfig(), vectors, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Build(ctx, corpus()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuildPersistsRun(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	cfg := testConfig()
	cfg.Embedding.APIKey = "sk-secret"
	p := &countingProvider{Static: vectors}
	e := newEngine(t, cfg, p, st)

	res, err := e.Build(ctx, corpus())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	run, lex, err := e.LoadRun(ctx, "")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if run.ID != res.RunID {
		t.Errorf("latest run = %s, want %s", run.ID, res.RunID)
	}
	if !reflect.DeepEqual(run.Map, map[string]string(res.Map)) {
		t.Errorf("stored map = %v, want %v", run.Map, res.Map)
	}
	if run.Vocabulary["galaxies"] != 7 || len(run.Vocabulary) != 3 {
		t.Errorf("stored vocabulary = %v", run.Vocabulary)
	}
	if len(run.Pairs) != 1 || run.PairCount != 1 || run.Docs != 10 {
		t.Errorf("stored run = %+v", run)
	}
	if strings.Contains(run.Config, "sk-secret") {
		t.Error("config snapshot leaks the API key")
	}
	if !strings.Contains(run.Config, "jaccard_threshold: 0.4") {
		t.Errorf("config snapshot missing threshold:\n%s", run.Config)
	}
	if lex.Normalize("galaxies") != "galaxy" {
		t.Error("loaded lexicon does not rewrite galaxies")
	}

	cached, err := st.GetEmbeddings(ctx, "static", []string{"galaxy", "galaxies", "quasar"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 3 {
		t.Errorf("cached %d vectors, want 3", len(cached))
	}

	// Second run is served from the in-process cache.
	if _, err := e.Build(ctx, corpus()); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if p.calls != 1 || p.tokens != 3 {
		t.Errorf("provider calls = %d tokens = %d, want 1 and 3", p.calls, p.tokens)
	}
}

func TestBuildStored(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	for i, doc := range corpus() {
		id := string(rune('a' + i))
		if _, err := st.UpsertPaper(ctx, store.Paper{ID: id, Title: id, Abstract: doc}); err != nil {
			t.Fatal(err)
		}
		if err := st.SetCleaned(ctx, id, doc); err != nil {
			t.Fatal(err)
		}
	}
	// Never cleaned, so not part of the corpus.
	if _, err := st.UpsertPaper(ctx, store.Paper{ID: "z", Title: "z", Abstract: "raw"}); err != nil {
		t.Fatal(err)
	}

	e := newEngine(t, testConfig(), vectors, st)
	res, err := e.BuildStored(ctx, store.PaperFilter{})
	if err != nil {
		t.Fatalf("BuildStored: %v", err)
	}
	if res.Stats.Docs != 10 || res.Map["galaxies"] != "galaxy" {
		t.Errorf("unexpected result: %+v", res.Stats)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Similarity.CosineThreshold = 1.5
	if _, err := New(Options{Config: cfg, Embedder: vectors}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default().Embedding
	if _, ok := NewProvider(cfg).(embed.Hash); !ok {
		t.Errorf("hash provider: got %T", NewProvider(cfg))
	}

	cfg.Provider = config.ProviderHTTP
	cfg.APIKey = "sk"
	client, ok := NewProvider(cfg).(*llm.Client)
	if !ok {
		t.Fatalf("http provider: got %T", NewProvider(cfg))
	}
	if client.Model != cfg.Model || client.APIKey != "sk" || client.Dimensions != cfg.Dimensions {
		t.Errorf("client = %+v", client)
	}
}
