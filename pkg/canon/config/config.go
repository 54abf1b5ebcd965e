package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/canon/pkg/canon/embed"
	"github.com/cognicore/canon/pkg/canon/internalerr"
	"github.com/cognicore/canon/pkg/canon/similarity"
	"github.com/cognicore/canon/pkg/canon/vocab"
)

// Embedding providers.
const (
	ProviderHTTP = "http"
	ProviderHash = "hash"
)

// Config is the full engine and CLI configuration.
type Config struct {
	Vocabulary Vocabulary `yaml:"vocabulary"`
	Similarity Similarity `yaml:"similarity"`
	Clustering Clustering `yaml:"clustering"`
	Embedding  Embedding  `yaml:"embedding"`
	Cleaning   Cleaning   `yaml:"cleaning"`
	Store      Store      `yaml:"store"`
	Logging    Logging    `yaml:"logging"`
}

// Vocabulary controls counting and the frequency cutoff.
type Vocabulary struct {
	MinCount int64 `yaml:"min_count"` // tokens need strictly more occurrences
	Workers  int   `yaml:"workers"`
}

// Similarity mirrors similarity.Config.
type Similarity struct {
	NGram            int      `yaml:"ngram"`
	JaccardThreshold float64  `yaml:"jaccard_threshold"`
	CosineThreshold  float64  `yaml:"cosine_threshold"`
	MaxLengthDiff    int      `yaml:"max_length_diff"`
	Exclude          []string `yaml:"exclude"`
	Workers          int      `yaml:"workers"`
}

// Clustering controls canonical map construction.
type Clustering struct {
	IncludeSingletons bool `yaml:"include_singletons"`
}

// Embedding selects and configures the embedding provider.
type Embedding struct {
	Provider   string        `yaml:"provider"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
}

// Cleaning configures the text cleaning pass.
type Cleaning struct {
	Stoplist       string `yaml:"stoplist"`
	Lexicon        string `yaml:"lexicon"`
	MinTokenLength int    `yaml:"min_token_length"`
	Workers        int    `yaml:"workers"`
}

// Store configures persistence.
type Store struct {
	Path string `yaml:"path"`
}

// Logging configures the logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	sim := similarity.DefaultConfig()
	return Config{
		Vocabulary: Vocabulary{MinCount: vocab.DefaultMinCount},
		Similarity: Similarity{
			NGram:            sim.NGram,
			JaccardThreshold: sim.JaccardThreshold,
			CosineThreshold:  sim.CosineThreshold,
			MaxLengthDiff:    sim.MaxLengthDiff,
			Exclude:          sim.Exclude,
		},
		Embedding: Embedding{
			Provider:   ProviderHash,
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			Dimensions: embed.DefaultHashDimensions,
			BatchSize:  64,
			Timeout:    30 * time.Second,
			CacheSize:  embed.DefaultCacheSize,
		},
		Cleaning: Cleaning{MinTokenLength: 4},
		Store:    Store{Path: "canon.db"},
		Logging:  Logging{Level: "info"},
	}
}

// Load reads a YAML config on top of Default and applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadEnv loads .env style files into the process environment.
// Missing files are ignored; existing variables are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and paths from CANON_* variables.
func (c *Config) ApplyEnv() {
	c.Embedding.APIKey = getEnv("CANON_EMBEDDING_API_KEY", c.Embedding.APIKey)
	c.Embedding.BaseURL = getEnv("CANON_EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnv("CANON_EMBEDDING_MODEL", c.Embedding.Model)
	c.Store.Path = getEnv("CANON_DB", c.Store.Path)
	c.Logging.Level = getEnv("CANON_LOG_LEVEL", c.Logging.Level)
}

// Validate rejects configurations that cannot drive a run.
func (c Config) Validate() error {
	if c.Vocabulary.MinCount < 0 {
		return fmt.Errorf("%w: vocabulary.min_count must be >= 0, got %d", internalerr.ErrInvalidConfig, c.Vocabulary.MinCount)
	}
	if c.Vocabulary.Workers < 0 {
		return fmt.Errorf("%w: vocabulary.workers must be >= 0, got %d", internalerr.ErrInvalidConfig, c.Vocabulary.Workers)
	}
	if err := c.Similarity.ScorerConfig().Validate(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}

	switch c.Embedding.Provider {
	case ProviderHash:
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("%w: embedding.dimensions must be > 0", internalerr.ErrInvalidConfig)
		}
	case ProviderHTTP:
		if strings.TrimSpace(c.Embedding.BaseURL) == "" {
			return fmt.Errorf("%w: embedding.base_url is required for the http provider", internalerr.ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Embedding.Model) == "" {
			return fmt.Errorf("%w: embedding.model is required for the http provider", internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", internalerr.ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Embedding.BatchSize < 0 || c.Embedding.CacheSize < 0 || c.Embedding.Timeout < 0 {
		return fmt.Errorf("%w: embedding sizes and timeout must be >= 0", internalerr.ErrInvalidConfig)
	}

	if c.Cleaning.MinTokenLength < 0 || c.Cleaning.Workers < 0 {
		return fmt.Errorf("%w: cleaning.min_token_length and cleaning.workers must be >= 0", internalerr.ErrInvalidConfig)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", internalerr.ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// ScorerConfig converts the section into a similarity.Config.
func (s Similarity) ScorerConfig() similarity.Config {
	return similarity.Config{
		NGram:            s.NGram,
		JaccardThreshold: s.JaccardThreshold,
		CosineThreshold:  s.CosineThreshold,
		MaxLengthDiff:    s.MaxLengthDiff,
		Exclude:          append([]string(nil), s.Exclude...),
		Workers:          s.Workers,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// SaveStoplist writes stopwords in the format read by LoadStoplist.
func SaveStoplist(path string, sl *Stoplist) error {
	data, err := yaml.Marshal(sl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
