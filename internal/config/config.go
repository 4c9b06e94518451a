// Package config loads the manualrag configuration from an optional YAML
// file plus MANUALRAG_* environment overrides. The resulting Config is
// constructed once at startup and passed by value into constructors; there
// is no process-wide settings singleton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "manualrag.yaml"

// Config is the complete manualrag configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Dense     DenseConfig     `yaml:"dense"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// RetrievalConfig configures the hybrid retrieval engine.
type RetrievalConfig struct {
	// Channel fan-out sizes before per-query-type adaptation.
	KDense   int `yaml:"k_dense"`
	KLexical int `yaml:"k_lexical"`

	// KRerank is the maximum candidate count handed to the cross-encoder.
	KRerank int `yaml:"k_rerank"`

	// KFinal is the default number of results returned by search.
	KFinal int `yaml:"k_final"`

	// Base field boosts for the lexical channel before per-type scaling.
	TitleBoost       float64 `yaml:"title_boost"`
	BreadcrumbsBoost float64 `yaml:"breadcrumbs_boost"`
	ParamNameBoost   float64 `yaml:"param_name_boost"`
	ErrorCodeBoost   float64 `yaml:"error_code_boost"`

	// Fusion blend: dense is the primary signal, lexical corroborates.
	DenseWeight   float64 `yaml:"dense_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`

	// Rerank blend: the cross-encoder dominates once it has scored a pair.
	FusedWeight float64 `yaml:"fused_weight"`
	CrossWeight float64 `yaml:"cross_weight"`

	// MaxPerSection caps same-section results before backfilling.
	MaxPerSection int `yaml:"max_per_section"`

	// SearchTimeout bounds each channel call and the rerank call.
	SearchTimeout time.Duration `yaml:"search_timeout"`

	// WorkerPoolSize bounds concurrent model invocations (embedding and
	// cross-encoder scoring) across in-flight searches.
	WorkerPoolSize int `yaml:"worker_pool_size"`
}

// DenseConfig configures the vector channel backend.
type DenseConfig struct {
	// HNSW graph parameters.
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
}

// LexicalConfig configures the full-text channel backend.
type LexicalConfig struct {
	// Backend selects the lexical index: "sqlite" (FTS5, default) or "bleve".
	Backend string `yaml:"backend"`

	// BM25 parameters, tuned for short technical chunks.
	K1 float64 `yaml:"bm25_k1"`
	B  float64 `yaml:"bm25_b"`
}

// EmbeddingConfig configures the embedding model client.
type EmbeddingConfig struct {
	// Provider selects the embedder: "ollama" or "static" (offline).
	Provider   string        `yaml:"provider"`
	Host       string        `yaml:"host"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
}

// RerankerConfig configures the cross-encoder scoring client.
type RerankerConfig struct {
	// Enabled toggles the rerank stage entirely.
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`

	// Circuit breaker guarding the scoring service.
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataDir: ".manualrag",
		Logging: LoggingConfig{
			Level:         "info",
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: true,
		},
		Retrieval: RetrievalConfig{
			KDense:           40,
			KLexical:         20,
			KRerank:          30,
			KFinal:           10,
			TitleBoost:       1.4,
			BreadcrumbsBoost: 1.2,
			ParamNameBoost:   2.0,
			ErrorCodeBoost:   2.5,
			DenseWeight:      0.6,
			LexicalWeight:    0.4,
			FusedWeight:      0.3,
			CrossWeight:      0.7,
			MaxPerSection:    2,
			SearchTimeout:    10 * time.Second,
			WorkerPoolSize:   4,
		},
		Dense: DenseConfig{
			M:              64,
			EfConstruction: 256,
			EfSearch:       64,
		},
		Lexical: LexicalConfig{
			Backend: "sqlite",
			K1:      0.9,
			B:       0.55,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Host:      "http://localhost:11434",
			Model:     "bge-m3",
			BatchSize: 32,
			Timeout:   60 * time.Second,
			CacheSize: 1000,
		},
		Reranker: RerankerConfig{
			Enabled:      true,
			Endpoint:     "http://localhost:9659",
			Model:        "bge-reranker-large",
			Timeout:      30 * time.Second,
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
	}
}

// Load reads the configuration file at path (or DefaultConfigFile when path
// is empty), applies environment overrides, and validates. A missing file is
// not an error; defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config values from MANUALRAG_* environment variables.
// Env vars win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("MANUALRAG_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MANUALRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MANUALRAG_LEXICAL_BACKEND"); v != "" {
		c.Lexical.Backend = v
	}
	if v := os.Getenv("MANUALRAG_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("MANUALRAG_OLLAMA_HOST"); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv("MANUALRAG_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("MANUALRAG_RERANKER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Reranker.Enabled = b
		}
	}
	if v := os.Getenv("MANUALRAG_K_DENSE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.KDense = n
		}
	}
	if v := os.Getenv("MANUALRAG_K_LEXICAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.KLexical = n
		}
	}
	if v := os.Getenv("MANUALRAG_K_FINAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.KFinal = n
		}
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.KDense <= 0 || r.KLexical <= 0 || r.KFinal <= 0 {
		return fmt.Errorf("retrieval k values must be positive (k_dense=%d k_lexical=%d k_final=%d)",
			r.KDense, r.KLexical, r.KFinal)
	}
	if r.MaxPerSection <= 0 {
		return fmt.Errorf("max_per_section must be positive, got %d", r.MaxPerSection)
	}
	if err := validateBlend("dense_weight/lexical_weight", r.DenseWeight, r.LexicalWeight); err != nil {
		return err
	}
	if err := validateBlend("fused_weight/cross_weight", r.FusedWeight, r.CrossWeight); err != nil {
		return err
	}
	switch c.Lexical.Backend {
	case "sqlite", "bleve":
	default:
		return fmt.Errorf("unknown lexical backend %q (valid: sqlite, bleve)", c.Lexical.Backend)
	}
	switch c.Embedding.Provider {
	case "ollama", "static":
	default:
		return fmt.Errorf("unknown embedding provider %q (valid: ollama, static)", c.Embedding.Provider)
	}
	return nil
}

func validateBlend(name string, a, b float64) error {
	if a < 0 || b < 0 {
		return fmt.Errorf("%s must be non-negative", name)
	}
	const eps = 1e-9
	if sum := a + b; sum < 1-eps || sum > 1+eps {
		return fmt.Errorf("%s must sum to 1.0, got %.3f", name, sum)
	}
	return nil
}
