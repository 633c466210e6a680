// Package config provides typed configuration for the retrieval engine.
//
// Configuration is loaded from a YAML file with environment variable
// overrides (LEXRAG_*). All parameter validation happens here, at
// configuration time: query-time code may assume a valid config.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lexrag/lexrag/internal/errors"
)

// Defaults mirror the corpus the engine was designed for: regulatory
// text split on "Article N" headings.
const (
	DefaultChunkSize      = 800
	DefaultChunkOverlap   = 200
	DefaultSectionPattern = `(?m)^Article \d+`

	DefaultK1             = 1.5
	DefaultB              = 0.75
	DefaultMinTokenLength = 2

	DefaultTopK                = 5
	DefaultMaxTopK             = 50
	DefaultRRFConstant         = 60
	DefaultCandidateMultiplier = 3

	DefaultEmbedDimensions = 768
	DefaultEmbedBatchSize  = 32
	DefaultEmbedWorkers    = 8
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultEmbedCacheSize  = 1000

	DefaultRerankTimeout = 10 * time.Second
)

// Config is the complete engine configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Cache      CacheConfig      `yaml:"cache"`
	LogLevel   string           `yaml:"log_level"`
}

// SourceConfig locates the corpus text.
type SourceConfig struct {
	// Path is the corpus text file to index.
	Path string `yaml:"path"`
}

// ChunkingConfig configures the chunker.
type ChunkingConfig struct {
	// Size is the target chunk length in characters.
	Size int `yaml:"size"`
	// Overlap is the character overlap between consecutive chunks.
	// Must be smaller than Size.
	Overlap int `yaml:"overlap"`
	// SectionPattern is a regular expression matching hard section
	// boundaries (e.g. article headings). A chunk never spans two
	// matches. Empty disables boundary detection.
	SectionPattern string `yaml:"section_pattern"`
}

// LexicalConfig configures BM25 scoring.
type LexicalConfig struct {
	// K1 is the term frequency saturation parameter.
	K1 float64 `yaml:"k1"`
	// B is the length normalization parameter (0-1).
	B float64 `yaml:"b"`
	// MinTokenLength is the minimum token length to index.
	MinTokenLength int `yaml:"min_token_length"`
}

// SearchConfig configures query execution and fusion.
type SearchConfig struct {
	// TopK is the default number of results to return.
	TopK int `yaml:"top_k"`
	// MaxTopK caps caller-supplied top_k values.
	MaxTopK int `yaml:"max_top_k"`
	// RRFConstant is the RRF smoothing parameter k.
	RRFConstant int `yaml:"rrf_constant"`
	// CandidateMultiplier widens each sub-search to
	// top_k * multiplier candidates before fusion.
	CandidateMultiplier int `yaml:"candidate_multiplier"`
	// UseRerank enables the cross-encoder rerank stage by default.
	UseRerank bool `yaml:"use_rerank"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "openai" or "static".
	Provider string `yaml:"provider"`
	// Model is the embedding model identifier. Part of the index
	// cache key: changing it invalidates cached indexes.
	Model string `yaml:"model"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible).
	BaseURL string `yaml:"base_url"`
	// Dimensions is the fixed vector dimension for this deployment.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of texts per provider call.
	BatchSize int `yaml:"batch_size"`
	// Workers bounds concurrent provider calls during index build.
	Workers int `yaml:"workers"`
	// Timeout applies per provider call.
	Timeout time.Duration `yaml:"timeout"`
	// CacheSize is the query-embedding LRU capacity.
	CacheSize int `yaml:"cache_size"`
}

// RerankConfig configures the optional cross-encoder stage.
type RerankConfig struct {
	// Endpoint is the rerank service URL. Empty disables reranking
	// (the engine falls back to fused order).
	Endpoint string `yaml:"endpoint"`
	// Model is the cross-encoder model identifier.
	Model string `yaml:"model"`
	// Timeout applies per rerank call; on expiry the engine degrades
	// to passthrough.
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig configures index persistence.
type CacheConfig struct {
	// Path is the on-disk index cache file.
	Path string `yaml:"path"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			Size:           DefaultChunkSize,
			Overlap:        DefaultChunkOverlap,
			SectionPattern: DefaultSectionPattern,
		},
		Lexical: LexicalConfig{
			K1:             DefaultK1,
			B:              DefaultB,
			MinTokenLength: DefaultMinTokenLength,
		},
		Search: SearchConfig{
			TopK:                DefaultTopK,
			MaxTopK:             DefaultMaxTopK,
			RRFConstant:         DefaultRRFConstant,
			CandidateMultiplier: DefaultCandidateMultiplier,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "static",
			Dimensions: DefaultEmbedDimensions,
			BatchSize:  DefaultEmbedBatchSize,
			Workers:    DefaultEmbedWorkers,
			Timeout:    DefaultEmbedTimeout,
			CacheSize:  DefaultEmbedCacheSize,
		},
		Rerank: RerankConfig{
			Timeout: DefaultRerankTimeout,
		},
		Cache: CacheConfig{
			Path: "lexrag.index",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path, falling back to defaults when
// the file does not exist. Environment overrides are applied and the
// result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Errorf("parse config %s: %w", path, err))
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides applies LEXRAG_* environment variables, which take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEXRAG_SOURCE"); v != "" {
		c.Source.Path = v
	}
	if v := os.Getenv("LEXRAG_CACHE"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("LEXRAG_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("LEXRAG_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("LEXRAG_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("LEXRAG_RERANK_ENDPOINT"); v != "" {
		c.Rerank.Endpoint = v
	}
	if v := os.Getenv("LEXRAG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LEXRAG_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("LEXRAG_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
}

// Validate checks all parameters. Every violation is a config error;
// nothing here is deferred to query time.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Chunking.SectionPattern != "" {
		if _, err := regexp.Compile(c.Chunking.SectionPattern); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Errorf("chunking.section_pattern: %w", err))
		}
	}
	if c.Lexical.K1 <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "lexical.k1 must be positive, got %g", c.Lexical.K1)
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "lexical.b must be in [0,1], got %g", c.Lexical.B)
	}
	if c.Lexical.MinTokenLength < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "lexical.min_token_length must be at least 1, got %d", c.Lexical.MinTokenLength)
	}
	if c.Search.TopK < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "search.top_k must be non-negative, got %d", c.Search.TopK)
	}
	if c.Search.RRFConstant <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.CandidateMultiplier < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "search.candidate_multiplier must be at least 1, got %d", c.Search.CandidateMultiplier)
	}
	if c.Embeddings.Dimensions <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "embeddings.batch_size must be at least 1, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.Workers < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "embeddings.workers must be at least 1, got %d", c.Embeddings.Workers)
	}
	return nil
}
