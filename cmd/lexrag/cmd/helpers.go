package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/embed"
	"github.com/lexrag/lexrag/internal/errors"
	"github.com/lexrag/lexrag/internal/index"
	"github.com/lexrag/lexrag/internal/rerank"
)

// newEmbedder constructs the configured embedding provider, wrapped in
// the query LRU cache.
func newEmbedder(cfg config.Config) (embed.Embedder, error) {
	var inner embed.Embedder

	switch cfg.Embeddings.Provider {
	case "", "static":
		inner = embed.NewStaticEmbedder()
	case "openai":
		e, err := embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    cfg.Embeddings.BaseURL,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			Timeout:    cfg.Embeddings.Timeout,
		})
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, errors.Config(fmt.Sprintf("unknown embeddings provider %q", cfg.Embeddings.Provider))
	}

	return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
}

// newScorer constructs the rerank scorer, or nil when reranking is not
// configured.
func newScorer(cfg config.Config) (rerank.Scorer, error) {
	if cfg.Rerank.Endpoint == "" {
		return nil, nil
	}
	if cfg.Rerank.Endpoint == "static" {
		return rerank.NewStaticScorer(), nil
	}
	return rerank.NewHTTPScorer(rerank.HTTPConfig{
		Endpoint: cfg.Rerank.Endpoint,
		Model:    cfg.Rerank.Model,
		Timeout:  cfg.Rerank.Timeout,
	})
}

// readSource reads the corpus text file.
func readSource(cfg config.Config) (string, error) {
	if cfg.Source.Path == "" {
		return "", errors.Config("source.path is not configured (set it in the config file or LEXRAG_SOURCE)")
	}
	data, err := os.ReadFile(cfg.Source.Path)
	if err != nil {
		return "", fmt.Errorf("read corpus %s: %w", cfg.Source.Path, err)
	}
	return string(data), nil
}

// loadOrBuild returns a ready index: the cached one when its checksum
// matches the current corpus and parameters, otherwise a fresh build
// (persisted back to the cache). Cache failures of any kind degrade to
// a rebuild, never to a hard error.
func loadOrBuild(ctx context.Context, cfg config.Config, embedder embed.Embedder, forceRebuild bool) (*index.Index, error) {
	text, err := readSource(cfg)
	if err != nil {
		return nil, err
	}

	checksum := index.Checksum(text, cfg)

	if !forceRebuild {
		cached, err := index.Load(cfg.Cache.Path)
		switch {
		case err == nil && cached.SourceChecksum == checksum:
			slog.Info("using cached index",
				"path", cfg.Cache.Path, "chunks", len(cached.Chunks), "built_at", cached.BuiltAt)
			return cached, nil
		case err == nil:
			slog.Info("cached index is stale, rebuilding", "path", cfg.Cache.Path)
		case errors.HasCode(err, errors.ErrCodeCacheDecode):
			slog.Warn("cached index is unreadable, rebuilding", "path", cfg.Cache.Path, "error", err)
		default:
			slog.Debug("no cached index", "path", cfg.Cache.Path, "error", err)
		}
	}

	built, err := index.Build(ctx, text, cfg, embedder)
	if err != nil {
		return nil, err
	}

	if err := index.Save(built, cfg.Cache.Path); err != nil {
		slog.Warn("failed to persist index cache", "path", cfg.Cache.Path, "error", err)
	}
	return built, nil
}
