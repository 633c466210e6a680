package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lexrag/lexrag/internal/errors"
)

// DefaultCacheSize is the default number of cached embeddings.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an in-memory LRU cache keyed
// by text content and model name. Repeated queries skip the provider
// entirely.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// Verify interface implementation at compile time.
var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU cache of the given size.
// A size of 0 or less uses DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if inner == nil {
		return nil, errors.Config("cached embedder requires an inner embedder")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal, "failed to create embedding cache", err)
	}

	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// cacheKey derives the cache key from text and model. The model name
// is part of the key so switching models never serves stale vectors.
func (e *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(e.inner.ModelName()))
	return hex.EncodeToString(h.Sum(nil))
}

// Embed returns a cached embedding when present, delegating to the
// inner embedder on a miss.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch serves cache hits locally and fetches only the misses
// from the inner embedder, preserving positional alignment.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := e.cache.Get(e.cacheKey(text)); ok {
			results[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vectors, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vec := range vectors {
			i := missIdx[j]
			results[i] = vec
			e.cache.Add(e.cacheKey(texts[i]), vec)
		}
	}

	return results, nil
}

// Dimensions returns the inner embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// ModelName returns the inner embedder's model identifier.
func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// Available reports the inner embedder's availability.
func (e *CachedEmbedder) Available(ctx context.Context) bool {
	return e.inner.Available(ctx)
}

// Close purges the cache and closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}
