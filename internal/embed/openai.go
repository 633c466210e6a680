package embed

import (
	"context"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lexrag/lexrag/internal/errors"
)

// OpenAIConfig holds settings for the OpenAI-compatible provider.
// BaseURL allows any endpoint speaking the OpenAI embeddings API.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Retry      RetryConfig
}

// OpenAIEmbedder generates embeddings through an OpenAI-compatible
// embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	config OpenAIConfig

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time.
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI-compatible embedding provider.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.Embedding("embedding provider API key is not configured", nil)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one provider
// call, preserving input order. A response with a missing or
// wrongly-sized vector fails the whole batch: partial results are a
// correctness hazard for positional alignment.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, errors.Embedding("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, errors.Newf(errors.ErrCodeEmbedProvider,
			"batch of %d texts exceeds maximum of %d", len(texts), MaxBatchSize)
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.config.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.config.Dimensions > 0 {
		req.Dimensions = e.config.Dimensions
	}

	var resp openai.EmbeddingResponse
	err := withRetry(ctx, e.config.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		var callErr error
		resp, callErr = e.client.CreateEmbeddings(callCtx, req)
		return callErr
	})
	if err != nil {
		return nil, errors.Embedding("embedding request failed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.Newf(errors.ErrCodeEmbedProvider,
			"provider returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, errors.Newf(errors.ErrCodeEmbedProvider,
				"provider returned out-of-range index %d", item.Index)
		}
		if e.config.Dimensions > 0 && len(item.Embedding) != e.config.Dimensions {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
				"expected %d dimensions, got %d", e.config.Dimensions, len(item.Embedding))
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, errors.Newf(errors.ErrCodeEmbedProvider,
				"provider response is missing an embedding for input %d", i)
		}
	}

	return vectors, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.config.Model
}

// Available reports whether the provider is usable. The API is not
// probed: a cheap local check keeps Available side-effect free.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed && e.config.APIKey != ""
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
