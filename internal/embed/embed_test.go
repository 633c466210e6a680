package embed

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps a StaticEmbedder and counts provider calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int
	batchCalls int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts += len(texts)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	first, err := e.Embed(context.Background(), "high-risk AI systems")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "high-risk AI systems")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, StaticDimensions)
}

func TestStaticEmbedder_DistinctTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	a, err := e.Embed(context.Background(), "biometric identification")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "transparency obligations")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "conformity assessment procedure")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_EmptyTextZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_BatchAlignment(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	texts := []string{"first passage", "second passage", "third passage"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "position %d", i)
	}
}

func TestStaticEmbedder_ClosedRejectsCalls(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "anything")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestCachedEmbedder_HitSkipsProvider(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	defer cached.Close()

	first, err := cached.Embed(context.Background(), "risk management system")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "risk management system")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchFetchesOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	defer cached.Close()

	_, err = cached.Embed(context.Background(), "cached text")
	require.NoError(t, err)

	batch, err := cached.EmbedBatch(context.Background(), []string{"cached text", "fresh text"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	assert.Equal(t, 1, inner.batchCalls)
	assert.Equal(t, 1, inner.batchTexts)
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	defer cached.Close()

	for i := 0; i < 3; i++ {
		_, err := cached.Embed(context.Background(), fmt.Sprintf("text %d", i))
		require.NoError(t, err)
	}

	// "text 0" was evicted by the third insert.
	_, err = cached.Embed(context.Background(), "text 0")
	require.NoError(t, err)
	assert.Equal(t, 4, inner.embedCalls)
}

func TestCachedEmbedder_NilInnerRejected(t *testing.T) {
	_, err := NewCachedEmbedder(nil, 10)
	assert.Error(t, err)
}

func TestCachedEmbedder_DelegatesMetadata(t *testing.T) {
	inner := NewStaticEmbedder()
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	defer cached.Close()

	assert.Equal(t, StaticDimensions, cached.Dimensions())
	assert.Equal(t, "static", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: 1, MaxDelay: 2, Multiplier: 2.0}

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 1, MaxDelay: 2, Multiplier: 2.0}

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return fmt.Errorf("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorContains(t, err, "permanent")
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, DefaultRetryConfig(), func() error {
		return fmt.Errorf("should not matter")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
