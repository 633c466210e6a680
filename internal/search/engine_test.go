package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/internal/chunk"
	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/errors"
	"github.com/lexrag/lexrag/internal/index"
)

// axisEmbedder maps known texts to fixed unit vectors so vector
// rankings in tests are hand-checkable.
type axisEmbedder struct {
	vectors map[string][]float32
	failAll bool
}

func (a *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if a.failAll {
		return nil, errors.Embedding("provider unavailable", nil)
	}
	if v, ok := a.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func (a *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := a.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (a *axisEmbedder) Dimensions() int                  { return 3 }
func (a *axisEmbedder) ModelName() string                { return "axis" }
func (a *axisEmbedder) Available(_ context.Context) bool { return true }
func (a *axisEmbedder) Close() error                     { return nil }

const (
	textA = "real-time biometric identification in public spaces is prohibited"
	textB = "providers of high-risk systems keep technical documentation"
	textC = "codes of conduct may be drawn up voluntarily"

	testQuery = "prohibited biometric identification"
)

// testIndex builds a three-chunk index where chunk 0 (textA) dominates
// both retrieval paths for testQuery.
func testIndex(t *testing.T) (*index.Index, *axisEmbedder) {
	t.Helper()

	embedder := &axisEmbedder{vectors: map[string][]float32{
		textA:     {1, 0, 0},
		textB:     {0, 1, 0},
		textC:     {0, 0, 1},
		testQuery: {0.9, 0.3, 0.1},
	}}

	vectors, err := index.NewVectorIndex(3)
	require.NoError(t, err)
	lexical, err := index.NewLexicalIndex(config.DefaultK1, config.DefaultB, config.DefaultMinTokenLength)
	require.NoError(t, err)

	chunks := make([]chunk.Chunk, 0, 3)
	for i, text := range []string{textA, textB, textC} {
		vec, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		require.NoError(t, vectors.Add(vec))
		lexical.Add(text)
		chunks = append(chunks, chunk.Chunk{ID: i, Text: text})
	}

	return &index.Index{
		Chunks:  chunks,
		Vectors: vectors,
		Lexical: lexical,
		Model:   "axis",
		BuiltAt: time.Now(),
	}, embedder
}

func newTestEngine(t *testing.T) (*Engine, *axisEmbedder) {
	t.Helper()
	idx, embedder := testIndex(t)
	engine, err := NewEngine(idx, embedder, nil, config.Default())
	require.NoError(t, err)
	return engine, embedder
}

func TestEngine_HybridSearchRanksDoubleMatchFirst(t *testing.T) {
	engine, _ := newTestEngine(t)

	results, err := engine.Search(context.Background(), testQuery, Options{TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, 0, top.ChunkID)
	assert.Equal(t, textA, top.Chunk.Text)
	assert.Equal(t, 1, top.VectorRank)
	assert.Equal(t, 1, top.LexicalRank)
	assert.InDelta(t, 2.0/61, top.RRFScore, 1e-12)
	assert.Greater(t, top.Score, results[1].Score)
}

func TestEngine_DefaultTopKFromConfig(t *testing.T) {
	engine, _ := newTestEngine(t)

	results, err := engine.Search(context.Background(), testQuery, Options{})
	require.NoError(t, err)
	// Config default top_k is 5, but only 3 chunks exist.
	assert.Len(t, results, 3)
}

func TestEngine_TopKClampedToMax(t *testing.T) {
	idx, embedder := testIndex(t)
	cfg := config.Default()
	cfg.Search.MaxTopK = 1

	engine, err := NewEngine(idx, embedder, nil, cfg)
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), testQuery, Options{TopK: 10})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestEngine_EmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t)

	results, err := engine.Search(context.Background(), "   ", Options{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_EmptyIndex(t *testing.T) {
	embedder := &axisEmbedder{}
	vectors, err := index.NewVectorIndex(3)
	require.NoError(t, err)
	lexical, err := index.NewLexicalIndex(config.DefaultK1, config.DefaultB, config.DefaultMinTokenLength)
	require.NoError(t, err)

	engine, err := NewEngine(&index.Index{Vectors: vectors, Lexical: lexical}, embedder, nil, config.Default())
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), "anything", Options{TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_NoIndexLoaded(t *testing.T) {
	engine, err := NewEngine(nil, &axisEmbedder{}, nil, config.Default())
	require.NoError(t, err)
	assert.False(t, engine.Ready())

	_, err = engine.Search(context.Background(), "query", Options{TopK: 5})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInternal))
}

func TestEngine_QueryEmbedFailureIsFatal(t *testing.T) {
	idx, embedder := testIndex(t)
	embedder.failAll = true

	engine, err := NewEngine(idx, embedder, nil, config.Default())
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), testQuery, Options{TopK: 2})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbedProvider))
}

func TestEngine_RerankFailureDegradesToFusedOrder(t *testing.T) {
	idx, embedder := testIndex(t)
	scorer := &fakeScorer{err: errors.New(errors.ErrCodeRerankProvider, "service down", nil)}

	engine, err := NewEngine(idx, embedder, scorer, config.Default())
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), testQuery, Options{TopK: 2, UseRerank: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].ChunkID)
	assert.False(t, results[0].Reranked)
}

func TestEngine_RerankReordersResults(t *testing.T) {
	idx, embedder := testIndex(t)
	// Invert the fused order: last fused candidate gets the top score.
	scorer := &fakeScorer{scores: []float64{0.1, 0.5, 0.9}}

	engine, err := NewEngine(idx, embedder, scorer, config.Default())
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), testQuery, Options{TopK: 3, UseRerank: true})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Reranked)
	assert.Equal(t, 0.9, results[0].Score)
	assert.NotEqual(t, 0, results[0].ChunkID)
}

func TestEngine_SwapInstallsNewIndex(t *testing.T) {
	engine, _ := newTestEngine(t)

	first, err := engine.Search(context.Background(), testQuery, Options{TopK: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)

	vectors, err := index.NewVectorIndex(3)
	require.NoError(t, err)
	lexical, err := index.NewLexicalIndex(config.DefaultK1, config.DefaultB, config.DefaultMinTokenLength)
	require.NoError(t, err)
	engine.Swap(&index.Index{Vectors: vectors, Lexical: lexical})

	second, err := engine.Search(context.Background(), testQuery, Options{TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestEngine_ConcurrentSearches(t *testing.T) {
	engine, _ := newTestEngine(t)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := engine.Search(context.Background(), testQuery, Options{TopK: 2})
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
