package index

import (
	"math"
	"sort"

	"github.com/lexrag/lexrag/internal/errors"
)

// SearchResult is a single scored hit from either index.
type SearchResult struct {
	ChunkID int
	Score   float64
}

// VectorIndex holds dense embeddings for exact nearest-neighbor
// search. Search is a brute-force scan: exact cosine similarity over
// every stored vector, fully deterministic. For corpora in the
// thousands of chunks this is faster than maintaining an approximate
// structure, and it guarantees reproducible rankings.
type VectorIndex struct {
	dimensions int
	vectors    [][]float32
}

// NewVectorIndex creates an empty vector index for the given
// dimension.
func NewVectorIndex(dimensions int) (*VectorIndex, error) {
	if dimensions <= 0 {
		return nil, errors.Config("vector index dimension must be positive")
	}
	return &VectorIndex{dimensions: dimensions}, nil
}

// Add appends a vector. Its position becomes its chunk ID.
func (idx *VectorIndex) Add(vector []float32) error {
	if len(vector) != idx.dimensions {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"expected %d dimensions, got %d", idx.dimensions, len(vector))
	}
	idx.vectors = append(idx.vectors, vector)
	return nil
}

// Len returns the number of stored vectors.
func (idx *VectorIndex) Len() int {
	return len(idx.vectors)
}

// Dimensions returns the vector dimension.
func (idx *VectorIndex) Dimensions() int {
	return idx.dimensions
}

// Vector returns the stored vector for a chunk ID, or nil when out of
// range.
func (idx *VectorIndex) Vector(chunkID int) []float32 {
	if chunkID < 0 || chunkID >= len(idx.vectors) {
		return nil
	}
	return idx.vectors[chunkID]
}

// Search returns the topK chunks most similar to the query vector,
// ordered by cosine similarity descending; ties break by ascending
// chunk ID. A topK of 0 or an empty index yields an empty result.
func (idx *VectorIndex) Search(query []float32, topK int) ([]SearchResult, error) {
	if len(query) != idx.dimensions {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"query has %d dimensions, index has %d", len(query), idx.dimensions)
	}
	if topK <= 0 || len(idx.vectors) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		results = append(results, SearchResult{
			ChunkID: id,
			Score:   cosineSimilarity(query, vec),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// cosineSimilarity computes the cosine of the angle between two
// vectors, accumulating in float64. Either vector being zero yields 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
