// Package search implements hybrid query execution: parallel lexical
// and vector retrieval, reciprocal rank fusion, and the optional
// best-effort rerank stage.
package search

import (
	"github.com/lexrag/lexrag/internal/chunk"
)

// DefaultRRFConstant is the RRF smoothing parameter k.
const DefaultRRFConstant = 60

// Options controls a single query.
type Options struct {
	// TopK is the number of results to return. Zero falls back to the
	// configured default.
	TopK int

	// UseRerank enables the cross-encoder rescoring stage for this
	// query.
	UseRerank bool
}

// Result is a single fused search hit.
type Result struct {
	// ChunkID identifies the chunk within the index.
	ChunkID int

	// Score is the final ranking score: the RRF score, or the
	// cross-encoder score when reranking applied.
	Score float64

	// RRFScore is the fused score before any reranking.
	RRFScore float64

	// VectorRank is this chunk's 1-based rank in the vector candidate
	// list, or 0 when absent.
	VectorRank int

	// LexicalRank is this chunk's 1-based rank in the lexical candidate
	// list, or 0 when absent.
	LexicalRank int

	// Reranked reports whether Score came from the cross-encoder.
	Reranked bool

	// Chunk is the matched chunk.
	Chunk chunk.Chunk
}
