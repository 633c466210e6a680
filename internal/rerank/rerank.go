// Package rerank provides the optional cross-encoder rescoring stage.
//
// Reranking is strictly best-effort: a scorer failure never fails a
// query. The search engine degrades to the fused ranking instead.
package rerank

import (
	"context"
)

// Scorer assigns a relevance score to each document for a query.
type Scorer interface {
	// Score returns one score per document, positionally aligned with
	// the input. Higher is more relevant.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)

	// Name identifies the scorer for logging.
	Name() string
}
