package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lexrag/lexrag/internal/rerank"
)

// applyRerank rescores fused candidates with the cross-encoder and
// returns the topK best by cross-encoder score. Reranking is strictly
// best-effort: a nil scorer, a scorer error, or a misaligned response
// degrades to the fused order, truncated to topK, and never fails the
// query.
func applyRerank(ctx context.Context, scorer rerank.Scorer, query string, candidates []Result, topK int) []Result {
	if topK > len(candidates) {
		topK = len(candidates)
	}
	if topK < 0 {
		topK = 0
	}

	if scorer == nil {
		return candidates[:topK]
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Chunk.Text
	}

	scores, err := scorer.Score(ctx, query, documents)
	if err != nil {
		slog.Warn("rerank failed, falling back to fused order",
			"scorer", scorer.Name(), "error", err)
		return candidates[:topK]
	}
	if len(scores) != len(candidates) {
		slog.Warn("rerank returned misaligned scores, falling back to fused order",
			"scorer", scorer.Name(), "want", len(candidates), "got", len(scores))
		return candidates[:topK]
	}

	reranked := make([]Result, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = scores[i]
		reranked[i].Reranked = true
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ChunkID < reranked[j].ChunkID
	})

	return reranked[:topK]
}
