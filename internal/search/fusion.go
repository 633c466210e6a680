package search

import (
	"sort"

	"github.com/lexrag/lexrag/internal/index"
)

// FuseRRF merges a vector candidate list and a lexical candidate list
// with reciprocal rank fusion, truncated to topK. Each list
// contributes 1/(k + rank) for every chunk it ranks (ranks are
// 1-based); a chunk absent from a list receives no contribution from
// it. Ties break first in favor of chunks present in both lists, then
// by ascending chunk ID. A k of 0 or less falls back to
// DefaultRRFConstant.
func FuseRRF(vector, lexical []index.SearchResult, topK, k int) []Result {
	if topK <= 0 {
		return []Result{}
	}
	if k <= 0 {
		k = DefaultRRFConstant
	}

	fused := make(map[int]*Result)

	for i, r := range vector {
		rank := i + 1
		fused[r.ChunkID] = &Result{
			ChunkID:    r.ChunkID,
			RRFScore:   1.0 / float64(k+rank),
			VectorRank: rank,
		}
	}

	for i, r := range lexical {
		rank := i + 1
		if f, ok := fused[r.ChunkID]; ok {
			f.RRFScore += 1.0 / float64(k+rank)
			f.LexicalRank = rank
		} else {
			fused[r.ChunkID] = &Result{
				ChunkID:     r.ChunkID,
				RRFScore:    1.0 / float64(k+rank),
				LexicalRank: rank,
			}
		}
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		f.Score = f.RRFScore
		results = append(results, *f)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		aBoth := a.VectorRank > 0 && a.LexicalRank > 0
		bBoth := b.VectorRank > 0 && b.LexicalRank > 0
		if aBoth != bBoth {
			return aBoth
		}
		return a.ChunkID < b.ChunkID
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results
}
