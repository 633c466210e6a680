package index

import (
	"math"
	"sort"

	"github.com/lexrag/lexrag/internal/errors"
)

// BM25 default parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// LexicalIndex is an in-memory BM25 index over chunk texts. Chunk IDs
// are positional: the Nth added document has ID N.
type LexicalIndex struct {
	k1          float64
	b           float64
	minTokenLen int
	tokenize    Tokenizer
	termFreqs   []map[string]int
	docLengths  []int
	docFreq     map[string]int
	totalTokens int
}

// NewLexicalIndex creates an empty BM25 index. k1 must be positive and
// b must lie in [0, 1].
func NewLexicalIndex(k1, b float64, minTokenLength int) (*LexicalIndex, error) {
	if k1 <= 0 {
		return nil, errors.Config("bm25 k1 must be positive")
	}
	if b < 0 || b > 1 {
		return nil, errors.Config("bm25 b must be in [0, 1]")
	}
	if minTokenLength <= 0 {
		minTokenLength = DefaultMinTokenLength
	}

	return &LexicalIndex{
		k1:          k1,
		b:           b,
		minTokenLen: minTokenLength,
		tokenize:    NewTokenizer(minTokenLength),
		docFreq:     make(map[string]int),
	}, nil
}

// Add indexes a document. Its position becomes its chunk ID.
func (idx *LexicalIndex) Add(text string) {
	tokens := idx.tokenize(text)

	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}
	for term := range freqs {
		idx.docFreq[term]++
	}

	idx.termFreqs = append(idx.termFreqs, freqs)
	idx.docLengths = append(idx.docLengths, len(tokens))
	idx.totalTokens += len(tokens)
}

// Len returns the number of indexed documents.
func (idx *LexicalIndex) Len() int {
	return len(idx.termFreqs)
}

// avgDocLength returns the mean document length in tokens.
func (idx *LexicalIndex) avgDocLength() float64 {
	if len(idx.docLengths) == 0 {
		return 0
	}
	return float64(idx.totalTokens) / float64(len(idx.docLengths))
}

// idf computes the smoothed inverse document frequency for a term.
// The +1 inside the log keeps the value positive even for terms that
// appear in more than half the corpus.
func (idx *LexicalIndex) idf(term string) float64 {
	df := float64(idx.docFreq[term])
	n := float64(len(idx.termFreqs))
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Search scores every document against the query and returns the topK
// best, ordered by BM25 score descending; ties break by ascending
// chunk ID. Query terms absent from a document contribute zero, so
// documents sharing no terms with the query score zero but still rank
// (last, by ID). A topK of 0 or an empty index yields an empty result.
func (idx *LexicalIndex) Search(query string, topK int) []SearchResult {
	if topK <= 0 || len(idx.termFreqs) == 0 {
		return []SearchResult{}
	}

	terms := idx.tokenize(query)
	avgLen := idx.avgDocLength()

	results := make([]SearchResult, 0, len(idx.termFreqs))
	for id, freqs := range idx.termFreqs {
		var score float64
		for _, term := range terms {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			lengthNorm := idx.k1 * (1 - idx.b + idx.b*float64(idx.docLengths[id])/avgLen)
			score += idx.idf(term) * (tf * (idx.k1 + 1)) / (tf + lengthNorm)
		}
		results = append(results, SearchResult{ChunkID: id, Score: score})
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
	return results
}
