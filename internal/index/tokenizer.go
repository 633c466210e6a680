// Package index implements the two retrieval indexes (lexical BM25 and
// dense vector), the combined index builder, and on-disk persistence.
package index

import (
	"regexp"
	"strings"
)

// DefaultMinTokenLength is the minimum token length kept by the
// default tokenizer.
const DefaultMinTokenLength = 2

// tokenRegex matches runs of Unicode letters and digits. Punctuation
// and symbols act as separators.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenizer splits text into normalized terms for lexical indexing.
// The same function must be used for documents and queries: BM25
// scores are only meaningful when both sides share a vocabulary.
type Tokenizer func(text string) []string

// NewTokenizer returns a tokenizer that lowercases, splits on
// non-alphanumeric boundaries, and drops tokens shorter than minLength
// runes. A minLength of 0 or less falls back to DefaultMinTokenLength.
func NewTokenizer(minLength int) Tokenizer {
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}

	return func(text string) []string {
		matches := tokenRegex.FindAllString(strings.ToLower(text), -1)
		tokens := make([]string, 0, len(matches))
		for _, m := range matches {
			if len([]rune(m)) >= minLength {
				tokens = append(tokens, m)
			}
		}
		return tokens
	}
}
