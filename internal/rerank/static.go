package rerank

import (
	"context"
	"regexp"
	"strings"
)

// staticTokenRegex matches word tokens for overlap scoring.
var staticTokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// StaticScorer scores documents by query term overlap. It needs no
// external service and is deterministic, serving offline deployments
// where a cross-encoder is unavailable.
type StaticScorer struct{}

// Verify interface implementation at compile time.
var _ Scorer = (*StaticScorer)(nil)

// NewStaticScorer creates a term-overlap scorer.
func NewStaticScorer() *StaticScorer {
	return &StaticScorer{}
}

// Score computes, for each document, the fraction of distinct query
// terms it contains. Scores lie in [0, 1].
func (s *StaticScorer) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	queryTerms := make(map[string]struct{})
	for _, tok := range staticTokenRegex.FindAllString(strings.ToLower(query), -1) {
		queryTerms[tok] = struct{}{}
	}

	scores := make([]float64, len(documents))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, doc := range documents {
		docTerms := make(map[string]struct{})
		for _, tok := range staticTokenRegex.FindAllString(strings.ToLower(doc), -1) {
			docTerms[tok] = struct{}{}
		}

		matched := 0
		for term := range queryTerms {
			if _, ok := docTerms[term]; ok {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTerms))
	}

	return scores, nil
}

// Name identifies the scorer for logging.
func (s *StaticScorer) Name() string {
	return "static"
}
