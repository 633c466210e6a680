package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lexrag/lexrag/internal/errors"
)

// HTTP scorer defaults.
const (
	DefaultTimeout = 10 * time.Second
)

// HTTPConfig holds configuration for the HTTP cross-encoder scorer.
type HTTPConfig struct {
	// Endpoint is the rerank service base URL.
	Endpoint string
	// Model is the cross-encoder model identifier.
	Model string
	// Timeout applies per rerank call.
	Timeout time.Duration
}

// HTTPScorer scores documents via a cross-encoder rerank service.
// The service accepts POST /rerank with {query, documents, model} and
// returns per-document relevance scores.
type HTTPScorer struct {
	client *http.Client
	config HTTPConfig
}

// Verify interface implementation at compile time.
var _ Scorer = (*HTTPScorer)(nil)

// NewHTTPScorer creates an HTTP cross-encoder scorer.
func NewHTTPScorer(cfg HTTPConfig) (*HTTPScorer, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Config("rerank endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &HTTPScorer{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		config: cfg,
	}, nil
}

// scoreRequest is the JSON request to the /rerank endpoint.
type scoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

// scoreResponse is the JSON response from the /rerank endpoint.
type scoreResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Score sends the query and documents to the rerank service and
// returns scores positionally aligned with the documents.
func (s *HTTPScorer) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	body, err := json.Marshal(scoreRequest{
		Query:     query,
		Documents: documents,
		Model:     s.config.Model,
	})
	if err != nil {
		return nil, errors.New(errors.ErrCodeRerankProvider, "failed to marshal rerank request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(errors.ErrCodeRerankProvider, "failed to create rerank request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRerankProvider, "rerank request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Newf(errors.ErrCodeRerankProvider,
			"rerank service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.New(errors.ErrCodeRerankProvider, "failed to decode rerank response", err)
	}

	if len(decoded.Results) != len(documents) {
		return nil, errors.Newf(errors.ErrCodeRerankProvider,
			"rerank service scored %d of %d documents", len(decoded.Results), len(documents))
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, r := range decoded.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, errors.Newf(errors.ErrCodeRerankProvider,
				"rerank service returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, errors.Newf(errors.ErrCodeRerankProvider,
				"rerank service is missing a score for document %d", i)
		}
	}

	return scores, nil
}

// Name identifies the scorer for logging.
func (s *HTTPScorer) Name() string {
	return fmt.Sprintf("http(%s)", s.config.Model)
}

// Close releases idle connections.
func (s *HTTPScorer) Close() error {
	if transport, ok := s.client.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}
