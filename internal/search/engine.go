package search

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/embed"
	"github.com/lexrag/lexrag/internal/errors"
	"github.com/lexrag/lexrag/internal/index"
	"github.com/lexrag/lexrag/internal/rerank"
)

// Engine executes hybrid queries against an index. The index is held
// behind an atomic pointer so a rebuild can swap it in while queries
// are in flight: every query sees either the old index or the new one,
// never a mix.
type Engine struct {
	idx      atomic.Pointer[index.Index]
	embedder embed.Embedder
	scorer   rerank.Scorer
	cfg      config.SearchConfig

	embedTimeout time.Duration
}

// NewEngine creates a search engine. The scorer may be nil, which
// disables reranking. An initial index may be nil; Swap installs one
// later.
func NewEngine(idx *index.Index, embedder embed.Embedder, scorer rerank.Scorer, cfg config.Config) (*Engine, error) {
	if embedder == nil {
		return nil, errors.Config("search engine requires an embedder")
	}

	e := &Engine{
		embedder:     embedder,
		scorer:       scorer,
		cfg:          cfg.Search,
		embedTimeout: cfg.Embeddings.Timeout,
	}
	if e.embedTimeout <= 0 {
		e.embedTimeout = embed.DefaultTimeout
	}
	if idx != nil {
		e.idx.Store(idx)
	}
	return e, nil
}

// Swap atomically installs a new index. In-flight queries keep using
// the index they started with.
func (e *Engine) Swap(idx *index.Index) {
	e.idx.Store(idx)
	if idx != nil {
		slog.Info("index swapped", "chunks", len(idx.Chunks), "built_at", idx.BuiltAt)
	}
}

// Index returns the currently installed index, or nil.
func (e *Engine) Index() *index.Index {
	return e.idx.Load()
}

// Ready reports whether an index is installed.
func (e *Engine) Ready() bool {
	return e.idx.Load() != nil
}

// Search runs a hybrid query: lexical and vector retrieval execute in
// parallel, their candidate lists fuse via RRF, and the optional
// rerank stage rescores the fused candidates. A failure to embed the
// query is fatal for the query; a rerank failure is not.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	idx := e.idx.Load()
	if idx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no index is loaded", nil)
	}

	query = strings.TrimSpace(query)
	if query == "" || len(idx.Chunks) == 0 {
		return []Result{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	if e.cfg.MaxTopK > 0 && topK > e.cfg.MaxTopK {
		topK = e.cfg.MaxTopK
	}
	if topK <= 0 {
		return []Result{}, nil
	}

	multiplier := e.cfg.CandidateMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	candidates := topK * multiplier

	start := time.Now()

	var vectorHits, lexicalHits []index.SearchResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		embedCtx, cancel := context.WithTimeout(gctx, e.embedTimeout)
		defer cancel()

		qvec, err := e.embedder.Embed(embedCtx, query)
		if err != nil {
			return errors.Embedding("failed to embed query", err)
		}

		vectorHits, err = idx.Vectors.Search(qvec, candidates)
		return err
	})

	g.Go(func() error {
		lexicalHits = idx.Lexical.Search(query, candidates)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := FuseRRF(vectorHits, lexicalHits, candidates, e.cfg.RRFConstant)
	for i := range fused {
		if ch, ok := idx.Chunk(fused[i].ChunkID); ok {
			fused[i].Chunk = ch
		}
	}

	var results []Result
	if opts.UseRerank {
		results = applyRerank(ctx, e.scorer, query, fused, topK)
	} else {
		if topK > len(fused) {
			topK = len(fused)
		}
		results = fused[:topK]
	}

	slog.Debug("search completed",
		"query_len", len(query),
		"top_k", topK,
		"vector_hits", len(vectorHits),
		"lexical_hits", len(lexicalHits),
		"fused", len(fused),
		"reranked", opts.UseRerank && e.scorer != nil,
		"duration", time.Since(start))

	return results, nil
}
