package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lexrag/lexrag/internal/chunk"
	"github.com/lexrag/lexrag/internal/config"
	"github.com/lexrag/lexrag/internal/embed"
	"github.com/lexrag/lexrag/internal/errors"
)

// Index is a fully built retrieval index: the chunks, their dense
// vectors, and the BM25 structures, all positionally aligned by chunk
// ID.
type Index struct {
	Chunks  []chunk.Chunk
	Vectors *VectorIndex
	Lexical *LexicalIndex

	// Model is the embedding model the vectors were built with.
	Model string
	// SourceChecksum fingerprints the corpus text and the build
	// parameters. A cached index is only trusted when it matches.
	SourceChecksum string
	// BuiltAt records when the build completed.
	BuiltAt time.Time
}

// Checksum fingerprints a corpus and the parameters that shape the
// resulting index. Any change to text, chunking, or embedding model
// produces a different value.
func Checksum(text string, cfg config.Config) string {
	h := sha256.New()
	h.Write([]byte(text))
	fmt.Fprintf(h, "|%d|%d|%s|%s",
		cfg.Chunking.Size, cfg.Chunking.Overlap, cfg.Chunking.SectionPattern,
		cfg.Embeddings.Model)
	return hex.EncodeToString(h.Sum(nil))
}

// Build chunks the corpus, embeds every chunk, and constructs both
// indexes. Embedding batches run concurrently, bounded by
// cfg.Embeddings.Workers; results land at fixed positions so chunk IDs
// stay aligned regardless of completion order. Any embedding failure
// aborts the whole build: a partially embedded index would silently
// return wrong results.
func Build(ctx context.Context, text string, cfg config.Config, embedder embed.Embedder) (*Index, error) {
	start := time.Now()

	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap, cfg.Chunking.SectionPattern, nil)
	if err != nil {
		return nil, err
	}
	chunks := chunker.Split(text)

	dims := cfg.Embeddings.Dimensions
	if d := embedder.Dimensions(); d > 0 {
		dims = d
	}

	vectors, err := NewVectorIndex(dims)
	if err != nil {
		return nil, err
	}
	lexical, err := NewLexicalIndex(cfg.Lexical.K1, cfg.Lexical.B, cfg.Lexical.MinTokenLength)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Chunks:         chunks,
		Vectors:        vectors,
		Lexical:        lexical,
		Model:          embedder.ModelName(),
		SourceChecksum: Checksum(text, cfg),
		BuiltAt:        time.Now(),
	}

	if len(chunks) == 0 {
		slog.Warn("corpus produced no chunks", "source_bytes", len(text))
		return idx, nil
	}

	embedded, err := embedAll(ctx, chunks, cfg, embedder)
	if err != nil {
		return nil, err
	}

	for i, ch := range chunks {
		if err := vectors.Add(embedded[i]); err != nil {
			return nil, err
		}
		lexical.Add(ch.Text)
	}

	slog.Info("index built",
		"chunks", len(chunks),
		"dimensions", dims,
		"model", idx.Model,
		"duration", time.Since(start))

	return idx, nil
}

// embedAll embeds every chunk in batches. The result is positionally
// aligned with chunks.
func embedAll(ctx context.Context, chunks []chunk.Chunk, cfg config.Config, embedder embed.Embedder) ([][]float32, error) {
	batchSize := cfg.Embeddings.BatchSize
	if batchSize < 1 {
		batchSize = embed.DefaultBatchSize
	}
	workers := cfg.Embeddings.Workers
	if workers < 1 {
		workers = 1
	}

	embedded := make([][]float32, len(chunks))
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	for batchStart := 0; batchStart < len(chunks); batchStart += batchSize {
		batchStart := batchStart
		batchEnd := batchStart + batchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}

		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			texts := make([]string, 0, batchEnd-batchStart)
			for _, ch := range chunks[batchStart:batchEnd] {
				texts = append(texts, ch.Text)
			}

			vecs, err := embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return errors.Embedding(
					fmt.Sprintf("failed to embed chunks %d-%d", batchStart, batchEnd-1), err)
			}
			copy(embedded[batchStart:batchEnd], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embedded, nil
}

// Chunk returns the chunk with the given ID, or false when out of
// range.
func (idx *Index) Chunk(id int) (chunk.Chunk, bool) {
	if id < 0 || id >= len(idx.Chunks) {
		return chunk.Chunk{}, false
	}
	return idx.Chunks[id], true
}

// SectionText reassembles the full text of a section (e.g. "Article
// 5") from its chunks, deduplicating the sliding-window overlap via
// byte offsets.
func (idx *Index) SectionText(section string) (string, bool) {
	var b strings.Builder
	prevEnd := -1
	found := false

	for _, ch := range idx.Chunks {
		if ch.SourceSection != section {
			continue
		}
		found = true
		if prevEnd < 0 || ch.Start >= prevEnd {
			b.WriteString(ch.Text)
		} else if ch.End > prevEnd {
			b.WriteString(ch.Text[prevEnd-ch.Start:])
		}
		if ch.End > prevEnd {
			prevEnd = ch.End
		}
	}

	return b.String(), found
}
