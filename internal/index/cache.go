package index

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/lexrag/lexrag/internal/chunk"
	"github.com/lexrag/lexrag/internal/errors"
)

// snapshotVersion guards the on-disk layout. A mismatch is treated as
// a decode failure, forcing a rebuild.
const snapshotVersion = 1

// snapshot is the gob-encodable form of an Index. The lexical index
// holds a tokenizer function, which gob cannot encode, so the snapshot
// stores the parameters needed to reconstruct it instead.
type snapshot struct {
	Version int

	Chunks []chunk.Chunk

	Dimensions int
	Vectors    [][]float32

	K1          float64
	B           float64
	MinTokenLen int
	TermFreqs   []map[string]int
	DocLengths  []int
	DocFreq     map[string]int
	TotalTokens int

	Model          string
	SourceChecksum string
	BuiltAt        time.Time
}

// Save persists the index to path atomically: write to a temp file in
// the same directory, fsync, then rename. Readers never observe a
// partially written cache. A file lock serializes writers.
func Save(idx *Index, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.CacheIO(fmt.Sprintf("create cache directory %s", dir), err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.CacheIO("acquire cache lock", err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.CacheIO("create temp cache file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	snap := snapshot{
		Version:        snapshotVersion,
		Chunks:         idx.Chunks,
		Dimensions:     idx.Vectors.dimensions,
		Vectors:        idx.Vectors.vectors,
		K1:             idx.Lexical.k1,
		B:              idx.Lexical.b,
		MinTokenLen:    idx.Lexical.minTokenLen,
		TermFreqs:      idx.Lexical.termFreqs,
		DocLengths:     idx.Lexical.docLengths,
		DocFreq:        idx.Lexical.docFreq,
		TotalTokens:    idx.Lexical.totalTokens,
		Model:          idx.Model,
		SourceChecksum: idx.SourceChecksum,
		BuiltAt:        idx.BuiltAt,
	}

	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return errors.CacheIO("encode index cache", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.CacheIO("sync index cache", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.CacheIO("close temp cache file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.CacheIO(fmt.Sprintf("rename cache into place at %s", path), err)
	}

	slog.Debug("index cache written", "path", path, "chunks", len(idx.Chunks))
	return nil
}

// Load restores an index from path. A missing file is a cache IO
// error; a file that cannot be decoded (corrupt, or written by an
// incompatible version) is a decode error. Both are recoverable by
// rebuilding from source.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.CacheIO(fmt.Sprintf("open index cache %s", path), err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, errors.CacheDecode(fmt.Sprintf("decode index cache %s", path), err)
	}
	if snap.Version != snapshotVersion {
		return nil, errors.CacheDecode(
			fmt.Sprintf("cache version %d is not supported (want %d)", snap.Version, snapshotVersion), nil)
	}

	lexical, err := NewLexicalIndex(snap.K1, snap.B, snap.MinTokenLen)
	if err != nil {
		return nil, errors.CacheDecode("cache holds invalid lexical parameters", err)
	}
	lexical.termFreqs = snap.TermFreqs
	lexical.docLengths = snap.DocLengths
	lexical.totalTokens = snap.TotalTokens
	if snap.DocFreq != nil {
		lexical.docFreq = snap.DocFreq
	}

	vectors, err := NewVectorIndex(snap.Dimensions)
	if err != nil {
		return nil, errors.CacheDecode("cache holds invalid vector dimension", err)
	}
	vectors.vectors = snap.Vectors

	if len(snap.Chunks) != vectors.Len() || len(snap.Chunks) != lexical.Len() {
		return nil, errors.CacheDecode(
			fmt.Sprintf("cache is internally inconsistent: %d chunks, %d vectors, %d documents",
				len(snap.Chunks), vectors.Len(), lexical.Len()), nil)
	}

	return &Index{
		Chunks:         snap.Chunks,
		Vectors:        vectors,
		Lexical:        lexical,
		Model:          snap.Model,
		SourceChecksum: snap.SourceChecksum,
		BuiltAt:        snap.BuiltAt,
	}, nil
}
