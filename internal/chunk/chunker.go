// Package chunk splits raw corpus text into overlapping passages.
//
// Splitting respects hard section boundaries: when the text contains
// recognizable section markers (e.g. "Article 12" headings in
// regulatory text), a chunk never spans two markers. Within a section
// the chunker slides a fixed-size character window, moving each window
// start back to the nearest preceding whitespace so chunks begin at
// word boundaries.
package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lexrag/lexrag/internal/errors"
)

// PreambleSection labels text appearing before the first section marker.
const PreambleSection = "Preamble"

// Chunk is an immutable unit of retrievable text. Chunks are created
// once during index build and identified by their ordinal position in
// the corpus.
type Chunk struct {
	// ID is the stable ordinal index within the built corpus.
	ID int

	// Text is the passage content.
	Text string

	// SourceSection labels the structural unit the chunk was extracted
	// from ("Article 12", "Preamble"). Returned as metadata only; it
	// never affects ranking. Empty when no marker pattern matched.
	SourceSection string

	// TokenCount is the passage length in lexical tokens, computed
	// with the same tokenizer the lexical index uses.
	TokenCount int

	// Start and End are byte offsets of the passage in the original
	// text. Consecutive chunks overlap: End of chunk i is always at or
	// past Start of chunk i+1.
	Start int
	End   int
}

// CountFunc counts lexical tokens in a passage. It must match the
// tokenizer used by the lexical index.
type CountFunc func(text string) int

// Chunker splits text into overlapping chunks. Safe for concurrent
// use; Split has no side effects across calls.
type Chunker struct {
	size    int
	overlap int
	marker  *regexp.Regexp
	count   CountFunc
}

// New creates a Chunker. size and overlap are character counts;
// overlap must be smaller than size. sectionPattern may be empty to
// disable boundary detection. A nil count falls back to whitespace
// field counting.
func New(size, overlap int, sectionPattern string, count CountFunc) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid, "chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, errors.Newf(errors.ErrCodeConfigInvalid,
			"chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}

	var marker *regexp.Regexp
	if sectionPattern != "" {
		var err error
		marker, err = regexp.Compile(sectionPattern)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, err)
		}
	}

	if count == nil {
		count = func(text string) int { return len(strings.Fields(text)) }
	}

	return &Chunker{
		size:    size,
		overlap: overlap,
		marker:  marker,
		count:   count,
	}, nil
}

// segment is a marker-delimited region of the source text.
type segment struct {
	start, end int
	label      string
}

// Split chunks the full text. Empty input yields no chunks; text
// shorter than the chunk size yields a single chunk. Chunk IDs are
// assigned sequentially across the whole corpus.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return []Chunk{}
	}

	chunks := make([]Chunk, 0, len(text)/c.size+1)
	for _, seg := range c.segments(text) {
		chunks = c.splitSegment(text, seg, chunks)
	}
	return chunks
}

// segments partitions the text at section markers. The marker line
// itself belongs to the section it opens, so concatenating all
// segments reproduces the text exactly.
func (c *Chunker) segments(text string) []segment {
	if c.marker == nil {
		return []segment{{start: 0, end: len(text)}}
	}

	locs := c.marker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []segment{{start: 0, end: len(text)}}
	}

	segs := make([]segment, 0, len(locs)+1)
	if locs[0][0] > 0 {
		segs = append(segs, segment{start: 0, end: locs[0][0], label: PreambleSection})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segs = append(segs, segment{
			start: loc[0],
			end:   end,
			label: strings.TrimSpace(text[loc[0]:loc[1]]),
		})
	}
	return segs
}

// splitSegment slides the chunk window over one segment, appending to
// chunks. Windows never cross the segment boundary.
func (c *Chunker) splitSegment(text string, seg segment, chunks []Chunk) []Chunk {
	stride := c.size - c.overlap

	start := seg.start
	for start < seg.end {
		end := start + c.size
		if end >= seg.end {
			end = seg.end
		} else {
			// Never cut a UTF-8 sequence in half.
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
		}

		chunks = append(chunks, Chunk{
			ID:            len(chunks),
			Text:          text[start:end],
			SourceSection: seg.label,
			TokenCount:    c.count(text[start:end]),
			Start:         start,
			End:           end,
		})

		if end >= seg.end {
			break
		}

		next := c.wordStart(text, start, start+stride)
		if next > end || next <= start {
			// Keep consecutive windows overlapping and guarantee
			// forward progress even for tiny strides.
			next = end
		}
		start = next
	}
	return chunks
}

// wordStart moves a candidate window start back to the nearest
// preceding whitespace so the chunk begins at a word boundary. When no
// whitespace exists between prev and the candidate, the candidate is
// kept (after rune alignment) to guarantee forward progress.
func (c *Chunker) wordStart(text string, prev, candidate int) int {
	for !utf8.RuneStart(text[candidate]) {
		candidate--
	}

	for pos := candidate; pos > prev+1; pos-- {
		if isSpaceBefore(text, pos) {
			return pos
		}
	}
	return candidate
}

func isSpaceBefore(text string, pos int) bool {
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return unicode.IsSpace(r)
}
