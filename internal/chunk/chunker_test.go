package chunk

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/internal/errors"
)

const articlePattern = `(?m)^Article \d+`

func mustChunker(t *testing.T, size, overlap int, pattern string) *Chunker {
	t.Helper()
	c, err := New(size, overlap, pattern, nil)
	require.NoError(t, err)
	return c
}

// reconstruct rebuilds the original text from chunks by dropping each
// chunk's overlap with its predecessor.
func reconstruct(t *testing.T, text string, chunks []Chunk) string {
	t.Helper()
	var b strings.Builder
	prevEnd := 0
	for _, ch := range chunks {
		require.Equal(t, text[ch.Start:ch.End], ch.Text)
		require.LessOrEqual(t, ch.Start, prevEnd, "gap before chunk %d", ch.ID)
		if ch.End > prevEnd {
			b.WriteString(ch.Text[prevEnd-ch.Start:])
			prevEnd = ch.End
		}
	}
	return b.String()
}

func TestNew_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		pattern       string
	}{
		{"overlap equals size", 100, 100, ""},
		{"overlap exceeds size", 100, 150, ""},
		{"zero size", 0, 0, ""},
		{"negative overlap", 100, -1, ""},
		{"bad pattern", 100, 10, "("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap, tt.pattern, nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c := mustChunker(t, 100, 20, articlePattern)
	assert.Empty(t, c.Split(""))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := mustChunker(t, 100, 20, "")
	chunks := c.Split("a short passage")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ID)
	assert.Equal(t, "a short passage", chunks[0].Text)
	assert.Equal(t, 3, chunks[0].TokenCount)
}

func TestSplit_CoverageReconstructsOriginal(t *testing.T) {
	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, "regulation")
	}
	text := strings.Join(words, " ")

	tests := []struct {
		size, overlap int
	}{
		{100, 0},
		{100, 20},
		{250, 100},
		{64, 63},
		{5000, 200},
	}

	for _, tt := range tests {
		c := mustChunker(t, tt.size, tt.overlap, "")
		chunks := c.Split(text)
		require.NotEmpty(t, chunks)
		assert.Equal(t, text, reconstruct(t, text, chunks),
			"size=%d overlap=%d", tt.size, tt.overlap)
	}
}

func TestSplit_CoverageWithSectionMarkers(t *testing.T) {
	text := "Recitals preamble text explaining the intent of the regulation.\n" +
		"Article 1\n" + strings.Repeat("scope and subject matter of this regulation. ", 12) + "\n" +
		"Article 2\n" + strings.Repeat("definitions applicable for the purposes hereof. ", 12)

	c := mustChunker(t, 120, 30, articlePattern)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, text, reconstruct(t, text, chunks))
}

func TestSplit_ChunksNeverSpanTwoMarkers(t *testing.T) {
	// Both sections are shorter than the chunk size: without marker
	// handling the whole text would fit in one window.
	text := "Article 1\nshort first article body.\nArticle 2\nshort second article body."

	c := mustChunker(t, 5000, 500, articlePattern)
	chunks := c.Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Article 1", chunks[0].SourceSection)
	assert.Equal(t, "Article 2", chunks[1].SourceSection)
	assert.Equal(t, 1, strings.Count(chunks[0].Text, "Article"))
	assert.Equal(t, 1, strings.Count(chunks[1].Text, "Article"))
}

func TestSplit_PreambleLabel(t *testing.T) {
	text := "introductory recitals come first.\nArticle 1\nthe first article."

	c := mustChunker(t, 5000, 500, articlePattern)
	chunks := c.Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, PreambleSection, chunks[0].SourceSection)
	assert.Equal(t, "Article 1", chunks[1].SourceSection)
}

func TestSplit_NoMarkerLeavesSectionEmpty(t *testing.T) {
	c := mustChunker(t, 50, 10, "")
	chunks := c.Split("plain text without any structural markers at all here")

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Empty(t, ch.SourceSection)
	}
}

func TestSplit_WindowsStartAtWordBoundaries(t *testing.T) {
	words := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		words = append(words, "transparency")
	}
	text := strings.Join(words, " ")

	c := mustChunker(t, 100, 25, "")
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for _, ch := range chunks[1:] {
		r, _ := utf8.DecodeLastRuneInString(text[:ch.Start])
		assert.True(t, unicode.IsSpace(r),
			"chunk %d starts mid-word at offset %d", ch.ID, ch.Start)
	}
}

func TestSplit_OrdinalIDs(t *testing.T) {
	text := strings.Repeat("obligations of providers apply here. ", 40)

	c := mustChunker(t, 80, 20, "")
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 2)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ID)
	}
}

func TestSplit_MultiByteTextStaysValidUTF8(t *testing.T) {
	text := strings.Repeat("règlement général sur les données éthiques ", 30)

	c := mustChunker(t, 90, 15, "")
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text), "chunk %d is not valid UTF-8", ch.ID)
	}
	assert.Equal(t, text, reconstruct(t, text, chunks))
}

func TestSplit_RestartableAndDeterministic(t *testing.T) {
	text := "Article 1\n" + strings.Repeat("prohibited practices enumerated below. ", 20)
	c := mustChunker(t, 100, 30, articlePattern)

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}
