package kb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercompass/internal/model"
)

func longSection(paragraphs int) string {
	var parts []string
	for i := 0; i < paragraphs; i++ {
		parts = append(parts, strings.Repeat("career guidance text. ", 3))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func TestSplit_ShortSectionSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200)
	sections := []model.Section{{Source: "careers.txt", Index: 4, Text: "Career: Analyst"}}

	chunks := c.Split(sections)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Career: Analyst", chunks[0].Text)
	assert.Equal(t, "careers.txt", chunks[0].Source)
	assert.Equal(t, 4, chunks[0].Section)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplit_RespectsSizeBound(t *testing.T) {
	c := NewChunker(120, 20)
	chunks := c.Split([]model.Section{{Source: "s.txt", Text: longSection(10)}})

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 120)
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	const overlap = 20
	c := NewChunker(120, overlap)
	chunks := c.Split([]model.Section{{Source: "s.txt", Text: longSection(10)}})

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prefix := tailRunes(chunks[i-1].Text, overlap)
		assert.True(t, strings.HasPrefix(chunks[i].Text, prefix),
			"chunk %d must start with the tail of chunk %d", i, i-1)
	}
}

func TestSplit_CoversEveryCharacter(t *testing.T) {
	const overlap = 20
	text := longSection(10)
	c := NewChunker(120, overlap)
	chunks := c.Split([]model.Section{{Source: "s.txt", Text: text}})

	// Stripping the overlap prefix from every chunk after the first must
	// reassemble the section exactly.
	var b strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch.Text)
		if i > 0 {
			skip := overlap
			if prev := len([]rune(chunks[i-1].Text)); prev < skip {
				skip = prev
			}
			runes = runes[skip:]
		}
		b.WriteString(string(runes))
	}
	assert.Equal(t, text, b.String())
}

func TestSplit_Deterministic(t *testing.T) {
	c := NewChunker(120, 20)
	sections := []model.Section{{Source: "s.txt", Text: longSection(8)}}

	first := c.Split(sections)
	second := c.Split(sections)
	assert.Equal(t, first, second)
}

func TestSplit_RawCutWithoutSeparators(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("x", 200)
	chunks := c.Split([]model.Section{{Source: "s.txt", Text: text}})

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 50)
	}
}

func TestNewChunker_ClampsBadConfig(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, defaultChunkSize, c.chunkSize)
	assert.Equal(t, defaultChunkOverlap, c.overlap)

	// Overlap must stay below the chunk size.
	c = NewChunker(100, 100)
	assert.Equal(t, 100, c.chunkSize)
	assert.Equal(t, 25, c.overlap)
}
