package kb

import (
	"strings"

	"careercompass/internal/model"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// separators ordered coarsest first: paragraphs, lines, sentences, words.
// The empty string stands for a raw rune cut and is handled explicitly.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits sections into bounded, overlapping chunks. Splitting tries
// the coarsest separator whose pieces fit the size bound before falling back
// to finer ones, ending with a raw rune cut. The same input and configuration
// always produce the same chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split produces the chunk sequence for the given sections. Every character
// of every section appears in at least one chunk, no chunk exceeds the size
// bound, and within a section each chunk after the first starts with the
// last overlap runes of its predecessor.
func (c *Chunker) Split(sections []model.Section) []model.Chunk {
	var chunks []model.Chunk
	for _, sec := range sections {
		for i, text := range c.chunkSection(sec.Text) {
			chunks = append(chunks, model.Chunk{
				Source:  sec.Source,
				Section: sec.Index,
				Index:   i,
				Text:    text,
			})
		}
	}
	return chunks
}

func (c *Chunker) chunkSection(text string) []string {
	if len([]rune(text)) <= c.chunkSize {
		return []string{text}
	}

	// Windows partition the section; each final chunk is its window prefixed
	// with the tail of the previous chunk, so the chunk stays within
	// chunkSize and the overlap is exact.
	budget := c.chunkSize - c.overlap
	windows := mergePieces(splitRecursive(text, 0, budget), budget)

	out := make([]string, 0, len(windows))
	prev := ""
	for i, w := range windows {
		chunk := w
		if i > 0 && c.overlap > 0 {
			chunk = tailRunes(prev, c.overlap) + w
		}
		out = append(out, chunk)
		prev = chunk
	}
	return out
}

// splitRecursive breaks text into pieces of at most budget runes, preferring
// the coarsest separator that applies. Separators stay attached to the
// preceding piece so no character is lost.
func splitRecursive(text string, sepIdx, budget int) []string {
	if len([]rune(text)) <= budget {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return cutRunes(text, budget)
	}

	parts := splitAfter(text, separators[sepIdx])
	if len(parts) == 1 {
		return splitRecursive(text, sepIdx+1, budget)
	}

	var pieces []string
	for _, part := range parts {
		pieces = append(pieces, splitRecursive(part, sepIdx+1, budget)...)
	}
	return pieces
}

// mergePieces greedily joins consecutive pieces while they fit the budget,
// matching the splitter's preference for the largest chunk the bound allows.
func mergePieces(pieces []string, budget int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, p := range pieces {
		pl := len([]rune(p))
		if curLen > 0 && curLen+pl > budget {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(p)
		curLen += pl
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter may leave a trailing empty part when text ends with sep.
	if n := len(parts); n > 1 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

func cutRunes(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
