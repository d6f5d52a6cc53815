package model

// Section is one delimiter-separated block of a knowledge-base source file.
// Index is the section's zero-based position within its source.
type Section struct {
	Source string `json:"source"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// Chunk is a bounded piece of a section prepared for embedding.
// Source and Section carry provenance for citation; they are never used for ranking.
type Chunk struct {
	Source  string `json:"source"`
	Section int    `json:"section"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// RetrievalResult pairs a chunk with its similarity score for one query.
// Higher score means more similar (cosine similarity).
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
