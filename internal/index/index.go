// Package index stores chunk embeddings and serves nearest-neighbor queries
// over a flat, on-disk persisted collection.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"careercompass/internal/model"
)

var (
	// ErrNotFound means the persisted index is absent or unreadable.
	ErrNotFound = errors.New("vector index not found")
	// ErrUninitialized means a query arrived before any index was built or opened.
	ErrUninitialized = errors.New("vector index not initialized")
)

const indexFileName = "index.json"

// Metadata identifies an index. Collection namespaces the on-disk location so
// multiple knowledge bases never collide at one storage root; EmbeddingModel
// records which model produced the vectors. Vectors from a different
// embedding model are not comparable; keeping the model fixed between build
// and query is the caller's precondition.
type Metadata struct {
	Collection     string `json:"collection"`
	EmbeddingModel string `json:"embedding_model"`
}

// Entry is one stored (chunk, vector) pair. Entries are never mutated after
// insertion; changing the knowledge base means a full rebuild.
type Entry struct {
	Chunk  model.Chunk `json:"chunk"`
	Vector []float32   `json:"vector"`
}

// Index is an immutable searchable collection. Concurrent Search calls are
// safe; replacing an index means building a new one and swapping handles.
type Index struct {
	meta      Metadata
	dimension int
	createdAt time.Time
	entries   []Entry
}

type indexFile struct {
	Metadata  Metadata  `json:"metadata"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

// Build creates an index from parallel chunk/vector slices and persists it
// under dir, fully replacing any previous content of the collection.
func Build(dir string, meta Metadata, chunks []model.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if meta.Collection == "" {
		return nil, fmt.Errorf("collection name is empty")
	}

	dimension := 0
	entries := make([]Entry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("vector %d is empty", i)
		}
		if dimension == 0 {
			dimension = len(vectors[i])
		} else if len(vectors[i]) != dimension {
			return nil, fmt.Errorf("vector %d dimension mismatch: %d vs %d", i, len(vectors[i]), dimension)
		}
		entries[i] = Entry{Chunk: chunks[i], Vector: vectors[i]}
	}

	ix := &Index{
		meta:      meta,
		dimension: dimension,
		createdAt: time.Now().UTC(),
		entries:   entries,
	}
	if err := ix.save(dir); err != nil {
		return nil, err
	}
	return ix, nil
}

// Open loads a previously persisted collection without re-embedding.
func Open(dir, collection string) (*Index, error) {
	path := filepath.Join(dir, collection, indexFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	var file indexFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: corrupt index at %s: %v", ErrNotFound, path, err)
	}
	if file.Metadata.Collection != collection {
		return nil, fmt.Errorf("%w: index at %s belongs to collection %q", ErrNotFound, path, file.Metadata.Collection)
	}
	for i, e := range file.Entries {
		if len(e.Vector) != file.Dimension {
			return nil, fmt.Errorf("%w: corrupt index at %s: entry %d dimension %d, want %d",
				ErrNotFound, path, i, len(e.Vector), file.Dimension)
		}
	}

	return &Index{
		meta:      file.Metadata,
		dimension: file.Dimension,
		createdAt: file.CreatedAt,
		entries:   file.Entries,
	}, nil
}

// Search returns the k entries most similar to the query vector, best first.
// Ties keep insertion order. Fewer than k entries returns all of them.
func (ix *Index) Search(query []float32, k int) ([]model.RetrievalResult, error) {
	if ix == nil || len(ix.entries) == 0 && ix.dimension == 0 {
		return nil, ErrUninitialized
	}
	if k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(query), ix.dimension)
	}

	results := make([]model.RetrievalResult, len(ix.entries))
	for i, e := range ix.entries {
		results[i] = model.RetrievalResult{
			Chunk: e.Chunk,
			Score: cosineSimilarity(query, e.Vector),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Size reports the number of stored entries.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

func (ix *Index) Collection() string     { return ix.meta.Collection }
func (ix *Index) EmbeddingModel() string { return ix.meta.EmbeddingModel }
func (ix *Index) CreatedAt() time.Time   { return ix.createdAt }

// save writes the index into its collection directory. The write goes to a
// unique temp file first and is renamed into place, so readers of the old
// file never observe a partial index.
func (ix *Index) save(dir string) error {
	collectionDir := filepath.Join(dir, ix.meta.Collection)
	if err := os.MkdirAll(collectionDir, 0o755); err != nil {
		return fmt.Errorf("create index directory failed: %w", err)
	}

	payload, err := json.Marshal(indexFile{
		Metadata:  ix.meta,
		Dimension: ix.dimension,
		CreatedAt: ix.createdAt,
		Entries:   ix.entries,
	})
	if err != nil {
		return fmt.Errorf("marshal index failed: %w", err)
	}

	tmpPath := filepath.Join(collectionDir, indexFileName+".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return fmt.Errorf("write index failed: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(collectionDir, indexFileName)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("swap index file failed: %w", err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
