package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercompass/internal/model"
)

const testCollection = "careers_test"

func testChunks() []model.Chunk {
	return []model.Chunk{
		{Source: "careers.txt", Section: 0, Index: 0, Text: "Career: Data Scientist"},
		{Source: "careers.txt", Section: 1, Index: 0, Text: "Career: Web Developer"},
		{Source: "careers.txt", Section: 2, Index: 0, Text: "Career: DevOps Engineer"},
	}
}

func testVectors() [][]float32 {
	return [][]float32{
		{1, 0},
		{0, 1},
		{0.7, 0.7},
	}
}

func TestBuild_ValidationErrors(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{Collection: testCollection, EmbeddingModel: "stub"}

	_, err := Build(dir, meta, testChunks(), testVectors()[:2])
	assert.ErrorContains(t, err, "length mismatch")

	_, err = Build(dir, Metadata{EmbeddingModel: "stub"}, testChunks(), testVectors())
	assert.ErrorContains(t, err, "collection")

	_, err = Build(dir, meta, testChunks(), [][]float32{{1, 0}, {0, 1}, {0.5}})
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = Build(dir, meta, testChunks()[:1], [][]float32{{}})
	assert.ErrorContains(t, err, "empty")
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	ix, err := Build(t.TempDir(), Metadata{Collection: testCollection, EmbeddingModel: "stub"}, testChunks(), testVectors())
	require.NoError(t, err)

	results, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Career: Data Scientist", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "Career: DevOps Engineer", results[1].Chunk.Text)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
	assert.Equal(t, "Career: Web Developer", results[2].Chunk.Text)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ix, err := Build(t.TempDir(), Metadata{Collection: testCollection, EmbeddingModel: "stub"}, testChunks(), testVectors())
	require.NoError(t, err)

	results, err := ix.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = ix.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_TieBreakKeepsInsertionOrder(t *testing.T) {
	chunks := []model.Chunk{
		{Source: "a.txt", Section: 0, Text: "first"},
		{Source: "a.txt", Section: 1, Text: "second"},
		{Source: "a.txt", Section: 2, Text: "third"},
	}
	vectors := [][]float32{{1, 0}, {1, 0}, {1, 0}}

	ix, err := Build(t.TempDir(), Metadata{Collection: testCollection, EmbeddingModel: "stub"}, chunks, vectors)
	require.NoError(t, err)

	results, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "second", results[1].Chunk.Text)
	assert.Equal(t, "third", results[2].Chunk.Text)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ix, err := Build(t.TempDir(), Metadata{Collection: testCollection, EmbeddingModel: "stub"}, testChunks(), testVectors())
	require.NoError(t, err)

	_, err = ix.Search([]float32{1, 0, 0}, 3)
	assert.ErrorContains(t, err, "dimension")
}

func TestSearch_Uninitialized(t *testing.T) {
	var ix *Index
	_, err := ix.Search([]float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestOpen_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{Collection: testCollection, EmbeddingModel: "stub"}
	built, err := Build(dir, meta, testChunks(), testVectors())
	require.NoError(t, err)

	opened, err := Open(dir, testCollection)
	require.NoError(t, err)
	assert.Equal(t, built.Size(), opened.Size())
	assert.Equal(t, testCollection, opened.Collection())
	assert.Equal(t, "stub", opened.EmbeddingModel())
	assert.Equal(t, built.CreatedAt().Unix(), opened.CreatedAt().Unix())

	want, err := built.Search([]float32{0.9, 0.1}, 3)
	require.NoError(t, err)
	got, err := opened.Search([]float32{0.9, 0.1}, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(t.TempDir(), testCollection)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_Corrupt(t *testing.T) {
	dir := t.TempDir()
	collectionDir := filepath.Join(dir, testCollection)
	require.NoError(t, os.MkdirAll(collectionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(collectionDir, indexFileName), []byte("not json"), 0o644))

	_, err := Open(dir, testCollection)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_CollectionMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := Build(dir, Metadata{Collection: "other", EmbeddingModel: "stub"}, testChunks(), testVectors())
	require.NoError(t, err)

	// Move the other collection's file under the expected name.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, testCollection), 0o755))
	require.NoError(t, os.Rename(
		filepath.Join(dir, "other", indexFileName),
		filepath.Join(dir, testCollection, indexFileName),
	))

	_, err = Open(dir, testCollection)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuild_CollectionsAreNamespaced(t *testing.T) {
	dir := t.TempDir()

	_, err := Build(dir, Metadata{Collection: "alpha", EmbeddingModel: "stub"}, testChunks()[:1], testVectors()[:1])
	require.NoError(t, err)
	_, err = Build(dir, Metadata{Collection: "beta", EmbeddingModel: "stub"}, testChunks(), testVectors())
	require.NoError(t, err)

	alpha, err := Open(dir, "alpha")
	require.NoError(t, err)
	beta, err := Open(dir, "beta")
	require.NoError(t, err)
	assert.Equal(t, 1, alpha.Size())
	assert.Equal(t, 3, beta.Size())
}

func TestBuild_ReplacesPersistedCollection(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{Collection: testCollection, EmbeddingModel: "stub"}

	_, err := Build(dir, meta, testChunks(), testVectors())
	require.NoError(t, err)
	_, err = Build(dir, meta, testChunks()[:1], testVectors()[:1])
	require.NoError(t, err)

	opened, err := Open(dir, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, opened.Size())
}
