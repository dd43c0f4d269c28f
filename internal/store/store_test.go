package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishitank/holocron/internal/chunk"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleEntry(id, content, filePath string, vec []float32) Entry {
	return Entry{
		Chunk: chunk.Chunk{
			ID:         id,
			Content:    content,
			FilePath:   filePath,
			StartLine:  0,
			EndLine:    1,
			Language:   "go",
			SymbolName: "",
		},
		Vector: vec,
	}
}

func TestOpen_CreatesSchemaAndIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureReady())

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestAddBatch_IndexesIntoBM25(t *testing.T) {
	s := openTestStore(t)

	err := s.AddBatch([]Entry{
		sampleEntry("a.go:0:1", "func getUserById() {}", "a.go", nil),
		sampleEntry("b.go:0:1", "func createUser() {}", "b.go", nil),
	})
	require.NoError(t, err)

	hits, err := s.SearchBM25("user", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestAddBatch_UpsertReplacesExistingRow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{sampleEntry("a.go:0:1", "func old() {}", "a.go", nil)}))
	require.NoError(t, s.AddBatch([]Entry{sampleEntry("a.go:0:1", "func fresh() {}", "a.go", nil)}))

	meta, err := s.GetChunkByID("a.go:0:1")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "func fresh() {}", meta.Content)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestAddBatch_EmptyBatchIsNoop(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch(nil))
}

func TestAddBatch_VectorDimensionMismatchRollsBackWholeBatch(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		sampleEntry("a.go:0:1", "func a() {}", "a.go", []float32{1, 2, 3}),
	}))

	err := s.AddBatch([]Entry{
		sampleEntry("b.go:0:1", "func b() {}", "b.go", []float32{1, 2}),
	})
	require.Error(t, err)

	meta, err := s.GetChunkByID("b.go:0:1")
	require.NoError(t, err)
	assert.Nil(t, meta, "rolled-back batch must not leave a partial row")
}

func TestSearchBM25_EmptyQueryReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{sampleEntry("a.go:0:1", "func a() {}", "a.go", nil)}))

	hits, err := s.SearchBM25("", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchBM25_MalformedQuerySwallowsError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{sampleEntry("a.go:0:1", "func a() {}", "a.go", nil)}))

	hits, err := s.SearchBM25(`"unterminated`, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchVector_ReturnsNeighborsByDistance(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddBatch([]Entry{
		sampleEntry("near.go:0:1", "func near() {}", "near.go", []float32{1, 0, 0}),
		sampleEntry("far.go:0:1", "func far() {}", "far.go", []float32{0, 0, 1}),
	}))

	hits, err := s.SearchVector([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near.go:0:1", hits[0].Chunk.ID)
}

func TestSearchVector_NoDimensionReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{sampleEntry("a.go:0:1", "func a() {}", "a.go", nil)}))

	hits, err := s.SearchVector([]float32{1, 2, 3}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRemoveByFilePath_DeletesFromAllTables(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{
		sampleEntry("a.go:0:1", "func a() {}", "a.go", []float32{1, 2, 3}),
		sampleEntry("a.go:1:2", "func a2() {}", "a.go", []float32{4, 5, 6}),
		sampleEntry("b.go:0:1", "func b() {}", "b.go", nil),
	}))

	require.NoError(t, s.RemoveByFilePath("a.go"))

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	hits, err := s.SearchBM25("a2", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClearAll_ResetsStoreCompletely(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddBatch([]Entry{
		sampleEntry("a.go:0:1", "func a() {}", "a.go", []float32{1, 2, 3}),
	}))
	require.True(t, s.HasVectors())

	require.NoError(t, s.ClearAll())

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
	assert.False(t, s.HasVectors())
	assert.Equal(t, 0, s.Dimension())
}

func TestAddLinksAndGetLinks(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.AddLinks([]Link{
		{SrcID: "a", DstID: "b", Similarity: 0.95},
		{SrcID: "a", DstID: "c", Similarity: 0.91},
		{SrcID: "a", DstID: "d", Similarity: 0.99},
	}))

	links, err := s.GetLinks("a", 2)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "d", links[0].DstID)
	assert.Equal(t, "b", links[1].DstID)
}

func TestAddLinks_UpsertUpdatesSimilarity(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.AddLinks([]Link{{SrcID: "a", DstID: "b", Similarity: 0.5}}))
	require.NoError(t, s.AddLinks([]Link{{SrcID: "a", DstID: "b", Similarity: 0.99}}))

	links, err := s.GetLinks("a", 10)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 0.99, links[0].Similarity)
}

func TestLogIndexEvent(t *testing.T) {
	s := openTestStore(t)
	err := s.LogIndexEvent(IndexEvent{EventType: "full", FilesChanged: 3, ChunksAdded: 10})
	require.NoError(t, err)
}

func TestGetChunkByID_MissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	meta, err := s.GetChunkByID("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, meta)
}
