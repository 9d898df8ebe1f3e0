package vectorstore

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbin-dev/bobbin/internal/model"
)

func openTestStore(t *testing.T, dims int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chunks.db"), dims)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertChunks_RoundTripsContentAndEmbedding(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{vec}))

	got, ok, err := s.GetChunk(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.Content, got.Content)
	assert.Equal(t, c.FilePath, got.FilePath)

	embeddings, err := s.AllEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	assert.Equal(t, c.ID, embeddings[0].ChunkID)
	for i, v := range vec {
		assert.InDelta(t, v, embeddings[0].Vector[i], 1e-5)
	}
}

func TestUpsertChunks_MismatchedLengthsErrors(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	c := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	err := s.UpsertChunks(context.Background(), []model.Chunk{c}, nil)
	assert.Error(t, err)
}

func TestDeleteFile_RemovesChunksAndEmbeddings(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c1 := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	c2 := model.NewChunk("b.go", model.ChunkFunction, "Bar", 1, 10, "func Bar() {}", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c1, c2}, [][]float32{
		{0, 0, 0, 0}, {0, 0, 0, 0},
	}))

	require.NoError(t, s.DeleteFile(ctx, "a.go"))

	_, ok, err := s.GetChunk(ctx, c1.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetChunk(ctx, c2.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAllChunkFilePaths(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c1 := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	c2 := model.NewChunk("b.go", model.ChunkFunction, "Bar", 1, 10, "func Bar() {}", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c1, c2}, [][]float32{
		{0, 0, 0, 0}, {0, 0, 0, 0},
	}))

	paths, err := s.AllChunkFilePaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.go", paths[c1.ID])
	assert.Equal(t, "b.go", paths[c2.ID])
}

func TestSearchVector_RanksByCosineSimilarity(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 2)
	ctx := context.Background()

	near := model.NewChunk("near.go", model.ChunkFunction, "Near", 1, 1, "near", "go")
	far := model.NewChunk("far.go", model.ChunkFunction, "Far", 1, 1, "far", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{near, far}, [][]float32{
		{1, 0}, {0, 1},
	}))

	hits, err := s.SearchVector(ctx, []float32{1, 0}, 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, near.ID, hits[0].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchFTS_MatchesContentAndName(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	other := model.NewChunk("b.go", model.ChunkFunction, "Other", 1, 10, "func Other() {}", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c, other}, [][]float32{
		{0, 0, 0, 0}, {0, 0, 0, 0},
	}))

	hits, err := s.SearchFTS(ctx, `"ProcessOrder"`, 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, c.ID, hits[0].ChunkID)
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c1 := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	c2 := model.NewChunk("a.go", model.ChunkFunction, "Bar", 20, 30, "func Bar() {}", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c1, c2}, [][]float32{
		{0, 0, 0, 0}, {0, 0, 0, 0},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)
	assert.Equal(t, 1, stats.FileCount)
	assert.Equal(t, 4, stats.Dimensions)
}

func TestAllChunkIDs_SortedContainsEveryChunk(t *testing.T) {
	t.Parallel()
	s := openTestStore(t, 4)
	ctx := context.Background()

	c1 := model.NewChunk("a.go", model.ChunkFunction, "Foo", 1, 10, "func Foo() {}", "go")
	c2 := model.NewChunk("b.go", model.ChunkFunction, "Bar", 1, 10, "func Bar() {}", "go")
	require.NoError(t, s.UpsertChunks(ctx, []model.Chunk{c1, c2}, [][]float32{
		{0, 0, 0, 0}, {0, 0, 0, 0},
	}))

	ids, err := s.AllChunkIDs(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	want := []string{c1.ID, c2.ID}
	sort.Strings(want)
	assert.Equal(t, want, ids)
}
