package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbin-dev/bobbin/internal/bobbinerr"
	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// fakeEmbedder returns a fixed query vector regardless of text, letting
// tests control semantic-search geometry directly via seeded chunk
// vectors.
type fakeEmbedder struct {
	dims     int
	queryVec []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embed.EmbedMode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.queryVec
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int  { return f.dims }
func (f *fakeEmbedder) ModelTag() string { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

func setupSearcher(t *testing.T, queryVec []float32) (*Searcher, *vectorstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := vectorstore.Open(filepath.Join(dir, "chunks.db"), len(queryVec))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := &fakeEmbedder{dims: len(queryVec), queryVec: queryVec}
	return New(store, embedder), store
}

func TestSearch_SemanticModeRanksByCosineSimilarity(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	near := model.NewChunk("near.go", model.ChunkFunction, "Near", 1, 1, "content near", "go")
	far := model.NewChunk("far.go", model.ChunkFunction, "Far", 1, 1, "content far", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{near, far}, [][]float32{{1, 0}, {0, 1}}))

	hits, err := s.Search(ctx, "anything", ModeSemantic, 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, near.ID, hits[0].ChunkID)
	assert.Equal(t, MatchSemantic, hits[0].MatchType)
}

func TestSearch_KeywordModeMatchesFTS(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{0, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	other := model.NewChunk("b.go", model.ChunkFunction, "Other", 1, 10, "func Other() {}", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{c, other}, [][]float32{{0, 0}, {0, 0}}))

	hits, err := s.Search(ctx, `"ProcessOrder"`, ModeKeyword, 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, c.ID, hits[0].ChunkID)
	assert.Equal(t, MatchKeyword, hits[0].MatchType)
}

func TestSearch_HybridModeFusesBothPaths(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	// both is the top semantic AND top keyword hit, so it must win the
	// fused ranking over a chunk that only matches one modality.
	both := model.NewChunk("both.go", model.ChunkFunction, "ProcessOrder", 1, 1, "func ProcessOrder() {}", "go")
	semanticOnly := model.NewChunk("sem.go", model.ChunkFunction, "Other", 1, 1, "unrelated body text", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{both, semanticOnly}, [][]float32{
		{1, 0}, {0.9, 0.1},
	}))

	hits, err := s.Search(ctx, `"ProcessOrder"`, ModeHybrid, 10, Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, both.ID, hits[0].ChunkID)
	assert.Equal(t, MatchHybrid, hits[0].MatchType)
}

func TestFuse_RRFScoreMatchesFormula(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "A", 1, 1, "a", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	vecHits := []vectorstore.VectorHit{{ChunkID: c.ID, Score: 0.9}}
	ftsHits := []vectorstore.FTSHit{{ChunkID: c.ID, Score: 0.5}}

	hits, err := s.fuse(ctx, vecHits, ftsHits)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	want := 1/float64(RRFConstant+1) + 1/float64(RRFConstant+1)
	assert.InDelta(t, want, hits[0].Score, 1e-9)
	assert.Equal(t, MatchHybrid, hits[0].MatchType)
}

func TestSearch_FiltersAppliedAfterFusion(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	fn := model.NewChunk("a.go", model.ChunkFunction, "Fn", 1, 1, "fn body", "go")
	cls := model.NewChunk("a.go", model.ChunkClass, "Cls", 1, 1, "cls body", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{fn, cls}, [][]float32{{1, 0}, {1, 0}}))

	hits, err := s.Search(ctx, "q", ModeSemantic, 10, Filters{ChunkType: model.ChunkClass})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cls.ID, hits[0].ChunkID)
}

func TestSearch_DefaultsLimitWhenNonPositive(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "A", 1, 1, "a", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	hits, err := s.Search(ctx, "q", ModeSemantic, 0, Filters{})
	require.NoError(t, err)
	assert.NotNil(t, hits)
}

func TestSearch_UnknownModeErrors(t *testing.T) {
	t.Parallel()
	s, _ := setupSearcher(t, []float32{1, 0})
	_, err := s.Search(context.Background(), "q", Mode("bogus"), 10, Filters{})
	assert.Error(t, err)
}

func TestSearch_UnknownChunkTypeFilterReturnsTypedErrorWithoutSearching(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "A", 1, 1, "a", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	hits, err := s.Search(ctx, "q", ModeHybrid, 10, Filters{ChunkType: model.ChunkType("bogus")})
	require.Error(t, err)
	assert.Nil(t, hits)

	var be *bobbinerr.Error
	require.True(t, bobbinerr.As(err, &be))
	assert.Equal(t, bobbinerr.KindInvalidFilter, be.Kind)
}

func TestSearch_KnownChunkTypeFilterIsAccepted(t *testing.T) {
	t.Parallel()
	s, store := setupSearcher(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkClass, "A", 1, 1, "a", "go")
	require.NoError(t, store.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	_, err := s.Search(ctx, "q", ModeHybrid, 10, Filters{ChunkType: model.ChunkClass})
	assert.NoError(t, err)
}

func TestApplyFilters_NoFiltersReturnsAllUnchanged(t *testing.T) {
	t.Parallel()
	hits := []Hit{{ChunkID: "1", FilePath: "a.go"}, {ChunkID: "2", FilePath: "b.go"}}
	assert.Equal(t, hits, applyFilters(hits, Filters{}))
}

func TestApplyFilters_PathPrefix(t *testing.T) {
	t.Parallel()
	hits := []Hit{{ChunkID: "1", FilePath: "pkg/a.go"}, {ChunkID: "2", FilePath: "other/b.go"}}
	filtered := applyFilters(hits, Filters{PathPrefix: "pkg/"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "1", filtered[0].ChunkID)
}
