package assembler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/search"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// fakeEmbedder returns a fixed vector for any text, letting tests
// control similarity geometry for both direct-hit ranking and bridging.
type fakeEmbedder struct {
	dims int
	vec  []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embed.EmbedMode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int  { return f.dims }
func (f *fakeEmbedder) ModelTag() string { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

func setupAssembler(t *testing.T, queryVec []float32) (*Assembler, *vectorstore.Store, *metastore.Store) {
	t.Helper()
	dir := t.TempDir()

	vstore, err := vectorstore.Open(filepath.Join(dir, "chunks.db"), len(queryVec))
	require.NoError(t, err)
	t.Cleanup(func() { vstore.Close() })

	mstore, err := metastore.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mstore.Close() })

	embedder := &fakeEmbedder{dims: len(queryVec), vec: queryVec}
	searcher := search.New(vstore, embedder)
	return New(searcher, vstore, mstore, embedder), vstore, mstore
}

func TestOptions_WithDefaults_FillsZeroValuesForMaxCoupledAndThreshold(t *testing.T) {
	t.Parallel()
	got := Options{}.withDefaults()
	assert.Equal(t, DefaultMaxCoupled, got.MaxCoupled)
	assert.Equal(t, DefaultCouplingThreshold, got.CouplingThreshold)
}

func TestOptions_WithDefaults_HonorsExplicitZeroMaxLinesAndDepth(t *testing.T) {
	t.Parallel()
	got := Options{}.withDefaults()
	// MaxLines==0 and Depth==0 are meaningful values (spec.md §8: zero
	// budget, direct-hits-only), not unset sentinels — only a negative
	// value defaults.
	assert.Equal(t, 0, got.MaxLines)
	assert.Equal(t, 0, got.Depth)
}

func TestOptions_WithDefaults_NegativeMaxLinesAndDepthDefault(t *testing.T) {
	t.Parallel()
	got := Options{MaxLines: -1, Depth: -1}.withDefaults()
	assert.Equal(t, DefaultMaxLines, got.MaxLines)
	assert.Equal(t, DefaultDepth, got.Depth)
}

func TestOptions_WithDefaults_ClampsDepthToMax(t *testing.T) {
	t.Parallel()
	got := Options{Depth: MaxDepth + 5}.withDefaults()
	assert.Equal(t, MaxDepth, got.Depth)
}

func TestOptions_WithDefaults_PreservesExplicitPositiveValues(t *testing.T) {
	t.Parallel()
	got := Options{MaxLines: 42, Depth: 2, MaxCoupled: 3, CouplingThreshold: 0.5}.withDefaults()
	assert.Equal(t, 42, got.MaxLines)
	assert.Equal(t, 2, got.Depth)
	assert.Equal(t, 3, got.MaxCoupled)
	assert.Equal(t, 0.5, got.CouplingThreshold)
}

func TestAssemble_DirectHitOnly(t *testing.T) {
	t.Parallel()
	a, vstore, _ := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	result, err := a.Assemble(ctx, `"ProcessOrder"`, 10, Options{MaxLines: DefaultMaxLines})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "a.go", result.Files[0].FilePath)
	assert.Equal(t, TierDirect, result.Files[0].Tier)
	assert.Equal(t, 10, result.SourceLines)
}

func TestAssemble_ExpandsViaCouplingAndBridges(t *testing.T) {
	t.Parallel()
	a, vstore, mstore := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	// Direct hits are the top 3·limit hybrid results; with limit 1 the
	// three a.go chunks fill them, so b.go can only arrive via coupling.
	direct := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	second := model.NewChunk("a.go", model.ChunkFunction, "Validate", 11, 20, "func Validate() {}", "go")
	third := model.NewChunk("a.go", model.ChunkFunction, "Ship", 21, 30, "func Ship() {}", "go")
	coupled := model.NewChunk("b.go", model.ChunkFunction, "Helper", 1, 5, "func Helper() {}", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{direct, second, third, coupled}, [][]float32{
		{1, 0}, {1, 0}, {1, 0}, {0.95, 0.05},
	}))
	require.NoError(t, mstore.UpsertCoupling(ctx, "a.go", "b.go", 5))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "a.go", 10))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "b.go", 10))

	result, err := a.Assemble(ctx, `"ProcessOrder"`, 1, Options{MaxLines: DefaultMaxLines, Depth: DefaultDepth, CouplingThreshold: 0.1})
	require.NoError(t, err)

	var sawCoupledOrBridged bool
	for _, f := range result.Files {
		if f.FilePath == "b.go" {
			sawCoupledOrBridged = true
			assert.Contains(t, []Tier{TierCoupled, TierBridged}, f.Tier)
		}
	}
	assert.True(t, sawCoupledOrBridged, "expected b.go to be pulled in via coupling expansion")
}

func TestAssemble_ZeroMaxLinesReturnsEmptyResult(t *testing.T) {
	t.Parallel()
	a, vstore, _ := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	c := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{c}, [][]float32{{1, 0}}))

	result, err := a.Assemble(ctx, `"ProcessOrder"`, 10, Options{MaxLines: 0})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.Equal(t, 0, result.SourceLines)
	assert.Equal(t, 0, result.DocLines)
}

func TestAssemble_ZeroDepthReturnsOnlyDirectHits(t *testing.T) {
	t.Parallel()
	a, vstore, mstore := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	// With limit 1 the three a.go chunks fill the 3·limit direct hits,
	// so b.go could only arrive via coupling expansion.
	direct := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	second := model.NewChunk("a.go", model.ChunkFunction, "Validate", 11, 20, "func Validate() {}", "go")
	third := model.NewChunk("a.go", model.ChunkFunction, "Ship", 21, 30, "func Ship() {}", "go")
	coupled := model.NewChunk("b.go", model.ChunkFunction, "Helper", 1, 5, "func Helper() {}", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{direct, second, third, coupled}, [][]float32{
		{1, 0}, {1, 0}, {1, 0}, {0.95, 0.05},
	}))
	require.NoError(t, mstore.UpsertCoupling(ctx, "a.go", "b.go", 5))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "a.go", 10))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "b.go", 10))

	result, err := a.Assemble(ctx, `"ProcessOrder"`, 1, Options{MaxLines: DefaultMaxLines, Depth: 0, CouplingThreshold: 0.1})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "a.go", result.Files[0].FilePath)
	assert.Equal(t, TierDirect, result.Files[0].Tier)
}

func TestAssemble_CouplingBelowThresholdIsExcluded(t *testing.T) {
	t.Parallel()
	a, vstore, mstore := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	// With limit 1 the three a.go chunks fill the 3·limit direct hits,
	// so b.go could only arrive via coupling expansion.
	direct := model.NewChunk("a.go", model.ChunkFunction, "ProcessOrder", 1, 10, "func ProcessOrder() {}", "go")
	second := model.NewChunk("a.go", model.ChunkFunction, "Validate", 11, 20, "func Validate() {}", "go")
	third := model.NewChunk("a.go", model.ChunkFunction, "Ship", 21, 30, "func Ship() {}", "go")
	coupled := model.NewChunk("b.go", model.ChunkFunction, "Helper", 1, 5, "func Helper() {}", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{direct, second, third, coupled}, [][]float32{
		{1, 0}, {1, 0}, {1, 0}, {0, 1},
	}))
	// One co-change out of a hundred commits each: far below any
	// reasonable threshold.
	require.NoError(t, mstore.UpsertCoupling(ctx, "a.go", "b.go", 1))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "a.go", 100))
	require.NoError(t, mstore.RecordFileCommitCount(ctx, "b.go", 100))

	result, err := a.Assemble(ctx, `"ProcessOrder"`, 1, Options{MaxLines: DefaultMaxLines, Depth: DefaultDepth, CouplingThreshold: 0.9})
	require.NoError(t, err)
	for _, f := range result.Files {
		assert.NotEqual(t, "b.go", f.FilePath)
	}
}

func TestAssemble_RespectsLineBudget(t *testing.T) {
	t.Parallel()
	a, vstore, _ := setupAssembler(t, []float32{1, 0})
	ctx := context.Background()

	c1 := model.NewChunk("a.go", model.ChunkFunction, "One", 1, 100, "body one", "go")
	c2 := model.NewChunk("b.go", model.ChunkFunction, "Two", 1, 100, "body two", "go")
	require.NoError(t, vstore.UpsertChunks(ctx, []model.Chunk{c1, c2}, [][]float32{{1, 0}, {0.9, 0.1}}))

	result, err := a.Assemble(ctx, "body", 10, Options{MaxLines: 100})
	require.NoError(t, err)

	totalLines := 0
	for _, f := range result.Files {
		for _, c := range f.Chunks {
			totalLines += c.EndLine - c.StartLine + 1
		}
	}
	assert.LessOrEqual(t, totalLines, 100)
}

func TestAssemble_EmptyIndexReturnsEmptyResult(t *testing.T) {
	t.Parallel()
	a, _, _ := setupAssembler(t, []float32{1, 0})
	result, err := a.Assemble(context.Background(), "nothing indexed yet", 10, Options{MaxLines: DefaultMaxLines})
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}

func TestIsDoc_ClassifiesDocChunkTypesAndMarkdownLanguage(t *testing.T) {
	t.Parallel()
	assert.True(t, isDoc(model.Chunk{ChunkType: model.ChunkDoc}))
	assert.True(t, isDoc(model.Chunk{ChunkType: model.ChunkSection}))
	assert.True(t, isDoc(model.Chunk{Language: "markdown"}))
	assert.True(t, isDoc(model.Chunk{Language: "md"}))
	assert.False(t, isDoc(model.Chunk{ChunkType: model.ChunkFunction, Language: "go"}))
}

func TestOrderByTierThenScore_SortsDirectBeforeCoupledBeforeBridged(t *testing.T) {
	t.Parallel()
	candidates := map[string]candidateFile{
		"bridged.go": {tier: TierBridged, score: 0.9},
		"direct.go":  {tier: TierDirect, score: 0.1},
		"coupled.go": {tier: TierCoupled, score: 0.5},
	}
	ordered := orderByTierThenScore(candidates)
	assert.Equal(t, []string{"direct.go", "coupled.go", "bridged.go"}, ordered)
}

func TestOrderByTierThenScore_BreaksTiesByPath(t *testing.T) {
	t.Parallel()
	candidates := map[string]candidateFile{
		"z.go": {tier: TierDirect, score: 0.5},
		"a.go": {tier: TierDirect, score: 0.5},
	}
	ordered := orderByTierThenScore(candidates)
	assert.Equal(t, []string{"a.go", "z.go"}, ordered)
}
