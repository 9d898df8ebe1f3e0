package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

func TestLanguageFromPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"internal/foo/bar.go":  "go",
		"web/App.tsx":          "typescript",
		"scripts/run.py":       "python",
		"docs/README.md":       "markdown",
		"config/settings.toml": "toml",
	}
	for path, want := range cases {
		assert.Equal(t, want, languageFromPath(path), path)
	}
}

func TestChunkerFor_MarkdownUsesMarkdownChunker(t *testing.T) {
	t.Parallel()
	c := chunkerFor("markdown")
	require.NotNil(t, c)
}

func TestChunkerFor_UnregisteredLanguageFallsBackToLineWindow(t *testing.T) {
	t.Parallel()
	// "go" has no registered tree-sitter grammar in this corpus.
	c := chunkerFor("go")
	require.NotNil(t, c)

	ctx := context.Background()
	content := ""
	for i := 0; i < 100; i++ {
		content += "line of go-like content\n"
	}
	result, err := c.ChunkFile(ctx, "main.go", "go", content)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)
}

func TestTaskPoolSize_BoundedBetween1And8(t *testing.T) {
	t.Parallel()
	n := taskPoolSize()
	assert.GreaterOrEqual(t, n, int64(1))
	assert.LessOrEqual(t, n, int64(8))
}

// fakeEmbedder returns a zero vector of a fixed width for any input,
// enough to exercise the write path without real model inference.
type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, mode embed.EmbedMode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimensions() int  { return f.dims }
func (f *fakeEmbedder) ModelTag() string { return "fake" }
func (f *fakeEmbedder) Close() error     { return nil }

func TestIngest_WritesChunksAndMarksFilesIndexed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(sampleGoFile("A")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte(sampleGoFile("B")), 0o644))

	vstore, err := vectorstore.Open(filepath.Join(dir, "chunks.db"), 4)
	require.NoError(t, err)
	defer vstore.Close()

	mstore, err := metastore.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer mstore.Close()

	p := New(dir, vstore, mstore, &fakeEmbedder{dims: 4}, 8)

	stats, err := p.Ingest(context.Background(), []string{"a.go", "b.go"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesWalked)
	assert.Equal(t, 2, stats.FilesChunked)
	assert.Positive(t, stats.ChunksWritten)

	indexed, err := mstore.AllIndexedFilePaths(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, indexed)

	count, err := vstore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ChunksWritten, count)
}

func TestIngest_EmptyFileListIsNoop(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	vstore, err := vectorstore.Open(filepath.Join(dir, "chunks.db"), 4)
	require.NoError(t, err)
	defer vstore.Close()
	mstore, err := metastore.Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer mstore.Close()

	p := New(dir, vstore, mstore, &fakeEmbedder{dims: 4}, 8)
	stats, err := p.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func sampleGoFile(name string) string {
	out := "package sample\n\n"
	for i := 0; i < 50; i++ {
		out += "// line filler for " + name + "\n"
	}
	return out
}
