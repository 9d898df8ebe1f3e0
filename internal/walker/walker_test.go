package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalk_IncludesOnlyMatchingGlobs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/main.go", "package main")
	writeFile(t, dir, "docs/README.md", "# hi")
	writeFile(t, dir, "assets/data.bin", "binary")

	w, err := New(dir, []string{"**/*.go", "**/*.md"}, nil, false)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/main.go", "docs/README.md"}, files)
}

func TestWalk_ExcludeGlobTakesPrecedence(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "a")
	writeFile(t, dir, "src/a_test.go", "a")

	w, err := New(dir, []string{"**/*.go"}, []string{"**/*_test.go"}, false)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go"}, files)
}

func TestWalk_SkipsDotBobbinDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "a")
	writeFile(t, dir, ".bobbin/chunks.db", "binary")

	w, err := New(dir, []string{"**/*"}, nil, false)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.NotContains(t, files, ".bobbin/chunks.db")
}

func TestWalk_HonorsGitignore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "a")
	writeFile(t, dir, "vendor/lib.go", "a")
	writeFile(t, dir, ".gitignore", "vendor\n")

	w, err := New(dir, []string{"**/*.go"}, nil, true)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/a.go"}, files)
}

func TestWalk_MissingGitignoreIsNotAnError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "a")

	w, err := New(dir, []string{"**/*.go"}, nil, true)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go"}, files)
}

func TestWalk_GitignoreCommentsAndBlankLinesIgnored(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/a.go", "a")
	writeFile(t, dir, "src/b.go", "b")
	writeFile(t, dir, ".gitignore", "# comment\n\nsrc/b.go\n")

	w, err := New(dir, []string{"**/*.go"}, nil, true)
	require.NoError(t, err)

	files, err := w.Walk()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go"}, files)
}
