package gitanalyzer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway git repository with a small commit
// history, returning its root path.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	runGit := func(args ...string) {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	runGit("init", "-q")
	runGit("config", "user.email", "test@example.com")
	runGit("config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	runGit("add", "a.go")
	runGit("commit", "-q", "-m", "add a.go, refs JIRA-1")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc Foo() {}\n"), 0o644))
	runGit("add", "a.go", "b.go")
	runGit("commit", "-q", "-m", "touch a.go and b.go together, closes #2")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc Foo() { /* v2 */ }\n"), 0o644))
	runGit("add", "a.go")
	runGit("commit", "-q", "-m", "update a.go only")

	return dir
}

func TestWalkCommits_ReturnsNewestFirstWithTouchedFilesAndIssues(t *testing.T) {
	t.Parallel()
	dir := initTestRepo(t)
	a := New(dir)

	commits, err := a.WalkCommits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, commits, 3)

	assert.Equal(t, "update a.go only", commits[0].Message)
	assert.Equal(t, []string{"a.go"}, commits[0].TouchedFiles)

	assert.Contains(t, commits[1].Message, "closes #2")
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, commits[1].TouchedFiles)
	assert.Equal(t, []string{"#2"}, commits[1].ReferencedIssues)

	assert.Equal(t, []string{"JIRA-1"}, commits[2].ReferencedIssues)
	assert.NotEmpty(t, commits[2].SHA)
	assert.Equal(t, "Test", commits[2].Author)
	assert.WithinDuration(t, time.Now(), commits[0].Timestamp, 10*time.Minute)
}

func TestWalkCommits_RespectsDepthLimit(t *testing.T) {
	t.Parallel()
	dir := initTestRepo(t)
	a := New(dir)

	commits, err := a.WalkCommits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "update a.go only", commits[0].Message)
}

func TestGetFileHistory_FiltersToPath(t *testing.T) {
	t.Parallel()
	dir := initTestRepo(t)
	a := New(dir)

	history, err := a.GetFileHistory(context.Background(), "b.go", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Message, "closes #2")
}

func TestGetFileChurn_CountsDistinctCommitsPerFile(t *testing.T) {
	t.Parallel()
	dir := initTestRepo(t)
	a := New(dir)

	churn, err := a.GetFileChurn(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, churn["a.go"])
	assert.Equal(t, 1, churn["b.go"])
}

func TestGetFileChurn_SinceFutureExcludesEverything(t *testing.T) {
	t.Parallel()
	dir := initTestRepo(t)
	a := New(dir)

	churn, err := a.GetFileChurn(context.Background(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, churn)
}
