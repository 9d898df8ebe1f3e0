// Package gitanalyzer derives temporal signals from repository history
// (spec.md §4.5), grounded on project-cortex's internal/git subprocess
// wrapper (exec.Command with cmd.Dir), generalized from branch/remote
// queries to commit-log walking.
package gitanalyzer

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bobbin-dev/bobbin/internal/model"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// Analyzer runs git subprocesses against one repository root.
type Analyzer struct {
	repoRoot string
}

// New returns an Analyzer rooted at repoRoot, which must be inside a
// git worktree.
func New(repoRoot string) *Analyzer {
	return &Analyzer{repoRoot: repoRoot}
}

func (a *Analyzer) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = a.repoRoot
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("gitanalyzer: git %s: %w: %s", strings.Join(args, " "), err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("gitanalyzer: git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// WalkCommits yields up to depth commits, newest-first, each with its
// touched files and parsed issue references (spec.md §4.5).
func (a *Analyzer) WalkCommits(ctx context.Context, depth int) ([]model.CommitRecord, error) {
	format := fmt.Sprintf("--format=%s%%H%s%%an%s%%aI%s%%s", recordSep, fieldSep, fieldSep, fieldSep)
	args := []string{"log", "-n", strconv.Itoa(depth), "--name-only", format}

	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// GetFileHistory returns up to limit commits that touched path,
// chronological newest-first, following renames.
func (a *Analyzer) GetFileHistory(ctx context.Context, path string, limit int) ([]model.CommitRecord, error) {
	format := fmt.Sprintf("--format=%s%%H%s%%an%s%%aI%s%%s", recordSep, fieldSep, fieldSep, fieldSep)
	args := []string{"log", "-n", strconv.Itoa(limit), "--follow", "--name-only", format, "--", path}

	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// GetFileChurn returns, for every file touched since the given time
// window, the number of commits that touched it.
func (a *Analyzer) GetFileChurn(ctx context.Context, since time.Time) (map[string]int, error) {
	args := []string{"log", fmt.Sprintf("--since=%s", since.UTC().Format(time.RFC3339)), "--name-only", "--format=%H"}
	out, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	churn := make(map[string]int)
	seenThisCommit := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(line) == 40 || looksLikeSHA(line) {
			seenThisCommit = make(map[string]bool)
			continue
		}
		if !seenThisCommit[line] {
			seenThisCommit[line] = true
			churn[line]++
		}
	}
	return churn, scanner.Err()
}

func looksLikeSHA(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// parseLog parses the record/field-separated `git log --name-only`
// output produced by WalkCommits/GetFileHistory into commit records.
func parseLog(out string) []model.CommitRecord {
	var commits []model.CommitRecord
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		lines := strings.Split(record, "\n")
		header := strings.Split(lines[0], fieldSep)
		if len(header) < 4 {
			continue
		}

		ts, _ := time.Parse(time.RFC3339, header[2])
		c := model.CommitRecord{
			SHA:       header[0],
			Author:    header[1],
			Timestamp: ts,
			Message:   header[3],
		}
		for _, fileLine := range lines[1:] {
			fileLine = strings.TrimSpace(fileLine)
			if fileLine != "" {
				c.TouchedFiles = append(c.TouchedFiles, fileLine)
			}
		}
		c.ReferencedIssues = parseIssueReferences(c.Message)
		commits = append(commits, c)
	}
	return commits
}
