// Package walker enumerates candidate files for indexing, honoring
// include/exclude globs and .gitignore, per spec.md §2 step 1.
package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Walker discovers files under a root directory matching the
// configured include patterns while skipping excluded ones.
type Walker struct {
	rootDir   string
	include   []glob.Glob
	exclude   []glob.Glob
	gitignore []glob.Glob
}

// New compiles the include/exclude glob lists and, if useGitignore is
// set, the patterns found in <rootDir>/.gitignore.
func New(rootDir string, include, exclude []string, useGitignore bool) (*Walker, error) {
	w := &Walker{rootDir: rootDir}

	var err error
	if w.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if w.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}

	if useGitignore {
		patterns, err := readGitignore(filepath.Join(rootDir, ".gitignore"))
		if err != nil {
			return nil, err
		}
		if w.gitignore, err = compileAll(patterns); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// readGitignore reads a .gitignore file's patterns, skipping blank
// lines and comments. Missing files are not an error (no gitignore is
// a perfectly normal repository state).
func readGitignore(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		if !strings.Contains(line, "/") {
			patterns = append(patterns, line, line+"/**")
		} else {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

// Walk returns every file under rootDir whose repo-relative path
// matches an include pattern and no exclude/.gitignore pattern.
// Directories are descended but never themselves returned.
func (w *Walker) Walk() ([]string, error) {
	var files []string

	err := filepath.Walk(w.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, relErr := filepath.Rel(w.rootDir, path)
		if relErr != nil {
			return relErr
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && (w.matchesAny(w.exclude, relPath) || w.matchesAny(w.gitignore, relPath) || w.matchesAny(w.gitignore, relPath+"/**")) {
				return filepath.SkipDir
			}
			return nil
		}

		if relPath == ".bobbin" || strings.HasPrefix(relPath, ".bobbin/") {
			return nil
		}
		if w.matchesAny(w.exclude, relPath) || w.matchesAny(w.gitignore, relPath) {
			return nil
		}
		if w.matchesAny(w.include, relPath) {
			files = append(files, relPath)
		}
		return nil
	})

	return files, err
}

func (w *Walker) matchesAny(patterns []glob.Glob, path string) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
