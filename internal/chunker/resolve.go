package chunker

import (
	"path"
	"strings"
)

// resolvers takes the *set* of files known to the repo (populated by the
// caller from the walker's discovery pass) so that import resolution
// can check candidate paths against what actually exists, per spec.md
// §4.1 ("resolution...attempted against the repo's file set...recorded
// with resolved=false on failure").
var knownFiles map[string]bool

// SetKnownFiles installs the repo's file set for import resolution.
// Called once per indexing run before chunking begins.
func SetKnownFiles(files []string) {
	m := make(map[string]bool, len(files))
	for _, f := range files {
		m[f] = true
	}
	knownFiles = m
}

func tryExtensions(base string, exts []string) string {
	for _, ext := range exts {
		candidate := base + ext
		if knownFiles[candidate] {
			return candidate
		}
	}
	return ""
}

func resolvePythonImport(fromFile, rawPath string) string {
	asPath := strings.ReplaceAll(rawPath, ".", "/")
	dir := path.Dir(fromFile)
	for _, base := range []string{asPath, path.Join(dir, asPath)} {
		if r := tryExtensions(base, []string{".py"}); r != "" {
			return r
		}
		if knownFiles[path.Join(base, "__init__.py")] {
			return path.Join(base, "__init__.py")
		}
	}
	return ""
}

func resolveTypeScriptImport(fromFile, rawPath string) string {
	if !strings.HasPrefix(rawPath, ".") {
		return "" // external package, not part of this repo's file set
	}
	dir := path.Dir(fromFile)
	base := path.Join(dir, rawPath)
	exts := []string{".ts", ".tsx", ".js", ".jsx", "/index.ts", "/index.tsx"}
	return tryExtensions(base, exts)
}

func resolveRustImport(fromFile, rawPath string) string {
	// `use crate::foo::bar` style paths map onto src/foo/bar.rs or
	// src/foo/bar/mod.rs by convention.
	if !strings.HasPrefix(rawPath, "crate::") && !strings.HasPrefix(rawPath, "self::") {
		return ""
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(rawPath, "crate::"), "self::")
	asPath := strings.ReplaceAll(rel, "::", "/")
	base := "src/" + asPath
	if r := tryExtensions(base, []string{".rs"}); r != "" {
		return r
	}
	if knownFiles[base+"/mod.rs"] {
		return base + "/mod.rs"
	}
	return ""
}

func resolveJavaImport(fromFile, rawPath string) string {
	asPath := strings.ReplaceAll(rawPath, ".", "/")
	return tryExtensions(asPath, []string{".java"})
}

func resolveRubyImport(fromFile, rawPath string) string {
	dir := path.Dir(fromFile)
	for _, base := range []string{rawPath, path.Join(dir, rawPath)} {
		if r := tryExtensions(base, []string{".rb"}); r != "" {
			return r
		}
	}
	return ""
}

func resolvePHPImport(fromFile, rawPath string) string {
	asPath := strings.ReplaceAll(rawPath, "\\", "/")
	dir := path.Dir(fromFile)
	for _, base := range []string{asPath, path.Join(dir, asPath)} {
		if r := tryExtensions(base, []string{".php"}); r != "" {
			return r
		}
	}
	return ""
}

func resolveCImport(fromFile, rawPath string) string {
	dir := path.Dir(fromFile)
	for _, base := range []string{rawPath, path.Join(dir, rawPath)} {
		if knownFiles[base] {
			return base
		}
	}
	return ""
}
