// Package chunker segments source files into typed, stably-identified
// chunks (spec.md §4.1). A syntax-aware tree-sitter parser is used when
// a grammar is available for the file's language; otherwise a
// line-window chunker is used as the universal fallback.
package chunker

import (
	"context"

	"github.com/bobbin-dev/bobbin/internal/model"
)

// Result is the output of chunking a single file: its chunks plus any
// import edges discovered in the same pass (spec.md §4.1).
type Result struct {
	Chunks  []model.Chunk
	Imports []model.ImportEdge
}

// Chunker segments one file's content into typed chunks.
type Chunker interface {
	// ChunkFile segments content (the raw file text) from filePath,
	// whose detected language is language. A malformed parse never
	// returns an error for the *containing indexing run*: implementations
	// fall back internally and only return an error for conditions the
	// caller cannot recover from (e.g. ctx cancellation).
	ChunkFile(ctx context.Context, filePath, language, content string) (Result, error)
}

// DefaultWindowSize and DefaultWindowOverlap are the line-window
// chunker's defaults per spec.md §4.1.
const (
	DefaultWindowSize    = 40
	DefaultWindowOverlap = 8
)

// TranscriptBodyTruncateLines caps human-intent transcript chunk bodies
// (spec.md §4.1: "body truncation at 100 lines is acceptable; overflow
// is not split").
const TranscriptBodyTruncateLines = 100
