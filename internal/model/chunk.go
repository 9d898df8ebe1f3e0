// Package model defines the data types shared across Bobbin's storage,
// chunking, and retrieval layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ChunkType enumerates the kinds of syntactic and documentation regions
// the chunker can emit.
type ChunkType string

const (
	ChunkFunction  ChunkType = "function"
	ChunkMethod    ChunkType = "method"
	ChunkClass     ChunkType = "class"
	ChunkStruct    ChunkType = "struct"
	ChunkEnum      ChunkType = "enum"
	ChunkInterface ChunkType = "interface"
	ChunkModule    ChunkType = "module"
	ChunkImpl      ChunkType = "impl"
	ChunkTrait     ChunkType = "trait"
	ChunkDoc       ChunkType = "doc"
	ChunkSection   ChunkType = "section"
	ChunkTable     ChunkType = "table"
	ChunkCodeBlock ChunkType = "code_block"
	ChunkCommit    ChunkType = "commit"
	ChunkIssue     ChunkType = "issue"
	ChunkOther     ChunkType = "other"
)

// Chunk is the atomic indexed unit described in spec.md §3.
type Chunk struct {
	ID        string
	FilePath  string // repo-relative path, or an opaque "archive:"/"beads:<rig>:" URI
	ChunkType ChunkType
	Name      string // optional symbol name
	StartLine int    // 1-based inclusive; 0 for non-line-oriented records
	EndLine   int
	Content   string
	Language  string
}

// ContentHash returns the SHA-256 hex digest of the chunk's raw content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChunkID computes the deterministic 256-bit hex digest for a chunk,
// per spec.md §3/§6: a pure function of (file_path, start_line, end_line,
// content_hash). Hashing the content first, then folding it into the
// canonical tuple, keeps the ID stable across re-indexes of unchanged
// content while still reacting to any textual change.
func ChunkID(filePath string, startLine, endLine int, content string) string {
	contentHash := ContentHash(content)
	canonical := fmt.Sprintf("%s\x00%d\x00%d\x00%s", filePath, startLine, endLine, contentHash)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// NewChunk builds a Chunk and computes its deterministic ID.
func NewChunk(filePath string, chunkType ChunkType, name string, startLine, endLine int, content, language string) Chunk {
	return Chunk{
		ID:        ChunkID(filePath, startLine, endLine, content),
		FilePath:  filePath,
		ChunkType: chunkType,
		Name:      name,
		StartLine: startLine,
		EndLine:   endLine,
		Content:   content,
		Language:  language,
	}
}

// Embedding is a fixed-dimension vector paired 1:1 with a Chunk via ID.
type Embedding struct {
	ChunkID string
	Vector  []float32
}

// CouplingEdge is an unordered file-pair coupling measurement. FileA is
// always lexicographically less than FileB (spec.md §3 invariant).
type CouplingEdge struct {
	FileA     string
	FileB     string
	CoChanges int
	Score     float64
}

// NewCouplingPair returns (a, b) ordered so that a < b lexicographically,
// enforcing the storage invariant at construction time rather than at
// every call site.
func NewCouplingPair(x, y string) (a, b string) {
	if x <= y {
		return x, y
	}
	return y, x
}

// ImportEdge is a directed import relationship extracted by the chunker.
type ImportEdge struct {
	FileA           string
	ImportStatement string
	FileB           string // empty when unresolved
	Resolved        bool
}

// Symbol is a named defining chunk, one per definition.
type Symbol struct {
	Name      string
	ChunkType ChunkType
	FilePath  string
	StartLine int
	EndLine   int
	Signature string
}

// CommitRecord is a single parsed git commit.
type CommitRecord struct {
	SHA              string
	Author           string
	Timestamp        time.Time
	Message          string
	TouchedFiles     []string
	ReferencedIssues []string
}

// FileID is an arena index for a normalized file path (spec.md §9
// Design Notes), assigned by metastore.FileArena while the dependency
// graph is built. The graph's vertices and edges, and the coupling and
// import tables, are keyed by path strings, not by FileID.
type FileID uint32
