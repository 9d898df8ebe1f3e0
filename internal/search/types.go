// Package search implements hybrid semantic + keyword retrieval fused
// by Reciprocal Rank Fusion (spec.md §4.6), grounded on
// Aman-CERP-amanmcp's pkg/searcher FusionSearcher — same parallel
// errgroup dispatch and RRF math, retargeted from its generic Searcher
// interface onto Bobbin's vectorstore.Store and embed.Provider.
package search

import "github.com/bobbin-dev/bobbin/internal/model"

// Mode selects which retrieval path(s) to run.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
)

// MatchType records which retrieval path(s) produced a Hit.
type MatchType string

const (
	MatchSemantic MatchType = "semantic"
	MatchKeyword  MatchType = "keyword"
	MatchHybrid   MatchType = "hybrid"
)

// Hit is one ranked search result.
type Hit struct {
	ChunkID       string
	FilePath      string
	StartLine     int
	EndLine       int
	ChunkType     model.ChunkType
	Name          string
	Content       string
	Language      string
	Score         float64 // fused RRF score (or raw modality score in single-mode)
	SemanticScore float64 // used for tie-breaking; 0 if the semantic path didn't return this chunk
	MatchType     MatchType
}

// Filters narrows results by chunk type and/or file_path prefix,
// applied after fusion per spec.md §4.6.
type Filters struct {
	ChunkType  model.ChunkType
	PathPrefix string
}

// RRFConstant is the smoothing constant in spec.md §4.6's fusion formula.
const RRFConstant = 60

// minOverfetch is the floor for k_over = max(2k, 20).
const minOverfetch = 20

// maxFilterRetries bounds the k_over-doubling retry loop when filters
// mask too many fused results.
const maxFilterRetries = 2
