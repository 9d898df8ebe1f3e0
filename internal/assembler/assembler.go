// Package assembler produces a budget-bounded bundle of relevant
// chunks for a query or seed file set (spec.md §4.7): direct hybrid
// hits, expanded along temporal-coupling edges, bridged to their best
// representative chunk, then packaged under a line budget. There's no
// single teacher file this mirrors line-for-line — it composes
// search.Searcher and metastore.Store the way project-cortex's
// internal/graph.searcher composes its Storage and cache over a
// depth-bounded BFS, generalized from graph traversal to file-tier
// assembly.
package assembler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/search"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// Tier records which stage of the assembly pipeline contributed a file.
type Tier string

const (
	TierDirect  Tier = "direct"
	TierCoupled Tier = "coupled"
	TierBridged Tier = "bridged"
)

// Defaults per spec.md §4.7.
const (
	DefaultMaxLines          = 600
	DefaultDepth             = 1
	MaxDepth                 = 3
	DefaultMaxCoupled        = 5
	DefaultCouplingThreshold = 0.2
	bridgeMinSimilarity      = 0.2
)

// Options configures one Assemble call.
type Options struct {
	MaxLines          int
	Depth             int
	MaxCoupled        int
	CouplingThreshold float64
}

func (o Options) withDefaults() Options {
	// MaxLines and Depth distinguish an explicit zero (spec.md §8: zero
	// budget / direct-hits-only) from an unset or negative value, which
	// defaults; MaxCoupled and CouplingThreshold have no such zero-value
	// meaning, so any non-positive value still defaults.
	if o.MaxLines < 0 {
		o.MaxLines = DefaultMaxLines
	}
	if o.Depth < 0 {
		o.Depth = DefaultDepth
	}
	if o.Depth > MaxDepth {
		o.Depth = MaxDepth
	}
	if o.MaxCoupled <= 0 {
		o.MaxCoupled = DefaultMaxCoupled
	}
	if o.CouplingThreshold <= 0 {
		o.CouplingThreshold = DefaultCouplingThreshold
	}
	return o
}

// FileBundle is one file's contribution to an assembled context.
type FileBundle struct {
	FilePath string
	Tier     Tier
	Score    float64
	Chunks   []model.Chunk
}

// Result is the full assembled context (spec.md §4.7 Output).
type Result struct {
	Files       []FileBundle
	SourceLines int
	DocLines    int
}

// Assembler composes the search, coupling, and store layers into
// context bundles.
type Assembler struct {
	searcher *search.Searcher
	vstore   *vectorstore.Store
	mstore   *metastore.Store
	embedder embed.Provider
}

func New(searcher *search.Searcher, vstore *vectorstore.Store, mstore *metastore.Store, embedder embed.Provider) *Assembler {
	return &Assembler{searcher: searcher, vstore: vstore, mstore: mstore, embedder: embedder}
}

type candidateFile struct {
	tier  Tier
	score float64
}

// Assemble runs the full five-stage pipeline for query.
func (a *Assembler) Assemble(ctx context.Context, query string, limit int, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if opts.MaxLines == 0 {
		// spec.md §8: a zero line budget returns zero files/chunks
		// without issuing any search, coupling, or bridging work.
		return Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	// 1. Direct hits.
	hits, err := a.searcher.Search(ctx, query, search.ModeHybrid, limit*3, search.Filters{})
	if err != nil {
		return Result{}, fmt.Errorf("assembler: direct hits: %w", err)
	}

	candidates := make(map[string]candidateFile)
	bestChunkScore := make(map[string]float64)
	var directOrder []string
	for _, h := range hits {
		if _, seen := candidates[h.FilePath]; !seen {
			directOrder = append(directOrder, h.FilePath)
		}
		candidates[h.FilePath] = candidateFile{tier: TierDirect, score: maxFloat(candidates[h.FilePath].score, h.Score)}
		if h.Score > bestChunkScore[h.FilePath] {
			bestChunkScore[h.FilePath] = h.Score
		}
	}
	sort.Slice(directOrder, func(i, j int) bool {
		return candidates[directOrder[i]].score > candidates[directOrder[j]].score
	})

	// 2. Coupling expansion, recursive to opts.Depth.
	frontier := append([]string(nil), directOrder...)
	seenCoupled := make(map[string]bool)
	for d := 0; d < opts.Depth; d++ {
		var next []string
		for _, file := range frontier {
			partners, err := a.mstore.GetCoupling(ctx, file, opts.MaxCoupled)
			if err != nil {
				return Result{}, fmt.Errorf("assembler: coupling expansion for %s: %w", file, err)
			}
			for _, p := range partners {
				if p.Score < opts.CouplingThreshold {
					continue
				}
				if _, isCandidate := candidates[p.FilePath]; isCandidate {
					continue
				}
				if seenCoupled[p.FilePath] {
					continue
				}
				seenCoupled[p.FilePath] = true
				candidates[p.FilePath] = candidateFile{tier: TierCoupled, score: p.Score}
				next = append(next, p.FilePath)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	// 3. Bridging: each coupled file gets its single best-matching chunk
	// as its representative; skip if nothing scores above threshold.
	queryVec, err := a.embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil {
		return Result{}, fmt.Errorf("assembler: embed query for bridging: %w", err)
	}

	bridged := make(map[string]model.Chunk)
	for path, c := range candidates {
		if c.tier != TierCoupled {
			continue
		}
		top, err := a.vstore.SearchVector(ctx, queryVec[0], 1, vectorstore.Filters{PathPrefix: path})
		if err != nil {
			return Result{}, fmt.Errorf("assembler: bridging %s: %w", path, err)
		}
		if len(top) == 0 || top[0].Score < bridgeMinSimilarity {
			delete(candidates, path)
			continue
		}
		chunk, ok, err := a.vstore.GetChunk(ctx, top[0].ChunkID)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			delete(candidates, path)
			continue
		}
		bridged[path] = chunk
		cf := candidates[path]
		cf.tier = TierBridged
		cf.score = top[0].Score
		candidates[path] = cf
	}

	// 4. Budgeting: append files in tier order, then by descending
	// file-score, chunks in span order, stopping at the line budget.
	ordered := orderByTierThenScore(candidates)

	var result Result
	linesUsed := 0
	for _, path := range ordered {
		if linesUsed >= opts.MaxLines {
			break
		}
		cf := candidates[path]

		var chunks []model.Chunk
		if cf.tier == TierBridged {
			chunks = []model.Chunk{bridged[path]}
		} else {
			all, err := a.vstore.GetFile(ctx, path)
			if err != nil {
				return Result{}, fmt.Errorf("assembler: load file %s: %w", path, err)
			}
			chunks = all
		}
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })

		var included []model.Chunk
		for _, c := range chunks {
			span := c.EndLine - c.StartLine + 1
			if linesUsed+span > opts.MaxLines {
				break // partial files only at chunk boundaries
			}
			included = append(included, c)
			linesUsed += span
			if isDoc(c) {
				result.DocLines += span
			} else {
				result.SourceLines += span
			}
			if linesUsed >= opts.MaxLines {
				break
			}
		}
		if len(included) == 0 {
			continue
		}

		result.Files = append(result.Files, FileBundle{FilePath: path, Tier: cf.tier, Score: cf.score, Chunks: included})
	}

	return result, nil
}

func isDoc(c model.Chunk) bool {
	switch c.ChunkType {
	case model.ChunkSection, model.ChunkTable, model.ChunkCodeBlock, model.ChunkDoc:
		return true
	}
	return strings.EqualFold(c.Language, "markdown") || strings.EqualFold(c.Language, "md")
}

func orderByTierThenScore(candidates map[string]candidateFile) []string {
	paths := make([]string, 0, len(candidates))
	for p := range candidates {
		paths = append(paths, p)
	}
	tierRank := map[Tier]int{TierDirect: 0, TierCoupled: 1, TierBridged: 2}
	sort.Slice(paths, func(i, j int) bool {
		ci, cj := candidates[paths[i]], candidates[paths[j]]
		if tierRank[ci.tier] != tierRank[cj.tier] {
			return tierRank[ci.tier] < tierRank[cj.tier]
		}
		if ci.score != cj.score {
			return ci.score > cj.score
		}
		return paths[i] < paths[j]
	})
	return paths
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
