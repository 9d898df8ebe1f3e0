// Package analyze implements the impact, similar, and find_refs thin
// compositions over the stores (spec.md §4.8), grounded on
// project-cortex's internal/graph.searcher queryImpact (combined-mode,
// max-across-modalities scoring, descending, threshold-filtered,
// truncated) generalized from its caller/implementor graph to Bobbin's
// coupling/semantic/dependency modalities.
package analyze

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// ImpactMode selects which modalities contribute to a score.
type ImpactMode string

const (
	ImpactCoupling   ImpactMode = "coupling"
	ImpactSemantic   ImpactMode = "semantic"
	ImpactDependents ImpactMode = "dependents"
	ImpactCombined   ImpactMode = "combined"
)

// ImpactResult is one candidate file's computed impact score.
type ImpactResult struct {
	FilePath       string
	Score          float64
	CouplingScore  float64
	SemanticScore  float64
	DependentScore float64
}

// Analyzer composes the metadata store, vector store, and dependency
// graph for impact/similar/refs operations.
type Analyzer struct {
	vstore   *vectorstore.Store
	mstore   *metastore.Store
	embedder embed.Provider
	depGraph *metastore.DependencyGraph
}

func New(vstore *vectorstore.Store, mstore *metastore.Store, embedder embed.Provider, depGraph *metastore.DependencyGraph) *Analyzer {
	return &Analyzer{vstore: vstore, mstore: mstore, embedder: embedder, depGraph: depGraph}
}

// Impact computes candidate impact scores for target (a file path),
// ordered descending, filtered to >= threshold, truncated to limit
// (spec.md §4.8).
func (a *Analyzer) Impact(ctx context.Context, target string, depth int, mode ImpactMode, threshold float64, limit int) ([]ImpactResult, error) {
	scores := make(map[string]*ImpactResult)
	ensure := func(path string) *ImpactResult {
		if r, ok := scores[path]; ok {
			return r
		}
		r := &ImpactResult{FilePath: path}
		scores[path] = r
		return r
	}

	if mode == ImpactCoupling || mode == ImpactCombined {
		partners, err := a.mstore.GetCoupling(ctx, target, 0)
		if err != nil {
			return nil, fmt.Errorf("analyze: impact coupling: %w", err)
		}
		for _, p := range partners {
			ensure(p.FilePath).CouplingScore = p.Score
		}
	}

	if mode == ImpactSemantic || mode == ImpactCombined {
		targetChunks, err := a.vstore.GetFile(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("analyze: impact semantic, loading %s: %w", target, err)
		}
		if len(targetChunks) > 0 {
			rep := representativeChunk(targetChunks)
			vecs, err := a.embedder.Embed(ctx, []string{rep.Content}, embed.EmbedModePassage)
			if err != nil {
				return nil, fmt.Errorf("analyze: impact semantic embed: %w", err)
			}
			hits, err := a.vstore.SearchVector(ctx, vecs[0], limit*4+20, vectorstore.Filters{})
			if err != nil {
				return nil, fmt.Errorf("analyze: impact semantic search: %w", err)
			}
			bestPerFile := make(map[string]float64)
			for _, h := range hits {
				c, ok, err := a.vstore.GetChunk(ctx, h.ChunkID)
				if err != nil {
					return nil, err
				}
				if !ok || c.FilePath == target {
					continue
				}
				if h.Score > bestPerFile[c.FilePath] {
					bestPerFile[c.FilePath] = h.Score
				}
			}
			for path, score := range bestPerFile {
				ensure(path).SemanticScore = score
			}
		}
	}

	if (mode == ImpactDependents || mode == ImpactCombined) && a.depGraph != nil {
		dependents := a.depGraph.TransitiveDependents(target, depth)
		for i, path := range dependents {
			// Earlier entries come from shallower BFS frontiers (closer
			// to target); score decays with discovery order the same
			// way the teacher's transitive-caller Depth field ranks
			// closer callers as more severe.
			score := 1.0 / float64(i+1)
			if score > ensure(path).DependentScore {
				ensure(path).DependentScore = score
			}
		}
	}

	results := make([]ImpactResult, 0, len(scores))
	for _, r := range scores {
		switch mode {
		case ImpactCoupling:
			r.Score = r.CouplingScore
		case ImpactSemantic:
			r.Score = r.SemanticScore
		case ImpactDependents:
			r.Score = r.DependentScore
		default: // combined: max across modalities
			r.Score = maxOf(r.CouplingScore, r.SemanticScore, r.DependentScore)
		}
		if r.Score >= threshold {
			results = append(results, *r)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].FilePath < results[j].FilePath
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// representativeChunk is the largest chunk in a file, used as a stand-in
// for "the file's meaning" when no single target symbol was named.
func representativeChunk(chunks []model.Chunk) model.Chunk {
	best := chunks[0]
	for _, c := range chunks[1:] {
		if c.EndLine-c.StartLine > best.EndLine-best.StartLine {
			best = c
		}
	}
	return best
}

func maxOf(vals ...float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
