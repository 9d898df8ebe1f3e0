// Package engine wires walker, pipeline, the vector+FTS and metadata
// stores, gitanalyzer, search, assembler, and analyze into the single
// entry point spec.md §6's on-disk layout (.bobbin/config.toml,
// index.db, vectors/) implies. Grounded on project-cortex's
// internal/indexer.impl struct (one object owning every collaborator,
// exposing the top-level operations a CLI or MCP server calls),
// generalized from its MCP-server surface onto Bobbin's ingest/query/
// assemble/analyze operations.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bobbin-dev/bobbin/internal/analyze"
	"github.com/bobbin-dev/bobbin/internal/assembler"
	"github.com/bobbin-dev/bobbin/internal/bobbinerr"
	"github.com/bobbin-dev/bobbin/internal/config"
	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/gitanalyzer"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/pipeline"
	"github.com/bobbin-dev/bobbin/internal/search"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
	"github.com/bobbin-dev/bobbin/internal/walker"
)

// bobbinDir is the repo-relative state directory spec.md §6 names.
const bobbinDir = ".bobbin"

// Engine owns every collaborator for one repository's index.
type Engine struct {
	repoRoot string
	cfg      *config.Config

	embedder embed.Provider
	vstore   *vectorstore.Store
	mstore   *metastore.Store
	git      *gitanalyzer.Analyzer

	pipeline  *pipeline.Pipeline
	searcher  *search.Searcher
	assembler *assembler.Assembler
	analyzer  *analyze.Analyzer
	depGraph  *metastore.DependencyGraph
}

// Open initializes every store and provider for repoRoot, creating
// .bobbin/ if it doesn't exist, then runs the startup consistency
// sweep (spec.md §9). cfg is used as given; callers load it via
// internal/config beforehand (config.Default() if no config.toml
// exists yet).
func Open(ctx context.Context, repoRoot string, cfg *config.Config) (*Engine, error) {
	stateDir := filepath.Join(repoRoot, bobbinDir)
	if err := os.MkdirAll(filepath.Join(stateDir, "vectors"), 0o755); err != nil {
		return nil, bobbinerr.Configuration("state_dir", "failed to create .bobbin state directory", err)
	}

	embedder, err := embed.NewProvider(ctx, cfg.Embedding)
	if err != nil {
		return nil, bobbinerr.Configuration("embedding_provider", "failed to start embedding provider", err)
	}

	vstore, err := vectorstore.Open(filepath.Join(stateDir, "vectors", "chunks.db"), embedder.Dimensions())
	if err != nil {
		embedder.Close()
		return nil, bobbinerr.Configuration("vector_store", "failed to open vector+FTS store", err)
	}

	mstore, err := metastore.Open(filepath.Join(stateDir, "index.db"))
	if err != nil {
		vstore.Close()
		embedder.Close()
		return nil, bobbinerr.Configuration("metadata_store", "failed to open metadata store", err)
	}

	depGraph, err := metastore.BuildDependencyGraph(ctx, mstore)
	if err != nil {
		mstore.Close()
		vstore.Close()
		embedder.Close()
		return nil, fmt.Errorf("engine: build dependency graph: %w", err)
	}

	searcher := search.New(vstore, embedder)
	e := &Engine{
		repoRoot:  repoRoot,
		cfg:       cfg,
		embedder:  embedder,
		vstore:    vstore,
		mstore:    mstore,
		git:       gitanalyzer.New(repoRoot),
		pipeline:  pipeline.New(repoRoot, vstore, mstore, embedder, cfg.Embedding.BatchSize),
		searcher:  searcher,
		assembler: assembler.New(searcher, vstore, mstore, embedder),
		analyzer:  analyze.New(vstore, mstore, embedder, depGraph),
		depGraph:  depGraph,
	}

	if err := e.sweepOrphans(ctx); err != nil {
		e.Close()
		return nil, fmt.Errorf("engine: startup sweep: %w", err)
	}
	return e, nil
}

// Close releases every store and the embedding subprocess.
func (e *Engine) Close() error {
	var errs []error
	if err := e.mstore.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.vstore.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("engine: close: %v", errs)
	}
	return nil
}

// sweepOrphans reaps chunks left in the vector+FTS store by a crash
// between the vector-store commit and the metadata-store commit of the
// same per-file write batch (spec.md §9: "a startup sweep detects
// orphaned chunks...and deletes them").
func (e *Engine) sweepOrphans(ctx context.Context) error {
	filePaths, err := e.vstore.AllChunkFilePaths(ctx)
	if err != nil {
		return err
	}
	indexed, err := e.mstore.AllIndexedFilePaths(ctx)
	if err != nil {
		return err
	}
	complete := make(map[string]bool, len(indexed))
	for _, p := range indexed {
		complete[p] = true
	}

	seen := make(map[string]bool)
	for _, path := range filePaths {
		if seen[path] || complete[path] {
			continue
		}
		seen[path] = true
		log.Printf("engine: reaping orphaned chunks for %s (no completed metadata commit)", path)
		if err := e.vstore.DeleteFile(ctx, path); err != nil {
			return bobbinerr.InvariantViolation("orphan_sweep", "failed to reap orphaned file "+path, err)
		}
	}
	return nil
}

// IngestStats summarizes one Ingest run across both the chunk pipeline
// and the git coupling pass.
type IngestStats struct {
	pipeline.Stats
	CommitsWalked int
	CouplingEdges int
}

// Ingest walks repoRoot for candidate files, runs them through the
// chunk/embed/write pipeline, and — if git.coupling_enabled — replays
// commit history into the coupling table (spec.md §4.5).
func (e *Engine) Ingest(ctx context.Context) (IngestStats, error) {
	w, err := walker.New(e.repoRoot, e.cfg.Index.Include, e.cfg.Index.Exclude, e.cfg.Index.UseGitignore)
	if err != nil {
		return IngestStats{}, bobbinerr.Configuration("walker_config", "invalid include/exclude globs", err)
	}
	files, err := w.Walk()
	if err != nil {
		return IngestStats{}, fmt.Errorf("engine: walk: %w", err)
	}

	pipelineStats, err := e.pipeline.Ingest(ctx, files)
	if err != nil {
		return IngestStats{Stats: pipelineStats}, fmt.Errorf("engine: ingest pipeline: %w", err)
	}
	stats := IngestStats{Stats: pipelineStats}

	if e.cfg.Git.CouplingEnabled {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		commits, err := e.git.WalkCommits(ctx, e.cfg.Git.CouplingDepth)
		if err != nil {
			log.Printf("engine: git coupling pass skipped: %v", err)
			return stats, nil
		}
		stats.CommitsWalked = len(commits)

		edges := gitanalyzer.ExtractCoupling(commits, gitanalyzer.DefaultMaxTouchedFiles)
		for _, edge := range edges {
			if err := e.mstore.UpsertCoupling(ctx, edge.FileA, edge.FileB, edge.CoChanges); err != nil {
				return stats, fmt.Errorf("engine: upsert coupling: %w", err)
			}
		}
		stats.CouplingEdges = len(edges)

		counts := gitanalyzer.FileCommitCounts(commits)
		for path, n := range counts {
			if err := e.mstore.RecordFileCommitCount(ctx, path, n); err != nil {
				return stats, fmt.Errorf("engine: record commit count: %w", err)
			}
		}
		for _, c := range commits {
			if err := e.mstore.RecordCommit(ctx, c); err != nil {
				return stats, fmt.Errorf("engine: record commit: %w", err)
			}
		}

		newGraph, err := metastore.BuildDependencyGraph(ctx, e.mstore)
		if err != nil {
			return stats, fmt.Errorf("engine: rebuild dependency graph: %w", err)
		}
		e.depGraph = newGraph
		e.analyzer = analyze.New(e.vstore, e.mstore, e.embedder, e.depGraph)
	}

	return stats, nil
}

// Query runs a search against the index, returning a typed
// empty-index error rather than an empty result set when nothing has
// been ingested yet (spec.md §7).
func (e *Engine) Query(ctx context.Context, query string, mode search.Mode, k int, filters search.Filters) ([]search.Hit, error) {
	count, err := e.vstore.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, bobbinerr.EmptyIndex("no chunks indexed yet; run ingest first")
	}

	deadline, hasDeadline := ctx.Deadline()
	hits, err := e.searcher.Search(ctx, query, mode, k, filters)
	if err != nil && hasDeadline && time.Now().After(deadline) {
		return hits, bobbinerr.DeadlineExceeded("query deadline exceeded; returning partial results")
	}
	return hits, err
}

// Assemble runs the context-assembly pipeline (spec.md §4.7).
func (e *Engine) Assemble(ctx context.Context, query string, limit int, opts assembler.Options) (assembler.Result, error) {
	return e.assembler.Assemble(ctx, query, limit, opts)
}

// Impact runs the impact analyzer (spec.md §4.8).
func (e *Engine) Impact(ctx context.Context, target string, depth int, mode analyze.ImpactMode, threshold float64, limit int) ([]analyze.ImpactResult, error) {
	return e.analyzer.Impact(ctx, target, depth, mode, threshold, limit)
}

// Similar runs the point-mode similarity analyzer (spec.md §4.8).
func (e *Engine) Similar(ctx context.Context, chunkID string, threshold float64, limit int) ([]analyze.SimilarResult, error) {
	return e.analyzer.Similar(ctx, chunkID, threshold, limit)
}

// SimilarScan runs the scan-mode clustering analyzer (spec.md §4.8).
func (e *Engine) SimilarScan(ctx context.Context, threshold float64, crossRepo bool) ([]analyze.Cluster, error) {
	return e.analyzer.SimilarScan(ctx, threshold, crossRepo)
}

// FindRefs runs the find_refs analyzer (spec.md §4.8).
func (e *Engine) FindRefs(ctx context.Context, symbolName string, limit int) ([]analyze.Reference, error) {
	return e.analyzer.FindRefs(ctx, symbolName, limit)
}

// Stats returns store-wide counters for the CLI's status output.
func (e *Engine) Stats(ctx context.Context) (vectorstore.Stats, error) {
	return e.vstore.Stats(ctx)
}

// Dependencies returns the files path imports (resolved edges only),
// the metastore-backed half of the original CLI's `deps` command.
func (e *Engine) Dependencies(ctx context.Context, path string) ([]string, error) {
	return e.mstore.GetDependencies(ctx, path)
}

// Dependents returns the files that import path (resolved edges only).
func (e *Engine) Dependents(ctx context.Context, path string) ([]string, error) {
	return e.mstore.GetDependents(ctx, path)
}

// Coupling returns path's top-k temporal coupling partners (spec.md
// §4.4 get_coupling).
func (e *Engine) Coupling(ctx context.Context, path string, k int) ([]metastore.CouplingPartner, error) {
	return e.mstore.GetCoupling(ctx, path, k)
}

// FileChurn returns, for every file touched since the given window, the
// number of commits that touched it — the original CLI's `hotspots`
// command's churn half (spec.md §4.5 get_file_churn).
func (e *Engine) FileChurn(ctx context.Context, since time.Time) (map[string]int, error) {
	return e.git.GetFileChurn(ctx, since)
}

// FileHistory returns up to limit commits that touched path, the
// original CLI's `history` command (spec.md §4.5 get_file_history).
func (e *Engine) FileHistory(ctx context.Context, path string, limit int) ([]model.CommitRecord, error) {
	return e.git.GetFileHistory(ctx, path, limit)
}
