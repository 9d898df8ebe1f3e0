// Package pipeline wires the walker -> chunker -> embedder -> store
// stages into one bounded-channel ingest run (spec.md §5). There's no
// teacher file with this exact shape; it's built fresh the way
// project-cortex's own processor.go composes Parser/Chunker/Provider/
// Storage, but with a real channel pipeline and a min(cpu_count, 8)
// task pool instead of a sequential phase list, to satisfy the
// backpressure and cancellation guarantees spec.md §5 names.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bobbin-dev/bobbin/internal/chunker"
	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/metastore"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// ChannelCapacity is the bounded-channel depth between pipeline stages
// (spec.md §5: "default capacity 64 items").
const ChannelCapacity = 64

// Stats summarizes one Ingest run.
type Stats struct {
	FilesWalked    int
	FilesChunked   int
	ChunksWritten  int
	ImportsWritten int
}

// Pipeline runs the chunk/embed/write stages over a pre-walked file
// list. Walking itself is the caller's concern (internal/walker); this
// package owns backpressure from that point on.
type Pipeline struct {
	rootDir   string
	vstore    *vectorstore.Store
	mstore    *metastore.Store
	embedder  embed.Provider
	batchSize int

	// embedMu is the single-writer lock around the embedder's inference
	// buffer (spec.md §5): only one batch is ever in flight against the
	// local subprocess, matching embed.localProvider's one-round-trip-
	// at-a-time shape.
	embedMu sync.Mutex
}

func New(rootDir string, vstore *vectorstore.Store, mstore *metastore.Store, embedder embed.Provider, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Pipeline{rootDir: rootDir, vstore: vstore, mstore: mstore, embedder: embedder, batchSize: batchSize}
}

// taskPoolSize is min(cpu_count, 8) per spec.md §5.
func taskPoolSize() int64 {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return int64(n)
}

type chunkedFile struct {
	path   string
	result chunker.Result
}

// Ingest chunks every file (task pool sized min(cpu_count, 8)), pipes
// the results through a capacity-64 channel to a single embed+write
// consumer, and returns once every file has been durably upserted or
// the first unrecoverable error surfaces. Per-chunk parse failures are
// swallowed by the chunker itself (spec.md §4.1); only I/O, embedder,
// and store errors abort the run.
func (p *Pipeline) Ingest(ctx context.Context, files []string) (Stats, error) {
	stats := Stats{FilesWalked: len(files)}
	if len(files) == 0 {
		return stats, nil
	}

	chunkedCh := make(chan chunkedFile, ChannelCapacity)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(taskPoolSize())

	g.Go(func() error {
		defer close(chunkedCh)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error

		for _, f := range files {
			f := f
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}

			wg.Add(1)
			go func() {
				defer sem.Release(1)
				defer wg.Done()

				result, err := p.chunkFile(gctx, f)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}

				select {
				case chunkedCh <- chunkedFile{path: f, result: result}:
				case <-gctx.Done():
				}
			}()
		}

		wg.Wait()
		return firstErr
	})

	g.Go(func() error {
		for cf := range chunkedCh {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.writeChunked(gctx, cf, &stats); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (p *Pipeline) writeChunked(ctx context.Context, cf chunkedFile, stats *Stats) error {
	if len(cf.result.Chunks) == 0 {
		return nil
	}

	texts := make([]string, len(cf.result.Chunks))
	for i, c := range cf.result.Chunks {
		texts[i] = c.Content
	}

	p.embedMu.Lock()
	vectors, err := embed.EmbedBatched(ctx, p.embedder, texts, embed.EmbedModePassage, p.batchSize, nil)
	p.embedMu.Unlock()
	if err != nil {
		return fmt.Errorf("pipeline: embed %s: %w", cf.path, err)
	}

	if err := p.vstore.UpsertChunks(ctx, cf.result.Chunks, vectors); err != nil {
		return fmt.Errorf("pipeline: upsert chunks %s: %w", cf.path, err)
	}
	stats.FilesChunked++
	stats.ChunksWritten += len(cf.result.Chunks)

	for _, imp := range cf.result.Imports {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.mstore.UpsertImport(ctx, imp); err != nil {
			return fmt.Errorf("pipeline: import edge %s: %w", cf.path, err)
		}
		stats.ImportsWritten++
	}

	for _, c := range cf.result.Chunks {
		if c.Name == "" {
			continue
		}
		sym := model.Symbol{
			Name: c.Name, ChunkType: c.ChunkType, FilePath: cf.path,
			StartLine: c.StartLine, EndLine: c.EndLine,
		}
		if err := p.mstore.UpsertSymbol(ctx, sym); err != nil {
			return fmt.Errorf("pipeline: symbol %s: %w", cf.path, err)
		}
	}

	// Marks the metadata half of this file's write batch complete,
	// after the vector/FTS commit above (spec.md §9 dual-store
	// consistency). A crash before this line leaves the file's chunks
	// visible in the vector store but unmarked; the engine's startup
	// sweep reaps them.
	if err := p.mstore.MarkFileIndexed(ctx, cf.path, time.Now()); err != nil {
		return fmt.Errorf("pipeline: mark indexed %s: %w", cf.path, err)
	}

	return nil
}

func (p *Pipeline) chunkFile(ctx context.Context, relPath string) (chunker.Result, error) {
	content, err := os.ReadFile(filepath.Join(p.rootDir, relPath))
	if err != nil {
		return chunker.Result{}, fmt.Errorf("pipeline: read %s: %w", relPath, err)
	}

	language := languageFromPath(relPath)
	return chunkerFor(language).ChunkFile(ctx, relPath, language, string(content))
}

// extLanguages maps file extensions to the language tag spec.md §4.1's
// chunkers expect. Extensions with no registered tree-sitter grammar
// still get a language tag (for chunk metadata and search filters) but
// fall back to the line-window chunker.
var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".php":  "php",
	".rb":   "ruby",
	".java": "java",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".md":   "markdown",
	".mdx":  "markdown",
}

func languageFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	return strings.TrimPrefix(ext, ".")
}

// chunkerFor picks the syntax-aware chunker when a grammar is
// registered for language, the markdown chunker for doc files, or the
// line-window fallback otherwise (spec.md §4.1).
func chunkerFor(language string) chunker.Chunker {
	if language == "markdown" {
		return chunker.NewMarkdown()
	}
	if c := chunker.NewForLanguage(language); c != nil {
		return c
	}
	return chunker.NewLineWindow(chunker.DefaultWindowSize, chunker.DefaultWindowOverlap)
}
