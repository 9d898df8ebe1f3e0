package metastore

import (
	"context"
	"fmt"
	"sync"

	dgraph "github.com/dominikbraun/graph"
	"github.com/maypok86/otter"

	"github.com/bobbin-dev/bobbin/internal/model"
)

// DependencyGraph is an in-memory directed graph of resolved import
// edges, rebuilt from the metadata store after each ingest run and
// reused for impact analysis's transitive-dependents walk (spec.md
// §4.8), grounded on project-cortex's internal/graph.searcher which
// keeps the same kind of graph in memory over dominikbraun/graph.
type DependencyGraph struct {
	mu    sync.RWMutex
	g     dgraph.Graph[string, string]
	arena *FileArena

	// dependentsCache memoizes TransitiveDependents(path, depth) lookups,
	// weight-bounded the way the teacher bounds its file cache.
	dependentsCache otter.Cache[string, []string]
}

// FileArena assigns stable uint32 IDs to file paths so coupling/import
// edges can be kept as cheap (FileID, FileID) pairs instead of repeated
// string comparisons during traversal (spec.md §9 Design Notes).
type FileArena struct {
	mu        sync.Mutex
	idByPath  map[string]model.FileID
	pathByID  []string
}

func NewFileArena() *FileArena {
	return &FileArena{idByPath: make(map[string]model.FileID)}
}

// Intern returns the stable ID for path, assigning a new one if unseen.
func (a *FileArena) Intern(path string) model.FileID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.idByPath[path]; ok {
		return id
	}
	id := model.FileID(len(a.pathByID))
	a.idByPath[path] = id
	a.pathByID = append(a.pathByID, path)
	return id
}

// Path returns the path interned as id, or "" if never interned.
func (a *FileArena) Path(id model.FileID) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(id) >= len(a.pathByID) {
		return ""
	}
	return a.pathByID[id]
}

// BuildDependencyGraph loads every resolved import edge from store and
// constructs the in-memory traversal graph.
func BuildDependencyGraph(ctx context.Context, store *Store) (*DependencyGraph, error) {
	edges, err := store.AllImportEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("metastore: build dependency graph: %w", err)
	}

	g := dgraph.New(dgraph.StringHash, dgraph.Directed(), dgraph.PreventCycles())
	arena := NewFileArena()

	cache, err := otter.MustBuilder[string, []string](4096).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("metastore: build dependents cache: %w", err)
	}

	dg := &DependencyGraph{g: g, arena: arena, dependentsCache: cache}

	for _, e := range edges {
		if !e.Resolved || e.FileB == "" {
			continue
		}
		arena.Intern(e.FileA)
		arena.Intern(e.FileB)
		_ = g.AddVertex(e.FileA)
		_ = g.AddVertex(e.FileB)
		// A dependency cycle is a legitimate property of real codebases,
		// not an error: PreventCycles just means that one edge is
		// dropped rather than the whole build aborting.
		_ = g.AddEdge(e.FileA, e.FileB)
	}

	return dg, nil
}

// Dependents returns the files that directly import path.
func (d *DependencyGraph) Dependents(path string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	preds, err := dgraph.PredecessorMap(d.g)
	if err != nil {
		return nil
	}
	var out []string
	for from := range preds[path] {
		out = append(out, from)
	}
	return out
}

// TransitiveDependents walks the predecessor graph up to depth hops,
// memoizing results per (path, depth) since impact() repeatedly asks
// for the same target during a session.
func (d *DependencyGraph) TransitiveDependents(path string, depth int) []string {
	key := fmt.Sprintf("%s\x00%d", path, depth)
	if cached, ok := d.dependentsCache.Get(key); ok {
		return cached
	}

	d.mu.RLock()
	preds, err := dgraph.PredecessorMap(d.g)
	d.mu.RUnlock()
	if err != nil {
		return nil
	}

	seen := map[string]bool{path: true}
	frontier := []string{path}
	var result []string
	for i := 0; i < depth && len(frontier) > 0; i++ {
		var next []string
		for _, f := range frontier {
			for from := range preds[f] {
				if !seen[from] {
					seen[from] = true
					result = append(result, from)
					next = append(next, from)
				}
			}
		}
		frontier = next
	}

	d.dependentsCache.Set(key, result)
	return result
}

// Arena exposes the file-ID interner backing this graph.
func (d *DependencyGraph) Arena() *FileArena { return d.arena }
