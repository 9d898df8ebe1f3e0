package analyze

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// Reference is one location where a symbol is defined or used
// (spec.md §4.8 find_refs).
type Reference struct {
	ChunkID      string
	FilePath     string
	StartLine    int
	EndLine      int
	IsDefinition bool
}

// FindRefs locates symbolName's defining chunk (via the symbols table)
// and every chunk whose content contains the symbol as a whole word,
// via an FTS5 phrase query over chunks_fts (spec.md §4.8).
func (a *Analyzer) FindRefs(ctx context.Context, symbolName string, limit int) ([]Reference, error) {
	var defPath string
	var defStart, defEnd int
	hasDef := false

	sym, ok, err := a.mstore.FindSymbol(ctx, symbolName)
	if err != nil {
		return nil, fmt.Errorf("analyze: find_refs: lookup symbol %s: %w", symbolName, err)
	}
	if ok {
		hasDef = true
		defPath, defStart, defEnd = sym.FilePath, sym.StartLine, sym.EndLine
	}

	overfetch := limit * 3
	if overfetch < 50 {
		overfetch = 50
	}
	phraseQuery := fmt.Sprintf("%q", symbolName)
	hits, err := a.vstore.SearchFTS(ctx, phraseQuery, overfetch, vectorstore.Filters{})
	if err != nil {
		return nil, fmt.Errorf("analyze: find_refs: search %s: %w", symbolName, err)
	}

	wordBoundary, err := regexp.Compile(`\b` + regexp.QuoteMeta(symbolName) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("analyze: find_refs: compile matcher for %q: %w", symbolName, err)
	}

	var refs []Reference
	if hasDef {
		refs = append(refs, Reference{FilePath: defPath, StartLine: defStart, EndLine: defEnd, IsDefinition: true})
	}

	for _, h := range hits {
		c, ok, err := a.vstore.GetChunk(ctx, h.ChunkID)
		if err != nil {
			return nil, err
		}
		if !ok || !wordBoundary.MatchString(c.Content) {
			continue
		}
		if hasDef && c.FilePath == defPath && c.StartLine == defStart {
			continue // already recorded as the definition above
		}
		refs = append(refs, Reference{
			ChunkID:   c.ID,
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].IsDefinition != refs[j].IsDefinition {
			return refs[i].IsDefinition
		}
		if refs[i].FilePath != refs[j].FilePath {
			return refs[i].FilePath < refs[j].FilePath
		}
		return refs[i].StartLine < refs[j].StartLine
	})

	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}
