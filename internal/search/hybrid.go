package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobbin-dev/bobbin/internal/bobbinerr"
	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/model"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// validChunkTypes is the full model.Chunk* enum (spec.md §3 chunk_type),
// checked against Filters.ChunkType before any query is issued.
var validChunkTypes = map[model.ChunkType]bool{
	model.ChunkFunction:  true,
	model.ChunkMethod:    true,
	model.ChunkClass:     true,
	model.ChunkStruct:    true,
	model.ChunkEnum:      true,
	model.ChunkInterface: true,
	model.ChunkModule:    true,
	model.ChunkImpl:      true,
	model.ChunkTrait:     true,
	model.ChunkDoc:       true,
	model.ChunkSection:   true,
	model.ChunkTable:     true,
	model.ChunkCodeBlock: true,
	model.ChunkCommit:    true,
	model.ChunkIssue:     true,
	model.ChunkOther:     true,
}

// Searcher runs hybrid search queries against one vector+FTS store.
type Searcher struct {
	store    *vectorstore.Store
	embedder embed.Provider
}

func New(store *vectorstore.Store, embedder embed.Provider) *Searcher {
	return &Searcher{store: store, embedder: embedder}
}

// Search runs mode's retrieval path(s) for query, fuses hybrid results
// via RRF, and returns up to k hits after filters are applied
// (spec.md §4.6).
func (s *Searcher) Search(ctx context.Context, query string, mode Mode, k int, filters Filters) ([]Hit, error) {
	if filters.ChunkType != "" && !validChunkTypes[filters.ChunkType] {
		return nil, bobbinerr.InvalidFilter("invalid_chunk_type", fmt.Sprintf("unknown chunk type filter %q", filters.ChunkType))
	}
	if k <= 0 {
		k = 10
	}

	kOver := k * 2
	if kOver < minOverfetch {
		kOver = minOverfetch
	}

	var hits []Hit
	var err error
	for attempt := 0; attempt <= maxFilterRetries; attempt++ {
		hits, err = s.searchOnce(ctx, query, mode, kOver)
		if err != nil {
			return nil, err
		}

		filtered := applyFilters(hits, filters)
		if len(filtered) >= k || attempt == maxFilterRetries {
			hits = filtered
			break
		}
		kOver *= 2
	}

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Searcher) searchOnce(ctx context.Context, query string, mode Mode, kOver int) ([]Hit, error) {
	switch mode {
	case ModeSemantic:
		vecHits, err := s.searchVector(ctx, query, kOver)
		if err != nil {
			return nil, err
		}
		return s.hydrate(ctx, vecHits, nil)

	case ModeKeyword:
		ftsHits, err := s.searchFTS(ctx, query, kOver)
		if err != nil {
			return nil, err
		}
		return s.hydrate(ctx, nil, ftsHits)

	case ModeHybrid, "":
		var vecHits []vectorstore.VectorHit
		var ftsHits []vectorstore.FTSHit
		var vecErr, ftsErr error

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			vecHits, vecErr = s.searchVector(gctx, query, kOver)
			return nil
		})
		g.Go(func() error {
			ftsHits, ftsErr = s.searchFTS(gctx, query, kOver)
			return nil
		})
		_ = g.Wait()

		if vecErr != nil && ftsErr != nil {
			return nil, fmt.Errorf("search: both retrieval paths failed: semantic: %v, keyword: %v", vecErr, ftsErr)
		}
		if vecErr != nil {
			return s.hydrate(ctx, nil, ftsHits)
		}
		if ftsErr != nil {
			return s.hydrate(ctx, vecHits, nil)
		}
		return s.fuse(ctx, vecHits, ftsHits)

	default:
		return nil, fmt.Errorf("search: unknown mode %q", mode)
	}
}

func (s *Searcher) searchVector(ctx context.Context, query string, k int) ([]vectorstore.VectorHit, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	return s.store.SearchVector(ctx, vecs[0], k, vectorstore.Filters{})
}

func (s *Searcher) searchFTS(ctx context.Context, query string, k int) ([]vectorstore.FTSHit, error) {
	return s.store.SearchFTS(ctx, query, k, vectorstore.Filters{})
}

// fuse applies Reciprocal Rank Fusion (spec.md §4.6: score(d) = Σ_r
// 1/(c + rank_r(d))) and breaks ties by higher semantic score, then
// lexicographic path, then start_line.
func (s *Searcher) fuse(ctx context.Context, vecHits []vectorstore.VectorHit, ftsHits []vectorstore.FTSHit) ([]Hit, error) {
	type accum struct {
		score         float64
		semanticScore float64
		inVector      bool
		inFTS         bool
	}
	scores := make(map[string]*accum)

	for rank, h := range vecHits {
		a := &accum{score: 1 / float64(RRFConstant+rank+1), semanticScore: h.Score, inVector: true}
		scores[h.ChunkID] = a
	}
	for rank, h := range ftsHits {
		rrf := 1 / float64(RRFConstant+rank+1)
		if a, ok := scores[h.ChunkID]; ok {
			a.score += rrf
			a.inFTS = true
		} else {
			scores[h.ChunkID] = &accum{score: rrf, inFTS: true}
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}

	hits, err := s.hydrateIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range hits {
		a := scores[hits[i].ChunkID]
		hits[i].Score = a.score
		hits[i].SemanticScore = a.semanticScore
		switch {
		case a.inVector && a.inFTS:
			hits[i].MatchType = MatchHybrid
		case a.inVector:
			hits[i].MatchType = MatchSemantic
		default:
			hits[i].MatchType = MatchKeyword
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].SemanticScore != hits[j].SemanticScore {
			return hits[i].SemanticScore > hits[j].SemanticScore
		}
		if hits[i].FilePath != hits[j].FilePath {
			return hits[i].FilePath < hits[j].FilePath
		}
		return hits[i].StartLine < hits[j].StartLine
	})

	return hits, nil
}

func (s *Searcher) hydrate(ctx context.Context, vecHits []vectorstore.VectorHit, ftsHits []vectorstore.FTSHit) ([]Hit, error) {
	ids := make([]string, 0, len(vecHits)+len(ftsHits))
	scoreByID := make(map[string]float64, len(vecHits)+len(ftsHits))
	matchByID := make(map[string]MatchType, len(vecHits)+len(ftsHits))

	for _, h := range vecHits {
		ids = append(ids, h.ChunkID)
		scoreByID[h.ChunkID] = h.Score
		matchByID[h.ChunkID] = MatchSemantic
	}
	for _, h := range ftsHits {
		ids = append(ids, h.ChunkID)
		scoreByID[h.ChunkID] = h.Score
		matchByID[h.ChunkID] = MatchKeyword
	}

	hits, err := s.hydrateIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Score = scoreByID[hits[i].ChunkID]
		hits[i].MatchType = matchByID[hits[i].ChunkID]
		if hits[i].MatchType == MatchSemantic {
			hits[i].SemanticScore = hits[i].Score
		}
	}
	return hits, nil
}

func (s *Searcher) hydrateIDs(ctx context.Context, ids []string) ([]Hit, error) {
	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		c, ok, err := s.store.GetChunk(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("search: hydrate chunk %s: %w", id, err)
		}
		if !ok {
			// The chunk was deleted between ranking and hydration
			// (concurrent re-index); drop it rather than error the
			// whole query.
			continue
		}
		hits = append(hits, Hit{
			ChunkID:   c.ID,
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			ChunkType: c.ChunkType,
			Name:      c.Name,
			Content:   c.Content,
			Language:  c.Language,
		})
	}
	return hits, nil
}

func applyFilters(hits []Hit, filters Filters) []Hit {
	if filters.ChunkType == "" && filters.PathPrefix == "" {
		return hits
	}
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if filters.ChunkType != "" && h.ChunkType != filters.ChunkType {
			continue
		}
		if filters.PathPrefix != "" && !strings.HasPrefix(h.FilePath, filters.PathPrefix) {
			continue
		}
		out = append(out, h)
	}
	return out
}
