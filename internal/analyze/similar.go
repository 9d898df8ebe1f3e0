package analyze

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/philippgille/chromem-go"

	"github.com/bobbin-dev/bobbin/internal/embed"
	"github.com/bobbin-dev/bobbin/internal/vectorstore"
)

// SimilarResult is one neighbor found by Similar's top-k mode.
type SimilarResult struct {
	ChunkID  string
	FilePath string
	Score    float64
}

// Cluster is a group of mutually-similar chunks found by Similar's scan
// mode (spec.md §4.8).
type Cluster struct {
	Members        []SimilarResult
	MeanSimilarity float64
}

// scanNeighborFanout bounds how many near-neighbors chromem-go returns
// per chunk during a scan; it only needs to be wide enough to surface
// the threshold-crossing edges, not every chunk in the corpus.
const scanNeighborFanout = 15

// Similar returns the top-k chunks (excluding chunkID itself) whose
// cosine similarity to chunkID's embedding is >= threshold, ranked
// descending (spec.md §4.8 point mode).
func (a *Analyzer) Similar(ctx context.Context, chunkID string, threshold float64, limit int) ([]SimilarResult, error) {
	chunk, ok, err := a.vstore.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("analyze: similar, loading %s: %w", chunkID, err)
	}
	if !ok {
		return nil, fmt.Errorf("analyze: similar: chunk %s not found", chunkID)
	}

	vecs, err := a.embedder.Embed(ctx, []string{chunk.Content}, embed.EmbedModePassage)
	if err != nil {
		return nil, fmt.Errorf("analyze: similar embed: %w", err)
	}

	overfetch := limit + 1
	if overfetch < 20 {
		overfetch = 20
	}
	hits, err := a.vstore.SearchVector(ctx, vecs[0], overfetch, vectorstore.Filters{})
	if err != nil {
		return nil, fmt.Errorf("analyze: similar search: %w", err)
	}

	results := make([]SimilarResult, 0, len(hits))
	for _, h := range hits {
		if h.ChunkID == chunkID || h.Score < threshold {
			continue
		}
		c, ok, err := a.vstore.GetChunk(ctx, h.ChunkID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		results = append(results, SimilarResult{ChunkID: h.ChunkID, FilePath: c.FilePath, Score: h.Score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// edge is one candidate similarity discovered during a scan.
type edge struct {
	i, j       uint32
	similarity float64
}

// SimilarScan clusters every indexed chunk by mutual similarity: each
// chunk's near-neighbors are found via a transient in-memory chromem-go
// collection built from the stored embeddings, then unioned into
// clusters with roaring bitmaps over dense per-scan chunk indices,
// keeping only clusters whose intra-cluster mean similarity is >=
// threshold (spec.md §4.8 scan mode). crossRepo, when true, only forms
// edges between chunks whose file_path's first path segment differs,
// treating that segment as the repo/project boundary.
func (a *Analyzer) SimilarScan(ctx context.Context, threshold float64, crossRepo bool) ([]Cluster, error) {
	embeddings, err := a.vstore.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze: similar scan: loading embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	filePaths, err := a.vstore.AllChunkFilePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze: similar scan: loading file paths: %w", err)
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("similar-scan", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze: similar scan: create collection: %w", err)
	}

	indexOf := make(map[string]uint32, len(embeddings))
	chunkIDs := make([]string, len(embeddings))
	for i, e := range embeddings {
		indexOf[e.ChunkID] = uint32(i)
		chunkIDs[i] = e.ChunkID
		doc := chromem.Document{
			ID:        e.ChunkID,
			Embedding: e.Vector,
			Metadata:  map[string]string{"file_path": filePaths[e.ChunkID]},
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("analyze: similar scan: add document %s: %w", e.ChunkID, err)
		}
	}

	var edges []edge
	for i, e := range embeddings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors, err := collection.QueryEmbedding(ctx, e.Vector, scanNeighborFanout, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("analyze: similar scan: query neighbors of %s: %w", e.ChunkID, err)
		}
		for _, n := range neighbors {
			if n.ID == e.ChunkID {
				continue
			}
			j, ok := indexOf[n.ID]
			if !ok || j <= uint32(i) {
				continue // dedupe: only keep each unordered pair once, from the lower index
			}
			if float64(n.Similarity) < threshold {
				continue
			}
			if crossRepo && repoPrefix(filePaths[e.ChunkID]) == repoPrefix(filePaths[n.ID]) {
				continue
			}
			edges = append(edges, edge{i: uint32(i), j: j, similarity: float64(n.Similarity)})
		}
	}

	clusters := clusterEdges(edges, uint32(len(embeddings)))

	out := make([]Cluster, 0, len(clusters))
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		mean := meanEdgeSimilarity(edges, members)
		if mean < threshold {
			continue
		}
		c := Cluster{MeanSimilarity: mean}
		for _, idx := range members {
			c.Members = append(c.Members, SimilarResult{
				ChunkID:  chunkIDs[idx],
				FilePath: filePaths[chunkIDs[idx]],
			})
		}
		sort.Slice(c.Members, func(i, j int) bool { return c.Members[i].FilePath < c.Members[j].FilePath })
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].MeanSimilarity > out[j].MeanSimilarity
	})
	return out, nil
}

// clusterEdges unions endpoints of every edge into roaring-bitmap
// clusters and returns each distinct cluster's member indices.
func clusterEdges(edges []edge, n uint32) [][]uint32 {
	memberOf := make(map[uint32]*roaring.Bitmap, n)
	for _, e := range edges {
		bi, ok := memberOf[e.i]
		if !ok {
			bi = roaring.New()
			bi.Add(e.i)
			memberOf[e.i] = bi
		}
		bj, ok := memberOf[e.j]
		if !ok {
			bj = roaring.New()
			bj.Add(e.j)
			memberOf[e.j] = bj
		}
		if bi == bj {
			continue
		}
		merged := bi.Clone()
		merged.Or(bj)
		merged.Iterate(func(x uint32) bool {
			memberOf[x] = merged
			return true
		})
	}

	seen := make(map[*roaring.Bitmap]bool)
	var clusters [][]uint32
	for _, b := range memberOf {
		if seen[b] {
			continue
		}
		seen[b] = true
		clusters = append(clusters, b.ToArray())
	}
	return clusters
}

func meanEdgeSimilarity(edges []edge, members []uint32) float64 {
	inCluster := make(map[uint32]bool, len(members))
	for _, m := range members {
		inCluster[m] = true
	}
	var sum float64
	var count int
	for _, e := range edges {
		if inCluster[e.i] && inCluster[e.j] {
			sum += e.similarity
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// repoPrefix treats a file_path's leading path segment as its repo/
// project boundary for cross-repo clustering (spec.md §4.8: paths may
// be repo-relative or "archive:"/"beads:<rig>:" URIs already prefixed
// by their source).
func repoPrefix(filePath string) string {
	clean := strings.TrimPrefix(filePath, "/")
	if i := strings.Index(clean, "/"); i >= 0 {
		return clean[:i]
	}
	return clean
}
