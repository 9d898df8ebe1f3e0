package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/bobbin-dev/bobbin/internal/model"
)

// Store is the vector+FTS adapter of spec.md §4.3, backed by a single
// SQLite database (chunks.db) holding the chunk rows, an fts5 virtual
// table, and a sqlite-vec vec0 virtual table.
type Store struct {
	db         *sql.DB
	dimensions int
}

// Filters narrows a search to a chunk type and/or a file_path prefix
// (spec.md §4.3).
type Filters struct {
	ChunkType model.ChunkType
	PathPrefix string
}

// Open creates or attaches to the chunks.db at path, creating the
// schema on first use. dimensions must match the configured embedder's
// output width; a mismatch against a previously-created vec0 table
// surfaces as a query-time error from sqlite-vec itself.
func Open(path string, dimensions int) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer SQLite file; see spec.md §5

	if err := createSchema(db, dimensions); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dimensions: dimensions}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// UpsertChunks inserts or replaces chunks and their vectors, one chunk
// per vector by position, atomically: all chunks belonging to a single
// file land in one transaction (spec.md §4.3 "atomic per file").
func (s *Store) UpsertChunks(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("vectorstore: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, file_path, chunk_type, name, start_line, end_line, content, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			file_path = excluded.file_path, chunk_type = excluded.chunk_type,
			name = excluded.name, start_line = excluded.start_line, end_line = excluded.end_line,
			content = excluded.content, language = excluded.language
	`)
	if err != nil {
		return fmt.Errorf("vectorstore: prepare chunk upsert: %w", err)
	}
	defer chunkStmt.Close()

	ftsDelete, err := tx.PrepareContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`)
	if err != nil {
		return err
	}
	defer ftsDelete.Close()

	ftsInsert, err := tx.PrepareContext(ctx, `INSERT INTO chunks_fts (chunk_id, name, content) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ftsInsert.Close()

	vecDelete, err := tx.PrepareContext(ctx, `DELETE FROM chunks_vec WHERE chunk_id = ?`)
	if err != nil {
		return err
	}
	defer vecDelete.Close()

	vecInsert, err := tx.PrepareContext(ctx, `INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer vecInsert.Close()

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.FilePath, string(c.ChunkType), c.Name, c.StartLine, c.EndLine, c.Content, c.Language, now); err != nil {
			return fmt.Errorf("vectorstore: upsert chunk %s: %w", c.ID, err)
		}

		if _, err := ftsDelete.ExecContext(ctx, c.ID); err != nil {
			return err
		}
		if _, err := ftsInsert.ExecContext(ctx, c.ID, c.Name, c.Content); err != nil {
			return fmt.Errorf("vectorstore: fts insert %s: %w", c.ID, err)
		}

		vecBytes, err := sqlitevec.SerializeFloat32(vectors[i])
		if err != nil {
			return fmt.Errorf("vectorstore: serialize vector %s: %w", c.ID, err)
		}
		if _, err := vecDelete.ExecContext(ctx, c.ID); err != nil {
			return err
		}
		if _, err := vecInsert.ExecContext(ctx, c.ID, vecBytes); err != nil {
			return fmt.Errorf("vectorstore: vector insert %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore: commit upsert tx: %w", err)
	}
	return nil
}

// DeleteFile removes every chunk (and its FTS/vector rows) whose
// file_path equals path.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids, err := queryChunkIDs(ctx, tx, `SELECT chunk_id FROM chunks WHERE file_path = ?`, path)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return tx.Commit()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	for _, stmt := range []string{
		fmt.Sprintf("DELETE FROM chunks_fts WHERE chunk_id IN (%s)", placeholders),
		fmt.Sprintf("DELETE FROM chunks_vec WHERE chunk_id IN (%s)", placeholders),
	} {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("vectorstore: delete file %s: %w", path, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return err
	}

	return tx.Commit()
}

func queryChunkIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VectorHit is one search_vector result.
type VectorHit struct {
	ChunkID string
	Score   float64 // cosine similarity, clamped to [0,1]
}

// SearchVector returns the top-k chunks by cosine similarity to vec.
func (s *Store) SearchVector(ctx context.Context, vec []float32, k int, filters Filters) ([]VectorHit, error) {
	vecBytes, err := sqlitevec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: serialize query vector: %w", err)
	}

	query := sq.Select("v.chunk_id", "vec_distance_cosine(v.embedding, ?) AS distance").
		From("chunks_vec v").
		PlaceholderFormat(sq.Question)

	if filters.ChunkType != "" || filters.PathPrefix != "" {
		query = query.Join("chunks c ON c.chunk_id = v.chunk_id")
		if filters.ChunkType != "" {
			query = query.Where(sq.Eq{"c.chunk_type": string(filters.ChunkType)})
		}
		if filters.PathPrefix != "" {
			query = query.Where(sq.Like{"c.file_path": filters.PathPrefix + "%"})
		}
	}
	query = query.OrderBy("distance ASC").Limit(uint64(k))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	args = append([]any{vecBytes}, args...)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search_vector: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		var distance float64
		if err := rows.Scan(&h.ChunkID, &distance); err != nil {
			return nil, err
		}
		h.Score = cosineFromDistance(distance)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// FTSHit is one search_fts result.
type FTSHit struct {
	ChunkID string
	Score   float64 // BM25 mapped into [0,1)
}

// SearchFTS returns the top-k chunks by BM25 rank for query.
func (s *Store) SearchFTS(ctx context.Context, query string, k int, filters Filters) ([]FTSHit, error) {
	builder := sq.Select("chunks_fts.chunk_id", "bm25(chunks_fts) AS raw_rank").
		From("chunks_fts").
		Join("chunks c ON c.chunk_id = chunks_fts.chunk_id").
		Where("chunks_fts MATCH ?", query).
		PlaceholderFormat(sq.Question)

	if filters.ChunkType != "" {
		builder = builder.Where(sq.Eq{"c.chunk_type": string(filters.ChunkType)})
	}
	if filters.PathPrefix != "" {
		builder = builder.Where(sq.Like{"c.file_path": filters.PathPrefix + "%"})
	}
	builder = builder.OrderBy("raw_rank ASC").Limit(uint64(k))

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search_fts: %w", err)
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var h FTSHit
		var rawRank float64
		if err := rows.Scan(&h.ChunkID, &rawRank); err != nil {
			return nil, err
		}
		// SQLite's bm25() returns a negative score where more negative
		// is more relevant; flip sign to get the non-negative raw score
		// spec.md §4.3 maps through normalizeBM25.
		h.Score = normalizeBM25(-rawRank)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetChunk fetches one chunk by ID, or ok=false if it doesn't exist.
func (s *Store) GetChunk(ctx context.Context, id string) (model.Chunk, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, file_path, chunk_type, name, start_line, end_line, content, language
		FROM chunks WHERE chunk_id = ?
	`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return model.Chunk{}, false, nil
	}
	if err != nil {
		return model.Chunk{}, false, err
	}
	return c, true, nil
}

// GetFile returns every chunk belonging to path, ordered by start line.
func (s *Store) GetFile(ctx context.Context, path string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, file_path, chunk_type, name, start_line, end_line, content, language
		FROM chunks WHERE file_path = ? ORDER BY start_line
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Stats is a snapshot of store-wide counters, used by the CLI's status
// command.
type Stats struct {
	ChunkCount int
	FileCount  int
	Dimensions int
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	st.Dimensions = s.dimensions
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return st, err
	}
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT file_path) FROM chunks`).Scan(&st.FileCount)
	return st, err
}

// AllChunkIDs returns every chunk_id in the store.
func (s *Store) AllChunkIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllChunkFilePaths returns the file_path of every indexed chunk, keyed
// by chunk_id, used by analyze.Similar's scan mode to group candidate
// neighbors by repo/path without a GetChunk round trip per chunk.
func (s *Store) AllChunkFilePaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, file_path FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: all chunk file paths: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, err
		}
		out[id] = path
	}
	return out, rows.Err()
}

// AllEmbeddings returns every stored (chunk_id, vector) pair, used by
// analyze.Similar's scan mode to build a transient in-memory ANN index
// over the whole corpus instead of one query at a time.
func (s *Store) AllEmbeddings(ctx context.Context) ([]model.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, embedding FROM chunks_vec`)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: all embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.Embedding
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		out = append(out, model.Embedding{ChunkID: id, Vector: deserializeFloat32(blob)})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (model.Chunk, error) {
	return scanChunkRows(row)
}

func scanChunkRows(row rowScanner) (model.Chunk, error) {
	var c model.Chunk
	var chunkType string
	if err := row.Scan(&c.ID, &c.FilePath, &chunkType, &c.Name, &c.StartLine, &c.EndLine, &c.Content, &c.Language); err != nil {
		return model.Chunk{}, err
	}
	c.ChunkType = model.ChunkType(chunkType)
	return c, nil
}
