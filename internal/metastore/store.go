package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobbin-dev/bobbin/internal/model"
)

// Store is the metadata store of spec.md §4.4, backed by index.db.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the index.db at path, creating the schema
// on first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("metastore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// UpsertCoupling increments the co-change counter for the unordered
// pair (fileA, fileB), normalizing pair order at the call site via
// model.NewCouplingPair so file_a < file_b always holds (spec.md §3).
func (s *Store) UpsertCoupling(ctx context.Context, fileA, fileB string, delta int) error {
	a, b := model.NewCouplingPair(fileA, fileB)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupling_edges (file_a, file_b, co_changes) VALUES (?, ?, ?)
		ON CONFLICT(file_a, file_b) DO UPDATE SET co_changes = co_changes + excluded.co_changes
	`, a, b, delta)
	return err
}

// UpsertImport records an import edge, overwriting any prior resolution
// state for the same (file_a, import_statement) pair — a file can be
// re-chunked and its import list re-derived without leaving stale rows.
func (s *Store) UpsertImport(ctx context.Context, edge model.ImportEdge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_edges (edge_id, file_a, import_statement, file_b, resolved)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_a, import_statement) DO UPDATE SET
			file_b = excluded.file_b, resolved = excluded.resolved
	`, uuid.NewString(), edge.FileA, edge.ImportStatement, edge.FileB, edge.Resolved)
	return err
}

// UpsertSymbol records (or replaces) a symbol definition.
func (s *Store) UpsertSymbol(ctx context.Context, sym model.Symbol) error {
	id := sym.FilePath + "::" + sym.Name
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO symbols (symbol_id, name, chunk_type, file_path, start_line, end_line, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET
			chunk_type = excluded.chunk_type, start_line = excluded.start_line,
			end_line = excluded.end_line, signature = excluded.signature
	`, id, sym.Name, string(sym.ChunkType), sym.FilePath, sym.StartLine, sym.EndLine, sym.Signature)
	return err
}

// DeleteFile removes every coupling/import/symbol row referencing path
// as one side of the relation, mirroring vectorstore's DeleteFile so
// the two stores can be kept in the same logical transaction boundary
// by their caller (the engine).
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM coupling_edges WHERE file_a = ? OR file_b = ?`, []any{path, path}},
		{`DELETE FROM import_edges WHERE file_a = ? OR file_b = ?`, []any{path, path}},
		{`DELETE FROM symbols WHERE file_path = ?`, []any{path}},
		{`DELETE FROM file_commit_counts WHERE file_path = ?`, []any{path}},
		{`DELETE FROM indexed_files WHERE file_path = ?`, []any{path}},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("metastore: delete file %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// CouplingPartner is one entry of get_coupling's result (spec.md §4.4).
type CouplingPartner struct {
	FilePath  string
	CoChanges int
	Score     float64
}

// GetCoupling returns the top-k coupling partners of path, ordered by
// score = co_changes / max(commits_touching(a), commits_touching(b)).
func (s *Store) GetCoupling(ctx context.Context, path string, k int) ([]CouplingPartner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN file_a = ? THEN file_b ELSE file_a END AS partner, co_changes
		FROM coupling_edges WHERE file_a = ? OR file_b = ?
	`, path, path, path)
	if err != nil {
		return nil, fmt.Errorf("metastore: get_coupling: %w", err)
	}
	defer rows.Close()

	selfCommits, err := s.commitsTouching(ctx, path)
	if err != nil {
		return nil, err
	}

	var partners []CouplingPartner
	for rows.Next() {
		var p CouplingPartner
		if err := rows.Scan(&p.FilePath, &p.CoChanges); err != nil {
			return nil, err
		}
		partnerCommits, err := s.commitsTouching(ctx, p.FilePath)
		if err != nil {
			return nil, err
		}
		denom := selfCommits
		if partnerCommits > denom {
			denom = partnerCommits
		}
		if denom > 0 {
			p.Score = float64(p.CoChanges) / float64(denom)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCouplingByScoreDesc(partners)
	if k > 0 && len(partners) > k {
		partners = partners[:k]
	}
	return partners, nil
}

func (s *Store) commitsTouching(ctx context.Context, path string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT commit_count FROM file_commit_counts WHERE file_path = ?`, path).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func sortCouplingByScoreDesc(partners []CouplingPartner) {
	for i := 1; i < len(partners); i++ {
		for j := i; j > 0 && partners[j].Score > partners[j-1].Score; j-- {
			partners[j], partners[j-1] = partners[j-1], partners[j]
		}
	}
}

// GetDependencies returns the files path imports (resolved edges only).
func (s *Store) GetDependencies(ctx context.Context, path string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT file_b FROM import_edges WHERE file_a = ? AND resolved = 1`, path)
}

// GetDependents returns the files that import path (resolved edges only).
func (s *Store) GetDependents(ctx context.Context, path string) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT file_a FROM import_edges WHERE file_b = ? AND resolved = 1`, path)
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// FindSymbol locates the defining chunk location for name, used by
// find_refs (spec.md §4.8).
func (s *Store) FindSymbol(ctx context.Context, name string) (model.Symbol, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, chunk_type, file_path, start_line, end_line, signature
		FROM symbols WHERE name = ? LIMIT 1
	`, name)
	var sym model.Symbol
	var chunkType string
	err := row.Scan(&sym.Name, &chunkType, &sym.FilePath, &sym.StartLine, &sym.EndLine, &sym.Signature)
	if err == sql.ErrNoRows {
		return model.Symbol{}, false, nil
	}
	if err != nil {
		return model.Symbol{}, false, err
	}
	sym.ChunkType = model.ChunkType(chunkType)
	return sym, true, nil
}

// SetMeta sets a scalar metadata key (e.g. embedding_model, last_indexed_commit).
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMeta retrieves a scalar metadata key, returning ok=false if unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return value, err == nil, err
}

// RecordFileCommitCount overwrites path's commit-touching count, used
// by the git analyzer after a churn pass.
func (s *Store) RecordFileCommitCount(ctx context.Context, path string, count int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_commit_counts (file_path, commit_count) VALUES (?, ?)
		ON CONFLICT(file_path) DO UPDATE SET commit_count = excluded.commit_count
	`, path, count)
	return err
}

// RecordCommit records a commit's metadata for walk_commits bookkeeping.
func (s *Store) RecordCommit(ctx context.Context, c model.CommitRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits (sha, author, ts, message, touched_files) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sha) DO NOTHING
	`, c.SHA, c.Author, c.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), c.Message, len(c.TouchedFiles))
	return err
}

// AllImportEdges returns every import edge, used by the dependency
// graph builder.
func (s *Store) AllImportEdges(ctx context.Context) ([]model.ImportEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_a, import_statement, file_b, resolved FROM import_edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []model.ImportEdge
	for rows.Next() {
		var e model.ImportEdge
		if err := rows.Scan(&e.FileA, &e.ImportStatement, &e.FileB, &e.Resolved); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AllSymbolFilePaths returns every distinct file_path present in the
// symbols table.
func (s *Store) AllSymbolFilePaths(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT DISTINCT file_path FROM symbols`)
}

// MarkFileIndexed records that path's metadata half of a per-file write
// batch has committed (spec.md §9 dual-store consistency), the marker
// the engine's startup sweep uses to recognize files a crash left
// half-written in the vector+FTS store.
func (s *Store) MarkFileIndexed(ctx context.Context, path string, indexedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexed_files (file_path, indexed_at) VALUES (?, ?)
		ON CONFLICT(file_path) DO UPDATE SET indexed_at = excluded.indexed_at
	`, path, indexedAt.UTC().Format(time.RFC3339))
	return err
}

// AllIndexedFilePaths returns every file_path marked as fully indexed.
func (s *Store) AllIndexedFilePaths(ctx context.Context) ([]string, error) {
	return queryStrings(ctx, s.db, `SELECT file_path FROM indexed_files`)
}
