// Package vectorstore persists chunks with both a vector index and a
// full-text index and serves the three query shapes spec.md §4.3
// names, grounded on project-cortex's internal/storage package
// (sqlite-vec for ANN, FTS5 for BM25) with the file-reader/file-writer
// split collapsed into a single store type sized for Bobbin's
// chunk-only schema.
package vectorstore

import (
	"database/sql"
	"fmt"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlitevec.Auto()
}

const schemaVersion = "1"

const createChunksTable = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	chunk_type TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	content TEXT NOT NULL,
	language TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

const createChunksIndexes = `
CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
CREATE INDEX IF NOT EXISTS idx_chunks_chunk_type ON chunks(chunk_type);
`

const createFTSTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	chunk_id UNINDEXED,
	name,
	content,
	tokenize = 'unicode61 remove_diacritics 0'
)`

const createMetaTable = `
CREATE TABLE IF NOT EXISTS store_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

func vectorTableDDL(dimensions int) string {
	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
	chunk_id TEXT PRIMARY KEY,
	embedding float[%d]
)`, dimensions)
}

// createSchema builds all tables for a fresh chunks.db. Virtual tables
// (fts5, vec0) cannot be created inside the same transaction as the
// base tables on some SQLite builds, so they're created
// immediately after, outside the transaction, matching the teacher's
// CreateSchema ordering.
func createSchema(db *sql.DB, dimensions int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("vectorstore: begin schema tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{createChunksTable, createChunksIndexes, createMetaTable} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("vectorstore: create schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore: commit schema tx: %w", err)
	}

	if _, err := db.Exec(createFTSTable); err != nil {
		return fmt.Errorf("vectorstore: create fts table: %w", err)
	}
	if _, err := db.Exec(vectorTableDDL(dimensions)); err != nil {
		return fmt.Errorf("vectorstore: create vector table: %w", err)
	}

	return setMetaTx(db, "schema_version", schemaVersion)
}

func setMetaTx(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO store_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
