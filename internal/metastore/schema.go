// Package metastore persists the structured relations the vector store
// doesn't serve well — coupling edges, import edges, symbol
// definitions, and scalar metadata (spec.md §4.4) — in index.db,
// grounded on project-cortex's internal/storage schema and writer
// split, generalized to Bobbin's smaller relation set.
package metastore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createCouplingTable = `
CREATE TABLE IF NOT EXISTS coupling_edges (
	file_a TEXT NOT NULL,
	file_b TEXT NOT NULL,
	co_changes INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (file_a, file_b)
)`

const createImportTable = `
CREATE TABLE IF NOT EXISTS import_edges (
	edge_id TEXT PRIMARY KEY,
	file_a TEXT NOT NULL,
	import_statement TEXT NOT NULL,
	file_b TEXT NOT NULL DEFAULT '',
	resolved INTEGER NOT NULL DEFAULT 0,
	UNIQUE(file_a, import_statement)
)`

const createSymbolTable = `
CREATE TABLE IF NOT EXISTS symbols (
	symbol_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	chunk_type TEXT NOT NULL,
	file_path TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	signature TEXT NOT NULL DEFAULT ''
)`

const createCommitsTable = `
CREATE TABLE IF NOT EXISTS commits (
	sha TEXT PRIMARY KEY,
	author TEXT NOT NULL,
	ts TEXT NOT NULL,
	message TEXT NOT NULL,
	touched_files INTEGER NOT NULL DEFAULT 0
)`

const createFileChurnTable = `
CREATE TABLE IF NOT EXISTS file_commit_counts (
	file_path TEXT PRIMARY KEY,
	commit_count INTEGER NOT NULL DEFAULT 0
)`

const createMetaTable = `
CREATE TABLE IF NOT EXISTS store_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// createIndexedFilesTable tracks which files have had their metadata
// half of a per-file write batch committed (spec.md §9: "commit [the
// vector/FTS changes], then commit the matching metadata edges"). The
// engine's startup sweep uses this to recognize files left in the
// vector+FTS store by a crash between the two commits, even when the
// file legitimately has zero symbols or import edges of its own.
const createIndexedFilesTable = `
CREATE TABLE IF NOT EXISTS indexed_files (
	file_path TEXT PRIMARY KEY,
	indexed_at TEXT NOT NULL
)`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_coupling_file_a ON coupling_edges(file_a);
CREATE INDEX IF NOT EXISTS idx_coupling_file_b ON coupling_edges(file_b);
CREATE INDEX IF NOT EXISTS idx_import_file_a ON import_edges(file_a);
CREATE INDEX IF NOT EXISTS idx_import_file_b ON import_edges(file_b);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_file_path ON symbols(file_path);
`

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("metastore: begin schema tx: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		createCouplingTable, createImportTable, createSymbolTable,
		createCommitsTable, createFileChurnTable, createMetaTable,
		createIndexedFilesTable, createIndexes,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("metastore: create schema: %w", err)
		}
	}
	return tx.Commit()
}
