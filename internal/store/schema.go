package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// schemaVersion is bumped whenever the layout changes. The index is
// disposable (the source tree is the truth), so a version mismatch drops
// everything and recreates.
const schemaVersion = 3

const ddl = `
CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    path       TEXT NOT NULL UNIQUE,
    filename   TEXT NOT NULL,
    content    TEXT NOT NULL,
    hash       TEXT NOT NULL,
    language   TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    indexed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
    path, filename, content,
    content='files',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS files_ai AFTER INSERT ON files BEGIN
    INSERT INTO files_fts(rowid, path, filename, content)
    VALUES (new.id, new.path, new.filename, new.content);
END;

CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, path, filename, content)
    VALUES ('delete', old.id, old.path, old.filename, old.content);
END;

CREATE TRIGGER IF NOT EXISTS files_au AFTER UPDATE ON files BEGIN
    INSERT INTO files_fts(files_fts, rowid, path, filename, content)
    VALUES ('delete', old.id, old.path, old.filename, old.content);
    INSERT INTO files_fts(rowid, path, filename, content)
    VALUES (new.id, new.path, new.filename, new.content);
END;

CREATE TABLE IF NOT EXISTS trigrams (
    trigram  BLOB PRIMARY KEY,
    file_ids BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS symbols (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL,
    end_line   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS symbols_name_idx ON symbols(name);
CREATE INDEX IF NOT EXISTS symbols_file_idx ON symbols(file_id);
`

// migrate brings the database to the current schema version. An older or
// newer layout is dropped wholesale and rebuilt from the DDL.
func migrate(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_info LIMIT 1").Scan(&version)
	switch {
	case err == nil && version == schemaVersion:
		return nil
	case err == nil || err == sql.ErrNoRows:
		if err := dropAll(db); err != nil {
			return fmt.Errorf("drop stale schema: %w", err)
		}
	default:
		// schema_info missing entirely: fresh database.
	}

	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", hintFTS5(err))
	}
	if _, err := db.Exec("DELETE FROM schema_info"); err != nil {
		return err
	}
	_, err = db.Exec("INSERT INTO schema_info (version) VALUES (?)", schemaVersion)
	return err
}

// hintFTS5 decorates the failure seen when the binary was built without
// FTS5 support. go-sqlite3 only compiles the fts5 module in under the
// sqlite_fts5 build tag, so a plain `go build` produces a store that
// cannot create its schema.
func hintFTS5(err error) error {
	if strings.Contains(err.Error(), "no such module: fts5") {
		return fmt.Errorf("%w: full-text search requires sqlite FTS5; rebuild with `go build -tags sqlite_fts5`", err)
	}
	return err
}

func dropAll(db *sql.DB) error {
	stmts := []string{
		"DROP TRIGGER IF EXISTS files_ai",
		"DROP TRIGGER IF EXISTS files_ad",
		"DROP TRIGGER IF EXISTS files_au",
		"DROP TABLE IF EXISTS files_fts",
		"DROP TABLE IF EXISTS symbols",
		"DROP TABLE IF EXISTS trigrams",
		"DROP TABLE IF EXISTS files",
		"DROP TABLE IF EXISTS schema_info",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
