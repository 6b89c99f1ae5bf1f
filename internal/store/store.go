// Package store owns the persistent index: file records, their FTS5
// projection, trigram postings, and extracted symbols, all in one SQLite
// database. The raw sqlite handle is single-owner, so all access goes
// through the database/sql pool with a bounded connection count; writers
// additionally serialize on a store-level mutex.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"scout/internal/scouterr"
)

// poolSize bounds the connection pool. Readers borrow connections
// concurrently; SQLite allows one writer at a time regardless.
const poolSize = 4

// BM25 column weights: path and filename tokens rank above body tokens.
const (
	weightPath     = 2.0
	weightFilename = 1.5
	weightContent  = 1.0
)

// Store is the SQLite-backed index store.
type Store struct {
	db   *sql.DB
	path string

	// wmu serializes writing transactions. Readers do not take it.
	wmu sync.Mutex
}

// Open creates or opens the database at dbPath and migrates the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, scouterr.Wrap(scouterr.StorageUnavailable, err, "open database %s", dbPath)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, scouterr.Wrap(scouterr.StorageUnavailable, err, "migrate schema %s", dbPath)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// GetFileHash returns the stored content hash for a path, or "" if the
// path is not indexed.
func (s *Store) GetFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// ApplyFile upserts a file record and replaces its symbols in a single
// transaction. The file ID is preserved across updates to the same path.
func (s *Store) ApplyFile(f FileRecord, syms []Symbol) (int64, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id)
	switch {
	case err == nil:
		_, err = tx.Exec(
			`UPDATE files SET filename = ?, content = ?, hash = ?, language = ?,
			 size_bytes = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			f.Filename, f.Content, f.Hash, f.Language, f.SizeBytes, id,
		)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec("DELETE FROM symbols WHERE file_id = ?", id); err != nil {
			return 0, err
		}
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, filename, content, hash, language, size_bytes) VALUES (?, ?, ?, ?, ?, ?)",
			f.Path, f.Filename, f.Content, f.Hash, f.Language, f.SizeBytes,
		)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	default:
		return 0, err
	}

	if len(syms) > 0 {
		stmt, err := tx.Prepare(
			"INSERT INTO symbols (file_id, name, kind, start_line, end_line) VALUES (?, ?, ?, ?, ?)",
		)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()
		for _, sym := range syms {
			if _, err := stmt.Exec(id, sym.Name, sym.Kind, sym.StartLine, sym.EndLine); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteFiles removes file rows (symbols cascade, FTS rows via trigger).
func (s *Store) DeleteFiles(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM files WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetFileByPath fetches a full file record, content included.
func (s *Store) GetFileByPath(path string) (FileRecord, error) {
	var f FileRecord
	err := s.db.QueryRow(
		"SELECT id, path, filename, content, hash, language, size_bytes, indexed_at FROM files WHERE path = ?",
		path,
	).Scan(&f.ID, &f.Path, &f.Filename, &f.Content, &f.Hash, &f.Language, &f.SizeBytes, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return f, scouterr.New(scouterr.NotFound, "path %q is not indexed", path)
	}
	return f, err
}

// FilesByIDs fetches records for the given ids, content included.
func (s *Store) FilesByIDs(ids []int64) ([]FileRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.Query(
		"SELECT id, path, content FROM files WHERE id IN ("+placeholders+")", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// AllFiles returns every record with its content, for unfiltered scans.
func (s *Store) AllFiles() ([]FileRecord, error) {
	rows, err := s.db.Query("SELECT id, path, content FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContentRows(rows)
}

func scanContentRows(rows *sql.Rows) ([]FileRecord, error) {
	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.Content); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListPaths returns path → id for every indexed file. The indexer diffs
// this against the walk to find deletions.
func (s *Store) ListPaths() (map[string]int64, error) {
	rows, err := s.db.Query("SELECT path, id FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]int64)
	for rows.Next() {
		var p string
		var id int64
		if err := rows.Scan(&p, &id); err != nil {
			return nil, err
		}
		paths[p] = id
	}
	return paths, rows.Err()
}

// FTSSearch runs a preprocessed FTS5 match query with weighted BM25
// ranking. Rows come back best-first (ascending raw score).
func (s *Store) FTSSearch(match string, limit int) ([]FTSRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT rowid, path, bm25(files_fts, %g, %g, %g) AS score
		 FROM files_fts WHERE files_fts MATCH ?
		 ORDER BY score LIMIT ?`,
		weightPath, weightFilename, weightContent,
	), match, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []FTSRow
	for rows.Next() {
		var h FTSRow
		if err := rows.Scan(&h.FileID, &h.Path, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SymbolsForFile returns a file's symbols in line order.
func (s *Store) SymbolsForFile(fileID int64) ([]Symbol, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, name, kind, start_line, end_line FROM symbols WHERE file_id = ? ORDER BY start_line",
		fileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var syms []Symbol
	for rows.Next() {
		var sym Symbol
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.StartLine, &sym.EndLine); err != nil {
			return nil, err
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// RelatedFiles ranks other files by the number of distinct symbol names
// they share with fileID. Ties break by path for determinism.
func (s *Store) RelatedFiles(fileID int64, minShared, limit int) ([]RelatedFile, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.path, COUNT(DISTINCT s2.name) AS shared
		 FROM symbols s1
		 JOIN symbols s2 ON s2.name = s1.name AND s2.file_id != s1.file_id
		 JOIN files f ON f.id = s2.file_id
		 WHERE s1.file_id = ?
		 GROUP BY s2.file_id
		 HAVING shared >= ?
		 ORDER BY shared DESC, f.path
		 LIMIT ?`,
		fileID, minShared, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var related []RelatedFile
	for rows.Next() {
		var r RelatedFile
		if err := rows.Scan(&r.FileID, &r.Path, &r.SharedSymbols); err != nil {
			return nil, err
		}
		related = append(related, r)
	}
	return related, rows.Err()
}

// TrigramRow is one persisted posting: a 3-byte key and its serialized
// bitmap of file ids.
type TrigramRow struct {
	Key      []byte
	Postings []byte
}

// ReplaceTrigrams atomically swaps the persisted postings for the given
// set. Called once at the end of an indexing run.
func (s *Store) ReplaceTrigrams(trigramRows []TrigramRow) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM trigrams"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO trigrams (trigram, file_ids) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range trigramRows {
		if _, err := stmt.Exec(row.Key, row.Postings); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadTrigrams streams every persisted posting to fn.
func (s *Store) LoadTrigrams(fn func(key, postings []byte) error) error {
	rows, err := s.db.Query("SELECT trigram, file_ids FROM trigrams")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return err
		}
		if err := fn(key, blob); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Stats summarizes the index.
func (s *Store) Stats() (Stats, error) {
	st := Stats{Languages: make(map[string]int)}

	err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files",
	).Scan(&st.FileCount, &st.TotalBytes)
	if err != nil {
		return st, err
	}
	err = s.db.QueryRow("SELECT indexed_at FROM files ORDER BY indexed_at DESC LIMIT 1").Scan(&st.LastIndexedAt)
	if err != nil && err != sql.ErrNoRows {
		return st, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&st.SymbolCount); err != nil {
		return st, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trigrams").Scan(&st.TrigramCount); err != nil {
		return st, err
	}

	rows, err := s.db.Query("SELECT language, COUNT(*) FROM files WHERE language != '' GROUP BY language")
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return st, err
		}
		st.Languages[lang] = n
	}
	return st, rows.Err()
}

// LargestFiles returns the n biggest indexed files, for detailed stats.
func (s *Store) LargestFiles(n int) ([]LargeFile, error) {
	rows, err := s.db.Query(
		"SELECT path, size_bytes FROM files ORDER BY size_bytes DESC, path LIMIT ?", n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []LargeFile
	for rows.Next() {
		var f LargeFile
		if err := rows.Scan(&f.Path, &f.SizeBytes); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
