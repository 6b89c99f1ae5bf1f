package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/scouterr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func record(path, content, hash string) FileRecord {
	return FileRecord{
		Path:      path,
		Filename:  filepath.Base(path),
		Content:   content,
		Hash:      hash,
		Language:  "go",
		SizeBytes: int64(len(content)),
	}
}

func TestApplyFilePreservesID(t *testing.T) {
	st := openTestStore(t)

	id1, err := st.ApplyFile(record("main.go", "package main", "h1"), nil)
	require.NoError(t, err)

	// Same path, new content: the id must not change.
	id2, err := st.ApplyFile(record("main.go", "package main // v2", "h2"), nil)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	hash, err := st.GetFileHash("main.go")
	require.NoError(t, err)
	assert.Equal(t, "h2", hash)

	// A different path gets a different id.
	id3, err := st.ApplyFile(record("other.go", "package other", "h3"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestApplyFileReplacesSymbols(t *testing.T) {
	st := openTestStore(t)

	id, err := st.ApplyFile(record("a.go", "func Old() {}", "h1"), []Symbol{
		{Name: "Old", Kind: "function", StartLine: 1, EndLine: 1},
	})
	require.NoError(t, err)

	_, err = st.ApplyFile(record("a.go", "func New() {}", "h2"), []Symbol{
		{Name: "New", Kind: "function", StartLine: 1, EndLine: 1},
	})
	require.NoError(t, err)

	syms, err := st.SymbolsForFile(id)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "New", syms[0].Name)
}

func TestFTSSearch(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ApplyFile(record("auth.go", "func authenticate(user string) error { return nil }", "h1"), nil)
	require.NoError(t, err)
	_, err = st.ApplyFile(record("main.go", "func main() {}", "h2"), nil)
	require.NoError(t, err)

	hits, err := st.FTSSearch("authenticate*", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "auth.go", hits[0].Path)
	assert.Negative(t, hits[0].Score)
}

func TestFTSSearchDropsDeletedFiles(t *testing.T) {
	st := openTestStore(t)

	id, err := st.ApplyFile(record("gone.go", "func vanish() {}", "h1"), nil)
	require.NoError(t, err)

	require.NoError(t, st.DeleteFiles([]int64{id}))

	hits, err := st.FTSSearch("vanish*", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	syms, err := st.SymbolsForFile(id)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestGetFileByPath(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ApplyFile(record("pkg/util.go", "package pkg", "h1"), nil)
	require.NoError(t, err)

	f, err := st.GetFileByPath("pkg/util.go")
	require.NoError(t, err)
	assert.Equal(t, "util.go", f.Filename)
	assert.Equal(t, "package pkg", f.Content)
	assert.False(t, f.IndexedAt.IsZero())

	_, err = st.GetFileByPath("missing.go")
	assert.Equal(t, scouterr.NotFound, scouterr.KindOf(err))
}

func TestRelatedFiles(t *testing.T) {
	st := openTestStore(t)

	a, err := st.ApplyFile(record("a.go", "...", "h1"), []Symbol{
		{Name: "Parse", Kind: "function", StartLine: 1, EndLine: 2},
		{Name: "Render", Kind: "function", StartLine: 3, EndLine: 4},
	})
	require.NoError(t, err)
	_, err = st.ApplyFile(record("b.go", "...", "h2"), []Symbol{
		{Name: "Parse", Kind: "function", StartLine: 1, EndLine: 2},
		{Name: "Render", Kind: "function", StartLine: 3, EndLine: 4},
	})
	require.NoError(t, err)
	_, err = st.ApplyFile(record("c.go", "...", "h3"), []Symbol{
		{Name: "Parse", Kind: "function", StartLine: 1, EndLine: 2},
	})
	require.NoError(t, err)

	related, err := st.RelatedFiles(a, 1, 10)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, "b.go", related[0].Path)
	assert.Equal(t, 2, related[0].SharedSymbols)
	assert.Equal(t, "c.go", related[1].Path)
	assert.Equal(t, 1, related[1].SharedSymbols)

	// Raising the floor filters the weaker overlap.
	related, err = st.RelatedFiles(a, 2, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "b.go", related[0].Path)
}

func TestListPathsAndFilesByIDs(t *testing.T) {
	st := openTestStore(t)

	id1, err := st.ApplyFile(record("one.go", "one", "h1"), nil)
	require.NoError(t, err)
	id2, err := st.ApplyFile(record("two.go", "two", "h2"), nil)
	require.NoError(t, err)

	paths, err := st.ListPaths()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"one.go": id1, "two.go": id2}, paths)

	files, err := st.FilesByIDs([]int64{id2})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "two.go", files[0].Path)

	files, err = st.FilesByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTrigramPersistence(t *testing.T) {
	st := openTestStore(t)

	rows := []TrigramRow{
		{Key: []byte("abc"), Postings: []byte{1, 2, 3}},
		{Key: []byte("bcd"), Postings: []byte{4, 5}},
	}
	require.NoError(t, st.ReplaceTrigrams(rows))

	loaded := make(map[string][]byte)
	require.NoError(t, st.LoadTrigrams(func(key, blob []byte) error {
		loaded[string(key)] = append([]byte(nil), blob...)
		return nil
	}))
	assert.Equal(t, []byte{1, 2, 3}, loaded["abc"])
	assert.Equal(t, []byte{4, 5}, loaded["bcd"])

	// Replace swaps the whole set.
	require.NoError(t, st.ReplaceTrigrams([]TrigramRow{{Key: []byte("xyz"), Postings: []byte{9}}}))
	count := 0
	require.NoError(t, st.LoadTrigrams(func(_, _ []byte) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestStats(t *testing.T) {
	st := openTestStore(t)

	_, err := st.ApplyFile(record("a.go", "alpha", "h1"), []Symbol{
		{Name: "A", Kind: "function", StartLine: 1, EndLine: 1},
	})
	require.NoError(t, err)
	b := record("b.py", "beta content", "h2")
	b.Language = "python"
	_, err = st.ApplyFile(b, nil)
	require.NoError(t, err)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, int64(len("alpha")+len("beta content")), stats.TotalBytes)
	assert.Equal(t, 1, stats.SymbolCount)
	assert.Equal(t, map[string]int{"go": 1, "python": 1}, stats.Languages)
	assert.False(t, stats.LastIndexedAt.IsZero())
}

func TestSchemaMigrationDropsOldVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	st, err := Open(dbPath)
	require.NoError(t, err)
	_, err = st.ApplyFile(record("keep.go", "content", "h1"), nil)
	require.NoError(t, err)

	// Simulate a stale schema version.
	_, err = st.db.Exec("UPDATE schema_info SET version = 1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := Open(dbPath)
	require.NoError(t, err)
	defer st2.Close()

	paths, err := st2.ListPaths()
	require.NoError(t, err)
	assert.Empty(t, paths, "stale schema is rebuilt from scratch")
}

func TestHintFTS5NamesBuildTag(t *testing.T) {
	hinted := hintFTS5(errors.New("no such module: fts5"))
	assert.Contains(t, hinted.Error(), "sqlite_fts5")

	plain := errors.New("disk I/O error")
	assert.Equal(t, plain, hintFTS5(plain))
}
