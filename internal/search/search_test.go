package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/scouterr"
	"scout/internal/store"
	"scout/internal/trigram"
)

func newTestService(t *testing.T) (*Service, *store.Store, *trigram.Index) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tg := trigram.New()
	return New(st, tg, DefaultConfig()), st, tg
}

func addFile(t *testing.T, st *store.Store, tg *trigram.Index, path, content string) {
	t.Helper()
	id, err := st.ApplyFile(store.FileRecord{
		Path:      path,
		Filename:  filepath.Base(path),
		Content:   content,
		Hash:      path,
		Language:  "go",
		SizeBytes: int64(len(content)),
	}, nil)
	require.NoError(t, err)
	tg.Add(uint32(id), []byte(content))
}

func TestSearchSingleMatch(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "a.txt", "nothing of interest here\n")
	addFile(t, st, tg, "b.txt", "the needle is hidden on this line\n")
	addFile(t, st, tg, "c.txt", "still nothing relevant\n")

	results, err := svc.Search(context.Background(), "needle", 10, ModeCombined)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.txt", results[0].Path)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Contains(t, results[0].Snippet, "needle")
}

func TestSearchLimit(t *testing.T) {
	svc, st, tg := newTestService(t)
	for i := 0; i < 100; i++ {
		addFile(t, st, tg, fmt.Sprintf("src/file%03d.rs", i),
			fmt.Sprintf("fn item%d() { body(); }\n", i))
	}

	results, err := svc.Search(context.Background(), "fn", 5, ModeCombined)
	require.NoError(t, err)
	assert.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		ok := results[i-1].Score > results[i].Score ||
			(results[i-1].Score == results[i].Score && results[i-1].Path < results[i].Path)
		assert.True(t, ok, "results ordered by score desc, path asc")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "a.go", "package a\n")

	results, err := svc.Search(context.Background(), "   ", 10, ModeCombined)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRegexQuery(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "handlers.go", "func handleLogin(w http.ResponseWriter) {}\nfunc handleLogout(w http.ResponseWriter) {}\n")
	addFile(t, st, tg, "other.go", "func parse() {}\n")

	results, err := svc.Search(context.Background(), "handle(Login|Logout)", 10, ModeCombined)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "handlers.go", results[0].Path)
	assert.Equal(t, "gt", results[0].Sources, "regex routes to scan with the trigram prefilter")
}

func TestSearchModeRankedOnly(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "doc.md", "error handling strategies for servers\n")

	results, err := svc.Search(context.Background(), "error handling", 10, ModeRankedOnly)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "f", results[0].Sources)
}

func TestSearchModeScanOnly(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "a.go", "var token = 1\n")

	// Short tokens normally skip the scan backend; scan-only forces it.
	results, err := svc.Search(context.Background(), "var", 10, ModeScanOnly)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.NotContains(t, results[0].Sources, "f")
}

func TestSearchCanceledContext(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "a.go", "package a\n")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := svc.Search(ctx, "package", 10, ModeCombined)
	require.Error(t, err)
	assert.Equal(t, scouterr.BackendTimeout, scouterr.KindOf(err))
}

func TestSearchAgreementOutranksSingleBackend(t *testing.T) {
	svc, st, tg := newTestService(t)
	// Both backends find "resolver" in r.go; only FTS finds the stemmed
	// mention in doc.go.
	addFile(t, st, tg, "r.go", "func resolver() {}\ntype resolver struct{}\n")
	addFile(t, st, tg, "doc.go", "// resolvers are configured elsewhere\n")

	results, err := svc.Search(context.Background(), "resolver", 10, ModeCombined)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "r.go", results[0].Path)
}

func TestSearchRankedOnlyRegexFallsBackToLiteral(t *testing.T) {
	svc, st, tg := newTestService(t)
	addFile(t, st, tg, "handlers.go", "func handleLogin(w http.ResponseWriter) {}\nfunc handleLogout(w http.ResponseWriter) {}\n")
	addFile(t, st, tg, "other.go", "func parse() {}\n")

	// The scan backend is off, so the regex is ranked by its longest
	// literal fragment instead of returning nothing.
	results, err := svc.Search(context.Background(), "handle(Login|Logout)", 10, ModeRankedOnly)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "handlers.go", results[0].Path)
	assert.Equal(t, "f", results[0].Sources)
	assert.Greater(t, results[0].Score, 0.0)
}
