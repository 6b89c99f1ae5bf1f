package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scout/internal/scouterr"
	"scout/internal/workspace"
)

// newTestWorkspace attaches a fresh root through the registry so the
// initial index runs exactly as the add_workspace tool would drive it.
func newTestWorkspace(t *testing.T, files map[string]string) (*workspace.Workspace, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	reg := workspace.NewRegistry(workspace.Config{
		DBPath: filepath.Join(t.TempDir(), "index.db"),
	})
	t.Cleanup(reg.CloseAll)

	_, err := ExecuteAddWorkspace(reg, AddWorkspaceInput{Path: root})
	require.NoError(t, err)
	ws, err := reg.Active()
	require.NoError(t, err)
	return ws, root
}

func TestAddWorkspaceIndexesOnFirstAttach(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n"), 0o644))

	reg := workspace.NewRegistry(workspace.Config{
		DBPath: filepath.Join(t.TempDir(), "index.db"),
	})
	t.Cleanup(reg.CloseAll)

	out, err := ExecuteAddWorkspace(reg, AddWorkspaceInput{Path: root})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Files)
	assert.Equal(t, 2, out.Indexed)

	ws, err := reg.Active()
	require.NoError(t, err)
	stats, err := ExecuteStats(ws, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)

	// Re-attach reuses the live workspace and skips the index run.
	out2, err := ExecuteAddWorkspace(reg, AddWorkspaceInput{Path: root})
	require.NoError(t, err)
	assert.Zero(t, out2.Indexed)
	assert.Equal(t, 2, out2.Files)
}

func TestSearchToolHasMore(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 30; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = fmt.Sprintf("the keyword appears in file %d\n", i)
	}
	ws, _ := newTestWorkspace(t, files)

	out, err := ExecuteSearch(context.Background(), ws, SearchInput{Query: "keyword", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, out.Results, 10)
	assert.Equal(t, 10, out.Total)
	assert.True(t, out.HasMore)
	assert.Equal(t, "exact-symbol", out.Intent)

	for _, r := range out.Results {
		assert.Equal(t, round2(r.Score), r.Score, "scores are rounded for the wire")
	}
}

func TestGetToolMarkers(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"src/app.go": "package app\n\nfunc one() {}\n\nfunc two() {}\n",
	})

	out, err := ExecuteGet(ws, GetInput{Path: "src/app.go", StartLine: 3, EndLine: 3})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Content, "--- BEGIN FILE CONTENT: src/app.go ---\n"))
	assert.True(t, strings.HasSuffix(out.Content, "\n--- END FILE CONTENT: src/app.go ---"))
	assert.Contains(t, out.Content, "func one() {}")
	assert.NotContains(t, out.Content, "func two")
	assert.Equal(t, 3, out.StartLine)
	assert.Equal(t, 6, out.TotalLines)
}

func TestGetToolRejectsEscapes(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{"ok.txt": "fine\n"})

	_, err := ExecuteGet(ws, GetInput{Path: "../outside.txt"})
	assert.Equal(t, scouterr.InvalidPath, scouterr.KindOf(err))

	_, err = ExecuteGet(ws, GetInput{Path: ".env"})
	assert.Equal(t, scouterr.InvalidPath, scouterr.KindOf(err))
}

func TestContextToolMarksTargetLine(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"f.txt": "l1\nl2\nl3\nl4\nl5\nl6\nl7\n",
	})

	out, err := ExecuteContext(ws, ContextInput{Path: "f.txt", Line: 4, ContextLines: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, out.StartLine)
	assert.Equal(t, 5, out.EndLine)
	assert.Contains(t, out.Content, ">    4 | l4")
	assert.Contains(t, out.Content, "     3 | l3")

	_, err = ExecuteContext(ws, ContextInput{Path: "f.txt", Line: 99})
	assert.Equal(t, scouterr.InvalidPath, scouterr.KindOf(err))
}

func TestTocMarkdownHeadings(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"README.md": "# Title\n\nintro\n\n## Usage\n\n### Flags\n\n#### Deep\n\n#not a heading\n",
	})

	out, err := ExecuteToc(ws, TocInput{Path: "README.md"})
	require.NoError(t, err)
	require.Len(t, out.Entries, 3, "default depth stops at level 3")
	assert.Equal(t, TocEntry{Title: "Title", Kind: "heading", Level: 1, Line: 1}, out.Entries[0])
	assert.Equal(t, "Usage", out.Entries[1].Title)
	assert.Equal(t, "Flags", out.Entries[2].Title)
}

func TestTocSourceFileFallsBackToSymbols(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"m.go": "package m\n\nfunc Alpha() {}\n\nfunc Beta() {}\n",
	})

	out, err := ExecuteToc(ws, TocInput{Path: "m.go"})
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	assert.Equal(t, "Alpha", out.Entries[0].Title)
	assert.Equal(t, "function", out.Entries[0].Kind)
}

func TestOutlineTool(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"svc.go": "package svc\n\ntype Client struct{}\n\nfunc (c *Client) Do() error { return nil }\n",
	})

	out, err := ExecuteOutline(ws, OutlineInput{Path: "svc.go"})
	require.NoError(t, err)
	assert.Equal(t, "go", out.Language)
	require.Len(t, out.Symbols, 2)
	assert.Equal(t, "Client", out.Symbols[0].Name)
	assert.Equal(t, "Do", out.Symbols[1].Name)
	assert.Equal(t, "method", out.Symbols[1].Kind)
}

func TestRefsToolClassifiesOccurrences(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"def.go": "package def\n\nfunc Fetch() {}\n",
		"use.go": "package def\n\nfunc caller() { Fetch() }\n",
	})

	out, err := ExecuteRefs(ws, RefsInput{Symbol: "Fetch"})
	require.NoError(t, err)
	require.Len(t, out.Refs, 2)

	kinds := map[string]string{}
	for _, r := range out.Refs {
		kinds[r.Path] = r.Kind
	}
	assert.Equal(t, "definition", kinds["def.go"])
	assert.Equal(t, "usage", kinds["use.go"])
	assert.False(t, out.HasMore)
}

func TestRefsToolAfterDeletion(t *testing.T) {
	ws, root := newTestWorkspace(t, map[string]string{
		"keep.go": "package keep\n",
		"gone.go": "package keep\n\nfunc Doomed() {}\n",
	})

	out, err := ExecuteRefs(ws, RefsInput{Symbol: "Doomed"})
	require.NoError(t, err)
	require.Len(t, out.Refs, 1)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))
	idx, err := ExecuteIndex(ws, IndexInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Deleted)

	out, err = ExecuteRefs(ws, RefsInput{Symbol: "Doomed"})
	require.NoError(t, err)
	assert.Empty(t, out.Refs)
	assert.Zero(t, out.Total)
}

func TestStatsDetailed(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"big.txt":   strings.Repeat("data ", 100),
		"small.txt": "tiny",
	})

	out, err := ExecuteStats(ws, StatsInput{Detailed: true})
	require.NoError(t, err)
	assert.NotEmpty(t, out.DBPath)
	assert.Positive(t, out.DBBytes)
	require.NotEmpty(t, out.LargestFiles)
	assert.Equal(t, "big.txt", out.LargestFiles[0].Path)
}

func TestRelatedTool(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"a.go": "package p\n\nfunc Shared() {}\n",
		"b.go": "package p\n\nfunc Shared() {}\n",
		"c.go": "package p\n\nfunc Lonely() {}\n",
	})

	out, err := ExecuteRelated(ws, RelatedInput{Path: "a.go"})
	require.NoError(t, err)
	require.Len(t, out.Related, 1)
	assert.Equal(t, "b.go", out.Related[0].Path)
	assert.Equal(t, 1, out.Related[0].SharedSymbols)
}

func TestDiffTool(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"v1.txt": "alpha\nbeta\ngamma\ndelta\n",
		"v2.txt": "alpha\nbeta2\ngamma\ndelta\nepsilon\n",
	})

	out, err := ExecuteDiff(ws, DiffInput{File1: "v1.txt", File2: "v2.txt"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Hunks)
	assert.Equal(t, 2, out.Stats.Additions)
	assert.Equal(t, 1, out.Stats.Deletions)
	assert.Equal(t, 1, out.Stats.Changes)

	joined := ""
	for _, h := range out.Hunks {
		joined += h.Content + "\n"
	}
	assert.Contains(t, joined, "-beta")
	assert.Contains(t, joined, "+beta2")
	assert.Contains(t, joined, "+epsilon")
}

func TestComputeDiffIdenticalInputs(t *testing.T) {
	lines := []string{"a", "b", "c"}
	hunks, stats := computeDiff(lines, lines, 3)
	assert.Empty(t, hunks)
	assert.Zero(t, stats.Additions)
	assert.Zero(t, stats.Deletions)
}

func TestLCS(t *testing.T) {
	got := lcs([]string{"a", "b", "c", "d"}, []string{"a", "x", "c", "d"})
	assert.Equal(t, [][2]int{{0, 0}, {2, 2}, {3, 3}}, got)

	assert.Nil(t, lcs(nil, []string{"a"}))
	assert.Nil(t, lcs([]string{"a"}, nil))
}

func TestTruncate(t *testing.T) {
	short := "fits"
	assert.Equal(t, short, Truncate(short, 100))

	long := strings.Repeat("line of payload text\n", 100)
	out := Truncate(long, 500)
	assert.LessOrEqual(t, len(out), 500)
	assert.True(t, strings.HasSuffix(out, truncationNotice))
	// The cut lands after a complete line.
	body := strings.TrimSuffix(out, truncationNotice)
	assert.True(t, strings.HasSuffix(body, "line of payload text"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0, defaultLimit, maxLimit))
	assert.Equal(t, defaultLimit, clampLimit(-5, defaultLimit, maxLimit))
	assert.Equal(t, 7, clampLimit(7, defaultLimit, maxLimit))
	assert.Equal(t, maxLimit, clampLimit(1000, defaultLimit, maxLimit))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.12, round2(0.1234))
	assert.Equal(t, 0.13, round2(0.125))
	assert.Equal(t, 1.0, round2(0.999))
}

func TestRefsToolCountsEveryOccurrenceOnALine(t *testing.T) {
	ws, _ := newTestWorkspace(t, map[string]string{
		"chain.go": "package chain\n\nfunc caller() { a := Fetch(); b := Fetch(); _ = a; _ = b }\n",
	})

	out, err := ExecuteRefs(ws, RefsInput{Symbol: "Fetch"})
	require.NoError(t, err)
	require.Len(t, out.Refs, 2)
	assert.Equal(t, out.Refs[0].Line, out.Refs[1].Line)
	assert.Equal(t, 2, out.Total)
	assert.False(t, out.HasMore)
}
