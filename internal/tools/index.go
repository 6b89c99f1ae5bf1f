package tools

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"scout/internal/indexer"
	"scout/internal/scouterr"
	"scout/internal/security"
	"scout/internal/workspace"
)

// IndexInput triggers an indexing run.
type IndexInput struct {
	Force bool `json:"force,omitempty"`
}

// IndexOutput reports what the run did.
type IndexOutput struct {
	Scanned   int    `json:"scanned"`
	Indexed   int    `json:"indexed"`
	Unchanged int    `json:"unchanged"`
	Deleted   int    `json:"deleted"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}

// ExecuteIndex runs an incremental (or forced full) index pass.
func ExecuteIndex(ws *workspace.Workspace, in IndexInput) (*IndexOutput, error) {
	counts, err := ws.Indexer.Index(in.Force, func(p indexer.Progress) {
		if p.Indexed%100 == 0 {
			slog.Info("indexing", "processed", p.Processed, "total", p.Total, "indexed", p.Indexed)
		}
	})
	if err != nil {
		return nil, err
	}

	msg := "Index is up to date"
	if counts.Indexed > 0 || counts.Deleted > 0 {
		msg = fmt.Sprintf("Index updated: %d new/modified, %d deleted", counts.Indexed, counts.Deleted)
	}
	return &IndexOutput{
		Scanned:   counts.Scanned,
		Indexed:   counts.Indexed,
		Unchanged: counts.Unchanged,
		Deleted:   counts.Deleted,
		Skipped:   counts.Skipped,
		Message:   msg,
	}, nil
}

// AddWorkspaceInput attaches a workspace root.
type AddWorkspaceInput struct {
	Path string `json:"path"`
}

// AddWorkspaceOutput reports the attach result.
type AddWorkspaceOutput struct {
	Root    string `json:"root"`
	Files   int    `json:"files"`
	Indexed int    `json:"indexed"`
	Message string `json:"message"`
}

// ExecuteAddWorkspace validates and attaches a root, then runs an
// incremental index so the workspace is immediately queryable.
// Re-attaching an already live root skips the index run.
func ExecuteAddWorkspace(reg *workspace.Registry, in AddWorkspaceInput) (*AddWorkspaceOutput, error) {
	ws, created, err := reg.Attach(in.Path)
	if err != nil {
		return nil, err
	}

	out := &AddWorkspaceOutput{Root: ws.Root}
	if created {
		counts, err := ws.Indexer.Index(false, nil)
		if err != nil {
			return nil, fmt.Errorf("initial index of %s: %w", ws.Root, err)
		}
		out.Indexed = counts.Indexed
	}

	st, err := ws.Store.Stats()
	if err != nil {
		return nil, err
	}
	out.Files = st.FileCount
	out.Message = fmt.Sprintf("Workspace %s active with %d indexed files", ws.Root, st.FileCount)
	return out, nil
}

// DiffInput compares two files in the workspace.
type DiffInput struct {
	File1   string `json:"file1"`
	File2   string `json:"file2"`
	Context int    `json:"context,omitempty"`
}

// DiffHunk is one run of changes with surrounding context. Lines carry
// +/-/space prefixes.
type DiffHunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Content  string `json:"content"`
}

// DiffStats summarizes a diff.
type DiffStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Changes   int `json:"changes"`
}

// DiffOutput is the diff tool's response.
type DiffOutput struct {
	File1 string     `json:"file1"`
	File2 string     `json:"file2"`
	Hunks []DiffHunk `json:"hunks"`
	Stats DiffStats  `json:"stats"`
}

// ExecuteDiff computes an LCS line diff between two validated files.
func ExecuteDiff(ws *workspace.Workspace, in DiffInput) (*DiffOutput, error) {
	abs1, err := security.ValidateReadAccess(ws.Root, in.File1)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindOf(err), err, "file1")
	}
	abs2, err := security.ValidateReadAccess(ws.Root, in.File2)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindOf(err), err, "file2")
	}

	data1, err := os.ReadFile(abs1)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.NotFound, err, "read %s", in.File1)
	}
	data2, err := os.ReadFile(abs2)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.NotFound, err, "read %s", in.File2)
	}

	ctxLines := in.Context
	if ctxLines <= 0 {
		ctxLines = 3
	}
	hunks, stats := computeDiff(
		strings.Split(string(data1), "\n"),
		strings.Split(string(data2), "\n"),
		ctxLines,
	)
	return &DiffOutput{File1: in.File1, File2: in.File2, Hunks: hunks, Stats: stats}, nil
}

// computeDiff walks the LCS of the two line sets, grouping changed runs
// into hunks with ctx lines of context.
func computeDiff(oldLines, newLines []string, ctx int) ([]DiffHunk, DiffStats) {
	matches := lcs(oldLines, newLines)

	hunks := []DiffHunk{}
	var stats DiffStats
	var hunk []string
	oldIdx, newIdx := 0, 0
	hunkOldStart, hunkNewStart := 0, 0
	inHunk := false

	openHunk := func() {
		if inHunk {
			return
		}
		hunkOldStart = oldIdx + 1
		hunkNewStart = newIdx + 1
		inHunk = true
		ctxStart := oldIdx - ctx
		if ctxStart < 0 {
			ctxStart = 0
		}
		for _, line := range oldLines[ctxStart:oldIdx] {
			hunk = append(hunk, " "+line)
		}
		if ctxStart < oldIdx {
			hunkOldStart = ctxStart + 1
			hunkNewStart = newIdx - (oldIdx - ctxStart) + 1
			if hunkNewStart < 1 {
				hunkNewStart = 1
			}
		}
	}
	closeHunk := func() {
		if !inHunk || len(hunk) == 0 {
			inHunk = false
			return
		}
		hunks = append(hunks, DiffHunk{
			OldStart: hunkOldStart,
			OldLines: oldIdx - hunkOldStart + 1,
			NewStart: hunkNewStart,
			NewLines: newIdx - hunkNewStart + 1,
			Content:  strings.Join(hunk, "\n"),
		})
		hunk = nil
		inHunk = false
	}

	for _, m := range matches {
		for oldIdx < m[0] {
			openHunk()
			hunk = append(hunk, "-"+oldLines[oldIdx])
			stats.Deletions++
			oldIdx++
		}
		for newIdx < m[1] {
			openHunk()
			hunk = append(hunk, "+"+newLines[newIdx])
			stats.Additions++
			newIdx++
		}
		if inHunk {
			hunk = append(hunk, " "+oldLines[oldIdx])
			// Close the hunk once enough unchanged context has passed.
			trailing := 0
			for _, line := range hunk[max(0, len(hunk)-ctx):] {
				if strings.HasPrefix(line, " ") {
					trailing++
				}
			}
			if trailing >= ctx {
				oldIdx++
				newIdx++
				closeHunk()
				continue
			}
		}
		oldIdx++
		newIdx++
	}
	for oldIdx < len(oldLines) {
		openHunk()
		hunk = append(hunk, "-"+oldLines[oldIdx])
		stats.Deletions++
		oldIdx++
	}
	for newIdx < len(newLines) {
		openHunk()
		hunk = append(hunk, "+"+newLines[newIdx])
		stats.Additions++
		newIdx++
	}
	closeHunk()

	stats.Changes = min(stats.Additions, stats.Deletions)
	return hunks, stats
}

// lcs returns the matching line index pairs (old, new) of the longest
// common subsequence.
func lcs(a, b []string) [][2]int {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	var out [][2]int
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			out = append(out, [2]int{i - 1, j - 1})
			i--
			j--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
