package tools

import (
	"fmt"
	"os"
	"strings"

	"scout/internal/scouterr"
	"scout/internal/security"
	"scout/internal/workspace"
)

// GetInput requests file content, optionally a 1-based line range.
type GetInput struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// GetOutput wraps the content in explicit markers so callers can tell
// file text apart from tool framing.
type GetOutput struct {
	Path       string `json:"path"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TotalLines int    `json:"total_lines"`
	Content    string `json:"content"`
}

// ExecuteGet reads a file from disk after path and sensitive-file checks.
func ExecuteGet(ws *workspace.Workspace, in GetInput) (*GetOutput, error) {
	abs, err := security.ValidateReadAccess(ws.Root, in.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.NotFound, err, "read %s", in.Path)
	}

	lines := strings.Split(string(data), "\n")
	start, end := in.StartLine, in.EndLine
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return nil, scouterr.New(scouterr.InvalidPath,
			"start_line %d is after end_line %d", start, end)
	}

	body := strings.Join(lines[start-1:end], "\n")
	content := fmt.Sprintf("--- BEGIN FILE CONTENT: %s ---\n%s\n--- END FILE CONTENT: %s ---",
		in.Path, body, in.Path)

	return &GetOutput{
		Path:       in.Path,
		StartLine:  start,
		EndLine:    end,
		TotalLines: len(lines),
		Content:    content,
	}, nil
}

// TocInput requests a table of contents for one file.
type TocInput struct {
	Path  string `json:"path"`
	Depth int    `json:"depth,omitempty"`
}

// TocEntry is one heading or declaration.
type TocEntry struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Level int    `json:"level"`
	Line  int    `json:"line"`
}

// TocOutput is the toc tool's response.
type TocOutput struct {
	Path    string     `json:"path"`
	Entries []TocEntry `json:"entries"`
}

// ExecuteToc builds a table of contents: markdown headings up to depth,
// or the symbol outline for source files.
func ExecuteToc(ws *workspace.Workspace, in TocInput) (*TocOutput, error) {
	if _, err := security.ValidatePath(ws.Root, in.Path); err != nil {
		return nil, err
	}
	depth := in.Depth
	if depth <= 0 {
		depth = 3
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	f, err := ws.Store.GetFileByPath(in.Path)
	if err != nil {
		return nil, err
	}

	out := &TocOutput{Path: in.Path, Entries: []TocEntry{}}
	if f.Language == "markdown" {
		for i, line := range strings.Split(f.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			if level == 0 || level > depth || level >= len(trimmed) || trimmed[level] != ' ' {
				continue
			}
			out.Entries = append(out.Entries, TocEntry{
				Title: strings.TrimSpace(trimmed[level:]),
				Kind:  "heading",
				Level: level,
				Line:  i + 1,
			})
		}
		return out, nil
	}

	syms, err := ws.Store.SymbolsForFile(f.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range syms {
		out.Entries = append(out.Entries, TocEntry{
			Title: s.Name,
			Kind:  s.Kind,
			Level: 1,
			Line:  s.StartLine,
		})
	}
	return out, nil
}

// ContextInput requests lines around a location.
type ContextInput struct {
	Path         string `json:"path"`
	Line         int    `json:"line"`
	ContextLines int    `json:"context_lines,omitempty"`
}

// ContextOutput is the context tool's response. The target line carries
// a ">" marker.
type ContextOutput struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// ExecuteContext returns the lines around line with the target marked.
func ExecuteContext(ws *workspace.Workspace, in ContextInput) (*ContextOutput, error) {
	abs, err := security.ValidateReadAccess(ws.Root, in.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.NotFound, err, "read %s", in.Path)
	}

	n := in.ContextLines
	if n <= 0 {
		n = 5
	}
	if n > maxContext {
		n = maxContext
	}

	lines := strings.Split(string(data), "\n")
	if in.Line < 1 || in.Line > len(lines) {
		return nil, scouterr.New(scouterr.InvalidPath,
			"line %d out of range 1-%d", in.Line, len(lines))
	}

	start := in.Line - n
	if start < 1 {
		start = 1
	}
	end := in.Line + n
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		marker := " "
		if i == in.Line {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s%5d | %s\n", marker, i, lines[i-1])
	}

	return &ContextOutput{
		Path:      in.Path,
		Line:      in.Line,
		StartLine: start,
		EndLine:   end,
		Content:   strings.TrimRight(b.String(), "\n"),
	}, nil
}
