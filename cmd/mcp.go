package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"scout/internal/tools"
	"scout/internal/workspace"
)

// queryTimeout bounds one search-shaped tool call.
const queryTimeout = 30 * time.Second

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the code-search tools over MCP stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol; all logging goes to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	reg := workspace.NewRegistry(workspace.Config{DBPath: flagDB})

	// Pinned mode: pre-attach the given root.
	if flagRoot != "" {
		root, err := filepath.Abs(flagRoot)
		if err != nil {
			return err
		}
		if _, err := tools.ExecuteAddWorkspace(reg, tools.AddWorkspaceInput{Path: root}); err != nil {
			return err
		}
		slog.Info("workspace pinned", "root", root)
	}
	defer reg.CloseAll()

	s := mcpserver.NewMCPServer("scout", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchTool(), makeSearchHandler(reg))
	s.AddTool(relevantTool(), makeRelevantHandler(reg))
	s.AddTool(getTool(), makeGetHandler(reg))
	s.AddTool(outlineTool(), makeOutlineHandler(reg))
	s.AddTool(tocTool(), makeTocHandler(reg))
	s.AddTool(contextTool(), makeContextHandler(reg))
	s.AddTool(statsTool(), makeStatsHandler(reg))
	s.AddTool(relatedTool(), makeRelatedHandler(reg))
	s.AddTool(refsTool(), makeRefsHandler(reg))
	s.AddTool(indexTool(), makeIndexHandler(reg))
	s.AddTool(diffTool(), makeDiffHandler(reg))
	s.AddTool(addWorkspaceTool(), makeAddWorkspaceHandler(reg))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Hybrid code search combining ranked full-text, regex scan, and trigram substring backends. Returns scored files with snippets and backend attribution."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query: an identifier, a phrase, or a regex pattern"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 20, max 200)"),
		),
		mcp.WithString("mode",
			mcp.Description("Backend selection: combined (default), ranked-only, or scan-only"),
			mcp.Enum("combined", "ranked-only", "scan-only"),
		),
	)
}

func relevantTool() mcp.Tool {
	return mcp.NewTool("relevant",
		mcp.WithDescription("Find files relevant to a natural-language topic using ranked full-text search."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("topic",
			mcp.Required(),
			mcp.Description("Topic in plain words, e.g. 'connection pooling'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 20, max 200)"),
		),
	)
}

func getTool() mcp.Tool {
	return mcp.NewTool("get",
		mcp.WithDescription("Read a file from the workspace, optionally restricted to a 1-based line range. Content is wrapped in BEGIN/END markers."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the workspace root"),
		),
		mcp.WithNumber("start_line", mcp.Description("First line to include (1-based)")),
		mcp.WithNumber("end_line", mcp.Description("Last line to include (inclusive)")),
	)
}

func outlineTool() mcp.Tool {
	return mcp.NewTool("outline",
		mcp.WithDescription("List a file's symbols (functions, types, classes) with kinds and line spans."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the workspace root"),
		),
	)
}

func tocTool() mcp.Tool {
	return mcp.NewTool("toc",
		mcp.WithDescription("Table of contents for a file: markdown headings up to a depth, or the symbol outline for source files."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the workspace root"),
		),
		mcp.WithNumber("depth", mcp.Description("Maximum heading depth (default 3, max 10)")),
	)
}

func contextTool() mcp.Tool {
	return mcp.NewTool("context",
		mcp.WithDescription("Show the lines around a location with the target line marked."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the workspace root"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Target line (1-based)"),
		),
		mcp.WithNumber("context_lines", mcp.Description("Lines of context on each side (default 5, max 500)")),
	)
}

func statsTool() mcp.Tool {
	return mcp.NewTool("stats",
		mcp.WithDescription("Index statistics: file count, bytes, symbols, trigrams, language histogram."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithBoolean("detailed", mcp.Description("Include store size and largest indexed files")),
	)
}

func relatedTool() mcp.Tool {
	return mcp.NewTool("related",
		mcp.WithDescription("Files related to a source file, ranked by the number of symbol names they share."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the workspace root"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 20, max 200)")),
	)
}

func refsTool() mcp.Tool {
	return mcp.NewTool("refs",
		mcp.WithDescription("All occurrences of a symbol name across the index, classified as definition, import, type usage, or usage."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Symbol name to look up"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum occurrences to return (default 100, max 500)")),
	)
}

func indexTool() mcp.Tool {
	return mcp.NewTool("index",
		mcp.WithDescription("Incrementally index the active workspace: new and modified files are processed, deleted files removed. force reprocesses everything."),
		mcp.WithBoolean("force", mcp.Description("Bypass change detection and re-index every file")),
	)
}

func diffTool() mcp.Tool {
	return mcp.NewTool("diff",
		mcp.WithDescription("Line diff between two workspace files with context hunks and change statistics."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("file1",
			mcp.Required(),
			mcp.Description("First file path relative to the workspace root"),
		),
		mcp.WithString("file2",
			mcp.Required(),
			mcp.Description("Second file path relative to the workspace root"),
		),
		mcp.WithNumber("context", mcp.Description("Context lines around changes (default 3)")),
	)
}

func addWorkspaceTool() mcp.Tool {
	return mcp.NewTool("add_workspace",
		mcp.WithDescription("Attach a project root as the active workspace and index it. Required before any other tool in global mode."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to the project root"),
		),
	)
}

// --- Handler factories ---

// respond marshals a tool output under the response byte ceiling.
func respond(v any) *mcp.CallToolResult {
	text, err := tools.MarshalResponse(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(text)
}

// active resolves the current workspace or reports NoActiveWorkspace.
func active(reg *workspace.Registry) (*workspace.Workspace, *mcp.CallToolResult) {
	ws, err := reg.Active()
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return ws, nil
}

func makeSearchHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		out, err := tools.ExecuteSearch(ctx, ws, tools.SearchInput{
			Query: query,
			Limit: req.GetInt("limit", 0),
			Mode:  req.GetString("mode", "combined"),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeRelevantHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		topic := req.GetString("topic", "")
		if topic == "" {
			return mcp.NewToolResultError("topic is required"), nil
		}

		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()

		out, err := tools.ExecuteRelevant(ctx, ws, tools.RelevantInput{
			Topic: topic,
			Limit: req.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeGetHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteGet(ws, tools.GetInput{
			Path:      req.GetString("path", ""),
			StartLine: req.GetInt("start_line", 0),
			EndLine:   req.GetInt("end_line", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeOutlineHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteOutline(ws, tools.OutlineInput{Path: req.GetString("path", "")})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeTocHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteToc(ws, tools.TocInput{
			Path:  req.GetString("path", ""),
			Depth: req.GetInt("depth", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeContextHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteContext(ws, tools.ContextInput{
			Path:         req.GetString("path", ""),
			Line:         req.GetInt("line", 0),
			ContextLines: req.GetInt("context_lines", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeStatsHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteStats(ws, tools.StatsInput{Detailed: req.GetBool("detailed", false)})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeRelatedHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteRelated(ws, tools.RelatedInput{
			Path:  req.GetString("path", ""),
			Limit: req.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeRefsHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteRefs(ws, tools.RefsInput{
			Symbol: req.GetString("symbol", ""),
			Limit:  req.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeIndexHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteIndex(ws, tools.IndexInput{Force: req.GetBool("force", false)})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeDiffHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, errRes := active(reg)
		if errRes != nil {
			return errRes, nil
		}
		out, err := tools.ExecuteDiff(ws, tools.DiffInput{
			File1:   req.GetString("file1", ""),
			File2:   req.GetString("file2", ""),
			Context: req.GetInt("context", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}

func makeAddWorkspaceHandler(reg *workspace.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		out, err := tools.ExecuteAddWorkspace(reg, tools.AddWorkspaceInput{Path: path})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(out), nil
	}
}
