package tools

import (
	"context"

	"scout/internal/search"
	"scout/internal/workspace"
)

// SearchInput is the search tool's request.
type SearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Mode  string `json:"mode,omitempty"` // combined | ranked-only | scan-only
}

// SearchHit is one result row on the wire.
type SearchHit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
	Sources string  `json:"sources"`
}

// SearchOutput is the search tool's response.
type SearchOutput struct {
	Query   string      `json:"query"`
	Intent  string      `json:"intent"`
	Results []SearchHit `json:"results"`
	Total   int         `json:"total_results"`
	HasMore bool        `json:"has_more"`
}

// ExecuteSearch runs a hybrid search against the workspace.
func ExecuteSearch(ctx context.Context, ws *workspace.Workspace, in SearchInput) (*SearchOutput, error) {
	mode, err := search.ParseMode(in.Mode)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(in.Limit, defaultLimit, maxLimit)

	// One extra row decides has_more.
	results, err := ws.Search.Search(ctx, in.Query, limit+1, mode)
	if err != nil {
		return nil, err
	}

	hasMore := len(results) > limit
	if hasMore {
		results = results[:limit]
	}

	out := &SearchOutput{
		Query:   in.Query,
		Intent:  ws.Search.Intent(in.Query).String(),
		Results: make([]SearchHit, 0, len(results)),
		Total:   len(results),
		HasMore: hasMore,
	}
	for _, r := range results {
		out.Results = append(out.Results, SearchHit{
			Path:    r.Path,
			Score:   round2(r.Score),
			Snippet: r.Snippet,
			Sources: r.Sources,
		})
	}
	return out, nil
}

// RelevantInput is the relevant tool's request: a natural-language topic.
type RelevantInput struct {
	Topic string `json:"topic"`
	Limit int    `json:"limit,omitempty"`
}

// ExecuteRelevant finds files relevant to a topic via the ranked
// full-text backend alone; topics are prose, not patterns.
func ExecuteRelevant(ctx context.Context, ws *workspace.Workspace, in RelevantInput) (*SearchOutput, error) {
	limit := clampLimit(in.Limit, defaultLimit, maxLimit)

	results, err := ws.Search.Search(ctx, in.Topic, limit+1, search.ModeRankedOnly)
	if err != nil {
		return nil, err
	}
	hasMore := len(results) > limit
	if hasMore {
		results = results[:limit]
	}

	out := &SearchOutput{
		Query:   in.Topic,
		Intent:  "topic",
		Results: make([]SearchHit, 0, len(results)),
		Total:   len(results),
		HasMore: hasMore,
	}
	for _, r := range results {
		out.Results = append(out.Results, SearchHit{
			Path:    r.Path,
			Score:   round2(r.Score),
			Snippet: r.Snippet,
			Sources: r.Sources,
		})
	}
	return out, nil
}
