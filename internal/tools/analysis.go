package tools

import (
	"os"
	"regexp"
	"strings"

	"scout/internal/scouterr"
	"scout/internal/security"
	"scout/internal/store"
	"scout/internal/symbols"
	"scout/internal/workspace"
)

// OutlineInput requests the symbol outline for one file.
type OutlineInput struct {
	Path string `json:"path"`
}

// OutlineSymbol is one declaration on the wire.
type OutlineSymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// OutlineOutput is the outline tool's response.
type OutlineOutput struct {
	Path     string          `json:"path"`
	Language string          `json:"language,omitempty"`
	Symbols  []OutlineSymbol `json:"symbols"`
}

// ExecuteOutline returns a file's symbols in declaration order.
func ExecuteOutline(ws *workspace.Workspace, in OutlineInput) (*OutlineOutput, error) {
	if _, err := security.ValidatePath(ws.Root, in.Path); err != nil {
		return nil, err
	}
	f, err := ws.Store.GetFileByPath(in.Path)
	if err != nil {
		return nil, err
	}
	syms, err := ws.Store.SymbolsForFile(f.ID)
	if err != nil {
		return nil, err
	}

	out := &OutlineOutput{Path: in.Path, Language: f.Language, Symbols: []OutlineSymbol{}}
	for _, s := range syms {
		out.Symbols = append(out.Symbols, OutlineSymbol{
			Name:      s.Name,
			Kind:      s.Kind,
			StartLine: s.StartLine,
			EndLine:   s.EndLine,
		})
	}
	return out, nil
}

// RefsInput requests every occurrence of a symbol name.
type RefsInput struct {
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit,omitempty"`
}

// Ref is one classified occurrence.
type Ref struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Kind string `json:"kind"` // definition | import | type_usage | usage
	Text string `json:"text"`
}

// RefsOutput is the refs tool's response.
type RefsOutput struct {
	Symbol  string `json:"symbol"`
	Refs    []Ref  `json:"refs"`
	Total   int    `json:"total"`
	HasMore bool   `json:"has_more"`
}

// refTextWidth bounds the context shown per occurrence.
const refTextWidth = 60

// ExecuteRefs finds word-boundary occurrences of a symbol across the
// index, classifying each from its surrounding syntax. The trigram index
// prefilters the scan when the name is selective enough.
func ExecuteRefs(ws *workspace.Workspace, in RefsInput) (*RefsOutput, error) {
	name := strings.TrimSpace(in.Symbol)
	if name == "" {
		return nil, scouterr.New(scouterr.InvalidPath, "symbol is required")
	}
	limit := clampLimit(in.Limit, defaultLimit*5, maxRefs)

	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.PatternRejected, err, "invalid symbol name")
	}

	var files []store.FileRecord
	if c := ws.Trigrams.Candidates(name); ws.Trigrams.Selective(c) {
		ids := make([]int64, 0, c.GetCardinality())
		it := c.Iterator()
		for it.HasNext() {
			ids = append(ids, int64(it.Next()))
		}
		if files, err = ws.Store.FilesByIDs(ids); err != nil {
			return nil, err
		}
	} else if files, err = ws.Store.AllFiles(); err != nil {
		return nil, err
	}

	out := &RefsOutput{Symbol: name, Refs: []Ref{}}
	for _, f := range files {
		for i, line := range strings.Split(f.Content, "\n") {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				out.Refs = append(out.Refs, Ref{
					Path: f.Path,
					Line: i + 1,
					Kind: symbols.ClassifyRef(line, name),
					Text: symbols.TrimAround(line, loc[0], refTextWidth),
				})
				if len(out.Refs) > limit {
					out.HasMore = true
					out.Refs = out.Refs[:limit]
					out.Total = limit
					return out, nil
				}
			}
		}
	}
	out.Total = len(out.Refs)
	return out, nil
}

// RelatedInput requests files sharing symbols with a source file.
type RelatedInput struct {
	Path  string `json:"path"`
	Limit int    `json:"limit,omitempty"`
}

// RelatedFile is one overlap-ranked file.
type RelatedFile struct {
	Path          string `json:"path"`
	SharedSymbols int    `json:"shared_symbols"`
}

// RelatedOutput is the related tool's response.
type RelatedOutput struct {
	Path    string        `json:"path"`
	Related []RelatedFile `json:"related"`
}

// minSharedSymbols is the overlap floor for relatedness.
const minSharedSymbols = 1

// ExecuteRelated ranks other files by shared symbol names.
func ExecuteRelated(ws *workspace.Workspace, in RelatedInput) (*RelatedOutput, error) {
	if _, err := security.ValidatePath(ws.Root, in.Path); err != nil {
		return nil, err
	}
	limit := clampLimit(in.Limit, defaultLimit, maxLimit)

	f, err := ws.Store.GetFileByPath(in.Path)
	if err != nil {
		return nil, err
	}
	rows, err := ws.Store.RelatedFiles(f.ID, minSharedSymbols, limit)
	if err != nil {
		return nil, err
	}

	out := &RelatedOutput{Path: in.Path, Related: []RelatedFile{}}
	for _, r := range rows {
		out.Related = append(out.Related, RelatedFile{Path: r.Path, SharedSymbols: r.SharedSymbols})
	}
	return out, nil
}

// StatsInput selects the stats detail level.
type StatsInput struct {
	Detailed bool `json:"detailed,omitempty"`
}

// StatsOutput summarizes the index.
type StatsOutput struct {
	Root          string         `json:"root"`
	Files         int            `json:"files"`
	TotalBytes    int64          `json:"total_bytes"`
	Symbols       int            `json:"symbols"`
	Trigrams      int            `json:"trigrams"`
	Languages     map[string]int `json:"languages,omitempty"`
	DBPath        string         `json:"db_path,omitempty"`
	DBBytes       int64          `json:"db_bytes,omitempty"`
	LastIndexedAt string         `json:"last_indexed_at,omitempty"`
	LargestFiles  []LargestFile  `json:"largest_files,omitempty"`
}

// LargestFile is one entry of the detailed size report.
type LargestFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// ExecuteStats reports index counters; detailed adds store size and the
// biggest indexed files.
func ExecuteStats(ws *workspace.Workspace, in StatsInput) (*StatsOutput, error) {
	st, err := ws.Store.Stats()
	if err != nil {
		return nil, err
	}

	out := &StatsOutput{
		Root:       ws.Root,
		Files:      st.FileCount,
		TotalBytes: st.TotalBytes,
		Symbols:    st.SymbolCount,
		Trigrams:   st.TrigramCount,
		Languages:  st.Languages,
	}
	if !st.LastIndexedAt.IsZero() {
		out.LastIndexedAt = st.LastIndexedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	if !in.Detailed {
		return out, nil
	}

	out.DBPath = ws.Store.Path()
	if info, err := os.Stat(ws.Store.Path()); err == nil {
		out.DBBytes = info.Size()
	}
	largest, err := ws.Store.LargestFiles(10)
	if err != nil {
		return nil, err
	}
	for _, lf := range largest {
		out.LargestFiles = append(out.LargestFiles, LargestFile{Path: lf.Path, SizeBytes: lf.SizeBytes})
	}
	return out, nil
}
