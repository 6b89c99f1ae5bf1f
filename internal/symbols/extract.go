// Package symbols produces the structural outline of a source file:
// named declarations with kind and line span. Extraction is tree-sitter
// based for registered grammars and falls back to line heuristics for
// other languages. It is deliberately not a full parser.
package symbols

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"scout/internal/store"
)

// kindForNode maps tree-sitter declaration node types to symbol kinds.
var kindForNode = map[string]string{
	"function_declaration":   "function",
	"function_definition":    "function",
	"method_declaration":     "method",
	"method_definition":      "method",
	"type_declaration":       "type",
	"type_alias_declaration": "type",
	"class_declaration":      "class",
	"class_definition":       "class",
	"decorated_definition":   "function",
	"interface_declaration":  "interface",
	"const_declaration":      "const",
	"var_declaration":        "var",
	"lexical_declaration":    "function", // arrow function bindings
	"export_statement":       "function",
}

// extByLanguage names languages for extensions without a registered
// grammar, so stats and heuristic extraction still know what they see.
var extByLanguage = map[string]string{
	"rs":   "rust",
	"java": "java",
	"rb":   "ruby",
	"c":    "c",
	"h":    "c",
	"cpp":  "cpp",
	"md":   "markdown",
	"sh":   "shell",
	"sql":  "sql",
	"yaml": "yaml",
	"yml":  "yaml",
	"json": "json",
	"toml": "toml",
}

// Extractor extracts symbols from source files.
type Extractor struct {
	registry *Registry
}

// NewExtractor creates an extractor backed by the given registry.
func NewExtractor(r *Registry) *Extractor {
	return &Extractor{registry: r}
}

// LanguageName reports the detected language for a path, or "".
func (e *Extractor) LanguageName(path string) string {
	if _, lang := e.registry.Lookup(path); lang != "" {
		return lang
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return extByLanguage[ext]
}

// Extract returns the symbols of a file in line order. Files without a
// registered grammar go through the heuristic line scanner; unknown
// formats yield no symbols, which is not an error.
func (e *Extractor) Extract(path string, src []byte) ([]store.Symbol, error) {
	spec, _ := e.registry.Lookup(path)
	if spec == nil {
		return extractHeuristic(path, src), nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.Query), spec.Language)
	if err != nil {
		return nil, fmt.Errorf("compile query for %s: %w", path, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var caps []capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var node *sitter.Node
		var name string
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "symbol":
				node = c.Node
			case "name":
				name = c.Node.Content(src)
			}
		}
		if node == nil || name == "" {
			continue
		}
		kind := kindForNode[node.Type()]
		if kind == "" {
			kind = node.Type()
		}
		caps = append(caps, capture{
			name:      name,
			kind:      kind,
			startLine: int(node.StartPoint().Row) + 1,
			endLine:   int(node.EndPoint().Row) + 1,
			startByte: node.StartByte(),
			endByte:   node.EndByte(),
		})
	}

	caps = dedup(caps)

	syms := make([]store.Symbol, 0, len(caps))
	for _, c := range caps {
		syms = append(syms, store.Symbol{
			Name:      c.name,
			Kind:      c.kind,
			StartLine: c.startLine,
			EndLine:   c.endLine,
		})
	}
	return syms, nil
}

type capture struct {
	name      string
	kind      string
	startLine int
	endLine   int
	startByte uint32
	endByte   uint32
}

// dedup removes captures fully contained within a larger capture, so a
// method body does not also surface its nested closures.
func dedup(caps []capture) []capture {
	if len(caps) <= 1 {
		return caps
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].startByte != caps[j].startByte {
			return caps[i].startByte < caps[j].startByte
		}
		return (caps[i].endByte - caps[i].startByte) > (caps[j].endByte - caps[j].startByte)
	})

	var result []capture
	var lastEnd uint32
	for _, c := range caps {
		if c.startByte >= lastEnd || lastEnd == 0 {
			result = append(result, c)
			if c.endByte > lastEnd {
				lastEnd = c.endByte
			}
		}
	}
	return result
}

// heuristicPrefixes maps a language to its declaration line prefixes and
// the kind each one announces.
var heuristicPrefixes = map[string][]prefixKind{
	"rust": {
		{"fn ", "function"}, {"pub fn ", "function"}, {"pub(crate) fn ", "function"},
		{"struct ", "struct"}, {"pub struct ", "struct"},
		{"enum ", "type"}, {"pub enum ", "type"},
		{"trait ", "interface"}, {"pub trait ", "interface"},
		{"impl ", "type"},
		{"const ", "const"}, {"pub const ", "const"},
	},
	"java": {
		{"public class ", "class"}, {"class ", "class"},
		{"public interface ", "interface"}, {"interface ", "interface"},
		{"public enum ", "type"}, {"enum ", "type"},
	},
	"ruby": {
		{"def ", "function"}, {"class ", "class"}, {"module ", "type"},
	},
	"c": {
		{"struct ", "struct"}, {"typedef ", "type"}, {"enum ", "type"},
	},
}

type prefixKind struct {
	prefix string
	kind   string
}

// extractHeuristic scans declaration-shaped lines for languages without
// a grammar. End lines are found by brace counting from the declaration.
func extractHeuristic(path string, src []byte) []store.Symbol {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	lang := extByLanguage[ext]
	prefixes, ok := heuristicPrefixes[lang]
	if !ok {
		return nil
	}

	lines := strings.Split(string(src), "\n")
	var syms []store.Symbol
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, pk := range prefixes {
			if !strings.HasPrefix(trimmed, pk.prefix) {
				continue
			}
			name := declName(strings.TrimPrefix(trimmed, pk.prefix))
			if name == "" {
				continue
			}
			syms = append(syms, store.Symbol{
				Name:      name,
				Kind:      pk.kind,
				StartLine: i + 1,
				EndLine:   braceEnd(lines, i),
			})
			break
		}
	}
	return syms
}

// declName takes the identifier at the start of rest, stopping at the
// first non-identifier byte.
func declName(rest string) string {
	end := 0
	for end < len(rest) {
		c := rest[end]
		isIdent := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isIdent {
			break
		}
		end++
	}
	return rest[:end]
}

// braceEnd tracks brace depth from the declaration line to find where
// the block closes. Declarations without braces end on their own line.
func braceEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, c := range lines[i] {
			switch c {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1
		}
		if !opened && i > start {
			return start + 1
		}
	}
	return len(lines)
}
