package symbols

import "strings"

// Reference kinds reported by occurrence classification.
const (
	RefDefinition = "definition"
	RefImport     = "import"
	RefTypeUsage  = "type_usage"
	RefUsage      = "usage"
)

// defKeywords mark a line as declaring the symbol rather than using it.
var defKeywords = []string{
	"fn ", "func ", "def ", "class ", "struct ", "enum ", "trait ",
	"interface ", "type ", "impl ", "const ", "static ", "let ", "var ",
}

// importKeywords mark import or re-export lines.
var importKeywords = []string{"use ", "import ", "from ", "require("}

// ClassifyRef labels one occurrence of name on a line as a definition,
// import, type usage, or plain usage, from surrounding syntax alone.
func ClassifyRef(line, name string) string {
	trimmed := strings.TrimSpace(line)

	for _, kw := range importKeywords {
		if strings.HasPrefix(trimmed, kw) || strings.Contains(trimmed, " "+kw) {
			return RefImport
		}
	}

	for _, kw := range defKeywords {
		idx := strings.Index(trimmed, kw)
		if idx < 0 {
			continue
		}
		after := trimmed[idx+len(kw):]
		if strings.HasPrefix(after, name) {
			rest := after[len(name):]
			if rest == "" || !isIdentByte(rest[0]) {
				return RefDefinition
			}
		}
	}

	// Type positions: annotations, return types, generic parameters.
	for _, marker := range []string{": " + name, "-> " + name, "<" + name, "]" + name} {
		if strings.Contains(trimmed, marker) {
			return RefTypeUsage
		}
	}

	return RefUsage
}

// TrimAround returns a window of about width bytes centered on the match
// at idx, with ellipses marking cut edges.
func TrimAround(line string, idx, width int) string {
	if len(line) <= width {
		return strings.TrimSpace(line)
	}
	half := width / 2
	start := idx - half
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(line) {
		end = len(line)
		start = end - width
	}
	out := strings.TrimSpace(line[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(line) {
		out += "..."
	}
	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
