package languages

import (
	"scout/internal/symbols"

	"github.com/smacker/go-tree-sitter/python"
)

func RegisterPython(r *symbols.Registry) {
	r.Register("python", &symbols.LanguageSpec{
		Language: python.GetLanguage(),
		Query: `
			(function_definition name: (identifier) @name) @symbol
			(class_definition name: (identifier) @name) @symbol
			(decorated_definition definition: (function_definition name: (identifier) @name)) @symbol
			(decorated_definition definition: (class_definition name: (identifier) @name)) @symbol
		`,
		Extensions: []string{"py", "pyi"},
	})
}
