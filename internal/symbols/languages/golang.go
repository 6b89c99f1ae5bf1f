package languages

import (
	"scout/internal/symbols"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *symbols.Registry) {
	r.Register("go", &symbols.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @symbol
			(method_declaration name: (field_identifier) @name) @symbol
			(type_declaration (type_spec name: (type_identifier) @name)) @symbol
			(const_declaration (const_spec name: (identifier) @name)) @symbol
			(var_declaration (var_spec name: (identifier) @name)) @symbol
		`,
		Extensions: []string{"go"},
	})
}
