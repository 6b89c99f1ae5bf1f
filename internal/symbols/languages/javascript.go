package languages

import (
	"scout/internal/symbols"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *symbols.Registry) {
	r.Register("javascript", &symbols.LanguageSpec{
		Language: javascript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @symbol
			(class_declaration name: (identifier) @name) @symbol
			(method_definition name: (property_identifier) @name) @symbol
			(export_statement (function_declaration name: (identifier) @name)) @symbol
			(export_statement (class_declaration name: (identifier) @name)) @symbol
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @symbol
		`,
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})
}
