package languages

import (
	"scout/internal/symbols"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func RegisterTypeScript(r *symbols.Registry) {
	r.Register("typescript", &symbols.LanguageSpec{
		Language: typescript.GetLanguage(),
		Query: `
			(function_declaration name: (identifier) @name) @symbol
			(class_declaration name: (type_identifier) @name) @symbol
			(method_definition name: (property_identifier) @name) @symbol
			(export_statement (function_declaration name: (identifier) @name)) @symbol
			(export_statement (class_declaration name: (type_identifier) @name)) @symbol
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @symbol
			(interface_declaration name: (type_identifier) @name) @symbol
			(type_alias_declaration name: (type_identifier) @name) @symbol
		`,
		Extensions: []string{"ts", "tsx"},
	})
}
