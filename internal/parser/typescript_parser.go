package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var (
	typescriptLanguage = sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsxLanguage        = sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
)

// TypeScriptParser implements Counter for TypeScript and TSX sources
type TypeScriptParser struct {
	tsx bool
}

// NewTypeScriptParser creates a new TypeScript parser
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

// NewTSXParser creates a TypeScript parser that accepts JSX syntax
func NewTSXParser() *TypeScriptParser {
	return &TypeScriptParser{tsx: true}
}

// Language returns the language name
func (p *TypeScriptParser) Language() string {
	if p.tsx {
		return string(LanguageTSX)
	}
	return string(LanguageTypeScript)
}

// CountFunctions counts function declarations with a body at program scope.
// Overload signatures and `declare function` statements do not count.
func (p *TypeScriptParser) CountFunctions(filePath string, code []byte) (int, error) {
	lang := typescriptLanguage
	if p.tsx {
		lang = tsxLanguage
	}
	return countECMAScript(lang, filePath, code)
}
