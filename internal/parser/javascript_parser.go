package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

var javascriptLanguage = sitter.NewLanguage(tree_sitter_javascript.Language())

// JavaScriptParser implements Counter for JavaScript language
type JavaScriptParser struct{}

// NewJavaScriptParser creates a new JavaScript parser
func NewJavaScriptParser() *JavaScriptParser {
	return &JavaScriptParser{}
}

// Language returns the language name
func (p *JavaScriptParser) Language() string {
	return string(LanguageJavaScript)
}

// CountFunctions counts function declarations at program scope, including
// exported ones. Arrow functions and function expressions bound to variables
// are expressions and do not count.
func (p *JavaScriptParser) CountFunctions(filePath string, code []byte) (int, error) {
	return countECMAScript(javascriptLanguage, filePath, code)
}

func countECMAScript(lang *sitter.Language, filePath string, code []byte) (int, error) {
	src, err := decodeSource(filePath, code)
	if err != nil {
		return 0, err
	}

	tree, err := parseSource(lang, filePath, src)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	return countTopLevel(tree.RootNode(), isECMAScriptFunction), nil
}

func isECMAScriptFunction(node *sitter.Node) bool {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		return true
	case "export_statement":
		decl := node.ChildByFieldName("declaration")
		if decl == nil {
			return false
		}
		switch decl.Kind() {
		case "function_declaration", "generator_function_declaration":
			return true
		}
	}
	return false
}
