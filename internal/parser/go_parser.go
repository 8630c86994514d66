package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

var goLanguage = sitter.NewLanguage(tree_sitter_go.Language())

// GoParser implements Counter for Go language
type GoParser struct{}

// NewGoParser creates a new Go parser
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the language name
func (p *GoParser) Language() string {
	return string(LanguageGo)
}

// CountFunctions counts package-level func declarations. Methods belong to
// their receiver type and are not counted.
func (p *GoParser) CountFunctions(filePath string, code []byte) (int, error) {
	src, err := decodeSource(filePath, code)
	if err != nil {
		return 0, err
	}

	tree, err := parseSource(goLanguage, filePath, src)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	return countTopLevel(tree.RootNode(), func(n *sitter.Node) bool {
		return n.Kind() == "function_declaration"
	}), nil
}
