package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var pythonLanguage = sitter.NewLanguage(tree_sitter_python.Language())

// PythonParser implements Counter for Python language
type PythonParser struct{}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Language returns the language name
func (p *PythonParser) Language() string {
	return string(LanguagePython)
}

// CountFunctions counts `def` and `async def` statements in the module body.
// Decorated definitions count once. Definitions nested in classes, functions,
// or compound statements such as `if __name__ == "__main__":` do not count.
func (p *PythonParser) CountFunctions(filePath string, code []byte) (int, error) {
	src, err := decodeSource(filePath, code)
	if err != nil {
		return 0, err
	}

	tree, err := parseSource(pythonLanguage, filePath, src)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if err := checkPython3(filePath, src, root); err != nil {
		return 0, err
	}
	return countTopLevel(root, isPythonFunction), nil
}

func isPythonFunction(node *sitter.Node) bool {
	switch node.Kind() {
	case "function_definition":
		return true
	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		return def != nil && def.Kind() == "function_definition"
	}
	return false
}
