package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const maxTokenPreview = 24

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeSource strips a UTF-8 byte order mark and rejects content that is not
// valid UTF-8 text.
func decodeSource(filePath string, code []byte) ([]byte, error) {
	skipped := 0
	if bytes.HasPrefix(code, utf8BOM) {
		code = code[len(utf8BOM):]
		skipped = len(utf8BOM)
	}

	if i := bytes.IndexByte(code, 0); i >= 0 {
		return nil, &EncodingError{
			File:   displayName(filePath),
			Offset: skipped + i,
			Reason: "source contains null bytes",
		}
	}

	if !utf8.Valid(code) {
		offset := 0
		for offset < len(code) {
			r, size := utf8.DecodeRune(code[offset:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			offset += size
		}
		return nil, &EncodingError{
			File:   displayName(filePath),
			Offset: skipped + offset,
			Reason: "invalid UTF-8 sequence",
		}
	}

	return code, nil
}

// parseSource parses code with lang and returns the tree, or a *SyntaxError
// describing the first ERROR or MISSING node. The caller owns the tree.
func parseSource(lang *sitter.Language, filePath string, code []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to load grammar: %w", err)
	}

	tree := parser.Parse(code, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", displayName(filePath))
	}

	root := tree.RootNode()
	if root.HasError() {
		err := newSyntaxError(filePath, code, root)
		tree.Close()
		return nil, err
	}
	return tree, nil
}

// countTopLevel counts the direct named children of root accepted by match.
func countTopLevel(root *sitter.Node, match func(*sitter.Node) bool) int {
	count := 0
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child != nil && match(child) {
			count++
		}
	}
	return count
}

func newSyntaxError(filePath string, code []byte, root *sitter.Node) *SyntaxError {
	node := firstSyntaxError(root)
	if node == nil {
		node = root
	}

	pos := node.StartPosition()
	problem := "invalid syntax"
	switch {
	case node.IsMissing():
		problem = fmt.Sprintf("expected '%s'", node.Kind())
	case node.IsError():
		if tok := previewToken(firstLeaf(node), code); tok != "" {
			problem = fmt.Sprintf("invalid syntax: unexpected '%s'", tok)
		}
	}

	return &SyntaxError{
		File:    displayName(filePath),
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Problem: problem,
	}
}

// firstSyntaxError returns the earliest ERROR or MISSING node in document
// order, descending only into subtrees that report errors.
func firstSyntaxError(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstSyntaxError(child); found != nil {
			return found
		}
	}
	return nil
}

func firstLeaf(node *sitter.Node) *sitter.Node {
	for node != nil && node.ChildCount() > 0 {
		node = node.Child(0)
	}
	return node
}

func previewToken(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	text := node.Utf8Text(code)
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) > maxTokenPreview {
		cut := maxTokenPreview
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

func displayName(filePath string) string {
	if filePath == "" {
		return "<source>"
	}
	return filepath.ToSlash(filePath)
}
