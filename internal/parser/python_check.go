package parser

import (
	"bytes"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// tree-sitter-python also accepts Python 2 syntax and is lenient about
// indentation. checkPython3 rejects what a Python 3 compiler would refuse
// to parse.

const tabSize = 8

const (
	problemTabs           = "inconsistent use of tabs and spaces in indentation"
	problemUnexpected     = "unexpected indent"
	problemUnindent       = "unindent does not match any outer indentation level"
	problemExpectedIndent = "expected an indented block"
)

var validStringPrefixes = map[string]bool{
	"": true, "r": true, "u": true, "b": true, "br": true, "rb": true,
	"f": true, "fr": true, "rf": true, "t": true, "tr": true, "rt": true,
}

// Clauses that must line up with the statement that owns them.
var alignedClauses = map[string]bool{
	"elif_clause":         true,
	"else_clause":         true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
}

// indentation is the width of a line's leading whitespace measured twice:
// with tabs to the next multiple of eight, and with every tab as one column.
// Python requires both measures to agree on how lines nest.
type indentation struct {
	col int
	alt int
}

type python3Checker struct {
	file  string
	code  []byte
	first *SyntaxError
	row   uint
	col   uint
}

func checkPython3(filePath string, code []byte, root *sitter.Node) error {
	c := &python3Checker{file: filePath, code: code}
	c.walk(root)
	if c.first == nil {
		return nil
	}
	return c.first
}

// report keeps the problem closest to the start of the file.
func (c *python3Checker) report(node *sitter.Node, problem string) {
	pos := node.StartPosition()
	if c.first != nil && (pos.Row > c.row || (pos.Row == c.row && pos.Column >= c.col)) {
		return
	}
	c.row, c.col = pos.Row, pos.Column
	c.first = &SyntaxError{
		File:    displayName(c.file),
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Problem: problem,
	}
}

func (c *python3Checker) walk(node *sitter.Node) {
	switch node.Kind() {
	case "module":
		c.alignStatements(statements(node), indentation{})
	case "block":
		c.checkBlock(node)
	case "print_statement":
		c.report(node, "Missing parentheses in call to 'print'. Did you mean print(...)?")
	case "exec_statement":
		c.report(node, "Missing parentheses in call to 'exec'. Did you mean exec(...)?")
	case "except_clause", "except_group_clause":
		if hasDirectChild(node, ",") {
			c.report(node, "multiple exception types must be parenthesized")
		}
	case "raise_statement":
		if hasDirectChild(node, "expression_list") {
			c.report(node, "invalid syntax")
		}
	case "string":
		c.checkString(node)
	case "integer":
		c.checkInteger(node)
	case "identifier":
		if text := node.Utf8Text(c.code); text == "async" || text == "await" {
			c.report(node, fmt.Sprintf("invalid syntax: '%s' is a keyword", text))
		}
	case "<>":
		if !node.IsNamed() {
			c.report(node, "invalid syntax: unexpected '<>'")
		}
	}

	var header *indentation
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if alignedClauses[child.Kind()] {
			if got, first := c.lineIndent(child.StartByte()); first {
				if header == nil {
					in, _ := c.lineIndent(node.StartByte())
					header = &in
				}
				if problem := compareIndent(got, *header); problem != "" {
					c.report(child, problem)
				}
			}
		}
		c.walk(child)
	}
}

// checkBlock verifies that an indented body nests under its header in both
// measures and that its statements line up.
func (c *python3Checker) checkBlock(block *sitter.Node) {
	stmts := statements(block)
	if len(stmts) == 0 {
		c.report(block, problemExpectedIndent)
		return
	}

	var ref *sitter.Node
	var want indentation
	for _, s := range stmts {
		if in, first := c.lineIndent(s.StartByte()); first {
			ref, want = s, in
			break
		}
	}
	if ref == nil {
		// Body on the header line, e.g. `if x: pass`.
		return
	}

	if parent := block.Parent(); parent != nil {
		header, _ := c.lineIndent(parent.StartByte())
		deeperCol, deeperAlt := want.col > header.col, want.alt > header.alt
		switch {
		case deeperCol != deeperAlt:
			c.report(ref, problemTabs)
		case !deeperCol:
			c.report(ref, problemExpectedIndent)
		}
	}
	c.alignStatements(stmts, want)
}

func (c *python3Checker) alignStatements(stmts []*sitter.Node, want indentation) {
	for _, s := range stmts {
		got, first := c.lineIndent(s.StartByte())
		if !first {
			continue
		}
		if problem := compareIndent(got, want); problem != "" {
			c.report(s, problem)
		}
	}
}

func (c *python3Checker) checkString(node *sitter.Node) {
	start := node.Child(0)
	if start == nil || start.Kind() != "string_start" {
		return
	}
	text := start.Utf8Text(c.code)
	if strings.Contains(text, "`") {
		c.report(node, "invalid syntax: unexpected '`'")
		return
	}
	prefix := strings.ToLower(strings.TrimRight(text, `'"`))
	if !validStringPrefixes[prefix] {
		c.report(node, fmt.Sprintf("invalid string prefix '%s'", prefix))
	}
}

func (c *python3Checker) checkInteger(node *sitter.Node) {
	text := node.Utf8Text(c.code)
	lower := strings.ToLower(text)
	switch {
	case strings.HasSuffix(lower, "j"):
		// Imaginary literals may have leading zeros.
	case strings.HasSuffix(lower, "l"):
		c.report(node, fmt.Sprintf("invalid integer literal '%s'", text))
	case strings.HasPrefix(lower, "0x"), strings.HasPrefix(lower, "0o"), strings.HasPrefix(lower, "0b"):
	case strings.HasSuffix(text, "_"):
		c.report(node, "invalid decimal literal")
	case len(text) > 1 && text[0] == '0' && strings.Trim(text, "0_") != "":
		c.report(node, "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers")
	}
}

// lineIndent measures the whitespace at the start of the line holding
// offset. first reports whether nothing but that whitespace precedes offset,
// i.e. offset begins a logical line.
func (c *python3Checker) lineIndent(offset uint) (indentation, bool) {
	if offset > uint(len(c.code)) {
		offset = uint(len(c.code))
	}
	start := bytes.LastIndexByte(c.code[:offset], '\n') + 1
	prefix := c.code[start:offset]
	ws := len(prefix) - len(bytes.TrimLeft(prefix, " \t\f"))
	first := ws == len(prefix) && !continuesLine(c.code[:start])
	return measureIndent(prefix[:ws]), first
}

func continuesLine(before []byte) bool {
	before = bytes.TrimSuffix(before, []byte("\n"))
	before = bytes.TrimSuffix(before, []byte("\r"))
	return bytes.HasSuffix(before, []byte("\\"))
}

func measureIndent(ws []byte) indentation {
	var in indentation
	for _, b := range ws {
		switch b {
		case ' ':
			in.col++
			in.alt++
		case '\t':
			in.col = (in.col/tabSize + 1) * tabSize
			in.alt++
		case '\f':
			in = indentation{}
		}
	}
	return in
}

// compareIndent classifies a line whose indentation should equal want.
func compareIndent(got, want indentation) string {
	switch {
	case got == want:
		return ""
	case got.col == want.col:
		return problemTabs
	case got.col > want.col:
		if got.alt <= want.alt {
			return problemTabs
		}
		return problemUnexpected
	default:
		if got.alt >= want.alt {
			return problemTabs
		}
		return problemUnindent
	}
}

// statements returns the named children of a module or block, skipping
// comments and line continuations, which may sit at any indentation.
func statements(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "comment", "line_continuation":
			continue
		}
		out = append(out, child)
	}
	return out
}

func hasDirectChild(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == kind {
			return true
		}
	}
	return false
}
