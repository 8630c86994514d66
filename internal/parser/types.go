package parser

import "fmt"

// Counter defines the interface for language-specific function counters
type Counter interface {
	// CountFunctions parses source code and returns the number of function
	// definitions declared directly at file scope
	CountFunctions(filePath string, code []byte) (int, error)

	// Language returns the language name
	Language() string
}

// Language represents supported programming languages
type Language string

const (
	LanguageGo         Language = "go"
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageTSX        Language = "tsx"
)

// SyntaxError reports the first syntax error found in a file.
type SyntaxError struct {
	File    string
	Line    int // 1-indexed
	Column  int // 1-indexed
	Problem string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%s, line %d, column %d)", e.Problem, e.File, e.Line, e.Column)
}

// EncodingError reports content that cannot be decoded as source text.
type EncodingError struct {
	File   string
	Offset int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s at byte %d (%s)", e.Reason, e.Offset, e.File)
}
