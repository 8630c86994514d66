package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Factory maps languages to counters
type Factory struct {
	counters map[Language]Counter
}

// NewFactory creates a new factory with all supported languages
func NewFactory() *Factory {
	return &Factory{
		counters: map[Language]Counter{
			LanguageGo:         NewGoParser(),
			LanguagePython:     NewPythonParser(),
			LanguageJavaScript: NewJavaScriptParser(),
			LanguageTypeScript: NewTypeScriptParser(),
			LanguageTSX:        NewTSXParser(),
		},
	}
}

// Register adds or replaces the counter for lang
func (f *Factory) Register(lang Language, c Counter) {
	f.counters[lang] = c
}

// GetCounter returns a counter for the given language
func (f *Factory) GetCounter(lang Language) (Counter, error) {
	counter, exists := f.counters[lang]
	if !exists {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return counter, nil
}

// GetCounterByFilePath returns a counter based on file extension
func (f *Factory) GetCounterByFilePath(filePath string) (Counter, error) {
	lang := DetectLanguage(filePath)
	if lang == "" {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
	return f.GetCounter(lang)
}

var languageExts = map[string]Language{
	".go":  LanguageGo,
	".py":  LanguagePython,
	".pyi": LanguagePython,
	".js":  LanguageJavaScript,
	".jsx": LanguageJavaScript,
	".mjs": LanguageJavaScript,
	".cjs": LanguageJavaScript,
	".ts":  LanguageTypeScript,
	".mts": LanguageTypeScript,
	".cts": LanguageTypeScript,
	".tsx": LanguageTSX,
}

// DetectLanguage detects the programming language based on file extension
func DetectLanguage(filePath string) Language {
	ext := strings.ToLower(filepath.Ext(filePath))
	return languageExts[ext]
}

// SupportedExtensions returns all supported file extensions in sorted order
func SupportedExtensions() []string {
	exts := make([]string, 0, len(languageExts))
	for ext := range languageExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedFile checks if a file is supported based on its extension
func IsSupportedFile(filePath string) bool {
	return DetectLanguage(filePath) != ""
}
