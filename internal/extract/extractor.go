// Package extract provides page-mapped text extraction from document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Page is extracted text with its 1-based page number. Formats without page
// structure yield a single page; spreadsheets yield one page per sheet.
type Page struct {
	Number int
	Text   string
}

// SupportedExtensions lists the file extensions the extractor accepts,
// lower-case with leading dot.
var SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}

// Supported reports whether the file at path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text split into pages.
// Returns an error for unreadable files or unsupported formats.
func (e *Extractor) Extract(path string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts pages from content based on the given extension.
// ext includes the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]Page, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", "":
		return extractPlain(content)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// Text joins pages into a single string separated by newlines.
func Text(pages []Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}
