package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/rfpagent/internal/doctree"
)

// ErrUnsupportedFormat is returned for any extension other than .pdf, .docx or .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format: only PDF, DOCX and XLSX are supported")

// Parser converts a document on disk into a DocTree. Implementations only read the file.
type Parser interface {
	Parse(path string) (*doctree.DocTree, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".xlsx": true,
}

// Options tunes format-specific parser behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".xlsx":
		return &XLSXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
