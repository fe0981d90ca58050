// Package loader turns a staged RFP file into ordered, overlapping text chunks.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/rfpagent/internal/chunker"
	"github.com/dgallion1/rfpagent/internal/doctree"
	"github.com/dgallion1/rfpagent/internal/parser"
)

// ErrUnsupportedFormat is returned when the path does not end in .pdf, .docx or .xlsx.
var ErrUnsupportedFormat = parser.ErrUnsupportedFormat

// ErrNoText marks a document that parsed but yielded no extractable text.
var ErrNoText = errors.New("no extractable text")

// DocumentParseError reports a file that exists with a supported extension
// but could not be read.
type DocumentParseError struct {
	Path string
	Err  error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("parse document %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// Loader loads documents into chunks.
type Loader interface {
	Load(ctx context.Context, path string) ([]doctree.Chunk, error)
}

// FileLoader is the production Loader backed by the format parsers.
type FileLoader struct {
	Chunking chunker.Config
	Parsing  parser.Options
}

// New returns a FileLoader with the given chunking parameters.
func New(chunkCfg chunker.Config, opts parser.Options) *FileLoader {
	return &FileLoader{Chunking: chunkCfg, Parsing: opts}
}

// Load reads the file at path and splits its text into chunks. It never
// modifies the file. A successful load always returns at least one chunk.
func (l *FileLoader) Load(ctx context.Context, path string) ([]doctree.Chunk, error) {
	tree, err := l.Tree(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks := chunker.ChunkTree(tree, filepath.Base(path), l.Chunking)
	if len(chunks) == 0 {
		return nil, &DocumentParseError{Path: path, Err: ErrNoText}
	}
	return chunks, nil
}

// Tree parses the file at path without chunking it.
func (l *FileLoader) Tree(ctx context.Context, path string) (*doctree.DocTree, error) {
	p, err := parser.ForFile(path, l.Parsing)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := p.Parse(path)
	if err != nil {
		return nil, &DocumentParseError{Path: path, Err: err}
	}
	return tree, nil
}

// Text returns the full document text without chunk overlap, nodes
// separated by blank lines.
func (l *FileLoader) Text(ctx context.Context, path string) (string, error) {
	tree, err := l.Tree(ctx, path)
	if err != nil {
		return "", err
	}

	var parts []string
	tree.Walk(func(n *doctree.DocNode) {
		if t := strings.TrimSpace(n.Text); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return "", &DocumentParseError{Path: path, Err: ErrNoText}
	}
	return strings.Join(parts, "\n\n"), nil
}

// Join concatenates chunk text with sep.
func Join(chunks []doctree.Chunk, sep string) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}
