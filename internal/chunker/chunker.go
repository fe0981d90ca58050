package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/rfpagent/internal/doctree"
)

// Config controls chunking behavior. Sizes are in characters (runes).
type Config struct {
	ChunkSize    int // Maximum chunk length.
	ChunkOverlap int // Overlap carried from the end of one chunk into the next.
}

// DefaultConfig returns the extraction pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Separators in order of preference: paragraph, line, word, character.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

func (c Config) normalized() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 0
	}
	return c
}

// ChunkTree concatenates every node's text in source order and splits the
// result into overlapping chunks. Page numbers covered by each chunk are
// recorded in its SourceMeta.
func ChunkTree(tree *doctree.DocTree, file string, cfg Config) []doctree.Chunk {
	type span struct {
		start, end int
		page       int
	}

	var sb strings.Builder
	var spans []span
	tree.Walk(func(n *doctree.DocNode) {
		text := strings.TrimSpace(n.Text)
		if text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		start := sb.Len()
		sb.WriteString(text)
		spans = append(spans, span{start: start, end: sb.Len(), page: n.Page})
	})
	combined := sb.String()

	var chunks []doctree.Chunk
	cursor := 0
	for i, part := range SplitText(combined, cfg) {
		meta := doctree.SourceMeta{File: file, Format: tree.Format}

		// Locate the chunk in the combined text to attribute pages. Chunks
		// rebuilt from collapsed separators may not be found verbatim.
		if idx := strings.Index(combined[cursor:], part); idx >= 0 {
			start := cursor + idx
			end := start + len(part)
			for _, s := range spans {
				if s.page > 0 && s.start < end && start < s.end {
					meta.Pages = appendUnique(meta.Pages, s.page)
				}
			}
			cursor = start + 1
			if cursor > len(combined) {
				cursor = len(combined)
			}
		}

		chunks = append(chunks, doctree.Chunk{
			Text:   part,
			Index:  i,
			Source: meta,
		})
	}
	return chunks
}

// SplitText recursively splits text so that every piece is at most
// cfg.ChunkSize characters, preferring paragraph, then line, then word
// boundaries, and carrying up to cfg.ChunkOverlap characters between pieces.
func SplitText(text string, cfg Config) []string {
	cfg = cfg.normalized()
	return splitRecursive(text, defaultSeparators, cfg)
}

func splitRecursive(text string, separators []string, cfg Config) []string {
	// Pick the first separator present in the text.
	sep := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep = s
			next = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, sep)

	var result []string
	var good []string
	for _, s := range splits {
		if runeLen(s) < cfg.ChunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			result = append(result, mergeSplits(good, sep, cfg)...)
			good = nil
		}
		if len(next) == 0 {
			result = append(result, s)
		} else {
			result = append(result, splitRecursive(s, next, cfg)...)
		}
	}
	if len(good) > 0 {
		result = append(result, mergeSplits(good, sep, cfg)...)
	}
	return result
}

// splitOn splits on sep, dropping empty pieces. An empty separator splits into runes.
func splitOn(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// mergeSplits packs small splits into chunks no longer than ChunkSize,
// starting each new chunk with trailing splits of the previous one up to
// ChunkOverlap characters.
func mergeSplits(splits []string, sep string, cfg Config) []string {
	sepLen := runeLen(sep)

	var docs []string
	var current []string
	total := 0

	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, s := range splits {
		n := runeLen(s)
		if total+n+joinLen() > cfg.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			// Drop leading splits until the remainder fits the overlap budget
			// and leaves room for the incoming split.
			for total > cfg.ChunkOverlap || (total+n+joinLen() > cfg.ChunkSize && total > 0) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		total += n + joinLen()
		current = append(current, s)
	}

	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func appendUnique(pages []int, p int) []int {
	for _, existing := range pages {
		if existing == p {
			return pages
		}
	}
	return append(pages, p)
}
