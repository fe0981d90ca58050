package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/rfpagent/internal/doctree"
)

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("Request for proposal: cloud migration.", DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Request for proposal: cloud migration." {
		t.Errorf("unexpected chunk %q", chunks[0])
	}
}

func TestSplitText_EmptyInput(t *testing.T) {
	if chunks := SplitText("", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
	if chunks := SplitText("   \n\n  ", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace, got %d", len(chunks))
	}
}

func TestSplitText_RespectsChunkSize(t *testing.T) {
	text := strings.Repeat("The vendor shall provide quarterly reports. ", 200)
	cfg := DefaultConfig()
	chunks := SplitText(text, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > cfg.ChunkSize {
			t.Errorf("chunk %d: %d runes exceeds %d", i, n, cfg.ChunkSize)
		}
	}
}

func TestSplitText_Overlap(t *testing.T) {
	var words []string
	for i := 0; i < 400; i++ {
		words = append(words, "w"+strings.Repeat("x", i%7))
	}
	text := strings.Join(words, " ")
	cfg := Config{ChunkSize: 100, ChunkOverlap: 30}
	chunks := SplitText(text, cfg)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		first := strings.Fields(chunks[i])[0]
		// The next chunk must start with a word from the tail of the previous one.
		found := false
		for _, w := range prev[len(prev)/2:] {
			if w == first {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("chunk %d does not overlap chunk %d: starts with %q", i, i-1, first)
		}
	}
}

func TestSplitText_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 100) // 599 chars once trimmed
	para2 := strings.Repeat("bravo ", 100)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	chunks := SplitText(text, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "bravo") || strings.Contains(chunks[1], "alpha") {
		t.Errorf("expected paragraphs to stay separate, got %q / %q", chunks[0][:20], chunks[1][:20])
	}
}

func TestSplitText_NoSeparatorsFallsBackToCharacters(t *testing.T) {
	text := strings.Repeat("x", 2500)
	cfg := Config{ChunkSize: 1000, ChunkOverlap: 200}
	chunks := SplitText(text, cfg)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d too long: %d", i, len(c))
		}
	}
}

func TestSplitText_MultibyteCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 900)
	chunks := SplitText(text, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 900 runes to fit one chunk, got %d chunks", len(chunks))
	}
}

func TestSplitText_InvalidOverlapIgnored(t *testing.T) {
	chunks := SplitText(strings.Repeat("word ", 100), Config{ChunkSize: 50, ChunkOverlap: 80})
	if len(chunks) == 0 {
		t.Fatal("expected chunks with overlap >= size normalized")
	}
}

func TestChunkTree_IndexesAndPages(t *testing.T) {
	tree := &doctree.DocTree{
		Title:  "rfp",
		Format: "pdf",
		Children: []*doctree.DocNode{
			{Title: "Page 1", Text: strings.Repeat("First page text. ", 50), Page: 1},
			{Title: "Page 2", Text: strings.Repeat("Second page text. ", 50), Page: 2},
			{Title: "Page 3", Text: strings.Repeat("Third page text. ", 50), Page: 3},
		},
	}

	chunks := ChunkTree(tree, "rfp.pdf", DefaultConfig())
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.Source.File != "rfp.pdf" || c.Source.Format != "pdf" {
			t.Errorf("chunk %d: unexpected source %+v", i, c.Source)
		}
		if len(c.Source.Pages) != 1 || c.Source.Pages[0] != i+1 {
			t.Errorf("chunk %d: expected pages [%d], got %v", i, i+1, c.Source.Pages)
		}
	}
}

func TestChunkTree_NestedNodes(t *testing.T) {
	tree := &doctree.DocTree{
		Children: []*doctree.DocNode{
			{
				Title: "Scope",
				Children: []*doctree.DocNode{
					{Title: "Deliverables", Text: "Monthly status reports."},
				},
			},
			{Text: "   "},
		},
	}
	chunks := ChunkTree(tree, "x.docx", DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Monthly status reports." {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestChunkTree_EmptyTree(t *testing.T) {
	if chunks := ChunkTree(&doctree.DocTree{}, "empty.pdf", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if EstimateTokens("a") != 1 {
		t.Error("expected at least 1 token for non-empty text")
	}
	if got := EstimateTokens(strings.Repeat("word ", 300)); got < 390 || got > 400 {
		t.Errorf("expected ~399 tokens, got %d", got)
	}
}
