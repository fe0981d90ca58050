package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/xuri/excelize/v2"
)

func writeDOCX(t *testing.T, dir, name string, paragraphs ...string) string {
	t.Helper()
	w := docx.New().WithDefaultTheme()
	for _, p := range paragraphs {
		w.AddParagraph().AddText(p)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	defer f.Close()
	if _, err := w.WriteTo(f); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return path
}

func writeXLSX(t *testing.T, dir, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Requirement")
	f.SetCellValue("Sheet1", "B1", "Priority")
	f.SetCellValue("Sheet1", "A2", "Provide 24/7 support")
	f.SetCellValue("Sheet1", "B2", "High")
	if _, err := f.NewSheet("Pricing"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	f.SetCellValue("Pricing", "A1", "Unit cost")
	f.SetCellValue("Pricing", "B1", 42)
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	return path
}

func TestForFile_Dispatch(t *testing.T) {
	tests := []struct {
		filename string
		want     any
	}{
		{"rfp.pdf", &PDFParser{}},
		{"RFP.PDF", &PDFParser{}},
		{"rfp.docx", &DOCXParser{}},
		{"rfp.xlsx", &XLSXParser{}},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		switch tt.want.(type) {
		case *PDFParser:
			if _, ok := p.(*PDFParser); !ok {
				t.Errorf("%s: expected PDFParser, got %T", tt.filename, p)
			}
		case *DOCXParser:
			if _, ok := p.(*DOCXParser); !ok {
				t.Errorf("%s: expected DOCXParser, got %T", tt.filename, p)
			}
		case *XLSXParser:
			if _, ok := p.(*XLSXParser); !ok {
				t.Errorf("%s: expected XLSXParser, got %T", tt.filename, p)
			}
		}
	}
}

func TestForFile_Unsupported(t *testing.T) {
	for _, name := range []string{"notes.txt", "page.html", "data.csv", "legacy.doc", "noext"} {
		_, err := ForFile(name, Options{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: expected ErrUnsupportedFormat, got %v", name, err)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("a.Docx") {
		t.Error("expected .Docx to be supported")
	}
	if IsSupportedExtension("a.txt") {
		t.Error("expected .txt to be unsupported")
	}
}

func TestDOCXParser_Paragraphs(t *testing.T) {
	path := writeDOCX(t, t.TempDir(), "tender.docx",
		"Scope of work: migrate the billing platform.",
		"Proposals are due on 1 March.")

	tree, err := (&DOCXParser{}).Parse(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "tender" {
		t.Errorf("expected title %q, got %q", "tender", tree.Title)
	}
	if tree.Format != "docx" {
		t.Errorf("expected format docx, got %q", tree.Format)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child without headings, got %d", len(tree.Children))
	}
	text := tree.Children[0].Text
	for _, want := range []string{"Scope of work", "due on 1 March"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
}

func TestDOCXParser_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&DOCXParser{}).Parse(path); err == nil {
		t.Fatal("expected error for corrupt docx")
	}
}

func TestXLSXParser_SheetsBecomeNodes(t *testing.T) {
	path := writeXLSX(t, t.TempDir(), "matrix.xlsx")

	tree, err := (&XLSXParser{}).Parse(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 sheet nodes, got %d", len(tree.Children))
	}
	first := tree.Children[0]
	if first.Title != "Sheet1" || first.Page != 1 {
		t.Errorf("unexpected first sheet node: title=%q page=%d", first.Title, first.Page)
	}
	if first.Text != "Requirement\tPriority\nProvide 24/7 support\tHigh" {
		t.Errorf("unexpected sheet text %q", first.Text)
	}
	if !strings.Contains(tree.Children[1].Text, "Unit cost\t42") {
		t.Errorf("expected pricing row, got %q", tree.Children[1].Text)
	}
}

func TestPDFParser_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (&PDFParser{FallbackPdftotext: false}).Parse(path); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestPDFParser_MissingFile(t *testing.T) {
	_, err := (&PDFParser{}).Parse(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
