package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/rfpagent/internal/doctree"
	"github.com/xuri/excelize/v2"
)

// XLSXParser handles .xlsx workbooks. Each sheet becomes one node whose text
// has one line per non-empty row, cells separated by tabs.
type XLSXParser struct{}

func (p *XLSXParser) Parse(path string) (*doctree.DocTree, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	tree := &doctree.DocTree{
		Title:  titleFromPath(path),
		Format: "xlsx",
	}

	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var lines []string
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: sheet,
			Text:  strings.Join(lines, "\n"),
			Page:  i + 1,
		})
	}

	return tree, nil
}
