package doctree

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Format   string     // Source format: "pdf", "docx" or "xlsx"
	Children []*DocNode // Pages, sheets or heading sections in source order
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading, sheet name or "Page N"
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page/sheet number (0 if N/A)
	Children []*DocNode // Subsections
}

// SourceMeta describes where a chunk came from. The extractor treats it as opaque.
type SourceMeta struct {
	File   string `json:"file"`
	Format string `json:"format"`
	Pages  []int  `json:"pages,omitempty"`
}

// Chunk is a bounded, overlapping slice of document text.
type Chunk struct {
	Text   string     // Chunk text content
	Index  int        // Sequence number within document
	Source SourceMeta // Origin of the text
}

// Walk visits every node depth-first in source order.
func (t *DocTree) Walk(fn func(n *DocNode)) {
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			fn(n)
			walk(n.Children)
		}
	}
	walk(t.Children)
}
