package extract

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgallion1/rfpagent/internal/doctree"
)

// ErrFallback is returned when the fallback structure cannot be built.
var ErrFallback = errors.New("fallback construction failed")

// Fallback builds a StructuredRFP with one top-level section per chunk,
// in chunk order. title is used as metadata.title.
func Fallback(title string, chunks []doctree.Chunk) (*StructuredRFP, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", ErrFallback)
	}

	sections := make([]Section, len(chunks))
	for i, c := range chunks {
		n := strconv.Itoa(i + 1)
		sections[i] = Section{
			ID:      ID(n),
			Title:   "Section " + n,
			Content: c.Text,
			Level:   1,
		}
	}

	rfp := &StructuredRFP{
		Metadata: Metadata{Title: title},
		Sections: sections,
	}
	rfp.normalize(title)
	return rfp, nil
}
