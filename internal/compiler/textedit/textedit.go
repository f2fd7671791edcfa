// Package textedit models text edits against an immutable source buffer.
// Edits are expressed in original byte offsets, checked for overlap once,
// and applied simultaneously.
package textedit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// Range is a half-open byte range [Start, End) in the original buffer
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes the range replaces
func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether two ranges share at least one byte. Two
// zero-length inserts at the same offset do not overlap; an insert strictly
// inside a replaced range does.
func (r Range) Overlaps(o Range) bool {
	if r.Len() == 0 && o.Len() == 0 {
		return false
	}
	if r.Len() == 0 {
		return r.Start > o.Start && r.Start < o.End
	}
	if o.Len() == 0 {
		return o.Start > r.Start && o.Start < r.End
	}
	return r.Start < o.End && o.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Edit replaces the bytes in Range with NewText
type Edit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// Insert returns a zero-length edit inserting text at offset
func Insert(offset int, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// Replace returns an edit replacing [start, end) with text
func Replace(start, end int, text string) Edit {
	return Edit{Range: Range{Start: start, End: end}, NewText: text}
}

// Change is a validated set of non-overlapping edits for one document
type Change struct {
	Document string `json:"document"`
	Edits    []Edit `json:"edits"`
}

// NewChange validates edits against a source of length size and returns
// them as a Change in offset order. At equal offsets inserts come before
// replacements, otherwise insertion order is kept.
func NewChange(document string, size int, edits []Edit) (*Change, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Range.Start != sorted[j].Range.Start {
			return sorted[i].Range.Start < sorted[j].Range.Start
		}
		return sorted[i].Range.Len() == 0 && sorted[j].Range.Len() != 0
	})

	for i, e := range sorted {
		if e.Range.Start < 0 || e.Range.End < e.Range.Start || e.Range.End > size {
			return nil, fmt.Errorf("edit %s is outside document of %d bytes", e.Range, size)
		}
		for _, prev := range sorted[:i] {
			if prev.Range.Overlaps(e.Range) {
				return nil, errors.NewOverlappingEdits(ast.SourceLocation{}, prev.Range.String(), e.Range.String()).
					WithFile(document)
			}
		}
	}

	return &Change{Document: document, Edits: sorted}, nil
}

// Apply produces the edited text. Every edit is applied against the original
// offsets of source.
func (c *Change) Apply(source string) (string, error) {
	var b strings.Builder
	b.Grow(len(source) + c.growth())

	cursor := 0
	for _, e := range c.Edits {
		if e.Range.End > len(source) || e.Range.Start < cursor {
			return "", fmt.Errorf("edit %s does not fit document of %d bytes", e.Range, len(source))
		}
		b.WriteString(source[cursor:e.Range.Start])
		b.WriteString(e.NewText)
		cursor = e.Range.End
	}
	b.WriteString(source[cursor:])

	return b.String(), nil
}

// Len returns the number of edits
func (c *Change) Len() int {
	return len(c.Edits)
}

func (c *Change) growth() int {
	n := 0
	for _, e := range c.Edits {
		n += len(e.NewText) - e.Range.Len()
	}
	if n < 0 {
		return 0
	}
	return n
}
