package textedit

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// LineIndex converts byte offsets of a buffer into LSP positions
type LineIndex struct {
	source string
	starts []int
}

// NewLineIndex indexes the line starts of source
func NewLineIndex(source string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{source: source, starts: starts}
}

// Position returns the zero-based line and UTF-16 character of offset
func (li *LineIndex) Position(offset int) protocol.Position {
	if offset > len(li.source) {
		offset = len(li.source)
	}

	line := 0
	lo, hi := 0, len(li.starts)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if li.starts[mid] <= offset {
			line = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	character := 0
	for _, r := range li.source[li.starts[line]:offset] {
		if r >= 0x10000 {
			character += 2
		} else {
			character++
		}
	}

	return protocol.Position{Line: uint32(line), Character: uint32(character)}
}

// Offset returns the byte offset of a zero-based line and UTF-16 character.
// Positions past the end of a line clamp to the line end.
func (li *LineIndex) Offset(pos protocol.Position) int {
	line := int(pos.Line)
	if line >= len(li.starts) {
		return len(li.source)
	}

	offset := li.starts[line]
	character := 0
	for i, r := range li.source[offset:] {
		if r == '\n' || character >= int(pos.Character) {
			return offset + i
		}
		if r >= 0x10000 {
			character += 2
		} else {
			character++
		}
	}
	return len(li.source)
}

// Range converts a byte range into an LSP range
func (li *LineIndex) Range(r Range) protocol.Range {
	return protocol.Range{Start: li.Position(r.Start), End: li.Position(r.End)}
}

// ToLSP converts the change into LSP text edits for source
func (c *Change) ToLSP(source string) []protocol.TextEdit {
	li := NewLineIndex(source)
	out := make([]protocol.TextEdit, 0, len(c.Edits))
	for _, e := range c.Edits {
		out = append(out, protocol.TextEdit{
			Range:   li.Range(e.Range),
			NewText: e.NewText,
		})
	}
	return out
}

// WorkspaceEdit wraps the change for the file at path
func (c *Change) WorkspaceEdit(path, source string) *protocol.WorkspaceEdit {
	return &protocol.WorkspaceEdit{
		Changes: map[uri.URI][]protocol.TextEdit{
			uri.File(path): c.ToLSP(source),
		},
	}
}

// LineRange returns the range of the text of a zero-based line, without its
// line break. Lines past the end clamp to the last line.
func (li *LineIndex) LineRange(line int) protocol.Range {
	if line < 0 {
		line = 0
	}
	if line >= len(li.starts) {
		line = len(li.starts) - 1
	}
	end := len(li.source)
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	if end > li.starts[line] && li.source[end-1] == '\r' {
		end--
	}
	return protocol.Range{Start: li.Position(li.starts[line]), End: li.Position(end)}
}
