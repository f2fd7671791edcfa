package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/choreo-dev/mediate/internal/compiler/textedit"
)

// Edit listing formats
const (
	EditsJSON = "json"
	EditsLSP  = "lsp"
)

// WriteEdits writes the edits of change. The json format lists byte ranges;
// the lsp format is a WorkspaceEdit with UTF-16 line/character positions.
func WriteEdits(w io.Writer, mode, path, source string, change *textedit.Change) error {
	var v any
	switch mode {
	case EditsJSON, "":
		v = change
	case EditsLSP:
		v = change.WorkspaceEdit(path, source)
	default:
		return fmt.Errorf("unknown edit format %q (want %s or %s)", mode, EditsJSON, EditsLSP)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode edits: %w", err)
	}
	return nil
}
