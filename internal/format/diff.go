// Package format renders the result of a generation run for humans and
// tools: colored diffs of the edited document and edit listings.
package format

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/choreo-dev/mediate/internal/compiler/textedit"
)

// Hunk is a run of original lines and the lines that replace them
type Hunk struct {
	OldStart int
	OldLines []string
	NewStart int
	NewLines []string
}

// DiffResult is the line-level view of a change applied to a document
type DiffResult struct {
	Name  string
	Hunks []Hunk
}

// Changed reports whether the change modifies the document
func (d *DiffResult) Changed() bool {
	return len(d.Hunks) > 0
}

// Diff derives hunks from the edits of change. Edits touching the same
// lines share one hunk, so the hunks follow the edits rather than a line
// matching heuristic.
func Diff(name, source string, change *textedit.Change) *DiffResult {
	result := &DiffResult{Name: name}
	if change == nil || len(change.Edits) == 0 {
		return result
	}

	delta := 0
	edits := change.Edits
	for i := 0; i < len(edits); {
		start := lineStart(source, edits[i].Range.Start)
		end := lineEnd(source, edits[i].Range.End)

		// gather every edit that starts on a line already covered
		j := i + 1
		for j < len(edits) && edits[j].Range.Start <= end {
			if e := lineEnd(source, edits[j].Range.End); e > end {
				end = e
			}
			j++
		}

		var replaced strings.Builder
		cursor := start
		for _, e := range edits[i:j] {
			replaced.WriteString(source[cursor:e.Range.Start])
			replaced.WriteString(e.NewText)
			cursor = e.Range.End
		}
		replaced.WriteString(source[cursor:end])

		oldLines := splitLines(source[start:end])
		newLines := splitLines(replaced.String())
		oldStart := strings.Count(source[:start], "\n") + 1

		if !equalLines(oldLines, newLines) {
			result.Hunks = append(result.Hunks, Hunk{
				OldStart: oldStart,
				OldLines: oldLines,
				NewStart: oldStart + delta,
				NewLines: newLines,
			})
		}
		delta += len(newLines) - len(oldLines)
		i = j
	}

	return result
}

// String renders the diff with color highlighting
func (d *DiffResult) String() string {
	if !d.Changed() {
		return color.GreenString("No changes")
	}

	var buf bytes.Buffer
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	for _, h := range d.Hunks {
		cyan.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", h.OldStart, len(h.OldLines), h.NewStart, len(h.NewLines))
		for _, line := range h.OldLines {
			red.Fprintf(&buf, "- %s\n", line)
		}
		for _, line := range h.NewLines {
			green.Fprintf(&buf, "+ %s\n", line)
		}
	}

	return buf.String()
}

// UnifiedDiff returns the diff in unified format without context lines
func (d *DiffResult) UnifiedDiff() string {
	if !d.Changed() {
		return ""
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n", d.Name)
	fmt.Fprintf(&buf, "+++ b/%s\n", d.Name)

	for _, h := range d.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", h.OldStart, len(h.OldLines), h.NewStart, len(h.NewLines))
		for _, line := range h.OldLines {
			fmt.Fprintf(&buf, "-%s\n", line)
		}
		for _, line := range h.NewLines {
			fmt.Fprintf(&buf, "+%s\n", line)
		}
	}

	return buf.String()
}

// Stats summarizes the diff
func (d *DiffResult) Stats() string {
	if !d.Changed() {
		return "No changes"
	}

	added, removed := 0, 0
	for _, h := range d.Hunks {
		added += len(h.NewLines)
		removed += len(h.OldLines)
	}
	return fmt.Sprintf("%d hunks, %d lines added, %d removed", len(d.Hunks), added, removed)
}

func lineStart(source string, offset int) int {
	return strings.LastIndexByte(source[:offset], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line that
// holds offset. An offset at a line start belongs to the previous line
// unless it is also the start of the edit.
func lineEnd(source string, offset int) int {
	if offset > 0 && source[offset-1] == '\n' {
		return offset
	}
	if i := strings.IndexByte(source[offset:], '\n'); i >= 0 {
		return offset + i + 1
	}
	return len(source)
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
