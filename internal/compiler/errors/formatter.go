package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatError renders e for a terminal:
//
//	error[MED701]: Unexpected resource path segment '?'
//	  --> petstore.bal:4:31
//	   |
//	 4 |     resource function get pets/?() {
//	   |
//	   = expected: identifier, '/', [T name] or [T... name]
//	   = help: ...
func FormatError(e *CompilerError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s[%s]: %s\n", e.Severity, e.Code, e.Message)
	if e.File != "" || e.Location.Line > 0 {
		fmt.Fprintf(&b, "  --> %s:%d:%d\n", displayFile(e.File), e.Location.Line, e.Location.Column)
	}

	gutter := 2
	if e.Snippet != nil {
		last := e.Snippet.FirstLine + len(e.Snippet.Lines) - 1
		gutter = len(strconv.Itoa(last)) + 1
		pad := strings.Repeat(" ", gutter)

		fmt.Fprintf(&b, "%s|\n", pad)
		for i, line := range e.Snippet.Lines {
			n := e.Snippet.FirstLine + i
			fmt.Fprintf(&b, "%*d | %s\n", gutter-1, n, line)
			if n == e.Location.Line && e.Location.Column > 0 {
				fmt.Fprintf(&b, "%s| %s^\n", pad, strings.Repeat(" ", e.Location.Column-1))
			}
		}
		fmt.Fprintf(&b, "%s|\n", pad)
	}

	note := func(label, text string) {
		fmt.Fprintf(&b, "%s= %s: %s\n", strings.Repeat(" ", gutter), label, text)
	}
	if e.Expected != "" {
		note("expected", e.Expected)
	}
	if e.Found != "" {
		note("found", e.Found)
	}
	if e.Suggestion != "" {
		note("help", e.Suggestion)
	}
	if len(e.Examples) > 0 {
		note("e.g.", strings.Join(e.Examples, ", "))
	}

	return b.String()
}

// FormatErrorList renders every diagnostic followed by a count line
func FormatErrorList(list ErrorList) string {
	var b strings.Builder
	for _, e := range list {
		b.WriteString(FormatError(e))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d error(s), %d warning(s)\n", list.Count(SeverityError), list.Count(SeverityWarning))
	return b.String()
}
