package codegen

import (
	"fmt"
	"strings"
)

// Block is a `do { } on fail var e { }` statement under construction.
// Statements may span several lines; each line is indented on render and
// empty lines are dropped.
type Block struct {
	indent string
	unit   string
	body   []string
	onFail []string
}

// NewBlock creates a block whose keywords sit at indent. Statements are
// indented one unit further.
func NewBlock(indent, unit string) *Block {
	return &Block{indent: indent, unit: unit}
}

// Add appends a statement to the success branch. Empty statements are ignored.
func (b *Block) Add(stmts ...string) *Block {
	b.body = appendStatements(b.body, stmts)
	return b
}

// AddOnFail appends a statement to the fault branch. Empty statements are
// ignored.
func (b *Block) AddOnFail(stmts ...string) *Block {
	b.onFail = appendStatements(b.onFail, stmts)
	return b
}

// Statements returns the success and fault branch statements
func (b *Block) Statements() (body, onFail []string) {
	return b.body, b.onFail
}

// Render returns the block text, terminated by a newline
func (b *Block) Render() string {
	var sb strings.Builder

	sb.WriteString(b.indent)
	sb.WriteString("do {\n")
	b.writeLines(&sb, b.body)

	if len(b.onFail) > 0 {
		sb.WriteString(b.indent)
		fmt.Fprintf(&sb, "} on fail var %s {\n", ErrorVar)
		b.writeLines(&sb, b.onFail)
	}

	sb.WriteString(b.indent)
	sb.WriteString("}\n")
	return sb.String()
}

func (b *Block) writeLines(sb *strings.Builder, stmts []string) {
	for _, stmt := range stmts {
		for _, line := range strings.Split(stmt, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			sb.WriteString(b.indent)
			sb.WriteString(b.unit)
			// nested template lines are tab indented; re-indent them in units
			trimmed := strings.TrimLeft(line, "\t")
			sb.WriteString(strings.Repeat(b.unit, len(line)-len(trimmed)))
			sb.WriteString(trimmed)
			sb.WriteByte('\n')
		}
	}
}

func appendStatements(dst, stmts []string) []string {
	for _, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		dst = append(dst, strings.TrimRight(stmt, "\n"))
	}
	return dst
}

// Pipeline holds the rendered policy invocations of one handler, each stage
// in attachment order
type Pipeline struct {
	InFlow    []string
	OutFlow   []string
	FaultFlow []string
}

// Assemble builds the handler block: inflow, backend call, outflow and the
// response write on success; the default error response, faultflow and the
// error response write on failure.
func (p Pipeline) Assemble(b *Block, method, path string, threadError bool) *Block {
	errArg := ""
	if threadError {
		errArg = ErrorVar
	}

	b.Add(p.InFlow...).
		Add(BackendCall(method, path)).
		Add(p.OutFlow...).
		Add(Respond(BackendResponse))

	b.AddOnFail(fmt.Sprintf("http:Response %s = createDefaultErrorResponse(%s);", ErrFlowResponse, errArg)).
		AddOnFail(p.FaultFlow...).
		AddOnFail(Respond(ErrFlowResponse))

	return b
}

// Respond writes value back through the caller
func Respond(value string) string {
	return fmt.Sprintf("check %s->respond(%s);", Caller, value)
}

// BackendCall returns the statements forwarding the request to the backend.
// GET, HEAD and OPTIONS client calls take headers rather than a request, so
// the incoming headers are copied first.
func BackendCall(method, path string) string {
	if readOnly(method) {
		return fmt.Sprintf("map<string|string[]> %s = copyRequestHeaders(%s);\n", UpdatedHeaders, IncomingRequest) +
			fmt.Sprintf("http:Response %s = check %s->%s(%s, %s);", BackendResponse, BackendEndpoint, method, path, UpdatedHeaders)
	}
	return fmt.Sprintf("http:Response %s = check %s->%s(%s, %s);", BackendResponse, BackendEndpoint, method, path, IncomingRequest)
}

func readOnly(method string) bool {
	switch strings.ToLower(method) {
	case "get", "head", "options":
		return true
	}
	return false
}

// LineIndent returns the leading whitespace of the line containing offset
func LineIndent(source string, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := start
	for end < len(source) && (source[end] == ' ' || source[end] == '\t') {
		end++
	}
	return source[start:end]
}
