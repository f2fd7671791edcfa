package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlock_Render(t *testing.T) {
	b := NewBlock("  ", "  ").
		Add("a();", "", "b();\nc();\n").
		AddOnFail("d();")

	want := "  do {\n" +
		"    a();\n" +
		"    b();\n" +
		"    c();\n" +
		"  } on fail var e {\n" +
		"    d();\n" +
		"  }\n"
	assert.Equal(t, want, b.Render())
}

func TestBlock_WithoutFaultBranch(t *testing.T) {
	b := NewBlock("", "\t").Add("x();")
	assert.Equal(t, "do {\n\tx();\n}\n", b.Render())
}

func TestBlock_ReindentsNestedLines(t *testing.T) {
	b := NewBlock("", "  ").Add("if x {\n\ty();\n}")
	assert.Equal(t, "do {\n  if x {\n    y();\n  }\n}\n", b.Render())
}

func TestPipeline_NoPolicies(t *testing.T) {
	b := Pipeline{}.Assemble(NewBlock("", "\t"), "post", DefaultBackendPath, true)

	body, onFail := b.Statements()
	assert.Equal(t, []string{
		"http:Response backendResponse = check backendEP->post(incomingRequest.rawPath, incomingRequest);",
		"check caller->respond(backendResponse);",
	}, body)
	assert.Equal(t, []string{
		"http:Response errFlowResponse = createDefaultErrorResponse(e);",
		"check caller->respond(errFlowResponse);",
	}, onFail)
	assert.NotContains(t, b.Render(), "\n\n")
}

func TestPipeline_WithoutThreadedError(t *testing.T) {
	b := Pipeline{}.Assemble(NewBlock("", "\t"), "post", DefaultBackendPath, false)
	assert.Contains(t, b.Render(), "createDefaultErrorResponse();")
}

func TestPipeline_Order(t *testing.T) {
	p := Pipeline{
		InFlow:    []string{"A();", "B();"},
		OutFlow:   []string{"C();"},
		FaultFlow: []string{"F();"},
	}
	out := p.Assemble(NewBlock("", "\t"), "post", DefaultBackendPath, true).Render()

	order := []string{"A();", "B();", "backendEP->post", "C();", "respond(backendResponse)", "createDefaultErrorResponse", "F();", "respond(errFlowResponse)"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		assert.Greater(t, idx, last, "%s out of order in\n%s", marker, out)
		last = idx
	}
}

func TestBackendCall(t *testing.T) {
	for _, method := range []string{"get", "HEAD", "Options"} {
		got := BackendCall(method, "p")
		lines := strings.Split(got, "\n")
		if assert.Len(t, lines, 2, method) {
			assert.Equal(t, "map<string|string[]> updatedHeaders = copyRequestHeaders(incomingRequest);", lines[0])
			assert.Equal(t, "http:Response backendResponse = check backendEP->"+method+"(p, updatedHeaders);", lines[1])
		}
	}

	for _, method := range []string{"post", "put", "delete", "patch"} {
		got := BackendCall(method, "p")
		assert.NotContains(t, got, "copyRequestHeaders", method)
		assert.Equal(t, "http:Response backendResponse = check backendEP->"+method+"(p, incomingRequest);", got)
	}
}

func TestLineIndent(t *testing.T) {
	src := "a {\n\t  }\nb"
	assert.Equal(t, "\t  ", LineIndent(src, strings.Index(src, "}")))
	assert.Equal(t, "", LineIndent(src, 0))
	assert.Equal(t, "", LineIndent(src, len(src)))
}
