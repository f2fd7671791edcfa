package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

func TestEveryCodeIsRegistered(t *testing.T) {
	all := []ErrorCode{
		ErrUnexpectedToken, ErrExpectedToken, ErrInvalidCharacter,
		ErrInput, ErrUnexpectedPathSegment, ErrContextOutsideResource,
		ErrMalformedPolicyName, ErrInvalidPolicyVersion, ErrNoService,
		ErrOverlappingEdits, ErrPolicyNotFound, ErrTemplate, ErrUnmatchedOperation,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range all {
		if seen[code] {
			t.Errorf("Duplicate error code %s", code)
		}
		seen[code] = true
		if _, ok := codes[code]; !ok {
			t.Errorf("Code %s is not registered", code)
		}
	}
	if len(codes) != len(all) {
		t.Errorf("Expected %d registered codes, got %d", len(all), len(codes))
	}
}

func TestErrorCategories(t *testing.T) {
	loc := ast.SourceLocation{Line: 1, Column: 1}
	tests := []struct {
		name     string
		err      *CompilerError
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"Syntax error", NewUnexpectedToken(loc, "}", ""), CategorySyntax, SeverityError},
		{"Input", NewInputError(fmt.Errorf("no such file")), CategoryInput, SeverityError},
		{"Path segment", NewUnexpectedPathSegment(loc, "?"), CategoryOperation, SeverityError},
		{"Outside resource", NewContextOutsideResource(loc, "operation key"), CategoryOperation, SeverityError},
		{"Policy name", NewMalformedPolicyName("x"), CategoryPolicy, SeverityError},
		{"Policy version", NewInvalidPolicyVersion("a/b", "one", nil), CategoryPolicy, SeverityError},
		{"Policy missing", NewPolicyNotFound("a/b:1.0.0", nil), CategoryPolicy, SeverityError},
		{"No service", NewNoService(""), CategoryDocument, SeverityError},
		{"Overlap", NewOverlappingEdits(loc, "[0,4)", "[2,6)"), CategoryDocument, SeverityError},
		{"Template", NewTemplateError("outflow", fmt.Errorf("boom")), CategoryTemplate, SeverityError},
		{"Unmatched", NewUnmatchedOperation("api.yaml", "get /pets", nil), CategoryOperation, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Expected category %s, got %s", tt.category, tt.err.Category)
			}
			if tt.err.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, tt.err.Severity)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	err := NewUnexpectedPathSegment(ast.SourceLocation{Line: 2, Column: 32}, "?").
		WithFile("service.bal").
		WithSnippet(1,
			"service / on ep {",
			"    resource function get pets/?() {",
			"    }")

	want := "error[MED701]: Unexpected resource path segment '?'\n" +
		"  --> service.bal:2:32\n" +
		"  |\n" +
		"1 | service / on ep {\n" +
		"2 |     resource function get pets/?() {\n" +
		"  |                                ^\n" +
		"3 |     }\n" +
		"  |\n" +
		"  = expected: identifier, '/', [T name] or [T... name]\n" +
		"  = found: ?\n"

	if got := err.Error(); got != want {
		t.Errorf("Unexpected format:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatError_WithoutLocation(t *testing.T) {
	got := FormatError(NewMalformedPolicyName("add_header"))

	for _, want := range []string{
		"error[MED703]: Invalid policy name 'add_header'\n",
		"  = expected: org/name\n",
		"  = e.g.: choreo/add_header, wso2/rate_limit\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Formatted error should contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "-->") {
		t.Errorf("Errors without file or line have no location line:\n%s", got)
	}
}

func TestErrorList(t *testing.T) {
	list := ErrorList{
		NewNoService("a.bal"),
		NewUnmatchedOperation("api.yaml", "get /pets", nil),
		NewUnmatchedOperation("api.yaml", "post /pets", nil),
	}

	if list.Count(SeverityError) != 1 || list.Count(SeverityWarning) != 2 {
		t.Errorf("Expected 1 error and 2 warnings, got %d/%d", list.Count(SeverityError), list.Count(SeverityWarning))
	}
	if !list.HasErrors() || !list.HasWarnings() {
		t.Error("Expected both errors and warnings")
	}
	if list[1:].HasErrors() {
		t.Error("Expected HasErrors() to be false for warnings only")
	}
	if !strings.HasSuffix(list.Error(), "1 error(s), 2 warning(s)\n") {
		t.Errorf("Expected a count line, got:\n%s", list.Error())
	}
}

func TestCompact(t *testing.T) {
	got := NewNoService("main.bal").Compact()
	want := "main.bal:1:1: error: Document does not contain a service declaration [MED705]"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	got = NewMalformedPolicyName("x").Compact()
	if !strings.HasPrefix(got, "<source>:0:0: error:") {
		t.Errorf("Unexpected compact form %q", got)
	}
}

func TestFlatten(t *testing.T) {
	if Flatten(nil) != nil {
		t.Error("nil has no diagnostics")
	}

	list := ErrorList{NewNoService("a.bal"), NewTemplateError("inflow", fmt.Errorf("x"))}
	if got := Flatten(fmt.Errorf("failed to generate: %w", list)); len(got) != 2 {
		t.Errorf("Expected the wrapped list, got %d", len(got))
	}

	single := NewPolicyNotFound("a/b:1.0.0", nil)
	if got := Flatten(fmt.Errorf("failed: %w", single)); len(got) != 1 || got[0] != single {
		t.Errorf("Expected the wrapped error, got %v", got)
	}

	got := Flatten(fmt.Errorf("open api.yaml: no such file"))
	if len(got) != 1 || got[0].Code != ErrInput || got[0].Message != "open api.yaml: no such file" {
		t.Errorf("Expected an input error, got %+v", got)
	}
}

func TestReport_JSON(t *testing.T) {
	failure := ErrorList{NewUnexpectedToken(ast.SourceLocation{Line: 3, Column: 5}, "}", "").WithFile("petstore.bal")}
	warnings := ErrorList{NewUnmatchedOperation("api.yaml", "get /pets", []string{"get /pets/*"})}

	report := NewReport("petstore.bal", failure, warnings)
	if !report.Failed(false) {
		t.Error("A report with errors fails")
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var parsed struct {
		File        string `json:"file"`
		OK          bool   `json:"ok"`
		Errors      int    `json:"errors"`
		Warnings    int    `json:"warnings"`
		Diagnostics []struct {
			Code       string             `json:"code"`
			Severity   string             `json:"severity"`
			Location   ast.SourceLocation `json:"location"`
			Suggestion string             `json:"suggestion"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Report is not JSON: %v\n%s", err, buf.String())
	}

	if parsed.File != "petstore.bal" || parsed.OK || parsed.Errors != 1 || parsed.Warnings != 1 {
		t.Errorf("Unexpected report header: %+v", parsed)
	}
	if len(parsed.Diagnostics) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(parsed.Diagnostics))
	}
	if parsed.Diagnostics[0].Code != "SYN001" || parsed.Diagnostics[0].Location.Line != 3 {
		t.Errorf("Unexpected first diagnostic: %+v", parsed.Diagnostics[0])
	}
	if parsed.Diagnostics[1].Severity != "warning" || parsed.Diagnostics[1].Suggestion != "Did you mean: get /pets/*?" {
		t.Errorf("Unexpected second diagnostic: %+v", parsed.Diagnostics[1])
	}
	if len(failure) != 1 {
		t.Error("NewReport must not grow the caller's list")
	}
}

func TestReport_Success(t *testing.T) {
	report := NewReport("petstore.bal", nil, nil)
	if !report.OK || report.Failed(true) {
		t.Errorf("Expected a clean report, got %+v", report)
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"diagnostics": []`) {
		t.Errorf("Expected an empty diagnostics array:\n%s", buf.String())
	}
}

func TestReport_StrictWarnings(t *testing.T) {
	report := NewReport("petstore.bal", nil, ErrorList{NewUnmatchedOperation("api.yaml", "get /pets", nil)})

	if !report.OK {
		t.Error("Warnings alone keep the report OK")
	}
	if report.Failed(false) {
		t.Error("Warnings do not fail a lenient run")
	}
	if !report.Failed(true) {
		t.Error("Warnings fail a strict run")
	}

	var buf bytes.Buffer
	if err := report.WriteCompact(&buf); err != nil {
		t.Fatalf("WriteCompact: %v", err)
	}
	want := "api.yaml:0:0: warning: API operation 'get /pets' has no resource function [MED709]\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
}

func TestAsCompilerError(t *testing.T) {
	base := NewPolicyNotFound("choreo/add_header:1.0.0", nil)
	wrapped := fmt.Errorf("failed to resolve policies: %w", base)

	ce, ok := AsCompilerError(wrapped)
	if !ok {
		t.Fatal("Expected wrapped CompilerError to be found")
	}
	if ce != base {
		t.Error("Expected the original error instance")
	}
	if !IsCode(wrapped, ErrPolicyNotFound) {
		t.Error("Expected IsCode to match MED707")
	}
	if IsCode(fmt.Errorf("plain"), ErrPolicyNotFound) {
		t.Error("Plain errors never match a code")
	}
}
