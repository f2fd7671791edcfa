package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/compiler/parser"
	"github.com/choreo-dev/mediate/internal/compiler/textedit"
	"github.com/choreo-dev/mediate/internal/policy"
)

// stubResolver serves packages keyed by "name:version" and counts lookups
type stubResolver struct {
	packages map[string]*policy.Package
	calls    int
}

func (r *stubResolver) Get(_ context.Context, name, version string) (*policy.Package, error) {
	r.calls++
	if _, err := policy.ParsePackageID(name, version); err != nil {
		return nil, err
	}
	pkg, ok := r.packages[name+":"+version]
	if !ok {
		return nil, errors.NewPolicyNotFound(name+":"+version, nil)
	}
	return pkg, nil
}

func newResolver(t *testing.T) *stubResolver {
	return &stubResolver{packages: map[string]*policy.Package{
		"choreo/auth:1.0.0": newPackage(t, "choreo/auth", "1.0.0", map[policy.Role]string{
			policy.RoleInFlow: "authenticate",
		}),
		"choreo/rate_limit:2.1.0": newPackage(t, "choreo/rate_limit", "2.1.0", map[policy.Role]string{
			policy.RoleInFlow:    "take",
			policy.RoleOutFlow:   "record",
			policy.RoleFaultFlow: "release",
		}),
		"acme/headers:0.3.0": newPackage(t, "acme/headers", "0.3.0", map[policy.Role]string{
			policy.RoleOutFlow: "strip",
		}),
		"acme/noop:1.0.0": newPackage(t, "acme/noop", "1.0.0", nil),
	}}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.IndentUnit = "    "
	opts.File = "petstore.bal"
	return opts
}

func generate(t *testing.T, source string, ops artifact.Table, opts Options) (string, *textedit.Change) {
	t.Helper()

	module, err := parser.ParseSource(source)
	require.NoError(t, err)

	tr := NewTransformer(newInvoker(t, opts.MediationContext), newResolver(t), opts, zaptest.NewLogger(t))
	change, err := tr.ModifyDocument(context.Background(), module, ops)
	require.NoError(t, err)

	out, err := change.Apply(source)
	require.NoError(t, err)
	return out, change
}

func table(t *testing.T, ops ...*artifact.Operation) artifact.Table {
	t.Helper()

	tbl, err := artifact.NewTable(ops)
	require.NoError(t, err)
	return tbl
}

func refs(names ...string) []artifact.PolicyRef {
	out := make([]artifact.PolicyRef, 0, len(names))
	for _, n := range names {
		name, version, _ := strings.Cut(n, ":")
		out = append(out, artifact.PolicyRef{PolicyName: name, PolicyVersion: version})
	}
	return out
}

const ordersService = `import ballerina/http;

service /api on new http:Listener(9090) {
    resource function post orders() {
    }
}
`

func TestModifyDocument_NoPolicies(t *testing.T) {
	out, _ := generate(t, ordersService, artifact.Table{}, testOptions())

	want := `import ballerina/http;

service /api on new http:Listener(9090) {
    resource function post orders(http:Caller caller, http:Request incomingRequest) returns error? {
        do {
            http:Response backendResponse = check backendEP->post(incomingRequest.rawPath, incomingRequest);
            check caller->respond(backendResponse);
        } on fail var e {
            http:Response errFlowResponse = createDefaultErrorResponse(e);
            check caller->respond(errFlowResponse);
        }
    }
}
`
	assert.Equal(t, want, out)
}

func TestModifyDocument_EmptyAttachmentsMatchMissingOperation(t *testing.T) {
	missing, _ := generate(t, ordersService, artifact.Table{}, testOptions())
	empty, _ := generate(t, ordersService, table(t, &artifact.Operation{ID: "create", Verb: "POST", Target: "/orders"}), testOptions())

	assert.Equal(t, missing, empty)
	assert.NotContains(t, empty, "Result")
	assert.NotContains(t, empty, "\n\n        ")
}

const petService = `import ballerina/http;

service /petstore on ep {
    resource function get pets/[int petId](string fields) returns Pet|error {
        return error("unimplemented");
    }

    isolated resource function post pets(@http:Payload Pet pet) returns http:Created {
    }

    resource function get 'limit/[string id]() {
    }
}
`

func petOperations(t *testing.T) artifact.Table {
	return table(t,
		&artifact.Operation{ID: "getPet", Verb: "GET", Target: "/pets/{petId}", Policies: artifact.AttachedPolicies{
			Request:  refs("choreo/auth:1.0.0", "choreo/rate_limit:2.1.0"),
			Response: refs("acme/headers:0.3.0"),
			Fault:    refs("choreo/rate_limit:2.1.0"),
		}},
		&artifact.Operation{ID: "addPet", Verb: "POST", Target: "/pets", Policies: artifact.AttachedPolicies{
			Request:  refs("choreo/rate_limit:2.1.0", "acme/noop:1.0.0"),
			Response: refs("choreo/rate_limit:2.1.0"),
		}},
		&artifact.Operation{ID: "limit", Verb: "GET", Target: "/limit/{id}", Policies: artifact.AttachedPolicies{
			Request: refs("choreo/auth:1.0.0"),
		}},
	)
}

func handlerText(t *testing.T, out, signature string) string {
	t.Helper()

	start := strings.Index(out, signature)
	require.GreaterOrEqual(t, start, 0, "handler %q not found in\n%s", signature, out)
	end := strings.Index(out[start:], "\n    }\n")
	require.Greater(t, end, 0)
	return out[start : start+end]
}

func TestModifyDocument_StatementOrder(t *testing.T) {
	out, _ := generate(t, petService, petOperations(t), testOptions())
	handler := handlerText(t, out, "resource function get pets/")

	order := []string{
		"auth:authenticate(incomingRequest)",
		"rate_limit:take(incomingRequest)",
		"check backendEP->get(",
		"headers:strip(backendResponse, incomingRequest)",
		"check caller->respond(backendResponse);",
		"createDefaultErrorResponse(e)",
		"rate_limit:release(errFlowResponse, e, backendResponse, incomingRequest)",
		"check caller->respond(errFlowResponse);",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(handler, marker)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}

	assert.Contains(t, handler, "http:Response? inflowResult1 = check auth:authenticate(incomingRequest);")
	assert.Contains(t, handler, "http:Response? inflowResult2 = check rate_limit:take(incomingRequest);")
	assert.NotContains(t, handler, "unimplemented")
}

func TestModifyDocument_SignatureRewrite(t *testing.T) {
	out, _ := generate(t, petService, petOperations(t), testOptions())

	assert.Contains(t, out, "resource function get pets/[int petId](http:Caller caller, http:Request incomingRequest, string fields) returns error? {")
	assert.Contains(t, out, "isolated resource function post pets(http:Caller caller, http:Request incomingRequest, @http:Payload Pet pet) returns error? {")
	assert.Contains(t, out, "resource function get 'limit/[string id](http:Caller caller, http:Request incomingRequest) returns error? {")
}

func TestModifyDocument_BackendCallShape(t *testing.T) {
	out, _ := generate(t, petService, petOperations(t), testOptions())

	get := handlerText(t, out, "resource function get pets/")
	assert.Contains(t, get,
		"            map<string|string[]> updatedHeaders = copyRequestHeaders(incomingRequest);\n"+
			"            http:Response backendResponse = check backendEP->get(incomingRequest.rawPath, updatedHeaders);\n")

	post := handlerText(t, out, "resource function post pets")
	assert.NotContains(t, post, "copyRequestHeaders")
	assert.Contains(t, post, "http:Response backendResponse = check backendEP->post(incomingRequest.rawPath, incomingRequest);")
}

func TestModifyDocument_SkipsPackagesWithoutFunctions(t *testing.T) {
	out, _ := generate(t, petService, petOperations(t), testOptions())

	assert.NotContains(t, out, "noop")
}

func TestModifyDocument_Imports(t *testing.T) {
	first, change := generate(t, petService, petOperations(t), testOptions())
	second, _ := generate(t, petService, petOperations(t), testOptions())
	assert.Equal(t, first, second)

	want := "import acme/headers;\nimport choreo/auth;\nimport choreo/rate_limit;\nimport ballerina/http;\n"
	assert.True(t, strings.HasPrefix(first, want), "unexpected import block:\n%s", first)

	var importEdits int
	for _, e := range change.Edits {
		if e.Range.Start == 0 && strings.HasPrefix(e.NewText, "import ") {
			importEdits++
			assert.Equal(t, 3, strings.Count(e.NewText, "import "))
		}
	}
	assert.Equal(t, 1, importEdits)
}

func TestModifyDocument_SkipsExistingImports(t *testing.T) {
	source := "import choreo/auth;\n" + petService
	out, _ := generate(t, source, petOperations(t), testOptions())

	assert.Equal(t, 1, strings.Count(out, "import choreo/auth;"))
}

func TestModifyDocument_AliasedImports(t *testing.T) {
	source := "import choreo/auth as a;\n" + petService
	out, _ := generate(t, source, petOperations(t), testOptions())

	assert.Equal(t, 1, strings.Count(out, "import choreo/auth"))
	assert.Contains(t, handlerText(t, out, "resource function get pets/"), "check a:authenticate(incomingRequest);")
	assert.Contains(t, handlerText(t, out, "resource function get 'limit/"), "check a:authenticate(incomingRequest);")
	assert.NotContains(t, out, "auth:authenticate")
	assert.Contains(t, out, "rate_limit:take(incomingRequest)")
}

func TestModifyDocument_AliasedMediationImport(t *testing.T) {
	opts := testOptions()
	opts.MediationContext = true
	source := "import choreo/mediation as med;\n" + ordersService
	out, _ := generate(t, source, artifact.Table{}, opts)

	assert.Contains(t, out, `        med:MediationContext mediationCtx = {httpMethod: "POST", resourcePath: "/orders"};`)
	assert.Equal(t, 1, strings.Count(out, "import choreo/mediation"))
}

func TestModifyDocument_ReturnsWithoutSpaceBeforeBody(t *testing.T) {
	source := strings.Replace(ordersService, "orders() {", "orders(){", 1)
	out, _ := generate(t, source, artifact.Table{}, testOptions())

	assert.Contains(t, out, "resource function post orders(http:Caller caller, http:Request incomingRequest) returns error? {\n")
}

func TestModifyDocument_EditsDoNotOverlap(t *testing.T) {
	_, change := generate(t, petService, petOperations(t), testOptions())

	for i, a := range change.Edits {
		for _, b := range change.Edits[i+1:] {
			assert.False(t, a.Range.Overlaps(b.Range), "%s overlaps %s", a.Range, b.Range)
		}
	}

	// disjoint edits give the same document whatever the application order
	reversed := petService
	for i := len(change.Edits) - 1; i >= 0; i-- {
		e := change.Edits[i]
		reversed = reversed[:e.Range.Start] + e.NewText + reversed[e.Range.End:]
	}
	forward, err := change.Apply(petService)
	require.NoError(t, err)
	assert.Equal(t, forward, reversed)
}

func TestModifyDocument_MediationContext(t *testing.T) {
	opts := testOptions()
	opts.MediationContext = true
	out, _ := generate(t, petService, petOperations(t), opts)

	handler := handlerText(t, out, "resource function get 'limit/")
	assert.Contains(t, handler, "returns error? {\n"+
		`        mediation:MediationContext mediationCtx = {httpMethod: "GET", resourcePath: "/limit/{id}"};`+"\n"+
		"        do {\n")
	assert.Contains(t, handler, "auth:authenticate(incomingRequest, mediationCtx)")
	assert.Contains(t, out, "import choreo/mediation;\n")
}

func TestModifyDocument_Boilerplate(t *testing.T) {
	opts := testOptions()
	opts.Boilerplate = "final http:Client backendEP = check new (backendUrl);\n"
	out, _ := generate(t, ordersService, artifact.Table{}, opts)

	assert.True(t, strings.HasSuffix(out, "}\n\nfinal http:Client backendEP = check new (backendUrl);\n"))
}

func TestModifyDocument_NoService(t *testing.T) {
	module, err := parser.ParseSource("import ballerina/http;\n")
	require.NoError(t, err)

	tr := NewTransformer(newInvoker(t, false), newResolver(t), testOptions(), nil)
	_, err = tr.ModifyDocument(context.Background(), module, artifact.Table{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNoService))
}

func TestModifyDocument_FatalPolicyErrors(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		code errors.ErrorCode
	}{
		{"malformed name", "rate_limit:1.0.0", errors.ErrMalformedPolicyName},
		{"bad version", "choreo/auth:latest", errors.ErrInvalidPolicyVersion},
		{"unknown package", "choreo/missing:1.0.0", errors.ErrPolicyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module, err := parser.ParseSource(ordersService)
			require.NoError(t, err)

			ops := table(t, &artifact.Operation{ID: "create", Verb: "POST", Target: "/orders", Policies: artifact.AttachedPolicies{
				Request: refs(tt.ref),
			}})

			tr := NewTransformer(newInvoker(t, false), newResolver(t), testOptions(), nil)
			change, err := tr.ModifyDocument(context.Background(), module, ops)
			require.Error(t, err)
			assert.Nil(t, change)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)

			ce, ok := errors.AsCompilerError(err)
			require.True(t, ok)
			assert.Equal(t, "petstore.bal", ce.File)
		})
	}
}

func TestModifyDocument_UnexpectedSegment(t *testing.T) {
	module, err := parser.ParseSource(ordersService)
	require.NoError(t, err)
	module.Services[0].Resources[0].Path = append(module.Services[0].Resources[0].Path, &ast.PathSegment{Text: "?"})

	tr := NewTransformer(newInvoker(t, false), newResolver(t), testOptions(), nil)
	_, err = tr.ModifyDocument(context.Background(), module, artifact.Table{})
	assert.True(t, errors.IsCode(err, errors.ErrUnexpectedPathSegment))
}
