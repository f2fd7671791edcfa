package proxy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"go.uber.org/zap/zaptest"

	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/policy"
)

const serviceSource = `import ballerina/http;

service /petstore on new http:Listener(9090) {
    resource function get pets/[int petId]() returns json {
    }

    resource function post pets(@http:Payload json pet) {
    }
}
`

const apiSource = `type: api
data:
  name: PetStore
  operations:
    - id: getPet
      target: /pets/{petId}
      verb: GET
      operationPolicies:
        request:
          - policyName: choreo/add_header
            policyVersion: 1.0.0
    - id: addPet
      target: /pets
      verb: POST
      operationPolicies:
        response:
          - policyName: choreo/add_header
            policyVersion: 1.0.0
`

type workspace struct {
	ctx  context.Context
	fs   afs.Service
	base string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	ws := &workspace{
		ctx:  context.Background(),
		fs:   afs.New(),
		base: "mem://localhost/" + strings.ReplaceAll(t.Name(), "/", "_"),
	}
	ws.put(t, "svc/petstore.bal", serviceSource)
	ws.put(t, "api.yaml", apiSource)
	ws.put(t, "repo/repositories/central.ballerina.io/bala/choreo/add_header/1.0.0/any/modules/add_header/resources/policy-meta.json",
		`{"inflow": {"name": "addHeader"}, "outflow": {"name": "addResponseHeader"}}`)
	return ws
}

func (ws *workspace) url(rel string) string {
	return url.Join(ws.base, rel)
}

func (ws *workspace) put(t *testing.T, rel, content string) {
	t.Helper()
	require.NoError(t, ws.fs.Upload(ws.ctx, ws.url(rel), file.DefaultFileOsMode, strings.NewReader(content)))
}

func (ws *workspace) config() Config {
	return Config{
		PolicyOrg:   "choreo",
		Repository:  ws.url("repo"),
		Strategy:    policy.StrategyMetadata,
		ThreadError: true,
		Indent:      "    ",
	}
}

func (ws *workspace) request() Request {
	return Request{ServiceURL: ws.url("svc/petstore.bal"), APIURL: ws.url("api.yaml")}
}

func TestGenerator_Generate(t *testing.T) {
	ws := newWorkspace(t)
	gen, err := New(ws.ctx, ws.config(), ws.fs, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := gen.Generate(ws.ctx, ws.request())
	require.NoError(t, err)

	assert.True(t, result.Written)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, ws.url("svc/_generated_petstore.bal"), result.OutputURL)
	assert.Equal(t, 2, result.Operations)
	assert.Equal(t, 1, result.Policies)
	assert.Empty(t, result.Unmatched)
	assert.Equal(t, []string{"get /pets/*", "post /pets"}, result.Handlers)

	written, err := ws.fs.DownloadWithURL(ws.ctx, result.OutputURL)
	require.NoError(t, err)
	out := string(written)
	assert.Equal(t, result.Output, out)

	assert.True(t, strings.HasPrefix(out, "import choreo/add_header;\nimport ballerina/http;\n"))
	assert.Contains(t, out, "add_header:addHeader(incomingRequest)")
	assert.Contains(t, out, "add_header:addResponseHeader(backendResponse, incomingRequest)")
	assert.Contains(t, out, "resource function post pets(http:Caller caller, http:Request incomingRequest, @http:Payload json pet) returns error? {")
	assert.Equal(t, 1, strings.Count(out, "import choreo/add_header;"))

	source, err := ws.fs.DownloadWithURL(ws.ctx, ws.url("svc/petstore.bal"))
	require.NoError(t, err)
	assert.Equal(t, serviceSource, string(source))
}

func TestGenerator_Unmatched(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "api.yaml", apiSource+`    - id: deletePet
      target: /pets/{petId}
      verb: DELETE
`)
	gen, err := New(ws.ctx, ws.config(), ws.fs, zaptest.NewLogger(t))
	require.NoError(t, err)

	result, err := gen.Generate(ws.ctx, ws.request())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Operations)
	assert.Equal(t, []string{"delete /pets/*"}, result.Unmatched)
}

func TestGenerator_DryRun(t *testing.T) {
	ws := newWorkspace(t)
	gen, err := New(ws.ctx, ws.config(), ws.fs, nil)
	require.NoError(t, err)

	req := ws.request()
	req.DryRun = true
	result, err := gen.Generate(ws.ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Written)
	assert.NotEmpty(t, result.Output)

	exists, err := ws.fs.Exists(ws.ctx, result.OutputURL)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerator_Boilerplate(t *testing.T) {
	ws := newWorkspace(t)
	cfg := ws.config()
	cfg.Boilerplate = true
	cfg.BackendURL = "http://backend:8080"

	gen, err := New(ws.ctx, cfg, ws.fs, nil)
	require.NoError(t, err)

	req := ws.request()
	req.DryRun = true
	result, err := gen.Generate(ws.ctx, req)
	require.NoError(t, err)

	assert.Contains(t, result.Output, `configurable string backendUrl = "http://backend:8080";`)
	assert.Contains(t, result.Output, "isolated function copyRequestHeaders(")
}

func TestGenerator_MissingPolicy(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "api.yaml", strings.ReplaceAll(apiSource, "choreo/add_header", "choreo/missing"))

	gen, err := New(ws.ctx, ws.config(), ws.fs, nil)
	require.NoError(t, err)

	_, err = gen.Generate(ws.ctx, ws.request())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPolicyNotFound), "got %v", err)

	exists, _ := ws.fs.Exists(ws.ctx, OutputURL(ws.url("svc/petstore.bal")))
	assert.False(t, exists)
}

func TestGenerator_SyntaxError(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "svc/petstore.bal", "service / on ep {\n    resource function get x/\"bad\"() {}\n}\n")

	gen, err := New(ws.ctx, ws.config(), ws.fs, nil)
	require.NoError(t, err)

	_, err = gen.Generate(ws.ctx, ws.request())
	require.Error(t, err)

	list, ok := err.(errors.ErrorList)
	require.True(t, ok, "got %T", err)
	require.NotEmpty(t, list)
	assert.Equal(t, "petstore.bal", list[0].File)
	assert.Equal(t, errors.CategorySyntax, list[0].Category)
	require.NotNil(t, list[0].Snippet)
	assert.Equal(t, list[0].Location.Line-1, list[0].Snippet.FirstLine)
	assert.Contains(t, list[0].Snippet.Lines[1], `"bad"`)
}

func TestGenerator_TemplateOverride(t *testing.T) {
	ws := newWorkspace(t)
	ws.put(t, "templates/inflow.tmpl", "check {{.Call}};")
	cfg := ws.config()
	cfg.Templates = map[string]string{"inflow": ws.url("templates/inflow.tmpl")}

	gen, err := New(ws.ctx, cfg, ws.fs, nil)
	require.NoError(t, err)

	req := ws.request()
	req.DryRun = true
	result, err := gen.Generate(ws.ctx, req)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "            check add_header:addHeader(incomingRequest);\n")
}

func TestGenerator_UnknownStrategy(t *testing.T) {
	ws := newWorkspace(t)
	cfg := ws.config()
	cfg.Strategy = "guess"

	_, err := New(ws.ctx, cfg, ws.fs, nil)
	assert.Error(t, err)
}

func TestOutputURL(t *testing.T) {
	assert.Equal(t, "mem://localhost/a/_generated_svc.bal", OutputURL("mem://localhost/a/svc.bal"))
}

func TestToURL(t *testing.T) {
	assert.Equal(t, "mem://localhost/x", ToURL("mem://localhost/x"))
	assert.True(t, strings.HasPrefix(ToURL("svc.bal"), "file:///"))
	assert.Equal(t, "", ToURL(""))
}

func TestGenerator_GenerateSource(t *testing.T) {
	ws := newWorkspace(t)
	gen, err := New(ws.ctx, ws.config(), ws.fs, zaptest.NewLogger(t))
	require.NoError(t, err)

	edited := strings.Replace(serviceSource, "resource function post pets", "resource function put pets", 1)
	result, err := gen.GenerateSource(ws.ctx, "file:///work/petstore.bal", edited, ws.url("api.yaml"))
	require.NoError(t, err)

	assert.False(t, result.Written)
	assert.Empty(t, result.OutputURL)
	assert.Equal(t, edited, result.Source)
	assert.Equal(t, []string{"post /pets"}, result.Unmatched)
	assert.Equal(t, []string{"get /pets/*", "put /pets"}, result.Handlers)

	exists, err := ws.fs.Exists(ws.ctx, OutputURL(ws.url("svc/petstore.bal")))
	require.NoError(t, err)
	assert.False(t, exists)

	module, err := gen.Parse("file:///work/petstore.bal", edited)
	require.NoError(t, err)
	assert.Len(t, module.Services, 1)
}
