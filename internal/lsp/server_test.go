package lsp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap/zaptest"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/policy"
	"github.com/choreo-dev/mediate/internal/proxy"
)

const docURI = protocol.DocumentURI("file:///work/petstore.bal")

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
`

type fakeClient struct {
	mu        sync.Mutex
	published []*protocol.PublishDiagnosticsParams
}

func (f *fakeClient) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, params)
	return nil
}

func (f *fakeClient) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.published)
	return f.published[len(f.published)-1]
}

// newTestServer serves against an in-memory policy repository and API
// artifact. An empty api disables the mediation checks.
func newTestServer(t *testing.T, withAPI bool) (*Server, *fakeClient) {
	t.Helper()

	ctx := context.Background()
	fs := afs.New()
	base := "mem://localhost/lsp_" + strings.ReplaceAll(t.Name(), "/", "_")
	put := func(rel, content string) {
		require.NoError(t, fs.Upload(ctx, base+"/"+rel, file.DefaultFileOsMode, strings.NewReader(content)))
	}
	put("api.yaml", apiSource)
	put("repo/repositories/central.ballerina.io/bala/choreo/add_header/1.0.0/any/modules/add_header/resources/policy-meta.json",
		`{"inflow": {"name": "addHeader"}}`)

	gen, err := proxy.New(ctx, proxy.Config{
		PolicyOrg:   "choreo",
		Repository:  base + "/repo",
		Strategy:    policy.StrategyMetadata,
		ThreadError: true,
		Indent:      "    ",
	}, fs, zaptest.NewLogger(t))
	require.NoError(t, err)

	apiURL := ""
	if withAPI {
		apiURL = base + "/api.yaml"
	}
	server := NewServer(gen, apiURL, "test", zaptest.NewLogger(t))
	client := &fakeClient{}
	server.client = client
	return server, client
}

// call sends one request through the server's handler and returns the
// encoded result
func call(t *testing.T, s *Server, method string, params interface{}) (json.RawMessage, error) {
	t.Helper()

	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	var (
		result   interface{}
		replyErr error
	)
	reply := func(ctx context.Context, r interface{}, err error) error {
		result, replyErr = r, err
		return nil
	}
	require.NoError(t, s.handler()(context.Background(), reply, req))

	data, err := json.Marshal(result)
	require.NoError(t, err)
	return data, replyErr
}

func open(t *testing.T, s *Server, text string) {
	t.Helper()
	_, err := call(t, s, protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, LanguageID: "ballerina", Version: 1, Text: text},
	})
	require.NoError(t, err)
}

func TestServer_Initialize(t *testing.T) {
	s, _ := newTestServer(t, true)

	data, err := call(t, s, protocol.MethodInitialize, protocol.InitializeParams{RootURI: "file:///work"})
	require.NoError(t, err)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, ServerName, result.ServerInfo.Name)
	assert.Equal(t, "test", result.ServerInfo.Version)
	assert.Equal(t, "/work", s.workspaceRoot)
}

func TestServer_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t, true)

	_, err := call(t, s, protocol.MethodInitialize, "not an object")
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.InvalidParams, rpcErr.Code)
}

func TestServer_UnknownMethod(t *testing.T) {
	s, _ := newTestServer(t, true)

	_, err := call(t, s, "workspace/unknown", nil)
	assert.Equal(t, jsonrpc2.ErrMethodNotFound, err)
}

func TestServer_CleanDocument(t *testing.T) {
	s, client := newTestServer(t, true)
	open(t, s, serviceSource)

	published := client.last(t)
	assert.Equal(t, docURI, published.URI)
	assert.Empty(t, published.Diagnostics)

	data, err := call(t, s, protocol.MethodTextDocumentCodeAction, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	require.NoError(t, err)

	var actions []protocol.CodeAction
	require.NoError(t, json.Unmarshal(data, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, CodeActionTitle, actions[0].Title)
	assert.Equal(t, protocol.Source, actions[0].Kind)
	require.NotNil(t, actions[0].Edit)

	edits := actions[0].Edit.Changes[uri.File("/work/petstore.bal")]
	require.NotEmpty(t, edits)
	assert.Equal(t, "import choreo/add_header;\n", edits[0].NewText)
}

func TestServer_SyntaxError(t *testing.T) {
	s, client := newTestServer(t, true)
	open(t, s, "service / on ep {\n    resource function get x/\"bad\"() {}\n}\n")

	diagnostics := client.last(t).Diagnostics
	require.NotEmpty(t, diagnostics)
	assert.Equal(t, uint32(1), diagnostics[0].Range.Start.Line)
	assert.Equal(t, protocol.DiagnosticSeverityError, diagnostics[0].Severity)
	assert.Equal(t, DiagnosticSource, diagnostics[0].Source)
	assert.True(t, strings.HasPrefix(diagnostics[0].Code.(string), "SYN"))

	data, err := call(t, s, protocol.MethodTextDocumentCodeAction, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestServer_UnmatchedOperation(t *testing.T) {
	s, client := newTestServer(t, true)
	open(t, s, serviceSource)

	changed := strings.Replace(serviceSource, "resource function post pets", "resource function put pets", 1)
	_, err := call(t, s, protocol.MethodTextDocumentDidChange, protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI}, Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: changed}},
	})
	require.NoError(t, err)

	diagnostics := client.last(t).Diagnostics
	require.Len(t, diagnostics, 1)
	assert.Equal(t, protocol.DiagnosticSeverityInformation, diagnostics[0].Severity)
	assert.Equal(t, "API operation 'post /pets' has no resource function", diagnostics[0].Message)
	assert.Equal(t, uint32(2), diagnostics[0].Range.Start.Line)
}

func TestServer_DocumentSymbol(t *testing.T) {
	s, _ := newTestServer(t, false)
	open(t, s, serviceSource)

	data, err := call(t, s, protocol.MethodTextDocumentDocumentSymbol, protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	require.NoError(t, err)

	var symbols []protocol.DocumentSymbol
	require.NoError(t, json.Unmarshal(data, &symbols))
	require.Len(t, symbols, 1)
	assert.Equal(t, "service /petstore", symbols[0].Name)
	require.Len(t, symbols[0].Children, 2)
	assert.Equal(t, "get /pets/*", symbols[0].Children[0].Name)
	assert.Equal(t, "/pets/{petId}", symbols[0].Children[0].Detail)
	assert.Equal(t, "post /pets", symbols[0].Children[1].Name)
	assert.Equal(t, uint32(3), symbols[0].Children[0].Range.Start.Line)
}

func TestServer_NoAPI(t *testing.T) {
	s, client := newTestServer(t, false)
	open(t, s, serviceSource)
	assert.Empty(t, client.last(t).Diagnostics)

	data, err := call(t, s, protocol.MethodTextDocumentCodeAction, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestServer_Close(t *testing.T) {
	s, client := newTestServer(t, true)
	open(t, s, serviceSource)
	require.Equal(t, 1, s.docs.len())

	_, err := call(t, s, protocol.MethodTextDocumentDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.docs.len())
	assert.Empty(t, client.last(t).Diagnostics)
}

func TestServer_DidChangeIgnoresStaleVersions(t *testing.T) {
	s, client := newTestServer(t, true)
	change := func(version int32, text string) {
		_, err := call(t, s, protocol.MethodTextDocumentDidChange, protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
				Version:                version,
			},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
		})
		require.NoError(t, err)
	}

	open(t, s, serviceSource)
	change(3, serviceSource+"\n")
	published := len(client.published)

	change(2, "service broken {")
	doc, ok := s.docs.get(docURI)
	require.True(t, ok)
	assert.Equal(t, int32(3), doc.version)
	assert.Equal(t, serviceSource+"\n", doc.source)
	assert.Len(t, client.published, published)

	change(4, "service broken {")
	doc, _ = s.docs.get(docURI)
	assert.Equal(t, int32(4), doc.version)
	assert.NotEmpty(t, client.last(t).Diagnostics)
}

func TestDocuments_Update(t *testing.T) {
	docs := newDocuments()

	doc, ok := docs.update(docURI, "a", 2)
	require.True(t, ok)
	assert.Equal(t, "a", doc.source)

	_, ok = docs.update(docURI, "old", 1)
	assert.False(t, ok)

	doc, ok = docs.update(docURI, "b", 2)
	require.True(t, ok)
	assert.Equal(t, "b", doc.source)
}

func TestDocuments_RecordIgnoresStaleVersions(t *testing.T) {
	docs := newDocuments()
	docs.open(docURI, "a", 1)
	docs.open(docURI, "b", 2)

	docs.record(docURI, 1, nil, &proxy.Result{RunID: "stale"})
	doc, ok := docs.get(docURI)
	require.True(t, ok)
	assert.Nil(t, doc.result)

	docs.record(docURI, 2, nil, &proxy.Result{RunID: "fresh"})
	doc, _ = docs.get(docURI)
	assert.Equal(t, "fresh", doc.result.RunID)
}

func TestServer_Hover(t *testing.T) {
	s, _ := newTestServer(t, true)
	open(t, s, serviceSource)

	hover := func(line, character uint32) json.RawMessage {
		data, err := call(t, s, protocol.MethodTextDocumentHover, protocol.HoverParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
				Position:     protocol.Position{Line: line, Character: character},
			},
		})
		require.NoError(t, err)
		return data
	}

	var result protocol.Hover
	require.NoError(t, json.Unmarshal(hover(3, 32), &result))
	assert.Contains(t, result.Contents.Value, "**get /pets/*")
	assert.Contains(t, result.Contents.Value, "Path: `/pets/{petId}`")
	assert.Contains(t, result.Contents.Value, "Operation `getPet`")
	assert.Contains(t, result.Contents.Value, "- request: choreo/add_header:1.0.0")
	require.NotNil(t, result.Range)
	assert.Equal(t, protocol.Position{Line: 3, Character: 22}, result.Range.Start)

	assert.JSONEq(t, `null`, string(hover(0, 3)))
}

func TestResourceAt(t *testing.T) {
	s, _ := newTestServer(t, false)
	module, err := s.generator.Parse(string(docURI), serviceSource)
	require.NoError(t, err)

	offset := strings.Index(serviceSource, "petId]")
	res := resourceAt(module, offset)
	require.NotNil(t, res)
	assert.Equal(t, "get", res.MethodName())

	offset = strings.Index(serviceSource, "@http:Payload")
	res = resourceAt(module, offset)
	require.NotNil(t, res)
	assert.Equal(t, "post", res.MethodName())

	assert.Nil(t, resourceAt(module, 0))
}

func TestHoverContents_NoOperation(t *testing.T) {
	s, _ := newTestServer(t, false)
	module, err := s.generator.Parse(string(docURI), serviceSource)
	require.NoError(t, err)

	res := module.Services[0].Resources[1]
	contents, err := hoverContents(res, &proxy.Result{Table: map[string]*artifact.Operation{}})
	require.NoError(t, err)
	assert.Contains(t, contents, "No API operation matches")
}
