// Package lsp implements a Language Server Protocol server for service
// skeletons. It publishes syntax and mediation diagnostics, lists resource
// functions by operation key, describes them on hover and offers the
// mediation rewrite as a source code action.
package lsp

import (
	"context"
	"encoding/json"
	"io"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/logging"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// ServerName is reported to clients on initialize
const ServerName = "mediate-lsp"

// publisher is the part of the LSP client the server calls
type publisher interface {
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error
}

// Server implements the LSP server
type Server struct {
	generator *proxy.Generator
	// apiURL is the API artifact the open services are checked against.
	// Without it only syntax diagnostics are published.
	apiURL  string
	version string

	docs   *documents
	client publisher
	logger *zap.Logger

	workspaceRoot string
	capabilities  protocol.ServerCapabilities

	cancel context.CancelFunc
}

// NewServer creates a server backed by generator
func NewServer(generator *proxy.Generator, apiURL, version string, logger *zap.Logger) *Server {
	return &Server{
		generator: generator,
		apiURL:    apiURL,
		version:   version,
		docs:      newDocuments(),
		logger:    logging.OrNop(logger),
		capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
			DocumentSymbolProvider: true,
			HoverProvider:          true,
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{protocol.Source},
			},
		},
	}
}

// Run serves rwc until the client exits or ctx is cancelled
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger.Info("starting language server", zap.String("api", s.apiURL))

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.client = protocol.ClientDispatcher(conn, s.logger)

	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.logger.Info("shutting down language server")
	return conn.Close()
}

func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply, req)
		case protocol.MethodTextDocumentDidOpen:
			return s.handleDidOpen(ctx, reply, req)
		case protocol.MethodTextDocumentDidChange:
			return s.handleDidChange(ctx, reply, req)
		case protocol.MethodTextDocumentDidClose:
			return s.handleDidClose(ctx, reply, req)
		case protocol.MethodTextDocumentDidSave:
			return s.handleDidSave(ctx, reply, req)
		case protocol.MethodTextDocumentDocumentSymbol:
			return s.handleDocumentSymbol(ctx, reply, req)
		case protocol.MethodTextDocumentHover:
			return s.handleHover(ctx, reply, req)
		case protocol.MethodTextDocumentCodeAction:
			return s.handleCodeAction(ctx, reply, req)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse initialize params")
	}

	switch {
	case len(params.WorkspaceFolders) > 0:
		s.workspaceRoot = uri.URI(params.WorkspaceFolders[0].URI).Filename()
	case params.RootURI != "":
		s.workspaceRoot = params.RootURI.Filename()
	}
	s.logger.Info("client initialized", zap.String("workspace", s.workspaceRoot))

	return reply(ctx, protocol.InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: s.version,
		},
	}, nil)
}

func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if err := reply(ctx, nil, nil); err != nil {
		s.logger.Warn("failed to reply to exit", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didOpen params")
	}

	doc := s.docs.open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.analyze(ctx, doc)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didChange params")
	}
	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}

	// Full sync: the last change holds the whole document
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	doc, ok := s.docs.update(params.TextDocument.URI, text, params.TextDocument.Version)
	if !ok {
		s.logger.Debug("ignoring stale change",
			zap.String("uri", string(params.TextDocument.URI)),
			zap.Int32("version", params.TextDocument.Version))
		return reply(ctx, nil, nil)
	}
	s.analyze(ctx, doc)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didClose params")
	}

	s.docs.close(params.TextDocument.URI)
	s.publish(ctx, params.TextDocument.URI, nil)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didSave params")
	}

	// Policies or the API artifact may have changed on disk
	if doc, ok := s.docs.get(params.TextDocument.URI); ok {
		s.analyze(ctx, doc)
	}
	return reply(ctx, nil, nil)
}

// publish sends diagnostics for a document. An empty list clears them.
func (s *Server) publish(ctx context.Context, docURI protocol.DocumentURI, diagnostics []protocol.Diagnostic) {
	if s.client == nil {
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Warn("failed to publish diagnostics", zap.String("uri", string(docURI)), zap.Error(err))
	}
}

func replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

// StdioConn joins a reader and a writer into the stream a server runs on
type StdioConn struct {
	io.Reader
	io.Writer
}

// Close implements io.Closer; the standard streams stay open
func (StdioConn) Close() error {
	return nil
}
