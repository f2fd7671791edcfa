package lsp

import (
	"sync"

	"go.lsp.dev/protocol"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// document is one open editor buffer and the last analysis of it
type document struct {
	uri     protocol.DocumentURI
	source  string
	version int32

	module *ast.Module
	result *proxy.Result
}

// documents tracks open buffers by URI
type documents struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*document
}

func newDocuments() *documents {
	return &documents{docs: make(map[protocol.DocumentURI]*document)}
}

// open stores a new version of a buffer, dropping the previous analysis
func (d *documents) open(uri protocol.DocumentURI, source string, version int32) *document {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc := &document{uri: uri, source: source, version: version}
	d.docs[uri] = doc
	return doc
}

// update stores a changed buffer. Versions older than the stored one are
// ignored and reported with ok false.
func (d *documents) update(uri protocol.DocumentURI, source string, version int32) (doc *document, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, found := d.docs[uri]; found && version < prev.version {
		return nil, false
	}
	doc = &document{uri: uri, source: source, version: version}
	d.docs[uri] = doc
	return doc, true
}

func (d *documents) get(uri protocol.DocumentURI) (*document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[uri]
	if !ok {
		return nil, false
	}
	snapshot := *doc
	return &snapshot, true
}

func (d *documents) close(uri protocol.DocumentURI) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, uri)
}

// record attaches analysis results unless the buffer moved on
func (d *documents) record(uri protocol.DocumentURI, version int32, module *ast.Module, result *proxy.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[uri]
	if !ok || doc.version != version {
		return
	}
	doc.module = module
	doc.result = result
}

func (d *documents) len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}
