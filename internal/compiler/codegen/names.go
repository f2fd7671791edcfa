// Package codegen synthesizes mediation pipelines for HTTP resource
// functions. It walks a parsed service skeleton, resolves the policies
// attached to each operation and returns the text edits that turn every
// bare handler into inflow, backend call, outflow and fault handling.
package codegen

// Identifiers referenced by generated code
const (
	Caller          = "caller"
	IncomingRequest = "incomingRequest"
	BackendEndpoint = "backendEP"
	BackendResponse = "backendResponse"
	ErrFlowResponse = "errFlowResponse"
	UpdatedHeaders  = "updatedHeaders"
	ErrorVar        = "e"

	MediationModule      = "mediation"
	MediationContextType = "MediationContext"
	MediationContextVar  = "mediationCtx"
)

// DefaultBackendPath is the path expression passed to backend calls
const DefaultBackendPath = IncomingRequest + ".rawPath"

// DefaultIndentUnit is one level of indentation in generated blocks
const DefaultIndentUnit = "\t"
