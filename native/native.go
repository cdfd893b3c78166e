// Package native declares the boundary to the RFC engine: an opaque library
// that owns the wire protocol, all handles, and the worker threads that
// deliver inbound calls. Everything in this package is a contract consumed
// by the rest of the module; the engine implementation itself lives outside
// it (typically a cgo binding, or nativetest.Engine in tests).
//
// Every engine call returns an rfc.ErrorInfo. A non-OK info is a failure of
// that call and must be surfaced by the caller. The engine may invoke
// registered callbacks re-entrantly and concurrently from its own execution
// context at any time after registration; callback values must therefore be
// kept reachable for as long as a registration is outstanding.
package native

import (
	"time"

	"github.com/nwbridge/rfc-server-go/rfc"
)

// ConnectionHandle identifies one open connection inside the engine.
type ConnectionHandle uint64

// ServerHandle identifies one registered server inside the engine. It is
// valid from successful creation until DestroyServer.
type ServerHandle uint64

// FunctionHandle identifies the data container of one inbound call. It is
// only valid for the duration of the dispatch callback it was delivered to.
type FunctionHandle uint64

// FunctionDescHandle identifies a remote function's signature metadata. It is
// read-only once obtained.
type FunctionDescHandle uint64

// StreamHandle identifies an open platform file stream handed to the
// repository load/save calls. Zero is the invalid stream.
type StreamHandle uint64

// ServerFunction is the dispatch callback the engine invokes for every
// inbound call once installed. It must never panic into the engine; the
// returned info is reported to the remote caller when non-OK.
type ServerFunction func(conn ConnectionHandle, fn FunctionHandle) rfc.ErrorInfo

// FunctionDescProvider is the metadata-resolution callback the engine invokes
// to resolve a function name into a description handle before dispatching a
// call for it. A zero handle with a non-OK info fails the inbound call.
type FunctionDescProvider func(name string) (FunctionDescHandle, rfc.ErrorInfo)

// ServerErrorListener receives server-side error events together with the
// attributes of the client connection the error belongs to.
type ServerErrorListener func(attrs rfc.ConnectionAttributes, info rfc.ErrorInfo)

// ServerStateListener receives server lifecycle transitions.
type ServerStateListener func(change rfc.StateChange)

// Engine is the native RFC engine surface this module consumes.
type Engine interface {
	// OpenConnection opens a client connection described by params.
	OpenConnection(params rfc.ConnectionParameters) (ConnectionHandle, rfc.ErrorInfo)
	// CloseConnection closes a connection opened by OpenConnection.
	CloseConnection(conn ConnectionHandle) rfc.ErrorInfo
	// GetFunctionDesc resolves a function description over a live connection.
	GetFunctionDesc(conn ConnectionHandle, name string) (FunctionDescHandle, rfc.ErrorInfo)
	// DescribeFunction returns the description of an inbound call's function.
	DescribeFunction(fn FunctionHandle) (FunctionDescHandle, rfc.ErrorInfo)

	// CreateServer registers a server endpoint described by params.
	CreateServer(params rfc.ConnectionParameters) (ServerHandle, rfc.ErrorInfo)
	// LaunchServer starts accepting inbound calls.
	LaunchServer(server ServerHandle) rfc.ErrorInfo
	// ShutdownServer requests a graceful stop within the timeout budget. The
	// budget is interpreted and enforced entirely by the engine.
	ShutdownServer(server ServerHandle, timeout time.Duration) rfc.ErrorInfo
	// DestroyServer releases the server handle. The handle is invalid
	// afterward regardless of the returned info.
	DestroyServer(server ServerHandle) rfc.ErrorInfo
	// AddServerErrorListener registers an error listener on the server. The
	// engine charges one registration per listener, so callers batch their
	// own fan-out behind a single registration.
	AddServerErrorListener(server ServerHandle, listener ServerErrorListener) rfc.ErrorInfo
	// AddServerStateChangedListener registers a state-change listener.
	AddServerStateChangedListener(server ServerHandle, listener ServerStateListener) rfc.ErrorInfo

	// InstallGenericServerFunction installs the process-wide generic handler
	// pair: fn receives every inbound call, provider resolves metadata.
	InstallGenericServerFunction(fn ServerFunction, provider FunctionDescProvider) rfc.ErrorInfo

	// LoadRepository reads serialized function descriptions from stream into
	// the repository named repoID.
	LoadRepository(repoID string, stream StreamHandle) rfc.ErrorInfo
	// SaveRepository writes the repository named repoID to stream.
	SaveRepository(repoID string, stream StreamHandle) rfc.ErrorInfo
	// GetCachedFunctionDesc resolves a description from a loaded repository.
	GetCachedFunctionDesc(repoID, name string) (FunctionDescHandle, rfc.ErrorInfo)

	// ReadFunctionDesc decodes a description handle into its value form.
	ReadFunctionDesc(desc FunctionDescHandle) (rfc.FunctionDescription, rfc.ErrorInfo)
	// CreateFunctionDesc materializes a description handle from a value,
	// letting hosts resolve metadata from their own caches.
	CreateFunctionDesc(desc rfc.FunctionDescription) (FunctionDescHandle, rfc.ErrorInfo)
}
