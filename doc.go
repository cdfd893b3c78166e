// Package rfcserver exposes a managed RFC server endpoint over a native RFC
// engine. Host code creates a ServerSession for the endpoint, installs one
// generic handler that receives every inbound remote function call, and
// drives the session through launch, shutdown and disposal.
//
// The engine (see the native package) delivers inbound calls from its own
// worker context: it first asks the installed metadata callback to resolve
// the function name into a description, then invokes the dispatch callback.
// Both callbacks may run concurrently and re-entrantly; nothing in this
// package lets a host failure unwind into the engine's call stack.
package rfcserver
