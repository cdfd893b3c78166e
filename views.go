package rfcserver

import (
	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// Connection is the host-facing view of the connection an inbound call
// arrived on. It is only valid for the duration of the handler invocation it
// was passed to.
type Connection struct {
	engine native.Engine
	handle native.ConnectionHandle
}

// Handle exposes the native connection handle for parameter accessors built
// on top of this package.
func (c *Connection) Handle() native.ConnectionHandle { return c.handle }

// FunctionCall is the host-facing view of one inbound call: the call's data
// container handle plus the resolved function signature.
type FunctionCall struct {
	handle      native.FunctionHandle
	desc        native.FunctionDescHandle
	description rfc.FunctionDescription
	callID      string
}

// Name is the invoked remote function's name.
func (f *FunctionCall) Name() string { return f.description.Name }

// Handle exposes the native data container handle, valid only during the
// handler invocation.
func (f *FunctionCall) Handle() native.FunctionHandle { return f.handle }

// DescriptionHandle exposes the resolved signature handle.
func (f *FunctionCall) DescriptionHandle() native.FunctionDescHandle { return f.desc }

// Description is the decoded signature of the invoked function.
func (f *FunctionCall) Description() rfc.FunctionDescription { return f.description }

// CallID is the host-side correlation id minted for this dispatch. It tags
// log lines and trace spans for the same inbound call.
func (f *FunctionCall) CallID() string { return f.callID }
