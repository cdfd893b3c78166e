package rfc

import "fmt"

// ConnectionParameter is one key/value pair of a connection or server
// parameter set. Parameter sets are ordered; the engine may be sensitive to
// ordering, so they are carried as slices rather than maps.
type ConnectionParameter struct {
	Name  string
	Value string
}

// ConnectionParameters is an immutable ordered parameter set. It is consumed
// by the call that receives it and has no lifecycle of its own.
type ConnectionParameters []ConnectionParameter

// Get returns the value of the first parameter with the given name.
func (p ConnectionParameters) Get(name string) (string, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

// Clone returns an independent copy of the parameter set.
func (p ConnectionParameters) Clone() ConnectionParameters {
	if p == nil {
		return nil
	}
	out := make(ConnectionParameters, len(p))
	copy(out, p)
	return out
}

// ServerState is the lifecycle state of a server as reported by the engine's
// state-change listener.
type ServerState string

const (
	ServerStateCreated  ServerState = "created"
	ServerStateLaunched ServerState = "launched"
	ServerStateShutDown ServerState = "shutdown"
	ServerStateDisposed ServerState = "disposed"
)

// StateChange is delivered to state-change listeners.
type StateChange struct {
	Old ServerState
	New ServerState
}

func (c StateChange) String() string {
	return fmt.Sprintf("%s -> %s", c.Old, c.New)
}

// ConnectionAttributes describes the remote peer of an inbound call or a
// failing client connection. Delivered with server error events.
type ConnectionAttributes struct {
	// Destination is the logical name of the remote partner, if known.
	Destination string
	// Host is the partner host name.
	Host string
	// SystemID is the partner system identifier.
	SystemID string
	// Client is the partner client/tenant.
	Client string
	// User is the partner user the call was made under.
	User string
	// ProgramName is the partner program that issued the call.
	ProgramName string
}

// ParameterDirection classifies a parameter of a remote function signature.
type ParameterDirection string

const (
	DirectionImport   ParameterDirection = "import"
	DirectionExport   ParameterDirection = "export"
	DirectionChanging ParameterDirection = "changing"
	DirectionTables   ParameterDirection = "tables"
)

// ParameterType is the engine-level type of a function parameter.
type ParameterType string

const (
	TypeChar      ParameterType = "CHAR"
	TypeNum       ParameterType = "NUM"
	TypeByte      ParameterType = "BYTE"
	TypeDate      ParameterType = "DATE"
	TypeTime      ParameterType = "TIME"
	TypeInt       ParameterType = "INT"
	TypeFloat     ParameterType = "FLOAT"
	TypeBCD       ParameterType = "BCD"
	TypeString    ParameterType = "STRING"
	TypeStructure ParameterType = "STRUCTURE"
	TypeTable     ParameterType = "TABLE"
)

// ParameterDescription describes one parameter of a remote function.
type ParameterDescription struct {
	Name      string             `json:"name"`
	Direction ParameterDirection `json:"direction"`
	Type      ParameterType      `json:"type"`
	// Length is the declared length for fixed-length types, zero otherwise.
	Length int `json:"length,omitempty"`
	// Decimals is the declared decimal count for BCD/FLOAT parameters.
	Decimals int  `json:"decimals,omitempty"`
	Optional bool `json:"optional,omitempty"`
	// DefaultValue is the declared default, if any.
	DefaultValue string `json:"defaultValue,omitempty"`
	Description  string `json:"description,omitempty"`
}

// FunctionDescription is the host-facing, decoded form of a remote function
// signature. The engine's opaque description handles decode to and from this
// value via ReadFunctionDesc/CreateFunctionDesc.
type FunctionDescription struct {
	Name       string                 `json:"name"`
	Parameters []ParameterDescription `json:"parameters,omitempty"`
}

// Parameter returns the named parameter description.
func (d FunctionDescription) Parameter(name string) (ParameterDescription, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDescription{}, false
}
