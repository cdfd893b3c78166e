package rfcserver

import (
	"errors"
	"sync"

	"github.com/nwbridge/rfc-server-go/native"
)

// ErrHandlerActive is returned when a generic handler installation is
// attempted while another installation is outstanding. The engine holds the
// previously installed callbacks; replacing them under live dispatch is
// undefined, so the registry refuses outright.
var ErrHandlerActive = errors.New("rfcserver: a generic handler installation is already active")

// CallbackRegistry holds the process-wide generic handler slot. The engine
// keeps raw references to the installed callbacks and may invoke them at any
// time after installation, so the registry pins them for as long as the
// installation is outstanding.
type CallbackRegistry struct {
	mu     sync.Mutex
	active *Installation
}

// NewCallbackRegistry returns an empty registry. Most hosts use the package
// default through the install functions; a dedicated registry is for tests
// and for embedders that scope the engine adapter themselves.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{}
}

// defaultRegistry backs installations that don't supply their own.
var defaultRegistry = NewCallbackRegistry()

// Installation is one outstanding generic handler registration. It pins the
// dispatch and metadata callbacks the engine was given.
type Installation struct {
	id       string
	registry *CallbackRegistry
	dispatch native.ServerFunction
	provider native.FunctionDescProvider
}

// ID is the installation's host-side identifier.
func (inst *Installation) ID() string { return inst.id }

// Close releases the registry slot so a new handler may be installed. Only
// call it once every session that can dispatch through this installation has
// been shut down: the engine side has no uninstall primitive, and a dispatch
// racing Close would still run the old callbacks.
func (inst *Installation) Close() error {
	inst.registry.release(inst)
	return nil
}

// reserve claims the slot for inst before the engine call is made, so two
// concurrent installs cannot both reach the engine.
func (r *CallbackRegistry) reserve(inst *Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrHandlerActive
	}
	r.active = inst
	return nil
}

func (r *CallbackRegistry) release(inst *Installation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == inst {
		r.active = nil
	}
}
