// Package nativetest provides a scriptable in-memory native.Engine for tests.
// Tests preload live and repository function descriptions, script per-op
// failures, then drive inbound calls through Invoke the way the real engine
// would: metadata callback first, dispatch callback second.
package nativetest

import (
	"sync"
	"time"

	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// Op names accepted by Fail and FailOnce and recorded in the call log.
const (
	OpOpenConnection     = "OpenConnection"
	OpCloseConnection    = "CloseConnection"
	OpGetFunctionDesc    = "GetFunctionDesc"
	OpDescribeFunction   = "DescribeFunction"
	OpCreateServer       = "CreateServer"
	OpLaunchServer       = "LaunchServer"
	OpShutdownServer     = "ShutdownServer"
	OpDestroyServer      = "DestroyServer"
	OpAddErrorListener   = "AddServerErrorListener"
	OpAddStateListener   = "AddServerStateChangedListener"
	OpInstallGenericFn   = "InstallGenericServerFunction"
	OpLoadRepository     = "LoadRepository"
	OpSaveRepository     = "SaveRepository"
	OpGetCachedFnDesc    = "GetCachedFunctionDesc"
	OpReadFunctionDesc   = "ReadFunctionDesc"
	OpCreateFunctionDesc = "CreateFunctionDesc"
)

type serverRec struct {
	params         rfc.ConnectionParameters
	errorListeners []native.ServerErrorListener
	stateListeners []native.ServerStateListener
	destroyed      bool
}

// Engine is a fake native.Engine.
type Engine struct {
	mu sync.Mutex

	// Live holds function descriptions resolvable over a live connection.
	Live map[string]rfc.FunctionDescription
	// FileContents holds the descriptions "inside" any repository file; a
	// successful LoadRepository copies them into the named repository.
	FileContents map[string]rfc.FunctionDescription

	repos   map[string]map[string]rfc.FunctionDescription
	descs   map[native.FunctionDescHandle]rfc.FunctionDescription
	inbound map[native.FunctionHandle]string
	conns   map[native.ConnectionHandle]bool
	servers map[native.ServerHandle]*serverRec

	installedFn       native.ServerFunction
	installedProvider native.FunctionDescProvider

	next     uint64
	log      []string
	fail     map[string]rfc.ErrorInfo
	failOnce map[string]rfc.ErrorInfo

	// LoadStreams and SaveStreams record the stream handles handed to the
	// repository calls, in order.
	LoadStreams []native.StreamHandle
	SaveStreams []native.StreamHandle
}

var _ native.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		Live:         map[string]rfc.FunctionDescription{},
		FileContents: map[string]rfc.FunctionDescription{},
		repos:        map[string]map[string]rfc.FunctionDescription{},
		descs:        map[native.FunctionDescHandle]rfc.FunctionDescription{},
		inbound:      map[native.FunctionHandle]string{},
		conns:        map[native.ConnectionHandle]bool{},
		servers:      map[native.ServerHandle]*serverRec{},
		fail:         map[string]rfc.ErrorInfo{},
		failOnce:     map[string]rfc.ErrorInfo{},
	}
}

// Fail makes every subsequent call of op return info.
func (e *Engine) Fail(op string, info rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[op] = info
}

// FailOnce makes the next call of op return info.
func (e *Engine) FailOnce(op string, info rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failOnce[op] = info
}

// Calls returns how many times op was attempted.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, rec := range e.log {
		if rec == op {
			n++
		}
	}
	return n
}

// OpenConnections returns how many connections are currently open.
func (e *Engine) OpenConnections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, open := range e.conns {
		if open {
			n++
		}
	}
	return n
}

// record logs the op and returns the scripted failure, if any. Caller must
// hold e.mu.
func (e *Engine) record(op string) (rfc.ErrorInfo, bool) {
	e.log = append(e.log, op)
	if info, ok := e.failOnce[op]; ok {
		delete(e.failOnce, op)
		return info, true
	}
	if info, ok := e.fail[op]; ok {
		return info, true
	}
	return rfc.ErrorInfo{}, false
}

func (e *Engine) handle() uint64 {
	e.next++
	return e.next
}

func (e *Engine) newDesc(d rfc.FunctionDescription) native.FunctionDescHandle {
	h := native.FunctionDescHandle(e.handle())
	e.descs[h] = d
	return h
}

// --- Connections ---

func (e *Engine) OpenConnection(params rfc.ConnectionParameters) (native.ConnectionHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpOpenConnection); bad {
		return 0, info
	}
	h := native.ConnectionHandle(e.handle())
	e.conns[h] = true
	return h, rfc.ErrorInfo{}
}

func (e *Engine) CloseConnection(conn native.ConnectionHandle) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpCloseConnection); bad {
		return info
	}
	if !e.conns[conn] {
		return rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "connection not open")
	}
	e.conns[conn] = false
	return rfc.ErrorInfo{}
}

func (e *Engine) GetFunctionDesc(conn native.ConnectionHandle, name string) (native.FunctionDescHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpGetFunctionDesc); bad {
		return 0, info
	}
	if !e.conns[conn] {
		return 0, rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "connection not open")
	}
	d, ok := e.Live[name]
	if !ok {
		return 0, rfc.Errorf(rfc.NotFound, "FU_NOT_FOUND", "function "+name+" not found")
	}
	return e.newDesc(d), rfc.ErrorInfo{}
}

func (e *Engine) DescribeFunction(fn native.FunctionHandle) (native.FunctionDescHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpDescribeFunction); bad {
		return 0, info
	}
	name, ok := e.inbound[fn]
	if !ok {
		return 0, rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "unknown function handle")
	}
	if d, ok := e.Live[name]; ok {
		return e.newDesc(d), rfc.ErrorInfo{}
	}
	return e.newDesc(rfc.FunctionDescription{Name: name}), rfc.ErrorInfo{}
}

// --- Servers ---

func (e *Engine) CreateServer(params rfc.ConnectionParameters) (native.ServerHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpCreateServer); bad {
		return 0, info
	}
	h := native.ServerHandle(e.handle())
	e.servers[h] = &serverRec{params: params.Clone()}
	return h, rfc.ErrorInfo{}
}

func (e *Engine) LaunchServer(server native.ServerHandle) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpLaunchServer); bad {
		return info
	}
	return e.checkServer(server)
}

func (e *Engine) ShutdownServer(server native.ServerHandle, timeout time.Duration) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpShutdownServer); bad {
		return info
	}
	return e.checkServer(server)
}

func (e *Engine) DestroyServer(server native.ServerHandle) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpDestroyServer); bad {
		return info
	}
	rec, ok := e.servers[server]
	if !ok || rec.destroyed {
		return rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "server not registered")
	}
	rec.destroyed = true
	return rfc.ErrorInfo{}
}

func (e *Engine) AddServerErrorListener(server native.ServerHandle, listener native.ServerErrorListener) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpAddErrorListener); bad {
		return info
	}
	rec, ok := e.servers[server]
	if !ok || rec.destroyed {
		return rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "server not registered")
	}
	rec.errorListeners = append(rec.errorListeners, listener)
	return rfc.ErrorInfo{}
}

func (e *Engine) AddServerStateChangedListener(server native.ServerHandle, listener native.ServerStateListener) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpAddStateListener); bad {
		return info
	}
	rec, ok := e.servers[server]
	if !ok || rec.destroyed {
		return rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "server not registered")
	}
	rec.stateListeners = append(rec.stateListeners, listener)
	return rfc.ErrorInfo{}
}

func (e *Engine) checkServer(server native.ServerHandle) rfc.ErrorInfo {
	rec, ok := e.servers[server]
	if !ok || rec.destroyed {
		return rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "server not registered")
	}
	return rfc.ErrorInfo{}
}

// --- Generic handler ---

func (e *Engine) InstallGenericServerFunction(fn native.ServerFunction, provider native.FunctionDescProvider) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpInstallGenericFn); bad {
		return info
	}
	e.installedFn = fn
	e.installedProvider = provider
	return rfc.ErrorInfo{}
}

// --- Repository ---

func (e *Engine) LoadRepository(repoID string, stream native.StreamHandle) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LoadStreams = append(e.LoadStreams, stream)
	if info, bad := e.record(OpLoadRepository); bad {
		return info
	}
	repo := map[string]rfc.FunctionDescription{}
	for name, d := range e.FileContents {
		repo[name] = d
	}
	e.repos[repoID] = repo
	return rfc.ErrorInfo{}
}

func (e *Engine) SaveRepository(repoID string, stream native.StreamHandle) rfc.ErrorInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SaveStreams = append(e.SaveStreams, stream)
	if info, bad := e.record(OpSaveRepository); bad {
		return info
	}
	if _, ok := e.repos[repoID]; !ok {
		return rfc.Errorf(rfc.NotFound, "REPO_NOT_FOUND", "repository "+repoID+" not loaded")
	}
	return rfc.ErrorInfo{}
}

func (e *Engine) GetCachedFunctionDesc(repoID, name string) (native.FunctionDescHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpGetCachedFnDesc); bad {
		return 0, info
	}
	repo, ok := e.repos[repoID]
	if !ok {
		return 0, rfc.Errorf(rfc.NotFound, "REPO_NOT_FOUND", "repository "+repoID+" not loaded")
	}
	d, ok := repo[name]
	if !ok {
		return 0, rfc.Errorf(rfc.NotFound, "FU_NOT_FOUND", "function "+name+" not in repository "+repoID)
	}
	return e.newDesc(d), rfc.ErrorInfo{}
}

// --- Description values ---

func (e *Engine) ReadFunctionDesc(desc native.FunctionDescHandle) (rfc.FunctionDescription, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpReadFunctionDesc); bad {
		return rfc.FunctionDescription{}, info
	}
	d, ok := e.descs[desc]
	if !ok {
		return rfc.FunctionDescription{}, rfc.Errorf(rfc.InvalidHandle, "RFC_INVALID_HANDLE", "unknown description handle")
	}
	return d, rfc.ErrorInfo{}
}

func (e *Engine) CreateFunctionDesc(desc rfc.FunctionDescription) (native.FunctionDescHandle, rfc.ErrorInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, bad := e.record(OpCreateFunctionDesc); bad {
		return 0, info
	}
	return e.newDesc(desc), rfc.ErrorInfo{}
}

// --- Test drivers ---

// Invoke simulates one inbound call for the named function the way the
// engine delivers it: the metadata callback resolves the description, then
// the dispatch callback runs. The dispatch callback's info is returned.
func (e *Engine) Invoke(name string) rfc.ErrorInfo {
	e.mu.Lock()
	fn := e.installedFn
	provider := e.installedProvider
	e.mu.Unlock()
	if fn == nil || provider == nil {
		return rfc.Errorf(rfc.InvalidParameter, "NO_HANDLER", "no generic server function installed")
	}
	if _, info := provider(name); !info.OK() {
		return info
	}

	e.mu.Lock()
	fh := native.FunctionHandle(e.handle())
	e.inbound[fh] = name
	ch := native.ConnectionHandle(e.handle())
	e.conns[ch] = true
	e.mu.Unlock()

	return fn(ch, fh)
}

// EmitError delivers an error event to every listener registered on server.
func (e *Engine) EmitError(server native.ServerHandle, attrs rfc.ConnectionAttributes, info rfc.ErrorInfo) {
	e.mu.Lock()
	rec := e.servers[server]
	var listeners []native.ServerErrorListener
	if rec != nil {
		listeners = append(listeners, rec.errorListeners...)
	}
	e.mu.Unlock()
	for _, l := range listeners {
		l(attrs, info)
	}
}

// EmitStateChange delivers a state transition to every listener on server.
func (e *Engine) EmitStateChange(server native.ServerHandle, change rfc.StateChange) {
	e.mu.Lock()
	rec := e.servers[server]
	var listeners []native.ServerStateListener
	if rec != nil {
		listeners = append(listeners, rec.stateListeners...)
	}
	e.mu.Unlock()
	for _, l := range listeners {
		l(change)
	}
}
