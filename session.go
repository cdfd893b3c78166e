package rfcserver

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// ErrSessionDisposed is returned by lifecycle and subscription calls made
// after Dispose. A disposed session never exposes its handle again.
var ErrSessionDisposed = errors.New("rfcserver: server session disposed")

// ErrorListener receives server error events with the attributes of the
// client connection the error belongs to.
type ErrorListener func(attrs rfc.ConnectionAttributes, info rfc.ErrorInfo)

// StateListener receives server lifecycle transitions.
type StateListener func(change rfc.StateChange)

// ServerSession owns one native server handle and its lifecycle:
// Created -> Launched -> ShutDown -> Disposed. All methods are safe for
// concurrent use.
type ServerSession struct {
	engine native.Engine
	log    *slog.Logger
	id     string

	mu       sync.Mutex
	handle   native.ServerHandle
	disposed bool

	// Listener registration with the engine happens at most once per event
	// kind, on the first subscription; later subscribers join the fan-out.
	errorRegistered bool
	stateRegistered bool
	errorListeners  []ErrorListener
	stateListeners  []StateListener
}

// SessionOption configures a ServerSession at creation.
type SessionOption func(*ServerSession)

// WithSessionLogger sets the session's logger. A nil logger discards output.
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *ServerSession) {
		if log != nil {
			s.log = log
		}
	}
}

// CreateServer registers a server endpoint with the engine and returns the
// session owning the resulting handle.
func CreateServer(engine native.Engine, params rfc.ConnectionParameters, opts ...SessionOption) (*ServerSession, error) {
	s := &ServerSession{
		engine: engine,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	handle, info := engine.CreateServer(params)
	if err := rfc.CallErrorFrom("CreateServer", info); err != nil {
		return nil, err
	}
	s.handle = handle
	s.log = s.log.With("server", s.id)
	s.log.Debug("server created")
	return s, nil
}

// ID is the session's host-side identifier, used in logs and metrics. It is
// unrelated to the native handle.
func (s *ServerSession) ID() string { return s.id }

// Launch transitions the server into an accepting state. Whether a second
// Launch is legal is the engine's decision; the result is passed through.
func (s *ServerSession) Launch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	if err := rfc.CallErrorFrom("LaunchServer", s.engine.LaunchServer(s.handle)); err != nil {
		return err
	}
	s.log.Info("server launched")
	return nil
}

// Shutdown requests a graceful stop. The timeout budget is interpreted and
// enforced entirely by the engine.
func (s *ServerSession) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	if err := rfc.CallErrorFrom("ShutdownServer", s.engine.ShutdownServer(s.handle, timeout)); err != nil {
		return err
	}
	s.log.Info("server shut down", "timeout", timeout)
	return nil
}

// Dispose destroys the native handle. Destruction failures are logged and
// swallowed; the handle is released either way and every later call on the
// session returns ErrSessionDisposed. Dispose is safe to call repeatedly.
func (s *ServerSession) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	if info := s.engine.DestroyServer(s.handle); !info.OK() {
		s.log.Warn("server destroy failed", "code", info.Code.String(), "msg", info.Message)
	}
	s.handle = 0
	s.log.Debug("server disposed")
}

// OnError subscribes a listener to server error events. The first subscriber
// triggers the single engine-side listener registration; all subscribers
// share it through an in-process fan-out.
func (s *ServerSession) OnError(fn ErrorListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	if !s.errorRegistered {
		info := s.engine.AddServerErrorListener(s.handle, s.fanOutError)
		if err := rfc.CallErrorFrom("AddServerErrorListener", info); err != nil {
			return err
		}
		s.errorRegistered = true
	}
	s.errorListeners = append(s.errorListeners, fn)
	return nil
}

// OnStateChange subscribes a listener to server state transitions, with the
// same once-only engine registration as OnError.
func (s *ServerSession) OnStateChange(fn StateListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrSessionDisposed
	}
	if !s.stateRegistered {
		info := s.engine.AddServerStateChangedListener(s.handle, s.fanOutState)
		if err := rfc.CallErrorFrom("AddServerStateChangedListener", info); err != nil {
			return err
		}
		s.stateRegistered = true
	}
	s.stateListeners = append(s.stateListeners, fn)
	return nil
}

// fanOutError runs on the engine's call stack. A listener panic must not
// unwind into it.
func (s *ServerSession) fanOutError(attrs rfc.ConnectionAttributes, info rfc.ErrorInfo) {
	s.mu.Lock()
	listeners := make([]ErrorListener, len(s.errorListeners))
	copy(listeners, s.errorListeners)
	s.mu.Unlock()
	s.log.Debug("server error event", "code", info.Code.String(), "msg", info.Message, "partner", attrs.Host)
	for _, fn := range listeners {
		s.invokeErrorListener(fn, attrs, info)
	}
}

func (s *ServerSession) invokeErrorListener(fn ErrorListener, attrs rfc.ConnectionAttributes, info rfc.ErrorInfo) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("error listener panicked", "panic", r)
		}
	}()
	fn(attrs, info)
}

func (s *ServerSession) fanOutState(change rfc.StateChange) {
	s.mu.Lock()
	listeners := make([]StateListener, len(s.stateListeners))
	copy(listeners, s.stateListeners)
	s.mu.Unlock()
	s.log.Debug("server state change", "from", change.Old, "to", change.New)
	for _, fn := range listeners {
		s.invokeStateListener(fn, change)
	}
}

func (s *ServerSession) invokeStateListener(fn StateListener, change rfc.StateChange) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("state listener panicked", "panic", r)
		}
	}()
	fn(change)
}
