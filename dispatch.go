package rfcserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/repository"
	"github.com/nwbridge/rfc-server-go/rfc"
)

// HandlerFunc is the single generic handler a host installs. It receives
// every inbound call regardless of function name. Returning an error fails
// the call toward the remote caller with EXTERNAL_FAILURE; only the error's
// message survives the boundary.
//
// The engine may invoke the handler concurrently from its own workers.
type HandlerFunc func(ctx context.Context, conn *Connection, call *FunctionCall) error

// bridge is the fixed adapter between the engine's callback surface and the
// host handler. All of its state is immutable after installation.
type bridge struct {
	engine  native.Engine
	handler HandlerFunc
	log     *slog.Logger
	ctx     context.Context
	metrics *Metrics
	tracer  trace.Tracer
}

// serve is the dispatch callback registered with the engine. It runs on the
// engine's call stack: no panic may cross it, and the outcome is always an
// ErrorInfo the engine can report to the remote caller.
func (b *bridge) serve(conn native.ConnectionHandle, fn native.FunctionHandle) (out rfc.ErrorInfo) {
	callID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panicked", "call", callID, "panic", r)
			out = rfc.Errorf(rfc.ExternalFailure, "HANDLER_PANIC", fmt.Sprint(r))
		}
	}()

	desc, info := b.engine.DescribeFunction(fn)
	if !info.OK() {
		b.log.Warn("describe inbound function failed", "call", callID, "code", info.Code.String(), "msg", info.Message)
		return info
	}

	// The decoded signature enriches the call view; when the engine cannot
	// decode it the view carries a zero description and dispatch continues.
	description, dinfo := b.engine.ReadFunctionDesc(desc)
	if !dinfo.OK() {
		b.log.Debug("read function description failed", "call", callID, "code", dinfo.Code.String())
	}

	call := &FunctionCall{handle: fn, desc: desc, description: description, callID: callID}
	connection := &Connection{engine: b.engine, handle: conn}

	ctx := b.ctx
	var span trace.Span
	if b.tracer != nil {
		ctx, span = b.tracer.Start(ctx, "rfc.dispatch", trace.WithAttributes(
			attribute.String("rfc.function", call.Name()),
			attribute.String("rfc.call_id", callID),
		))
		defer span.End()
	}

	start := time.Now()
	err := b.handler(ctx, connection, call)
	elapsed := time.Since(start)

	if err != nil {
		b.log.Warn("handler failed", "call", callID, "function", call.Name(), "err", err)
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		b.metrics.observe(call.Name(), rfc.ExternalFailure, elapsed)
		return rfc.ErrorInfo{Code: rfc.ExternalFailure, Message: err.Error()}
	}
	b.log.Debug("handler completed", "call", callID, "function", call.Name(), "elapsed", elapsed)
	b.metrics.observe(call.Name(), rfc.OK, elapsed)
	return rfc.ErrorInfo{}
}

// liveProvider resolves metadata per lookup over a transient connection. The
// connection is closed on every path; an open failure returns that failure's
// code without attempting the lookup.
func liveProvider(engine native.Engine, params rfc.ConnectionParameters, log *slog.Logger) native.FunctionDescProvider {
	return func(name string) (native.FunctionDescHandle, rfc.ErrorInfo) {
		conn, info := engine.OpenConnection(params)
		if !info.OK() {
			log.Warn("metadata connection open failed", "function", name, "code", info.Code.String(), "msg", info.Message)
			return 0, info
		}
		desc, info := engine.GetFunctionDesc(conn, name)
		if closeInfo := engine.CloseConnection(conn); !closeInfo.OK() {
			// The close outcome never outranks the lookup outcome.
			log.Warn("metadata connection close failed", "code", closeInfo.Code.String())
		}
		if !info.OK() {
			return 0, info
		}
		return desc, rfc.ErrorInfo{}
	}
}

// cachedProvider refreshes the repository file per lookup and resolves the
// description from the loaded repository. Load and retrieval failures are
// fatal to the lookup and surface the underlying error's code.
func cachedProvider(cache *repository.Cache, path, repoID string, log *slog.Logger) native.FunctionDescProvider {
	return func(name string) (native.FunctionDescHandle, rfc.ErrorInfo) {
		if err := cache.Load(path, repoID); err != nil {
			log.Warn("repository refresh failed", "function", name, "path", path, "err", err)
			return 0, rfc.InfoOf(err)
		}
		desc, err := cache.FunctionDesc(repoID, name)
		if err != nil {
			return 0, rfc.InfoOf(err)
		}
		return desc, rfc.ErrorInfo{}
	}
}

// storeProvider layers a description store over another provider. A store
// hit materializes a handle without touching the inner provider; a miss
// resolves through it and backfills the store. Store failures degrade to the
// inner provider.
func storeProvider(cfg *installConfig, engine native.Engine, inner native.FunctionDescProvider) native.FunctionDescProvider {
	return func(name string) (native.FunctionDescHandle, rfc.ErrorInfo) {
		ctx := cfg.ctx
		if desc, ok, err := cfg.store.Get(ctx, cfg.destination, name); err != nil {
			cfg.log.Warn("description store get failed", "function", name, "err", err)
		} else if ok {
			h, info := engine.CreateFunctionDesc(desc)
			if info.OK() {
				return h, info
			}
			cfg.log.Warn("materialize cached description failed", "function", name, "code", info.Code.String())
		}

		h, info := inner(name)
		if !info.OK() {
			return 0, info
		}
		if value, rinfo := engine.ReadFunctionDesc(h); rinfo.OK() {
			if err := cfg.store.Set(ctx, cfg.destination, name, value, cfg.storeTTL); err != nil {
				cfg.log.Warn("description store set failed", "function", name, "err", err)
			}
		}
		return h, rfc.ErrorInfo{}
	}
}
