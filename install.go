package rfcserver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nwbridge/rfc-server-go/descstore"
	"github.com/nwbridge/rfc-server-go/native"
	"github.com/nwbridge/rfc-server-go/repository"
	"github.com/nwbridge/rfc-server-go/rfc"
)

type installConfig struct {
	registry    *CallbackRegistry
	log         *slog.Logger
	ctx         context.Context
	metrics     *Metrics
	tracer      trace.Tracer
	store       descstore.Store
	storeTTL    time.Duration
	destination string
	cache       *repository.Cache
}

// InstallOption configures a generic handler installation.
type InstallOption func(*installConfig)

// WithRegistry installs into a dedicated registry instead of the process
// default.
func WithRegistry(r *CallbackRegistry) InstallOption {
	return func(c *installConfig) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithLogger sets the installation's logger. A nil logger discards output.
func WithLogger(log *slog.Logger) InstallOption {
	return func(c *installConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBaseContext sets the context handed to handler invocations. It should
// span the server's lifetime; canceling it signals handlers, not the engine.
func WithBaseContext(ctx context.Context) InstallOption {
	return func(c *installConfig) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithMetrics instruments dispatch with the given metrics.
func WithMetrics(m *Metrics) InstallOption {
	return func(c *installConfig) { c.metrics = m }
}

// WithTracer wraps each dispatch in a span from the given tracer.
func WithTracer(t trace.Tracer) InstallOption {
	return func(c *installConfig) { c.tracer = t }
}

// WithDescriptionStore layers a host-side description cache over metadata
// resolution. destination labels the store keys; ttl bounds entry lifetime
// (non-positive means the store's default).
func WithDescriptionStore(store descstore.Store, destination string, ttl time.Duration) InstallOption {
	return func(c *installConfig) {
		c.store = store
		c.destination = destination
		c.storeTTL = ttl
	}
}

// WithRepositoryCache overrides the repository cache used by
// InstallGenericHandlerFromRepository, letting tests substitute the file
// primitive.
func WithRepositoryCache(cache *repository.Cache) InstallOption {
	return func(c *installConfig) { c.cache = cache }
}

func newInstallConfig(opts []InstallOption) *installConfig {
	cfg := &installConfig{
		registry: defaultRegistry,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// InstallGenericHandler installs handler as the process-wide generic server
// function in live-metadata mode: each inbound function name is resolved
// over a transient connection opened with params. Installation must happen
// before any session is launched.
func InstallGenericHandler(engine native.Engine, params rfc.ConnectionParameters, handler HandlerFunc, opts ...InstallOption) (*Installation, error) {
	cfg := newInstallConfig(opts)
	provider := liveProvider(engine, params.Clone(), cfg.log)
	return install(engine, cfg, handler, provider)
}

// InstallGenericHandlerFromRepository installs handler in cached-repository
// mode: each lookup refreshes the repository identified by repoID from the
// file at path, then resolves the description from the loaded repository.
// The file must be kept current out-of-band (see repository.Cache.Watch).
func InstallGenericHandlerFromRepository(engine native.Engine, handler HandlerFunc, path, repoID string, opts ...InstallOption) (*Installation, error) {
	cfg := newInstallConfig(opts)
	cache := cfg.cache
	if cache == nil {
		cache = repository.NewCache(engine, repository.WithLogger(cfg.log))
	}
	provider := cachedProvider(cache, path, repoID, cfg.log)
	return install(engine, cfg, handler, provider)
}

func install(engine native.Engine, cfg *installConfig, handler HandlerFunc, provider native.FunctionDescProvider) (*Installation, error) {
	if cfg.store != nil {
		provider = storeProvider(cfg, engine, provider)
	}
	b := &bridge{
		engine:  engine,
		handler: handler,
		log:     cfg.log,
		ctx:     cfg.ctx,
		metrics: cfg.metrics,
		tracer:  cfg.tracer,
	}
	inst := &Installation{
		id:       uuid.NewString(),
		registry: cfg.registry,
		dispatch: b.serve,
		provider: provider,
	}
	// Reserve the slot before touching the engine so a losing concurrent
	// install never reaches it.
	if err := cfg.registry.reserve(inst); err != nil {
		return nil, err
	}
	info := engine.InstallGenericServerFunction(inst.dispatch, inst.provider)
	if err := rfc.CallErrorFrom("InstallGenericServerFunction", info); err != nil {
		cfg.registry.release(inst)
		return nil, err
	}
	cfg.log.Info("generic handler installed", "installation", inst.id)
	return inst, nil
}
