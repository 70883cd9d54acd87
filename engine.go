package pgengine

import (
	"context"
	"sync"
	"time"

	"github.com/fernandezvara/pgengine/hooks"
)

// Engine multiplexes a bounded pool of PostgreSQL connections across many
// callers and routes statements to the transaction bound to the calling
// context, if any. One Engine owns one logical database.
type Engine struct {
	name   string
	cfg    Config
	driver Driver
	hooks  []hooks.QueryHook

	mu   sync.Mutex
	pool Pool
}

// New creates an engine for one logical database. No connection is made
// until first use; call Init to connect eagerly.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	if cfg.URL == "" {
		return nil, &Error{
			Code:    CodeConnection,
			Message: "database URL is required",
			Op:      "New",
		}
	}
	if cfg.Database == "" {
		return nil, &Error{
			Code:    CodeConnection,
			Message: "logical database name is required",
			Op:      "New",
		}
	}

	e := newEngine(cfg, pgxDriver{})

	// Observability hooks
	if cfg.Logger != nil && (cfg.LogQueries || cfg.LogSlowQueries > 0) {
		e.AddQueryHook(hooks.NewLoggerHook(cfg.Logger, cfg.LogQueries, cfg.LogSlowQueries))
	}
	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry)
		if err != nil {
			return nil, err
		}
		e.AddQueryHook(hook)
	}
	if cfg.Tracer != nil {
		e.AddQueryHook(hooks.NewTracingHook(cfg.Tracer))
	}

	return e, nil
}

func newEngine(cfg Config, drv Driver) *Engine {
	return &Engine{
		name:   cfg.Database,
		cfg:    cfg,
		driver: drv,
	}
}

// Name returns the logical database name.
func (e *Engine) Name() string {
	return e.name
}

// Config returns the current configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// AddQueryHook registers a hook invoked around every executed statement.
func (e *Engine) AddQueryHook(h hooks.QueryHook) {
	e.hooks = append(e.hooks, h)
}

// Init eagerly creates the connection pool. Calling it is optional; the
// pool is otherwise created on first use.
func (e *Engine) Init(ctx context.Context) error {
	_, err := e.ensurePool(ctx)
	return err
}

// ensurePool returns the pool, creating it synchronously if needed. The
// creation always completes before any caller proceeds.
func (e *Engine) ensurePool(ctx context.Context) (Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		return e.pool, nil
	}

	pool, err := e.createPool(ctx)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return pool, nil
}

func (e *Engine) createPool(ctx context.Context) (Pool, error) {
	poolCfg := PoolConfig{
		URL:      e.cfg.URL,
		MinConns: e.cfg.MinConns,
		MaxConns: e.cfg.MaxConns,
	}

	pool, err := e.driver.CreatePool(ctx, poolCfg)
	if err == nil {
		return pool, nil
	}

	if e.cfg.AutoCreate && isInvalidCatalog(err) {
		if cerr := e.CreateDatabase(ctx); cerr != nil {
			return nil, cerr
		}
		if pool, err = e.driver.CreatePool(ctx, poolCfg); err == nil {
			return pool, nil
		}
	}

	return nil, &Error{
		Code:     CodeConnection,
		Message:  "can't establish connection to database " + e.cfg.Database,
		Op:       "ensurePool",
		Database: e.cfg.Database,
		Cause:    err,
	}
}

// Close shuts the pool down, waiting up to CloseTimeout for acquired
// connections to drain before terminating them. In-flight work may be
// aborted by a forced termination. Close is idempotent and a later use
// recreates the pool.
func (e *Engine) Close() error {
	e.mu.Lock()
	pool := e.pool
	e.pool = nil
	e.mu.Unlock()

	if pool == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.cfg.CloseTimeout):
		pool.Terminate()
	}
	return nil
}

// acquireConnection is the connection router: it returns the
// transaction-bound connection when the calling context carries a live one
// for this engine, otherwise a freshly acquired pooled connection. Callers
// are uniform either way:
//
//	conn, release, err := e.acquireConnection(ctx)
//	if err != nil { ... }
//	defer release()
//
// For a bound connection release is a no-op; the owning transaction
// context returns it to the pool on exit.
func (e *Engine) acquireConnection(ctx context.Context) (execConn, func(), error) {
	pool, err := e.ensurePool(ctx)
	if err != nil {
		return nil, nil, err
	}

	if tc := currentTxConn(ctx, e.name); tc != nil {
		return tc, func() {}, nil
	}

	conn, err := e.acquirePooled(ctx, pool, "acquireConnection")
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Release, nil
}

// acquirePooled checks a connection out of the pool, honoring the
// configured acquire timeout (zero blocks until one frees up).
func (e *Engine) acquirePooled(ctx context.Context, pool Pool, op string) (Conn, error) {
	acquireCtx := ctx
	if e.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, e.cfg.AcquireTimeout)
		defer cancel()
	}

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		return nil, &Error{
			Code:     CodeConnection,
			Message:  "acquiring connection from pool",
			Op:       op,
			Database: e.name,
			Cause:    err,
		}
	}
	return conn, nil
}
