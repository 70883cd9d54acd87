package pgengine

import (
	"context"
	"time"
)

// Driver creates the pooled and bootstrap connections the engine runs on.
// The production implementation is backed by pgx (see pgx.go); tests
// substitute an in-memory fake.
type Driver interface {
	// CreatePool creates a connection pool and verifies it can reach the
	// database. Creation is synchronous: when CreatePool returns, the pool
	// is usable.
	CreatePool(ctx context.Context, cfg PoolConfig) (Pool, error)
	// Connect opens a single non-pooled connection, used only for
	// database bootstrap (create/drop).
	Connect(ctx context.Context, url string) (BootstrapConn, error)
}

// PoolConfig holds the parameters the driver needs to build a pool.
type PoolConfig struct {
	URL      string
	MinConns int32
	MaxConns int32
}

// Pool owns zero or more physical connections, bounded by PoolConfig.
type Pool interface {
	// Acquire returns a connection, waiting until one frees up or ctx is done.
	Acquire(ctx context.Context) (Conn, error)
	// Close shuts the pool down gracefully, waiting for acquired
	// connections to be released.
	Close()
	// Terminate shuts the pool down without waiting for in-flight work.
	Terminate()
	// Stat reports pool usage counters.
	Stat() PoolStat
}

// PoolStat contains connection pool statistics
type PoolStat struct {
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	TotalConns      int32         `json:"total_conns"`
	MaxConns        int32         `json:"max_conns"`
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
}

// Querier is the statement-execution surface shared by pooled connections
// and open transactions.
type Querier interface {
	// Execute runs a statement and returns the driver status string
	// (e.g. "UPDATE 3").
	Execute(ctx context.Context, sql string, args ...any) (string, error)
	// Fetch runs a statement and returns all result rows in order.
	Fetch(ctx context.Context, sql string, args ...any) ([]Row, error)
	// FetchRow runs a statement and returns the first result row, or nil
	// when the statement produced none.
	FetchRow(ctx context.Context, sql string, args ...any) (Row, error)
}

// Conn is one physical connection checked out of a Pool.
type Conn interface {
	Querier
	// Begin starts a transaction on this connection.
	Begin(ctx context.Context) (Tx, error)
	// Release returns the connection to its pool.
	Release()
}

// Tx is an open transaction on one physical connection.
type Tx interface {
	Querier
	// Begin opens a nested transaction scope (a savepoint on PostgreSQL).
	Begin(ctx context.Context) (Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BootstrapConn is a non-pooled connection used only to create or drop the
// target database.
type BootstrapConn interface {
	Execute(ctx context.Context, sql string) (string, error)
	Close(ctx context.Context) error
}

// Row is one materialized result row, readable positionally or by column name.
type Row interface {
	Columns() []string
	Values() []any
	Get(i int) any
	Map() map[string]any
}

// row is the Row implementation shared by drivers.
type row struct {
	columns []string
	values  []any
}

func newRow(columns []string, values []any) *row {
	return &row{columns: columns, values: values}
}

func (r *row) Columns() []string { return r.columns }

func (r *row) Values() []any { return r.values }

func (r *row) Get(i int) any { return r.values[i] }

func (r *row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// execConn is what the connection router hands to the execution surface:
// statement execution plus the ability to open a transaction scope on the
// same connection. Satisfied by Conn and by TxConn.
type execConn interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
}
