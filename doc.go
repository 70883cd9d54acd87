/*
Package pgengine provides a pooled, transaction-aware execution layer for
PostgreSQL.

It sits between application query calls and the raw driver and solves three
problems:

  - Multiplexing a bounded pool of physical connections across many logical
    callers, with lazy pool creation and bounded-timeout shutdown.
  - Letting a block of work run several statements atomically on one
    physical connection while ordinary calls made with the same context
    transparently join that transaction, without threading a connection
    handle through every call site.
  - Normalizing backend failures into a small, stable error taxonomy so
    callers never depend on driver internals.

# Basic Usage

	cfg := pgengine.DefaultConfig(os.Getenv("DATABASE_URL"), "app")
	cfg.Logger = slog.Default()
	cfg.LogSlowQueries = 100 * time.Millisecond

	engine, err := pgengine.New(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer engine.Close()

	n, rows, err := engine.ExecuteQuery(ctx, "SELECT id, name FROM users WHERE active = $1", true)

# Transactions

Work runs inside a transaction through the context passed to the body. Any
engine call made with that context (or one derived from it) executes on the
same connection inside the same transaction:

	err := engine.InTransaction(ctx, func(ctx context.Context, conn *pgengine.TxConn) error {
	    row, err := engine.ExecuteInsert(ctx, "INSERT INTO users (name) VALUES ($1) RETURNING id", []any{"ana"})
	    if err != nil {
	        return err // rollback
	    }
	    _, _, err = engine.ExecuteQuery(ctx, "UPDATE stats SET users = users + 1")
	    return err // nil commits
	})

Nested transactions are rejected with a transaction management error.

# Error Handling

Driver failures with a known category are translated exactly once:

	if pgengine.IsIntegrity(err) {
	    // unique/foreign key/check violation
	}

Syntax and permission failures surface as operational errors, constraint
violations as integrity errors, and illegal transaction states as
transaction management errors. Anything else propagates untouched.

# Observability

Query hooks provide structured logging (log/slog), Prometheus metrics, and
OpenTelemetry tracing; see the hooks subpackage. All are optional and wired
through Config.
*/
package pgengine
