package pgengine

import (
	"context"
	"sync/atomic"
)

// TxConn is the connection-like object a transaction context yields. It
// executes statements on the transaction owned by the enclosing
// InTransaction call. Engine query operations made with the transaction's
// context are routed to it automatically, so most callers never touch it
// directly.
type TxConn struct {
	tx   Tx
	done atomic.Bool
}

func (tc *TxConn) Execute(ctx context.Context, sql string, args ...any) (string, error) {
	if err := tc.usable(); err != nil {
		return "", err
	}
	return tc.tx.Execute(ctx, sql, args...)
}

func (tc *TxConn) Fetch(ctx context.Context, sql string, args ...any) ([]Row, error) {
	if err := tc.usable(); err != nil {
		return nil, err
	}
	return tc.tx.Fetch(ctx, sql, args...)
}

func (tc *TxConn) FetchRow(ctx context.Context, sql string, args ...any) (Row, error) {
	if err := tc.usable(); err != nil {
		return nil, err
	}
	return tc.tx.FetchRow(ctx, sql, args...)
}

// Begin opens a nested transaction scope (a savepoint) inside the bound
// transaction.
func (tc *TxConn) Begin(ctx context.Context) (Tx, error) {
	if err := tc.usable(); err != nil {
		return nil, err
	}
	return tc.tx.Begin(ctx)
}

// finished reports whether the owning transaction context has exited.
func (tc *TxConn) finished() bool {
	return tc.done.Load()
}

func (tc *TxConn) usable() error {
	if tc.done.Load() {
		return &Error{
			Code:    CodeTransaction,
			Message: "transaction context already used",
			Op:      "TxConn",
		}
	}
	return nil
}

// TxFunc is the body executed within a transaction. The context it
// receives carries the transaction binding; engine calls made with it (or
// any context derived from it) join the same transaction.
type TxFunc func(ctx context.Context, conn *TxConn) error

// InTransaction executes fn inside a single transaction on one pooled
// connection.
//
// If fn returns an error the transaction is rolled back and fn's error is
// returned; a failure of the rollback itself never masks it. If fn panics
// the transaction is rolled back and the panic is re-raised. Otherwise the
// transaction is committed, and a commit failure is returned.
//
// Opening a transaction while ctx already carries one for this engine
// fails with a transaction management error; nesting is not supported. The
// existing transaction is left untouched.
func (e *Engine) InTransaction(ctx context.Context, fn TxFunc) error {
	if currentTxConn(ctx, e.name) != nil {
		return &Error{
			Code:     CodeTransaction,
			Message:  "nested transaction not allowed",
			Op:       "InTransaction",
			Database: e.name,
		}
	}

	pool, err := e.ensurePool(ctx)
	if err != nil {
		return err
	}

	conn, err := e.acquirePooled(ctx, pool, "InTransaction")
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return wrapError(err, "InTransaction.Begin")
	}

	tc := &TxConn{tx: tx}
	txCtx := withTxConn(ctx, e.name, tc)

	// Exit always runs both steps, in this order: kill the binding first,
	// then hand the connection back, so a query racing the teardown never
	// picks up a binding to a connection already returned to the pool.
	finish := func() {
		tc.done.Store(true)
		conn.Release()
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			finish()
			panic(p)
		}
	}()

	if err := fn(txCtx, tc); err != nil {
		// The body error propagates; a rollback failure is deliberately
		// swallowed so it cannot mask the original.
		_ = tx.Rollback(ctx)
		finish()
		return err
	}

	err = tx.Commit(ctx)
	finish()
	if err != nil {
		return wrapError(err, "InTransaction.Commit")
	}
	return nil
}
