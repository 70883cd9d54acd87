package pgengine

import "context"

// The transacted-connection registry binds a logical database name to the
// connection owned by an open transaction. Bindings travel inside
// context.Context, so each logical execution context (a request, a task and
// its children) sees only its own binding and unrelated concurrent contexts
// never observe each other's. Unwinding the context restores whatever
// binding was in place before, which keeps composition safe.

// txConnKey keys one logical database name, letting engines for different
// databases coexist in the same context.
type txConnKey string

// withTxConn publishes the transacted connection for name into ctx.
func withTxConn(ctx context.Context, name string, tc *TxConn) context.Context {
	return context.WithValue(ctx, txConnKey(name), tc)
}

// currentTxConn returns the live transacted connection bound for name, or
// nil when there is none. It never fails. A binding whose transaction has
// already finished counts as absent, which covers contexts that escaped
// their transaction scope.
func currentTxConn(ctx context.Context, name string) *TxConn {
	tc, _ := ctx.Value(txConnKey(name)).(*TxConn)
	if tc == nil || tc.finished() {
		return nil
	}
	return tc
}
