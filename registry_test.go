package pgengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentTxConn_EmptyContext(t *testing.T) {
	assert.Nil(t, currentTxConn(context.Background(), "appdb"))
}

func TestWithTxConn_ScopedToDerivedContext(t *testing.T) {
	base := context.Background()
	tc := &TxConn{}

	ctx := withTxConn(base, "appdb", tc)

	assert.Same(t, tc, currentTxConn(ctx, "appdb"))
	assert.Nil(t, currentTxConn(base, "appdb"), "binding must not leak into the parent context")
	assert.Nil(t, currentTxConn(ctx, "otherdb"), "bindings are keyed by logical name")
}

func TestWithTxConn_InnerBindingShadowsAndRestores(t *testing.T) {
	tc1 := &TxConn{}
	tc2 := &TxConn{}

	ctx1 := withTxConn(context.Background(), "appdb", tc1)
	ctx2 := withTxConn(ctx1, "appdb", tc2)

	assert.Same(t, tc2, currentTxConn(ctx2, "appdb"))
	// Unwinding to the outer context restores the previous association.
	assert.Same(t, tc1, currentTxConn(ctx1, "appdb"))
}

func TestCurrentTxConn_FinishedBindingIsAbsent(t *testing.T) {
	tc := &TxConn{}
	ctx := withTxConn(context.Background(), "appdb", tc)

	tc.done.Store(true)

	assert.Nil(t, currentTxConn(ctx, "appdb"))
}
