package pgengine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/pgengine/hooks"
)

func TestExecuteQuery_UpdateReturnsAffectedCount(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))
	drv.pools[0].onExecute = func(sql string, args []any) (string, error) {
		return "UPDATE 3", nil
	}

	n, rows, err := e.ExecuteQuery(context.Background(), "UPDATE t SET x = 1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, rows)
}

func TestExecuteQuery_DeleteReturnsAffectedCount(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))
	drv.pools[0].onExecute = func(sql string, args []any) (string, error) {
		return "DELETE 2", nil
	}

	n, rows, err := e.ExecuteQuery(context.Background(), "DELETE FROM t WHERE x = $1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, rows)
}

func TestExecuteQuery_SelectReturnsRows(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))
	drv.pools[0].onFetch = func(sql string, args []any) ([]Row, error) {
		return []Row{
			newRow([]string{"id", "name"}, []any{1, "ana"}),
			newRow([]string{"id", "name"}, []any{2, "bob"}),
		}, nil
	}

	n, rows, err := e.ExecuteQuery(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rows, 2)
	assert.Equal(t, "ana", rows[0].Get(1))
}

func TestExecuteQuery_PrefixMatchIsCaseSensitive(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))

	_, _, err := e.ExecuteQuery(context.Background(), "update t set x = 1")
	require.NoError(t, err)

	// Lowercase "update" is not a leading-token match; it goes down the
	// fetch path like any reporting statement.
	events := drv.pools[0].events()
	assert.Contains(t, events, "fetch:update t set x = 1")
}

func TestRowsAffected(t *testing.T) {
	tests := []struct {
		status   string
		expected int
	}{
		{"UPDATE 3", 3},
		{"DELETE 0", 0},
		{"INSERT 0 5", 0},
		{"UPDATE", 0},
		{"UPDATE x", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := rowsAffected(tt.status); got != tt.expected {
			t.Errorf("rowsAffected(%q) = %d, expected %d", tt.status, got, tt.expected)
		}
	}
}

func TestExecuteInsert_ReturnsSingleRow(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))
	drv.pools[0].onFetchRow = func(sql string, args []any) (Row, error) {
		return newRow([]string{"id"}, []any{42}), nil
	}

	r, err := e.ExecuteInsert(context.Background(), "INSERT INTO t (x) VALUES ($1) RETURNING id", []any{1})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 42, r.Get(0))
	assert.Equal(t, map[string]any{"id": 42}, r.Map())
}

func TestExecuteInsert_NoRow(t *testing.T) {
	e, _ := newTestEngine(nil)

	r, err := e.ExecuteInsert(context.Background(), "INSERT INTO t (x) VALUES ($1)", []any{1})
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestExecuteMany_CommitsBatch(t *testing.T) {
	e, drv := newTestEngine(nil)

	rows := [][]any{{1}, {2}, {3}}
	require.NoError(t, e.ExecuteMany(context.Background(), "INSERT INTO t (x) VALUES ($1)", rows))

	pool := drv.pools[0]
	assert.Equal(t, []string{
		"acquire",
		"begin",
		"txexec:INSERT INTO t (x) VALUES ($1)",
		"txexec:INSERT INTO t (x) VALUES ($1)",
		"txexec:INSERT INTO t (x) VALUES ($1)",
		"commit",
		"release",
	}, pool.events())
}

func TestExecuteMany_RollsBackOnFailure(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))

	var calls atomic.Int32
	drv.pools[0].onExecute = func(sql string, args []any) (string, error) {
		if calls.Add(1) == 2 {
			return "", &pgconn.PgError{Code: "23505", ConstraintName: "t_x_key"}
		}
		return "INSERT 0 1", nil
	}

	err := e.ExecuteMany(context.Background(), "INSERT INTO t (x) VALUES ($1)", [][]any{{1}, {1}, {2}})
	require.Error(t, err)
	assert.True(t, IsIntegrity(err))

	events := drv.pools[0].events()
	assert.Contains(t, events, "rollback")
	assert.NotContains(t, events, "commit")
	assert.Equal(t, 1, drv.pools[0].released)
}

func TestExecuteMany_JoinsOpenTransaction(t *testing.T) {
	e, drv := newTestEngine(nil)

	err := e.InTransaction(context.Background(), func(ctx context.Context, conn *TxConn) error {
		return e.ExecuteMany(ctx, "INSERT INTO t (x) VALUES ($1)", [][]any{{1}, {2}})
	})
	require.NoError(t, err)

	pool := drv.pools[0]
	assert.Equal(t, 1, pool.acquired, "the batch must run on the transaction's connection")
	assert.Contains(t, pool.events(), "savepoint")
}

func TestExecuteQueryDict(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))
	drv.pools[0].onFetch = func(sql string, args []any) ([]Row, error) {
		return []Row{
			newRow([]string{"id", "name"}, []any{1, "ana"}),
			newRow([]string{"id", "name"}, []any{2, "bob"}),
		}, nil
	}

	out, err := e.ExecuteQueryDict(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, map[string]any{"id": 1, "name": "ana"}, out[0])
	assert.Equal(t, map[string]any{"id": 2, "name": "bob"}, out[1])
}

func TestExecuteScript(t *testing.T) {
	e, drv := newTestEngine(nil)

	require.NoError(t, e.ExecuteScript(context.Background(), "CREATE TABLE t (x int); CREATE INDEX ON t (x)"))
	assert.Contains(t, drv.pools[0].events(), "exec:CREATE TABLE t (x int); CREATE INDEX ON t (x)")
}

func TestExecute_TranslatesKnownErrors(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		check func(error) bool
	}{
		{"syntax error", "42601", IsOperational},
		{"insufficient privilege", "42501", IsOperational},
		{"unique violation", "23505", IsIntegrity},
		{"foreign key violation", "23503", IsIntegrity},
		{"check violation", "23514", IsIntegrity},
		{"invalid transaction state", "25P02", IsTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, drv := newTestEngine(nil)
			require.NoError(t, e.Init(context.Background()))
			drv.pools[0].onFetch = func(sql string, args []any) ([]Row, error) {
				return nil, &pgconn.PgError{Code: tt.code, Message: tt.name}
			}

			_, _, err := e.ExecuteQuery(context.Background(), "SELECT 1")
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestExecute_UnmappedErrorPropagatesRaw(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))

	raw := &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}
	drv.pools[0].onFetch = func(sql string, args []any) ([]Row, error) {
		return nil, raw
	}

	_, _, err := e.ExecuteQuery(context.Background(), "SELECT pg_sleep(60)")
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Same(t, raw, pgErr)
	_, ok := GetErrorCode(err)
	assert.False(t, ok)
}

// captureHook records every query event it sees.
type captureHook struct {
	events []*hooks.QueryEvent
}

func (h *captureHook) BeforeQuery(ctx context.Context, event *hooks.QueryEvent) context.Context {
	return ctx
}

func (h *captureHook) AfterQuery(ctx context.Context, event *hooks.QueryEvent) {
	h.events = append(h.events, event)
}

func TestQueryHooks_SeeEveryStatement(t *testing.T) {
	e, drv := newTestEngine(nil)
	require.NoError(t, e.Init(context.Background()))

	hook := &captureHook{}
	e.AddQueryHook(hook)

	_, _, err := e.ExecuteQuery(context.Background(), "SELECT 1")
	require.NoError(t, err)

	drv.pools[0].onExecute = func(sql string, args []any) (string, error) {
		return "", &pgconn.PgError{Code: "42601"}
	}
	_, _, err = e.ExecuteQuery(context.Background(), "UPDATE nope")
	require.Error(t, err)

	require.Len(t, hook.events, 2)
	assert.Equal(t, "SELECT 1", hook.events[0].Query)
	assert.NoError(t, hook.events[0].Err)
	assert.Equal(t, "UPDATE nope", hook.events[1].Query)
	assert.Error(t, hook.events[1].Err)
}
