package pgengine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fernandezvara/pgengine/hooks"
)

// ExecuteInsert runs a parameterized statement expected to produce at most
// one row (typically INSERT ... RETURNING) and returns that row, or nil
// when the statement produced none.
func (e *Engine) ExecuteInsert(ctx context.Context, query string, values []any) (Row, error) {
	conn, release, err := e.acquireConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, ev := e.beforeQuery(ctx, query)
	r, err := conn.FetchRow(ctx, query, values...)
	e.afterQuery(ctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "ExecuteInsert")
	}
	return r, nil
}

// ExecuteMany runs query once per element of rows, in order, inside one
// transaction scope on a single connection, so the batch applies
// all-or-nothing. When the calling context is already inside a
// transaction the scope is a savepoint and joins the outer transaction.
func (e *Engine) ExecuteMany(ctx context.Context, query string, rows [][]any) error {
	conn, release, err := e.acquireConnection(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return wrapError(err, "ExecuteMany.Begin")
	}

	ctx, ev := e.beforeQuery(ctx, query)
	for _, args := range rows {
		if _, err := tx.Execute(ctx, query, args...); err != nil {
			_ = tx.Rollback(ctx)
			e.afterQuery(ctx, ev, err)
			return wrapError(err, "ExecuteMany")
		}
	}
	err = tx.Commit(ctx)
	e.afterQuery(ctx, ev, err)
	if err != nil {
		return wrapError(err, "ExecuteMany.Commit")
	}
	return nil
}

// ExecuteQuery executes query and shapes the result by statement kind.
// UPDATE and DELETE statements (leading token, case-sensitive) are
// executed and report (rows affected, no rows); the count comes from the
// driver status string and an unparsable status counts as zero because the
// statement itself succeeded. Every other statement is fetched and reports
// (row count, rows).
func (e *Engine) ExecuteQuery(ctx context.Context, query string, values ...any) (int, []Row, error) {
	conn, release, err := e.acquireConnection(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer release()

	ctx, ev := e.beforeQuery(ctx, query)

	if strings.HasPrefix(query, "UPDATE") || strings.HasPrefix(query, "DELETE") {
		status, err := conn.Execute(ctx, query, values...)
		e.afterQuery(ctx, ev, err)
		if err != nil {
			return 0, nil, wrapError(err, "ExecuteQuery")
		}
		return rowsAffected(status), nil, nil
	}

	rows, err := conn.Fetch(ctx, query, values...)
	e.afterQuery(ctx, ev, err)
	if err != nil {
		return 0, nil, wrapError(err, "ExecuteQuery")
	}
	return len(rows), rows, nil
}

// ExecuteQueryDict fetches all result rows as column-keyed maps.
func (e *Engine) ExecuteQueryDict(ctx context.Context, query string, values ...any) ([]map[string]any, error) {
	conn, release, err := e.acquireConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, ev := e.beforeQuery(ctx, query)
	rows, err := conn.Fetch(ctx, query, values...)
	e.afterQuery(ctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "ExecuteQueryDict")
	}

	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Map()
	}
	return out, nil
}

// ExecuteScript executes literal SQL with no parameter binding and no
// result shaping, for DDL or multi-statement scripts.
func (e *Engine) ExecuteScript(ctx context.Context, query string) error {
	conn, release, err := e.acquireConnection(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, ev := e.beforeQuery(ctx, query)
	_, err = conn.Execute(ctx, query)
	e.afterQuery(ctx, ev, err)
	return wrapError(err, "ExecuteScript")
}

// rowsAffected parses the affected-row count from a driver status string
// such as "UPDATE 3" (second whitespace-delimited token).
func rowsAffected(status string) int {
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return n
}

func (e *Engine) beforeQuery(ctx context.Context, query string) (context.Context, *hooks.QueryEvent) {
	if len(e.hooks) == 0 {
		return ctx, nil
	}
	ev := &hooks.QueryEvent{Query: query, StartTime: time.Now()}
	for _, h := range e.hooks {
		ctx = h.BeforeQuery(ctx, ev)
	}
	return ctx, ev
}

func (e *Engine) afterQuery(ctx context.Context, ev *hooks.QueryEvent, err error) {
	if ev == nil {
		return
	}
	ev.Err = err
	for _, h := range e.hooks {
		h.AfterQuery(ctx, ev)
	}
}
