package pgengine

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxDriver implements Driver on top of pgx/v5 and pgxpool.
type pgxDriver struct{}

func (pgxDriver) CreatePool(ctx context.Context, cfg PoolConfig) (Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	// pgxpool connects lazily; ping so a missing or unreachable database
	// surfaces here rather than on the first query.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &pgxPool{pool: pool}, nil
}

func (pgxDriver) Connect(ctx context.Context, url string) (BootstrapConn, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return &pgxBootstrap{conn: conn}, nil
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

func (p *pgxPool) Close() {
	p.pool.Close()
}

// Terminate destroys idle connections immediately and flags acquired ones
// for destruction on release; pgxpool has no harder kill. The blocking
// Close is left to finish in the background.
func (p *pgxPool) Terminate() {
	p.pool.Reset()
	go p.pool.Close()
}

func (p *pgxPool) Stat() PoolStat {
	s := p.pool.Stat()
	return PoolStat{
		AcquiredConns:   s.AcquiredConns(),
		IdleConns:       s.IdleConns(),
		TotalConns:      s.TotalConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration(),
	}
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Execute(ctx context.Context, sql string, args ...any) (string, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	return tag.String(), err
}

func (c *pgxConn) Fetch(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (c *pgxConn) FetchRow(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return firstRow(rows)
}

func (c *pgxConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (c *pgxConn) Release() {
	c.conn.Release()
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Execute(ctx context.Context, sql string, args ...any) (string, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	return tag.String(), err
}

func (t *pgxTx) Fetch(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (t *pgxTx) FetchRow(ctx context.Context, sql string, args ...any) (Row, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return firstRow(rows)
}

// Begin opens a nested transaction; pgx implements it as a savepoint.
func (t *pgxTx) Begin(ctx context.Context) (Tx, error) {
	tx, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

type pgxBootstrap struct {
	conn *pgx.Conn
}

func (b *pgxBootstrap) Execute(ctx context.Context, sql string) (string, error) {
	tag, err := b.conn.Exec(ctx, sql)
	return tag.String(), err
}

func (b *pgxBootstrap) Close(ctx context.Context) error {
	return b.conn.Close(ctx)
}

// collectRows materializes all rows and closes the cursor.
func collectRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()

	cols := columnNames(rows)
	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, newRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// firstRow materializes the first row (nil when there is none) and closes
// the cursor.
func firstRow(rows pgx.Rows) (Row, error) {
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	r := newRow(columnNames(rows), values)
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

func columnNames(rows pgx.Rows) []string {
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}
