package pgengine

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateDatabase creates the engine's database over the bootstrap
// connection. It is called automatically on first connect when AutoCreate
// is enabled and the database does not exist.
func (e *Engine) CreateDatabase(ctx context.Context) error {
	conn, err := e.bootstrapConn(ctx, "CreateDatabase")
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	stmt := fmt.Sprintf("CREATE DATABASE %s", quoteIdent(e.cfg.Database))
	if e.cfg.Owner != "" {
		stmt += " OWNER " + quoteIdent(e.cfg.Owner)
	}

	if _, err := conn.Execute(ctx, stmt); err != nil {
		return &Error{
			Code:     CodeOperational,
			Message:  fmt.Sprintf("create database %s: %v", e.cfg.Database, err),
			Op:       "CreateDatabase",
			Database: e.cfg.Database,
			Cause:    err,
		}
	}
	return nil
}

// DropDatabase closes the pool and drops the engine's database over the
// bootstrap connection.
func (e *Engine) DropDatabase(ctx context.Context) error {
	if err := e.Close(); err != nil {
		return err
	}

	conn, err := e.bootstrapConn(ctx, "DropDatabase")
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	if _, err := conn.Execute(ctx, "DROP DATABASE "+quoteIdent(e.cfg.Database)); err != nil {
		return &Error{
			Code:     CodeOperational,
			Message:  fmt.Sprintf("drop database %s: %v", e.cfg.Database, err),
			Op:       "DropDatabase",
			Database: e.cfg.Database,
			Cause:    err,
		}
	}
	return nil
}

func (e *Engine) bootstrapConn(ctx context.Context, op string) (BootstrapConn, error) {
	if e.cfg.AdminURL == "" {
		return nil, &Error{
			Code:     CodeConnection,
			Message:  "admin URL is required for database bootstrap",
			Op:       op,
			Database: e.cfg.Database,
		}
	}

	conn, err := e.driver.Connect(ctx, e.cfg.AdminURL)
	if err != nil {
		return nil, &Error{
			Code:     CodeConnection,
			Message:  "can't establish bootstrap connection",
			Op:       op,
			Database: e.cfg.Database,
			Cause:    err,
		}
	}
	return conn, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
