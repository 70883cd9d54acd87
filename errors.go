package pgengine

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorCode represents a database error classification
type ErrorCode string

const (
	CodeOperational ErrorCode = "OPERATIONAL" // malformed SQL or access denied
	CodeIntegrity   ErrorCode = "INTEGRITY"   // constraint violation
	CodeTransaction ErrorCode = "TRANSACTION" // illegal transaction state or usage
	CodeConnection  ErrorCode = "CONNECTION"  // pool or database unreachable/uncreatable
)

// Sentinel errors for quick checks
var (
	ErrOperational = errors.New("pgengine: operational error")
	ErrIntegrity   = errors.New("pgengine: integrity constraint violation")
	ErrTransaction = errors.New("pgengine: transaction management error")
	ErrConnection  = errors.New("pgengine: database connection failed")
)

// Error is a rich database error with context
type Error struct {
	Code       ErrorCode // Error classification
	Message    string    // Human-readable message
	Op         string    // Operation that failed (e.g., "ExecuteQuery", "InTransaction")
	Database   string    // Logical database name if known
	Table      string    // Table name if known
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from PostgreSQL
	Cause      error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pgengine: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("pgengine.%s: %s", e.Op, e.Message)
	}
	if e.Database != "" {
		msg += fmt.Sprintf(" (database: %s)", e.Database)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (constraint: %s)", e.Constraint)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeOperational:
		return target == ErrOperational
	case CodeIntegrity:
		return target == ErrIntegrity
	case CodeTransaction:
		return target == ErrTransaction
	case CodeConnection:
		return target == ErrConnection
	}
	return false
}

// SQLSTATE class prefixes with a stable, recoverable-by-category meaning.
// Everything outside these classes propagates unmapped.
const (
	classSyntaxOrAccess     = "42" // syntax error or access rule violation
	classIntegrityViolation = "23" // integrity constraint violation
	classInvalidTxState     = "25" // invalid transaction state
)

// invalidCatalogCode is raised when connecting to a database that does not
// exist; it drives the auto-create retry in the pool lifecycle.
const invalidCatalogCode = "3D000"

// wrapError translates a driver error at the call boundary. Translation
// happens exactly once: already-translated errors and errors without a
// known category pass through untouched.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var engErr *Error
	if errors.As(err, &engErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return wrapPgError(pgErr, op)
	}

	return err
}

// wrapPgError maps PostgreSQL SQLSTATE classes to the error taxonomy.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func wrapPgError(pgErr *pgconn.PgError, op string) error {
	if len(pgErr.Code) < 2 {
		return pgErr
	}

	e := &Error{
		Op:         op,
		Message:    pgErr.Message,
		Table:      pgErr.TableName,
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Cause:      pgErr,
	}

	switch pgErr.Code[:2] {
	case classSyntaxOrAccess:
		e.Code = CodeOperational
	case classIntegrityViolation:
		e.Code = CodeIntegrity
	case classInvalidTxState:
		e.Code = CodeTransaction
	default:
		return pgErr
	}

	return e
}

// isInvalidCatalog reports whether err means the target database does not exist.
func isInvalidCatalog(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidCatalogCode
}

// IsOperational checks if error is a syntax or access error
func IsOperational(err error) bool {
	return errors.Is(err, ErrOperational)
}

// IsIntegrity checks if error is a constraint violation
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsTransaction checks if error is a transaction management error
func IsTransaction(err error) bool {
	return errors.Is(err, ErrTransaction)
}

// IsConnection checks if error is a connection error
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// GetErrorCode extracts the error code if it's a pgengine error
func GetErrorCode(err error) (ErrorCode, bool) {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Code, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available
func GetConstraint(err error) (string, bool) {
	var engErr *Error
	if errors.As(err, &engErr) && engErr.Constraint != "" {
		return engErr.Constraint, true
	}
	return "", false
}

// GetTable extracts the table name if available
func GetTable(err error) (string, bool) {
	var engErr *Error
	if errors.As(err, &engErr) && engErr.Table != "" {
		return engErr.Table, true
	}
	return "", false
}

// GetDetail extracts the error detail if available
func GetDetail(err error) (string, bool) {
	var engErr *Error
	if errors.As(err, &engErr) && engErr.Detail != "" {
		return engErr.Detail, true
	}
	return "", false
}
