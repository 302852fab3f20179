package pgtable

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	// ErrConfig is returned if connection parameters are invalid. It is
	// reported before any connection attempt.
	ErrConfig = errors.New("invalid database configuration")

	// ErrPoolTimeout is returned if no connection became available within
	// the acquire timeout. The caller may retry.
	ErrPoolTimeout = errors.New("timed out acquiring connection")

	// ErrBackendConnection is returned on driver-level failures such as a
	// refused or reset connection. The handle must not be reused; acquire a
	// new connection instead.
	ErrBackendConnection = errors.New("database connection error")

	// ErrQueryExecution is returned if the server rejected a statement
	// (syntax error, constraint violation, type mismatch...).
	ErrQueryExecution = errors.New("query execution failed")

	// ErrCardinality is returned by SelectOne if more than one row matches.
	ErrCardinality = errors.New("more than one row matched")

	ErrNoConnection = errors.New("no connection")
	ErrNoRows       = errors.New("no rows in result set")
	ErrNilRecord    = errors.New("record is nil")
	ErrTxDone       = errors.New("transaction has already been committed or rolled back")
	ErrTxInProgress = errors.New("connection is already in a transaction")
	ErrReleased     = errors.New("connection has already been released")
)

// Error describes a failed operation. errors.Is matches both its Kind (one
// of the Err* values above) and anything in the wrapped driver error, and
// errors.As can reach the underlying *pgconn.PgError.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Code returns the SQLSTATE code of a server error, or "" if err does not
// come from the server.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// classify wraps a driver error returned while executing op. Errors that
// already carry a kind are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(op, errorKind(err), err)
}

func errorKind(err error) error {
	if Code(err) != "" {
		return ErrQueryExecution
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrBackendConnection
	}
	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return ErrBackendConnection
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ErrBackendConnection
	}
	return ErrQueryExecution
}

// classifyAcquire tells a pool timeout from a backend failure. ctx is the
// caller's context and actx the one bounded by the acquire timeout. A
// cancelled or expired caller context is reported as is, without a kind.
func classifyAcquire(ctx, actx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(err, cerr) {
			return err
		}
		return fmt.Errorf("acquire: %w: %w", cerr, err)
	}
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return newError("acquire", ErrPoolTimeout, err)
	}
	return newError("acquire", ErrBackendConnection, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
