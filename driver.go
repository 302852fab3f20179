package pgtable

import (
	"context"
)

type (
	// Rows is a result set being read. pgx.Rows satisfies it.
	Rows interface {
		Next() bool
		Scan(dest ...interface{}) error
		Err() error
		Close()
	}

	// driver hands out connections from a pool.
	driver interface {
		acquire(ctx context.Context) (driverConn, error)
		close()
	}

	// driverConn is one connection checked out of the pool. It is used by
	// one goroutine at a time.
	driverConn interface {
		exec(ctx context.Context, sql string, args []interface{}) (int64, error)
		query(ctx context.Context, sql string, args []interface{}) (Rows, error)
		// batch runs one or more statements separated by semicolons,
		// without parameters.
		batch(ctx context.Context, sql string) error
		begin(ctx context.Context) error
		commit(ctx context.Context) error
		rollback(ctx context.Context) error
		inTransaction() bool
		// release returns the connection to the pool.
		release()
		// discard closes the connection so that the pool will not reuse
		// it. release must still be called.
		discard(ctx context.Context)
	}
)
