package pgtable

import (
	"context"

	"github.com/gopsql/db"
)

type (
	// dbDriver runs statements through a gopsql db.DB (pq, pgx, go-pg or
	// database/sql via gopsql/standard). A db.DB does not pin connections,
	// so statements outside a transaction may run on any pooled
	// connection; inside a transaction they all run on the transaction's.
	dbDriver struct {
		db db.DB
	}

	dbConn struct {
		db db.DB
		tx db.Tx
	}

	dbRows struct {
		db.Rows
	}
)

func (d dbDriver) acquire(ctx context.Context) (driverConn, error) {
	if d.db == nil {
		return nil, ErrNoConnection
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &dbConn{db: d.db}, nil
}

func (d dbDriver) close() {
	d.db.Close()
}

// convert rewrites $n placeholders for drivers that need another style.
func (c *dbConn) convert(sql string, args []interface{}) (string, []interface{}) {
	if p, ok := c.db.(db.ConvertParameters); ok {
		return p.ConvertParameters(sql, args)
	}
	return sql, args
}

func (c *dbConn) exec(ctx context.Context, sql string, args []interface{}) (int64, error) {
	sql, args = c.convert(sql, args)
	var result db.Result
	var err error
	if c.tx != nil {
		result, err = c.tx.ExecContext(ctx, sql, args...)
	} else {
		result, err = c.db.Exec(sql, args...)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (c *dbConn) query(ctx context.Context, sql string, args []interface{}) (Rows, error) {
	sql, args = c.convert(sql, args)
	var rows db.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.QueryContext(ctx, sql, args...)
	} else {
		rows, err = c.db.Query(sql, args...)
	}
	if err != nil {
		return nil, err
	}
	return dbRows{rows}, nil
}

func (c *dbConn) batch(ctx context.Context, sql string) error {
	_, err := c.exec(ctx, sql, nil)
	return err
}

func (c *dbConn) begin(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, "", false)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *dbConn) commit(ctx context.Context) error {
	tx := c.tx
	c.tx = nil
	return tx.Commit(ctx)
}

func (c *dbConn) rollback(ctx context.Context) error {
	tx := c.tx
	c.tx = nil
	return tx.Rollback(ctx)
}

func (c *dbConn) inTransaction() bool {
	return c.tx != nil
}

func (c *dbConn) release() {}

func (c *dbConn) discard(ctx context.Context) {}

func (r dbRows) Close() {
	r.Rows.Close()
}
