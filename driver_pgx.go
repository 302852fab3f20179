package pgtable

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type (
	pgxDriver struct {
		pool *pgxpool.Pool
	}

	pgxConn struct {
		conn *pgxpool.Conn
		tx   pgx.Tx
	}
)

func (d pgxDriver) acquire(ctx context.Context) (driverConn, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

func (d pgxDriver) close() {
	d.pool.Close()
}

func (c *pgxConn) exec(ctx context.Context, sql string, args []interface{}) (int64, error) {
	tag, err := c.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgxConn) query(ctx context.Context, sql string, args []interface{}) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// batch uses the simple query protocol, which accepts several statements
// in one string.
func (c *pgxConn) batch(ctx context.Context, sql string) error {
	_, err := c.conn.Conn().PgConn().Exec(ctx, sql).ReadAll()
	return err
}

func (c *pgxConn) begin(ctx context.Context) error {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *pgxConn) commit(ctx context.Context) error {
	tx := c.tx
	c.tx = nil
	return tx.Commit(ctx)
}

func (c *pgxConn) rollback(ctx context.Context) error {
	tx := c.tx
	c.tx = nil
	return tx.Rollback(ctx)
}

func (c *pgxConn) inTransaction() bool {
	return c.tx != nil
}

// release hands the connection back; pgxpool destroys it instead if it is
// closed or still inside a transaction.
func (c *pgxConn) release() {
	c.conn.Release()
}

func (c *pgxConn) discard(ctx context.Context) {
	c.conn.Conn().Close(ctx)
}
