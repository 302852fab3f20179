package pgtable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

type (
	// Database is a pool of connections to one PostgreSQL database. It is
	// safe for concurrent use.
	Database struct {
		driver     driver
		logger     logger.Logger
		timeout    time.Duration
		migrations *Migrations
	}

	// OwnedConn is a connection checked out of the pool. It must be used
	// by one goroutine at a time and given back with Release.
	OwnedConn struct {
		db       *Database
		raw      driverConn
		released bool
	}

	// Conn is a borrowed view of a connection, either of an OwnedConn or of
	// a Tx. Statements run on a Conn obtained from a Tx take part in the
	// transaction. The zero Conn returns ErrNoConnection.
	Conn struct {
		owner *OwnedConn
	}
)

// Open creates a connection pool from cfg, checks that the server can be
// reached and makes sure the migration table exists. Options can be a
// logger.Logger.
func Open(ctx context.Context, cfg Config, options ...interface{}) (*Database, error) {
	pc, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, newError("open", ErrConfig, err)
	}
	d := newDatabase(pgxDriver{pool}, cfg, options...)
	conn, err := d.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer conn.Release()
	if err := d.migrations.Init(ctx, conn); err != nil {
		conn.Release()
		pool.Close()
		return nil, err
	}
	return d, nil
}

// MustOpen is like Open but panics if the database cannot be opened.
func MustOpen(ctx context.Context, cfg Config, options ...interface{}) *Database {
	d, err := Open(ctx, cfg, options...)
	if err != nil {
		panic(err)
	}
	return d
}

// FromPool wraps an existing pgx pool. Only AcquireTimeout and
// MigrationTable of cfg are used. Migrations().Init is not called.
func FromPool(pool *pgxpool.Pool, cfg Config, options ...interface{}) *Database {
	return newDatabase(pgxDriver{pool}, cfg, options...)
}

// FromDB wraps a gopsql db.DB, for example one returned by pq.MustOpen or
// standard.NewDB. Only AcquireTimeout and MigrationTable of cfg are used.
// Migrations().Init is not called.
func FromDB(conn db.DB, cfg Config, options ...interface{}) *Database {
	return newDatabase(dbDriver{conn}, cfg, options...)
}

func newDatabase(drv driver, cfg Config, options ...interface{}) *Database {
	d := &Database{
		driver:  drv,
		timeout: cfg.acquireTimeout(),
	}
	d.migrations = newMigrations(d, cfg.migrationTable())
	d.SetOptions(options...)
	return d
}

// SetOptions sets the logger (see SetLogger()).
func (d *Database) SetOptions(options ...interface{}) *Database {
	for _, option := range options {
		switch o := option.(type) {
		case logger.Logger:
			d.SetLogger(o)
		}
	}
	return d
}

// Set the logger for the Database. Use logger.StandardLogger if you want to
// use Go's built-in standard logging package. By default, no logger is
// used, so the SQL statements are not printed.
func (d *Database) SetLogger(logger logger.Logger) *Database {
	d.logger = logger
	return d
}

// Migrations returns the migration engine of the database.
func (d *Database) Migrations() *Migrations {
	return d.migrations
}

// Acquire checks a connection out of the pool, waiting at most the acquire
// timeout. The returned error matches ErrPoolTimeout if the pool stayed
// exhausted, ErrBackendConnection if a new connection could not be made,
// and the context error if ctx is cancelled or expires first.
func (d *Database) Acquire(ctx context.Context) (*OwnedConn, error) {
	if d == nil || d.driver == nil {
		return nil, newError("acquire", ErrNoConnection, nil)
	}
	actx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	raw, err := d.driver.acquire(actx)
	if err != nil {
		return nil, classifyAcquire(ctx, actx, err)
	}
	return &OwnedConn{db: d, raw: raw}, nil
}

// Close closes all connections of the pool.
func (d *Database) Close() {
	d.driver.close()
}

func (d *Database) log(sql string, args []interface{}) {
	if d == nil || d.logger == nil {
		return
	}
	sql = strings.TrimSpace(sql)
	if len(args) == 0 {
		d.logger.Debug(sql)
		return
	}
	d.logger.Debug(fmt.Sprintf("%s %v", sql, args))
}

// Conn returns a view of the connection for running statements.
func (c *OwnedConn) Conn() Conn {
	return Conn{owner: c}
}

// Release gives the connection back to the pool. A transaction still open
// on it is rolled back first. Calling Release more than once is harmless.
func (c *OwnedConn) Release() {
	if c == nil || c.released {
		return
	}
	c.released = true
	if c.raw.inTransaction() {
		c.db.log("ROLLBACK", nil)
		ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
		if err := c.raw.rollback(ctx); err != nil {
			c.raw.discard(ctx)
		}
		cancel()
	}
	c.raw.release()
}

func (c *OwnedConn) usable() error {
	if c == nil {
		return ErrNoConnection
	}
	if c.released {
		return ErrReleased
	}
	return nil
}

// Exec runs a statement and returns the number of rows affected.
func (c Conn) Exec(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	if err := c.owner.usable(); err != nil {
		return 0, newError("exec", err, nil)
	}
	c.owner.db.log(sql, args)
	n, err := c.owner.raw.exec(ctx, sql, args)
	if err != nil {
		return 0, classify("exec", err)
	}
	return n, nil
}

// Query runs a statement returning rows. Rows must be closed before the
// connection is used again.
func (c Conn) Query(ctx context.Context, sql string, args ...interface{}) (Rows, error) {
	if err := c.owner.usable(); err != nil {
		return nil, newError("query", err, nil)
	}
	c.owner.db.log(sql, args)
	rows, err := c.owner.raw.query(ctx, sql, args)
	if err != nil {
		return nil, classify("query", err)
	}
	return rows, nil
}

// QueryRow runs a statement and scans its first row in Scan. Scan returns
// an error matching ErrNoRows if there is no row.
func (c Conn) QueryRow(ctx context.Context, sql string, args ...interface{}) Row {
	rows, err := c.Query(ctx, sql, args...)
	return singleRow{rows: rows, err: err}
}

// BatchExecute runs several statements separated by semicolons, without
// parameters.
func (c Conn) BatchExecute(ctx context.Context, sql string) error {
	if err := c.owner.usable(); err != nil {
		return newError("batch", err, nil)
	}
	c.owner.db.log(sql, nil)
	return classify("batch", c.owner.raw.batch(ctx, sql))
}

// InTransaction reports whether statements on c take part in a
// transaction.
func (c Conn) InTransaction() bool {
	return c.owner.usable() == nil && c.owner.raw.inTransaction()
}

type singleRow struct {
	rows Rows
	err  error
}

func (r singleRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return classify("query", err)
		}
		return newError("query", ErrNoRows, nil)
	}
	if err := r.rows.Scan(dest...); err != nil {
		return classify("scan", err)
	}
	return nil
}
