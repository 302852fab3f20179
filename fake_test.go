package pgtable

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// fakeDriver records every statement and answers queries from handlers.
type fakeDriver struct {
	mu         sync.Mutex
	log        []string
	args       [][]interface{}
	acquireErr error
	open       int

	// query returns the rows for a query; nil means no rows.
	query func(sql string, args []interface{}) ([][]interface{}, error)
	// exec returns rows affected for a statement.
	exec func(sql string, args []interface{}) (int64, error)
	// rollbackErr is returned by rollback.
	rollbackErr error
}

type fakeConn struct {
	d         *fakeDriver
	tx        bool
	discarded bool
	released  bool
}

type fakeRows struct {
	rows [][]interface{}
	i    int
	err  error
}

func newFakeDatabase() (*Database, *fakeDriver) {
	d := &fakeDriver{}
	return newDatabase(d, Config{}), d
}

func (d *fakeDriver) record(sql string, args []interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, sql)
	d.args = append(d.args, args)
}

func (d *fakeDriver) statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.log...)
}

func (d *fakeDriver) acquire(ctx context.Context) (driverConn, error) {
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &fakeConn{d: d}, nil
}

func (d *fakeDriver) close() {}

func (c *fakeConn) exec(ctx context.Context, sql string, args []interface{}) (int64, error) {
	c.d.record(sql, args)
	if c.d.exec != nil {
		return c.d.exec(sql, args)
	}
	return 0, nil
}

func (c *fakeConn) query(ctx context.Context, sql string, args []interface{}) (Rows, error) {
	c.d.record(sql, args)
	if c.d.query == nil {
		return &fakeRows{}, nil
	}
	rows, err := c.d.query(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (c *fakeConn) batch(ctx context.Context, sql string) error {
	_, err := c.exec(ctx, sql, nil)
	return err
}

func (c *fakeConn) begin(ctx context.Context) error {
	c.d.record("BEGIN", nil)
	c.tx = true
	return nil
}

func (c *fakeConn) commit(ctx context.Context) error {
	c.d.record("COMMIT", nil)
	c.tx = false
	return nil
}

func (c *fakeConn) rollback(ctx context.Context) error {
	c.d.record("ROLLBACK", nil)
	c.tx = false
	return c.d.rollbackErr
}

func (c *fakeConn) inTransaction() bool {
	return c.tx
}

func (c *fakeConn) release() {
	c.released = true
	c.d.mu.Lock()
	c.d.open--
	c.d.mu.Unlock()
}

func (c *fakeConn) discard(ctx context.Context) {
	c.discarded = true
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.rows[r.i-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i]).Elem()
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", v, target.Type())
		}
		target.Set(value)
	}
	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Close() {}

var errFakeServer = errors.New("server rejected statement")
