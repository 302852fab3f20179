package pgtable

import (
	"context"
	"fmt"
)

type (
	// Table gives typed access to one table whose rows are records of type
	// T. Each operation checks a connection out of the database pool and
	// releases it before returning. Use With to run operations on a
	// connection or transaction you already hold.
	Table[T any] struct {
		db     *Database
		name   string
		schema *Schema
		codec  Codec[T]
	}
)

// NewTable creates a table accessor. If name is empty, the table name is
// derived from T with ToTableName. The schema comes from SchemaOf[T] and
// the codec from CodecFor[T]; NewTable panics if T cannot be described or
// has no columns. db may be nil if the table is only used through With.
func NewTable[T any](db *Database, name string) *Table[T] {
	if name == "" {
		name = ToTableName(new(T))
	}
	schema := SchemaOf[T]()
	if schema.Len() == 0 {
		panic(fmt.Sprintf("pgtable: %T has no columns", *new(T)))
	}
	return &Table[T]{
		db:     db,
		name:   name,
		schema: schema,
		codec:  CodecFor[T](schema),
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Schema returns the table schema.
func (t *Table[T]) Schema() *Schema {
	return t.schema
}

// With returns the same operations bound to conn.
func (t *Table[T]) With(conn Conn) *TableConn[T] {
	return &TableConn[T]{table: t, conn: conn}
}

// run checks out a connection for the duration of f.
func (t *Table[T]) run(ctx context.Context, f func(*TableConn[T]) error) error {
	conn, err := t.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return f(t.With(conn.Conn()))
}

// CreateIfNotExists creates the table and its indexes if they do not exist.
func (t *Table[T]) CreateIfNotExists(ctx context.Context) error {
	return t.run(ctx, func(c *TableConn[T]) error {
		return c.CreateIfNotExists(ctx)
	})
}

// MustCreateIfNotExists is like CreateIfNotExists but panics on error.
func (t *Table[T]) MustCreateIfNotExists(ctx context.Context) {
	if err := t.CreateIfNotExists(ctx); err != nil {
		panic(err)
	}
}

// Drop drops the table if it exists.
func (t *Table[T]) Drop(ctx context.Context) error {
	return t.run(ctx, func(c *TableConn[T]) error {
		return c.Drop(ctx)
	})
}

// InsertOne inserts one record. A nil record returns an error matching
// ErrNilRecord.
func (t *Table[T]) InsertOne(ctx context.Context, record *T) error {
	return t.run(ctx, func(c *TableConn[T]) error {
		return c.InsertOne(ctx, record)
	})
}

// InsertMany inserts all records in one transaction: either every record
// is inserted or none is.
func (t *Table[T]) InsertMany(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return t.db.Transaction(ctx, func(ctx context.Context, conn Conn) error {
		return t.With(conn).InsertMany(ctx, records)
	})
}

// SelectAll returns every row of the table.
func (t *Table[T]) SelectAll(ctx context.Context) (records []T, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		records, err = c.SelectAll(ctx)
		return
	})
	return
}

// SelectMany returns the rows matching filter.
func (t *Table[T]) SelectMany(ctx context.Context, filter Expr) (records []T, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		records, err = c.SelectMany(ctx, filter)
		return
	})
	return
}

// SelectOne returns the row matching filter, nil if there is none, and an
// error matching ErrCardinality if there are several.
func (t *Table[T]) SelectOne(ctx context.Context, filter Expr) (record *T, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		record, err = c.SelectOne(ctx, filter)
		return
	})
	return
}

// SelectRaw runs a query whose columns match the schema and decodes its
// rows.
func (t *Table[T]) SelectRaw(ctx context.Context, sql string, args ...interface{}) (records []T, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		records, err = c.SelectRaw(ctx, sql, args...)
		return
	})
	return
}

// Update applies update to the rows matching filter and returns the number
// of rows affected.
func (t *Table[T]) Update(ctx context.Context, update *Update, filter Expr) (n int64, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		n, err = c.Update(ctx, update, filter)
		return
	})
	return
}

// Delete deletes the rows matching filter and returns the number of rows
// affected. A nil filter deletes every row.
func (t *Table[T]) Delete(ctx context.Context, filter Expr) (n int64, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		n, err = c.Delete(ctx, filter)
		return
	})
	return
}

// Count returns the number of rows matching filter.
func (t *Table[T]) Count(ctx context.Context, filter Expr) (n int64, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		n, err = c.Count(ctx, filter)
		return
	})
	return
}

// Exists reports whether any row matches filter.
func (t *Table[T]) Exists(ctx context.Context, filter Expr) (ok bool, err error) {
	err = t.run(ctx, func(c *TableConn[T]) (err error) {
		ok, err = c.Exists(ctx, filter)
		return
	})
	return
}
