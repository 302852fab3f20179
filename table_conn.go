package pgtable

import (
	"context"
)

// maxParams is the largest number of parameters PostgreSQL accepts in one
// statement.
const maxParams = 65535

// TableConn runs table operations on a connection the caller holds. Inside
// a transaction every operation takes part in it.
type TableConn[T any] struct {
	table *Table[T]
	conn  Conn
}

// Conn returns the connection the operations run on.
func (c *TableConn[T]) Conn() Conn {
	return c.conn
}

func (c *TableConn[T]) CreateIfNotExists(ctx context.Context) error {
	return c.conn.BatchExecute(ctx, c.table.schema.CreateSQL(c.table.name))
}

func (c *TableConn[T]) Drop(ctx context.Context) error {
	return c.conn.BatchExecute(ctx, c.table.schema.DropSQL(c.table.name))
}

func (c *TableConn[T]) InsertOne(ctx context.Context, record *T) error {
	if record == nil {
		return newError("insert into "+c.table.name, ErrNilRecord, nil)
	}
	sql, args := c.insertSQL([]*T{record})
	_, err := c.conn.Exec(ctx, sql, args...)
	return err
}

// InsertMany inserts records with multi-row INSERT statements, as many rows
// per statement as the parameter limit allows. If the connection is not in
// a transaction and more than one statement is needed, a transaction is
// started so that all records are inserted or none.
func (c *TableConn[T]) InsertMany(ctx context.Context, records []T) error {
	if len(records) == 0 {
		return nil
	}
	perStatement := maxParams / c.table.schema.Len()
	if len(records) > perStatement && !c.conn.InTransaction() && c.conn.owner != nil {
		return c.conn.owner.Transaction(ctx, func(ctx context.Context, conn Conn) error {
			return c.table.With(conn).InsertMany(ctx, records)
		})
	}
	for start := 0; start < len(records); start += perStatement {
		end := start + perStatement
		if end > len(records) {
			end = len(records)
		}
		chunk := make([]*T, 0, end-start)
		for i := start; i < end; i++ {
			chunk = append(chunk, &records[i])
		}
		sql, args := c.insertSQL(chunk)
		if _, err := c.conn.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}

func (c *TableConn[T]) insertSQL(records []*T) (string, []interface{}) {
	schema := c.table.schema
	b := NewBuilder(0)
	b.WriteString("INSERT INTO ")
	b.Ident(c.table.name)
	b.WriteString(" (" + schema.InsertColumns() + ") VALUES ")
	for i, record := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, value := range c.table.codec.Values(record) {
			if j > 0 {
				b.WriteString(", ")
			}
			b.Param(value)
		}
		b.WriteString(")")
	}
	return b.StringValues()
}

func (c *TableConn[T]) SelectAll(ctx context.Context) ([]T, error) {
	return c.SelectMany(ctx, nil)
}

func (c *TableConn[T]) SelectMany(ctx context.Context, filter Expr) ([]T, error) {
	sql, args := c.selectSQL(filter, "")
	return c.SelectRaw(ctx, sql, args...)
}

// SelectOne returns the row matching filter, nil if there is none, and an
// error matching ErrCardinality if there are several.
func (c *TableConn[T]) SelectOne(ctx context.Context, filter Expr) (*T, error) {
	sql, args := c.selectSQL(filter, " LIMIT 2")
	records, err := c.SelectRaw(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return &records[0], nil
	}
	return nil, newError("select one from "+c.table.name, ErrCardinality, nil)
}

func (c *TableConn[T]) selectSQL(filter Expr, suffix string) (string, []interface{}) {
	b := NewBuilder(0)
	b.WriteString("SELECT " + c.table.schema.SelectColumns() + " FROM ")
	b.Ident(c.table.name)
	WriteWhere(b, filter)
	b.WriteString(suffix)
	return b.StringValues()
}

// SelectRaw runs a query whose result columns are the schema columns in
// order and decodes every row.
func (c *TableConn[T]) SelectRaw(ctx context.Context, sql string, args ...interface{}) ([]T, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []T{}
	for rows.Next() {
		var record T
		if err := c.table.codec.Scan(rows, &record); err != nil {
			return nil, classify("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", err)
	}
	return records, nil
}

// Update applies update to the rows matching filter. An empty update runs
// nothing and returns 0.
func (c *TableConn[T]) Update(ctx context.Context, update *Update, filter Expr) (int64, error) {
	if update.Len() == 0 {
		return 0, nil
	}
	b := NewBuilder(0)
	b.WriteString("UPDATE ")
	b.Ident(c.table.name)
	b.WriteString(" SET ")
	WriteSet(b, update)
	WriteWhere(b, filter)
	sql, args := b.StringValues()
	return c.conn.Exec(ctx, sql, args...)
}

func (c *TableConn[T]) Delete(ctx context.Context, filter Expr) (int64, error) {
	b := NewBuilder(0)
	b.WriteString("DELETE FROM ")
	b.Ident(c.table.name)
	WriteWhere(b, filter)
	sql, args := b.StringValues()
	return c.conn.Exec(ctx, sql, args...)
}

// Count returns the number of rows matching filter, 0 if none match.
func (c *TableConn[T]) Count(ctx context.Context, filter Expr) (int64, error) {
	b := NewBuilder(0)
	b.WriteString("SELECT COUNT(*) FROM ")
	b.Ident(c.table.name)
	WriteWhere(b, filter)
	sql, args := b.StringValues()
	var count int64
	if err := c.conn.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (c *TableConn[T]) Exists(ctx context.Context, filter Expr) (bool, error) {
	b := NewBuilder(0)
	b.WriteString("SELECT EXISTS (SELECT 1 FROM ")
	b.Ident(c.table.name)
	WriteWhere(b, filter)
	b.WriteString(")")
	sql, args := b.StringValues()
	var exists bool
	if err := c.conn.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
