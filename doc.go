// Package pgtable provides typed access to PostgreSQL tables for Go.
//
// A Table binds a Go struct type to a table. Its schema is derived from the
// struct once, and rows are scanned and written in schema column order
// without per-row reflection over tags.
//
// # Overview
//
// Open a Database from a Config, then create typed tables on it:
//
//	type User struct {
//		Id    int64
//		Name  string
//		Email *string `column:"email,unique"`
//	}
//
//	d := pgtable.MustOpen(ctx, pgtable.ConfigFromEnv())
//	defer d.Close()
//
//	users := pgtable.NewTable[User](d, "")
//	users.MustCreateIfNotExists(ctx)
//
// # Basic Usage
//
// Insert records:
//
//	users.InsertOne(ctx, &User{Id: 1, Name: "Alice"})
//	users.InsertMany(ctx, []User{{Id: 2, Name: "Bob"}, {Id: 3, Name: "Carol"}})
//
// Query with filters built from Eq, Gt, In, IsNull, And, Or and friends:
//
//	all, err := users.SelectAll(ctx)
//	some, err := users.SelectMany(ctx, pgtable.And(pgtable.Gt("id", 1), pgtable.IsNull("email")))
//	one, err := users.SelectOne(ctx, pgtable.Eq("id", 1)) // nil, nil if absent
//
// SelectOne returns an error wrapping ErrCardinality when more than one row
// matches.
//
// Update and delete return the number of affected rows:
//
//	n, err := users.Update(ctx, pgtable.Set("name", "Bob Jr."), pgtable.Eq("id", 2))
//	n, err = users.Update(ctx,
//		pgtable.Set("id", pgtable.StringWithArg(`"id" + $?`, 10)), nil)
//	n, err = users.Delete(ctx, pgtable.Eq("id", 3))
//
// # Table and Column Naming
//
// An empty table name is derived from the struct name in plural snake case:
//
//	User        -> users
//	UserProfile -> user_profiles
//
// Column names are the snake case form of the field name. Override them with
// the "column" tag, which also takes options:
//
//	Id    string `column:"id,primary"`
//	Email string `column:"email,unique"`
//	Age   int32  `column:"age,index"`
//	Notes string `column:"notes,null"`
//	Cache []byte `column:"-"`
//
// Pointer fields are nullable. A column named "id" is the primary key when no
// field is marked primary. Use "dataType" to set the PostgreSQL type:
//
//	Score decimal.Decimal `dataType:"numeric"`
//
// Types implementing SchemaProvider declare their schema directly, and types
// implementing RowScanner and RowValuer skip reflection entirely.
//
// # Transactions
//
// Run a block in a transaction; it commits when the block returns nil and
// rolls back on error or panic:
//
//	err := d.Transaction(ctx, func(ctx context.Context, conn pgtable.Conn) error {
//		if err := users.With(conn).InsertOne(ctx, &User{Id: 4}); err != nil {
//			return err
//		}
//		_, err := users.With(conn).Delete(ctx, pgtable.Eq("id", 1))
//		return err
//	})
//
// For manual control, Acquire a connection and Begin a Tx on it. Releasing a
// connection with an open transaction rolls it back first.
//
// # Migrations
//
// Named SQL scripts are applied at most once per database, serialized with
// an advisory lock:
//
//	err := d.Migrate(ctx, "001_create_users", `CREATE TABLE ...`)
//
//	conn, _ := d.Acquire(ctx)
//	defer conn.Release()
//	applied, err := d.Migrations().ApplyFS(ctx, conn, os.DirFS("."), "migrations")
//
// The cmd/pgmigrate command applies a directory of migrations from the shell.
//
// # Database Drivers
//
// Open and FromPool use github.com/jackc/pgx/v5 through pgxpool. Any db.DB
// from github.com/gopsql/db works through FromDB, for example database/sql
// with lib/pq:
//
//	import (
//		"database/sql"
//		"github.com/gopsql/standard"
//		_ "github.com/lib/pq"
//	)
//
//	c, _ := sql.Open("postgres", connStr)
//	d := pgtable.FromDB(standard.NewDB("postgres", c), pgtable.Config{})
package pgtable
