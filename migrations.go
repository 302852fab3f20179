package pgtable

import (
	"context"
	"time"

	"github.com/gopsql/logger"
)

type (
	// MigrationRecord is a row of the migration table. A migration whose
	// name has a record has been applied exactly once.
	MigrationRecord struct {
		Name      string    `column:"name,primary"`
		AppliedAt time.Time `column:"applied_at,index,null" dataType:"timestamp"`
	}

	// Migrations applies named SQL scripts at most once per database,
	// recording each in a bookkeeping table. Concurrent callers, even in
	// different processes, are serialized by an advisory lock keyed on the
	// table name.
	Migrations struct {
		table  *Table[MigrationRecord]
		logger logger.Logger
	}
)

const (
	lockSQL = "SELECT pg_advisory_xact_lock(hashtext($1))"

	tableExistsSQL = "SELECT EXISTS (SELECT 1 FROM information_schema.tables " +
		"WHERE table_schema = current_schema() AND table_name = $1)"
)

// NewMigrations creates a migration engine using table as bookkeeping
// table, DefaultMigrationTable if empty. Options can be a logger.Logger.
func NewMigrations(table string, options ...interface{}) *Migrations {
	if table == "" {
		table = DefaultMigrationTable
	}
	m := &Migrations{table: NewTable[MigrationRecord](nil, table)}
	for _, option := range options {
		if l, ok := option.(logger.Logger); ok {
			m.logger = l
		}
	}
	return m
}

func newMigrations(d *Database, table string) *Migrations {
	m := NewMigrations(table)
	m.table.db = d
	return m
}

// Table returns the name of the bookkeeping table.
func (m *Migrations) Table() string {
	return m.table.Name()
}

// Init creates the bookkeeping table and its applied_at index if they do
// not exist.
func (m *Migrations) Init(ctx context.Context, conn *OwnedConn) error {
	return conn.Transaction(ctx, func(ctx context.Context, c Conn) error {
		if _, err := c.Exec(ctx, lockSQL, m.table.Name()); err != nil {
			return err
		}
		var exists bool
		if err := c.QueryRow(ctx, tableExistsSQL, m.table.Name()).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		return m.table.With(c).CreateIfNotExists(ctx)
	})
}

// Apply runs script and records name, in one transaction, unless name has
// already been recorded. If script fails, nothing is recorded and the
// error matches ErrQueryExecution.
func (m *Migrations) Apply(ctx context.Context, conn *OwnedConn, name, script string) error {
	_, err := m.apply(ctx, conn, name, script)
	return err
}

func (m *Migrations) apply(ctx context.Context, conn *OwnedConn, name, script string) (applied bool, err error) {
	err = conn.Transaction(ctx, func(ctx context.Context, c Conn) error {
		if _, err := c.Exec(ctx, lockSQL, m.table.Name()); err != nil {
			return err
		}
		table := m.table.With(c)
		record, err := table.SelectOne(ctx, Eq("name", name))
		if err != nil {
			return err
		}
		if record != nil {
			m.log(conn, "migration", name, "was applied at", record.AppliedAt.Format(time.RFC3339))
			return nil
		}
		if err := c.BatchExecute(ctx, script); err != nil {
			return err
		}
		applied = true
		return table.InsertOne(ctx, &MigrationRecord{
			Name:      name,
			AppliedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		applied = false
		return
	}
	if applied {
		m.log(conn, "migration", name, "applied")
	}
	return
}

// Applied returns the recorded migrations, oldest first.
func (m *Migrations) Applied(ctx context.Context, conn *OwnedConn) ([]MigrationRecord, error) {
	table := m.table.With(conn.Conn())
	b := NewBuilder(0)
	b.WriteString("SELECT " + table.table.schema.SelectColumns() + " FROM ")
	b.Ident(m.table.Name())
	b.WriteString(" ORDER BY " + Quote("applied_at") + ", " + Quote("name"))
	return table.SelectRaw(ctx, b.String())
}

func (m *Migrations) log(conn *OwnedConn, args ...interface{}) {
	l := m.logger
	if l == nil && conn != nil && conn.db != nil {
		l = conn.db.logger
	}
	if l != nil {
		l.Debug(args...)
	}
}

// Migrate applies script once, see Migrations.Apply.
func (d *Database) Migrate(ctx context.Context, name, script string) error {
	conn, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return d.migrations.Apply(ctx, conn, name, script)
}
