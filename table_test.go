package pgtable

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const personColumns = `"id", "name", "age", "secret"`

func TestTableName(t *testing.T) {
	t.Parallel()
	db, _ := newFakeDatabase()

	if got := NewTable[person](db, "").Name(); got != "persons" {
		t.Errorf("Name() = %q, want %q", got, "persons")
	}
	if got := NewTable[person](db, "people").Name(); got != "people" {
		t.Errorf("Name() = %q, want %q", got, "people")
	}
	if got := NewTable[person](db, "").Schema(); got != SchemaOf[person]() {
		t.Error("Schema() differs from SchemaOf()")
	}
}

func TestTableStatements(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		run      func(*Table[person]) error
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "drop",
			run: func(t *Table[person]) error {
				return t.Drop(ctx)
			},
			wantSQL:  "DROP TABLE IF EXISTS \"people\";\n",
			wantArgs: nil,
		},
		{
			name: "insert one",
			run: func(t *Table[person]) error {
				return t.InsertOne(ctx, &person{Id: "u1", Age: 3, secret: "s"})
			},
			wantSQL:  `INSERT INTO "people" (` + personColumns + `) VALUES ($1, $2, $3, $4)`,
			wantArgs: []interface{}{"u1", (*string)(nil), int32(3), "s"},
		},
		{
			name: "select all",
			run: func(t *Table[person]) error {
				_, err := t.SelectAll(ctx)
				return err
			},
			wantSQL:  `SELECT ` + personColumns + ` FROM "people"`,
			wantArgs: nil,
		},
		{
			name: "select many",
			run: func(t *Table[person]) error {
				_, err := t.SelectMany(ctx, And(Gte("age", 18), IsNotNull("name")))
				return err
			},
			wantSQL:  `SELECT ` + personColumns + ` FROM "people" WHERE ("age" >= $1) AND ("name" IS NOT NULL)`,
			wantArgs: []interface{}{18},
		},
		{
			name: "select one",
			run: func(t *Table[person]) error {
				_, err := t.SelectOne(ctx, Eq("id", "u1"))
				return err
			},
			wantSQL:  `SELECT ` + personColumns + ` FROM "people" WHERE "id" = $1 LIMIT 2`,
			wantArgs: []interface{}{"u1"},
		},
		{
			name: "select raw",
			run: func(t *Table[person]) error {
				_, err := t.SelectRaw(ctx, `SELECT `+personColumns+` FROM "people" ORDER BY "age" DESC LIMIT $1`, 5)
				return err
			},
			wantSQL:  `SELECT ` + personColumns + ` FROM "people" ORDER BY "age" DESC LIMIT $1`,
			wantArgs: []interface{}{5},
		},
		{
			name: "update",
			run: func(t *Table[person]) error {
				_, err := t.Update(ctx, Set("age", 4).Set("name", String("NULL")), Eq("id", "u1"))
				return err
			},
			wantSQL:  `UPDATE "people" SET "age" = $1, "name" = NULL WHERE "id" = $2`,
			wantArgs: []interface{}{4, "u1"},
		},
		{
			name: "delete",
			run: func(t *Table[person]) error {
				_, err := t.Delete(ctx, In("id", "u1", "u2"))
				return err
			},
			wantSQL:  `DELETE FROM "people" WHERE "id" IN ($1, $2)`,
			wantArgs: []interface{}{"u1", "u2"},
		},
		{
			name: "delete all",
			run: func(t *Table[person]) error {
				_, err := t.Delete(ctx, nil)
				return err
			},
			wantSQL:  `DELETE FROM "people"`,
			wantArgs: nil,
		},
		{
			name: "count",
			run: func(t *Table[person]) error {
				_, err := t.Count(ctx, Lt("age", 10))
				return err
			},
			wantSQL:  `SELECT COUNT(*) FROM "people" WHERE "age" < $1`,
			wantArgs: []interface{}{10},
		},
		{
			name: "exists",
			run: func(t *Table[person]) error {
				_, err := t.Exists(ctx, Eq("id", "u1"))
				return err
			},
			wantSQL:  `SELECT EXISTS (SELECT 1 FROM "people" WHERE "id" = $1)`,
			wantArgs: []interface{}{"u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, d := newFakeDatabase()
			d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
				switch {
				case strings.HasPrefix(sql, "SELECT COUNT"):
					return [][]interface{}{{int64(0)}}, nil
				case strings.HasPrefix(sql, "SELECT EXISTS"):
					return [][]interface{}{{false}}, nil
				}
				return nil, nil
			}
			if err := tt.run(NewTable[person](db, "people")); err != nil {
				t.Fatal(err)
			}
			if len(d.log) != 1 {
				t.Fatalf("statements = %q, want one", d.log)
			}
			if d.log[0] != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", d.log[0], tt.wantSQL)
			}
			if !reflect.DeepEqual(d.args[0], tt.wantArgs) {
				t.Errorf("Args = %#v, want %#v", d.args[0], tt.wantArgs)
			}
			if d.open != 0 {
				t.Errorf("%d connections not released", d.open)
			}
		})
	}
}

func TestTableCreateIfNotExists(t *testing.T) {
	t.Parallel()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	for i := 0; i < 2; i++ {
		if err := table.CreateIfNotExists(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	want := `CREATE TABLE IF NOT EXISTS "people" (
	"id" text PRIMARY KEY,
	"name" text,
	"age" integer NOT NULL,
	"secret" text NOT NULL
);
`
	for _, got := range d.statements() {
		if got != want {
			t.Errorf("SQL = %q, want %q", got, want)
		}
	}
}

func TestTableSelect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	alice := "Alice"
	rows := [][]interface{}{
		{"u1", &alice, int32(30), "a"},
		{"u2", nil, int32(40), "b"},
	}

	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")
	d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
		return rows, nil
	}

	got, err := table.SelectAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []person{
		{Id: "u1", Name: &alice, Age: 30, secret: "a"},
		{Id: "u2", Age: 40, secret: "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SelectAll() = %+v, want %+v", got, want)
	}

	one, err := table.SelectOne(ctx, Gt("age", 1))
	if !errors.Is(err, ErrCardinality) {
		t.Errorf("SelectOne() error = %v, want ErrCardinality", err)
	}
	if one != nil {
		t.Errorf("SelectOne() = %+v, want nil", one)
	}

	rows = rows[:1]
	one, err = table.SelectOne(ctx, Eq("id", "u1"))
	if err != nil {
		t.Fatal(err)
	}
	if one == nil || !reflect.DeepEqual(*one, want[0]) {
		t.Errorf("SelectOne() = %+v, want %+v", one, want[0])
	}

	rows = nil
	one, err = table.SelectOne(ctx, Eq("id", "missing"))
	if err != nil || one != nil {
		t.Errorf("SelectOne() = %+v, %v, want nil, nil", one, err)
	}
	all, err := table.SelectMany(ctx, Eq("id", "missing"))
	if err != nil || all == nil || len(all) != 0 {
		t.Errorf("SelectMany() = %#v, %v, want empty slice", all, err)
	}
}

func TestTableSelectErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
		return nil, errFakeServer
	}
	if _, err := table.SelectAll(ctx); !errors.Is(err, ErrQueryExecution) || !errors.Is(err, errFakeServer) {
		t.Errorf("SelectAll() error = %v, want ErrQueryExecution", err)
	}

	d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
		return [][]interface{}{{"u1", nil, "not a number", "s"}}, nil
	}
	if _, err := table.SelectAll(ctx); !errors.Is(err, ErrQueryExecution) {
		t.Errorf("SelectAll() error = %v, want ErrQueryExecution", err)
	}
	if d.open != 0 {
		t.Errorf("%d connections not released", d.open)
	}
}

func TestTableCountExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
		if strings.HasPrefix(sql, "SELECT COUNT") {
			return [][]interface{}{{int64(7)}}, nil
		}
		return [][]interface{}{{true}}, nil
	}
	if n, err := table.Count(ctx, nil); err != nil || n != 7 {
		t.Errorf("Count() = %d, %v, want 7", n, err)
	}
	if ok, err := table.Exists(ctx, nil); err != nil || !ok {
		t.Errorf("Exists() = %v, %v, want true", ok, err)
	}

	d.query = func(sql string, args []interface{}) ([][]interface{}, error) {
		return nil, nil
	}
	if n, err := table.Count(ctx, Eq("id", "x")); err != nil || n != 0 {
		t.Errorf("Count() = %d, %v, want 0", n, err)
	}
}

func TestTableUpdateDeleteRowsAffected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")
	d.exec = func(sql string, args []interface{}) (int64, error) {
		return 2, nil
	}

	if n, err := table.Update(ctx, Set("age", 1), nil); err != nil || n != 2 {
		t.Errorf("Update() = %d, %v, want 2", n, err)
	}
	if n, err := table.Delete(ctx, Eq("age", 1)); err != nil || n != 2 {
		t.Errorf("Delete() = %d, %v, want 2", n, err)
	}

	before := len(d.statements())
	if n, err := table.Update(ctx, Changes(), Eq("id", "u1")); err != nil || n != 0 {
		t.Errorf("Update() = %d, %v, want 0", n, err)
	}
	if len(d.statements()) != before {
		t.Error("empty Update ran a statement")
	}
}

func TestTableInsertMany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	if err := table.InsertMany(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if len(d.statements()) != 0 {
		t.Errorf("InsertMany(nil) ran %q", d.statements())
	}

	records := []person{{Id: "a", Age: 1}, {Id: "b", Age: 2}}
	if err := table.InsertMany(ctx, records); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"BEGIN",
		`INSERT INTO "people" (` + personColumns + `) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)`,
		"COMMIT",
	}
	if got := d.statements(); !reflect.DeepEqual(got, want) {
		t.Errorf("statements = %q, want %q", got, want)
	}
	wantArgs := []interface{}{"a", (*string)(nil), int32(1), "", "b", (*string)(nil), int32(2), ""}
	if !reflect.DeepEqual(d.args[1], wantArgs) {
		t.Errorf("Args = %#v, want %#v", d.args[1], wantArgs)
	}
}

func TestTableInsertManyChunks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	perStatement := maxParams / 4
	records := make([]person, perStatement+1)
	if err := table.InsertMany(ctx, records); err != nil {
		t.Fatal(err)
	}
	got := d.statements()
	if len(got) != 4 || got[0] != "BEGIN" || got[3] != "COMMIT" {
		t.Fatalf("statements = %d, want BEGIN, 2 inserts, COMMIT", len(got))
	}
	if n := len(d.args[1]); n != perStatement*4 {
		t.Errorf("first insert has %d params, want %d", n, perStatement*4)
	}
	if n := len(d.args[2]); n != 4 {
		t.Errorf("second insert has %d params, want 4", n)
	}
	if !strings.HasSuffix(got[2], "VALUES ($1, $2, $3, $4)") {
		t.Errorf("second insert = %q", got[2])
	}
}

func TestTableInsertManyRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	inserts := 0
	d.exec = func(sql string, args []interface{}) (int64, error) {
		inserts++
		if inserts == 2 {
			return 0, errFakeServer
		}
		return int64(len(args) / 4), nil
	}
	err := table.InsertMany(ctx, make([]person, maxParams/4+1))
	if !errors.Is(err, ErrQueryExecution) || !errors.Is(err, errFakeServer) {
		t.Errorf("InsertMany() error = %v, want ErrQueryExecution", err)
	}
	got := d.statements()
	if got[len(got)-1] != "ROLLBACK" {
		t.Errorf("last statement = %q, want ROLLBACK", got[len(got)-1])
	}
	if d.open != 0 {
		t.Errorf("%d connections not released", d.open)
	}
}

func TestTableConnInsertManyStartsTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	conn, err := db.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Release()

	if err := table.With(conn.Conn()).InsertMany(ctx, make([]person, 2)); err != nil {
		t.Fatal(err)
	}
	if got := d.statements(); len(got) != 1 {
		t.Errorf("single statement insert = %q, want no transaction", got)
	}

	if err := table.With(conn.Conn()).InsertMany(ctx, make([]person, maxParams/4+1)); err != nil {
		t.Fatal(err)
	}
	got := d.statements()
	if got[1] != "BEGIN" || got[len(got)-1] != "COMMIT" {
		t.Errorf("chunked insert was not wrapped in a transaction: %d statements", len(got))
	}
}

func TestTableInTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, d := newFakeDatabase()
	table := NewTable[person](db, "people")

	err := db.Transaction(ctx, func(ctx context.Context, conn Conn) error {
		people := table.With(conn)
		if err := people.InsertMany(ctx, make([]person, maxParams/4+1)); err != nil {
			return err
		}
		_, err := people.Delete(ctx, Eq("id", ""))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	got := d.statements()
	begins := 0
	for _, s := range got {
		if s == "BEGIN" {
			begins++
		}
	}
	if begins != 1 {
		t.Errorf("BEGIN issued %d times, want 1", begins)
	}
	if got[len(got)-1] != "COMMIT" {
		t.Errorf("last statement = %q, want COMMIT", got[len(got)-1])
	}
}

func TestTableAcquireError(t *testing.T) {
	t.Parallel()
	db, d := newFakeDatabase()
	d.acquireErr = errors.New("connection refused")

	_, err := NewTable[person](db, "people").SelectAll(context.Background())
	if !errors.Is(err, ErrBackendConnection) {
		t.Errorf("SelectAll() error = %v, want ErrBackendConnection", err)
	}

	_, err = NewTable[person](nil, "people").SelectAll(context.Background())
	if !errors.Is(err, ErrNoConnection) {
		t.Errorf("SelectAll() error = %v, want ErrNoConnection", err)
	}
}

func TestTableInsertOneNil(t *testing.T) {
	t.Parallel()
	db, d := newFakeDatabase()

	err := NewTable[person](db, "people").InsertOne(context.Background(), nil)
	if !errors.Is(err, ErrNilRecord) {
		t.Errorf("InsertOne(nil) error = %v, want ErrNilRecord", err)
	}
	if got := d.statements(); len(got) != 0 {
		t.Errorf("statements = %q, want none", got)
	}
}

type unmapped struct {
	hidden string
}

func TestNewTableWithoutColumns(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("NewTable did not panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "has no columns") {
			t.Errorf("panic = %v, want no columns message", r)
		}
	}()
	NewTable[unmapped](nil, "unmapped")
}
