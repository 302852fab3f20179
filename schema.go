package pgtable

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// Kind is a scalar PostgreSQL data type.
	Kind int

	// ColumnType is a scalar type, optionally as an array. A non-zero Len
	// makes a fixed-size array and renders as "type[Len]".
	ColumnType struct {
		Kind  Kind
		Array bool
		Len   uint32
	}

	// Column describes one column of a table.
	Column struct {
		Name       string
		Type       ColumnType
		PrimaryKey bool
		Unique     bool
		Indexed    bool
		Nullable   bool
	}

	// Schema is the ordered list of columns of a table. The order is used
	// for SELECT and INSERT column lists and for positional row decoding.
	// A Schema must not be modified after NewSchema returns it.
	Schema struct {
		columns []Column
		index   map[string]int
	}
)

const (
	Boolean Kind = iota + 1
	SmallInt
	Integer
	BigInt
	Real
	DoublePrecision
	Numeric
	Text
	Bytea
	Timestamp
	Timestamptz
	Date
	JSON
	JSONB
	UUID
)

var kindNames = map[Kind]string{
	Boolean:         "boolean",
	SmallInt:        "smallint",
	Integer:         "integer",
	BigInt:          "bigint",
	Real:            "real",
	DoublePrecision: "double precision",
	Numeric:         "numeric",
	Text:            "text",
	Bytea:           "bytea",
	Timestamp:       "timestamp",
	Timestamptz:     "timestamptz",
	Date:            "date",
	JSON:            "json",
	JSONB:           "jsonb",
	UUID:            "uuid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeOf returns the scalar ColumnType of kind.
func TypeOf(kind Kind) ColumnType {
	return ColumnType{Kind: kind}
}

// ArrayOf returns a variable-length array ColumnType of kind.
func ArrayOf(kind Kind) ColumnType {
	return ColumnType{Kind: kind, Array: true}
}

// FixedArrayOf returns a fixed-size array ColumnType of kind.
func FixedArrayOf(kind Kind, length uint32) ColumnType {
	return ColumnType{Kind: kind, Array: true, Len: length}
}

func (t ColumnType) String() string {
	out := t.Kind.String()
	if t.Len > 0 {
		out += "[" + strconv.FormatUint(uint64(t.Len), 10) + "]"
	} else if t.Array {
		out += "[]"
	}
	return out
}

// ParseColumnType parses the output of ColumnType.String, for example
// "text", "bigint[]" or "bytea[10]". Common aliases like "int", "int4",
// "varchar" and "timestamp with time zone" are accepted.
func ParseColumnType(in string) (t ColumnType, err error) {
	name := strings.ToLower(strings.TrimSpace(in))
	if idx := strings.Index(name, "["); idx != -1 {
		if !strings.HasSuffix(name, "]") {
			err = fmt.Errorf("invalid column type %q", in)
			return
		}
		size := name[idx+1 : len(name)-1]
		name = strings.TrimSpace(name[:idx])
		t.Array = true
		if size != "" {
			var n uint64
			n, err = strconv.ParseUint(size, 10, 32)
			if err != nil || n == 0 {
				err = fmt.Errorf("invalid array length in column type %q", in)
				return
			}
			t.Len = uint32(n)
		}
	}
	switch name {
	case "bool":
		name = "boolean"
	case "int2":
		name = "smallint"
	case "int", "int4":
		name = "integer"
	case "int8":
		name = "bigint"
	case "float4":
		name = "real"
	case "float8":
		name = "double precision"
	case "decimal":
		name = "numeric"
	case "varchar", "character varying":
		name = "text"
	case "timestamp without time zone":
		name = "timestamp"
	case "timestamp with time zone":
		name = "timestamptz"
	}
	for kind, kindName := range kindNames {
		if kindName == name {
			t.Kind = kind
			return
		}
	}
	err = fmt.Errorf("unknown column type %q", in)
	return
}

// NewSchema creates a Schema from columns in declaration order. It panics if
// a column name is empty or repeated, or if more than one column is marked
// as primary key: those are mistakes in the record definition, not runtime
// conditions.
func NewSchema(columns ...Column) *Schema {
	s := &Schema{
		columns: append([]Column{}, columns...),
		index:   make(map[string]int, len(columns)),
	}
	primary := 0
	for i, c := range s.columns {
		if c.Name == "" {
			panic(fmt.Sprintf("pgtable: column %d has no name", i))
		}
		if _, ok := s.index[c.Name]; ok {
			panic("pgtable: duplicate column " + c.Name)
		}
		if c.PrimaryKey {
			primary++
		}
		s.index[c.Name] = i
	}
	if primary > 1 {
		panic("pgtable: composite primary keys are not supported")
	}
	return s
}

// Len returns number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns returns a copy of the columns in declaration order.
func (s *Schema) Columns() []Column {
	return append([]Column{}, s.columns...)
}

// Names returns column names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Column gets column by name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// PrimaryKey returns the primary key column, if any.
func (s *Schema) PrimaryKey() (Column, bool) {
	for _, c := range s.columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return Column{}, false
}

// SelectColumns returns the quoted, comma-separated column list, for
// example: "id", "name", "age".
func (s *Schema) SelectColumns() string {
	return quoteAll(s.Names())
}

// InsertColumns returns the column list of an INSERT statement. It is the
// same list as SelectColumns.
func (s *Schema) InsertColumns() string {
	return quoteAll(s.Names())
}

// Generate CREATE TABLE IF NOT EXISTS statement followed by one CREATE INDEX
// statement for each unique or indexed column. Primary key column is marked
// inline, columns not nullable get NOT NULL.
//
//	NewSchema(
//		Column{Name: "id", Type: TypeOf(Text), PrimaryKey: true},
//		Column{Name: "email", Type: TypeOf(Text), Unique: true},
//		Column{Name: "age", Type: TypeOf(Integer), Indexed: true, Nullable: true},
//	).CreateSQL("users")
//	// CREATE TABLE IF NOT EXISTS "users" (
//	// 	"id" text PRIMARY KEY,
//	// 	"email" text NOT NULL,
//	// 	"age" integer
//	// );
//	// CREATE UNIQUE INDEX IF NOT EXISTS "users_email_key" ON "users" ("email");
//	// CREATE INDEX IF NOT EXISTS "users_age_idx" ON "users" ("age");
func (s *Schema) CreateSQL(table string) string {
	defs := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		def := "\t" + Quote(c.Name) + " " + c.Type.String()
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		} else if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + Quote(table) + " (\n")
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n);\n")
	for _, c := range s.columns {
		if c.PrimaryKey {
			continue
		}
		if c.Unique {
			b.WriteString("CREATE UNIQUE INDEX IF NOT EXISTS " + Quote(table+"_"+c.Name+"_key") +
				" ON " + Quote(table) + " (" + Quote(c.Name) + ");\n")
		} else if c.Indexed {
			b.WriteString("CREATE INDEX IF NOT EXISTS " + Quote(table+"_"+c.Name+"_idx") +
				" ON " + Quote(table) + " (" + Quote(c.Name) + ");\n")
		}
	}
	return b.String()
}

// Generate DROP TABLE IF EXISTS statement.
func (s *Schema) DropSQL(table string) string {
	return "DROP TABLE IF EXISTS " + Quote(table) + ";\n"
}
