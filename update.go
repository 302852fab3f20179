package pgtable

type (
	// Update is an ordered list of column assignments for the SET clause of
	// an UPDATE statement.
	//
	//	pgtable.Set("name", "Alice").Set("updated_at", pgtable.String("NOW()"))
	Update struct {
		assignments []assignment
		index       map[string]int
	}

	assignment struct {
		column string
		value  interface{}
	}

	// String is a raw SQL expression that will not be escaped or
	// parameterized. Use for expressions like "NOW()" or "column + 1".
	String string

	stringWithArg struct {
		str string
		arg interface{}
	}
)

// StringWithArg creates a raw SQL expression with a parameter placeholder.
// The $? in the string will be replaced with the proper positional parameter.
//
//	users.Update(ctx, pgtable.Set("views", pgtable.StringWithArg(`"views" + $?`, 1)), filter)
//	// UPDATE "users" SET "views" = "views" + $1 WHERE ...
func StringWithArg(str string, arg interface{}) stringWithArg {
	return stringWithArg{
		str: str,
		arg: arg,
	}
}

func (s stringWithArg) String() string {
	return s.str
}

// Set starts an Update with one assignment.
func Set(column string, value interface{}) *Update {
	return (&Update{}).Set(column, value)
}

// Changes creates an Update from column name and value pairs:
//
//	pgtable.Changes("name", "Alice", "age", 30)
//
// A key that is not a string is skipped along with its value.
func Changes(pairs ...interface{}) *Update {
	u := &Update{}
	for i := 0; i+1 < len(pairs); i += 2 {
		column, ok := pairs[i].(string)
		if !ok || column == "" {
			continue
		}
		u.Set(column, pairs[i+1])
	}
	return u
}

// Set adds an assignment. Setting the same column again replaces its value
// but keeps its original position.
func (u *Update) Set(column string, value interface{}) *Update {
	if u.index == nil {
		u.index = map[string]int{}
	}
	if idx, ok := u.index[column]; ok { // prevent duplication
		u.assignments[idx].value = value
		return u
	}
	u.index[column] = len(u.assignments)
	u.assignments = append(u.assignments, assignment{column, value})
	return u
}

// Len returns number of assignments.
func (u *Update) Len() int {
	if u == nil {
		return 0
	}
	return len(u.assignments)
}

// Columns returns assigned column names in order.
func (u *Update) Columns() []string {
	if u == nil {
		return nil
	}
	out := make([]string, len(u.assignments))
	for i, a := range u.assignments {
		out[i] = a.column
	}
	return out
}

// RenderSet renders the assignments as `"col1" = $n, "col2" = $n+1, ...`
// where n is offset+1, and returns the parameters. Use the offset to append
// the SET clause after parameters bound elsewhere.
func RenderSet(u *Update, offset int) (string, []interface{}) {
	b := NewBuilder(offset)
	WriteSet(b, u)
	return b.StringValues()
}

// WriteSet writes the assignments of u into b.
func WriteSet(b *Builder, u *Update) {
	if u == nil {
		return
	}
	for i, a := range u.assignments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(a.column)
		b.WriteString(" = ")
		switch v := a.value.(type) {
		case String:
			b.WriteString(string(v))
		case stringWithArg:
			b.writeWithArg(v.str, v.arg)
		default:
			b.Param(v)
		}
	}
}
