package pgtable

import (
	"strconv"
	"strings"
)

// Builder accumulates SQL text and its bound parameters. Param writes the
// placeholder and appends the value in the same call, so the Nth
// placeholder always refers to the Nth argument.
type Builder struct {
	sql  strings.Builder
	args []interface{}
	base int
}

// NewBuilder creates a Builder whose first placeholder is $offset+1. Use it
// when the fragment will be appended after offset parameters that are
// bound elsewhere.
func NewBuilder(offset int) *Builder {
	return &Builder{base: offset}
}

// WriteString appends raw SQL text. Never pass values through here.
func (b *Builder) WriteString(s string) {
	b.sql.WriteString(s)
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) {
	b.sql.WriteString(Quote(name))
}

// Param appends the next placeholder and binds value to it.
func (b *Builder) Param(value interface{}) {
	b.args = append(b.args, value)
	b.sql.WriteString("$" + strconv.Itoa(b.base+len(b.args)))
}

// Append writes another builder's text and arguments, renumbering nothing:
// other must have been created with NewBuilder(b.Next()-1).
func (b *Builder) Append(other *Builder) {
	if other.base != b.base+len(b.args) {
		panic("pgtable: appended builder has wrong parameter offset")
	}
	b.sql.WriteString(other.sql.String())
	b.args = append(b.args, other.args...)
}

// Len returns number of bound parameters.
func (b *Builder) Len() int {
	return len(b.args)
}

// Next returns the number of the next placeholder.
func (b *Builder) Next() int {
	return b.base + len(b.args) + 1
}

// Args returns bound parameters in placeholder order.
func (b *Builder) Args() []interface{} {
	return b.args
}

func (b *Builder) String() string {
	return b.sql.String()
}

// StringValues returns the SQL text and its parameters.
func (b *Builder) StringValues() (string, []interface{}) {
	return b.sql.String(), b.args
}

// writeWithArg writes str with every "$?" replaced by one placeholder bound
// to arg. Nothing is bound if str has no "$?".
func (b *Builder) writeWithArg(str string, arg interface{}) {
	if !strings.Contains(str, "$?") {
		b.sql.WriteString(str)
		return
	}
	b.args = append(b.args, arg)
	b.sql.WriteString(strings.ReplaceAll(str, "$?", "$"+strconv.Itoa(b.base+len(b.args))))
}
