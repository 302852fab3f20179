package pgtable

import (
	"fmt"
	"reflect"
	"strings"
)

type (
	// Expr is a node of a WHERE predicate tree. Build one with Eq, Gt, In,
	// And, Or and the other constructors of this package.
	Expr interface {
		// writeTo renders the node; it reports false if the node renders
		// nothing (an empty And or Or).
		writeTo(b *Builder) bool
	}

	comparison struct {
		column   string
		operator string
		value    interface{}
	}

	nullCheck struct {
		column string
		not    bool
	}

	inList struct {
		column string
		values []interface{}
		not    bool
	}

	logical struct {
		operator string
		exprs    []Expr
	}

	negation struct {
		expr Expr
	}

	rawExpr struct {
		str  string
		args []interface{}
	}
)

// Eq matches rows where column equals value. A nil value (nil pointer,
// slice or map included) renders "IS NULL".
func Eq(column string, value interface{}) Expr {
	if isNull(value) {
		return nullCheck{column: column}
	}
	return comparison{column, "=", value}
}

// Ne matches rows where column is not equal to value. A nil value (nil
// pointer, slice or map included) renders "IS NOT NULL".
func Ne(column string, value interface{}) Expr {
	if isNull(value) {
		return nullCheck{column: column, not: true}
	}
	return comparison{column, "!=", value}
}

// Gt matches column > value. Ordering comparisons with NULL never match,
// so Gt, Gte, Lt and Lte panic if value is nil.
func Gt(column string, value interface{}) Expr {
	return ordered(column, ">", value)
}

// Gte matches column >= value.
func Gte(column string, value interface{}) Expr {
	return ordered(column, ">=", value)
}

// Lt matches column < value.
func Lt(column string, value interface{}) Expr {
	return ordered(column, "<", value)
}

// Lte matches column <= value.
func Lte(column string, value interface{}) Expr {
	return ordered(column, "<=", value)
}

func ordered(column, operator string, value interface{}) Expr {
	if isNull(value) {
		panic("pgtable: cannot compare " + Quote(column) + " " + operator + " NULL, use IsNull or IsNotNull")
	}
	return comparison{column, operator, value}
}

// Like matches column LIKE pattern.
func Like(column string, pattern string) Expr {
	return comparison{column, "LIKE", pattern}
}

// ILike matches column ILIKE pattern.
func ILike(column string, pattern string) Expr {
	return comparison{column, "ILIKE", pattern}
}

// IsNull matches column IS NULL.
func IsNull(column string) Expr {
	return nullCheck{column: column}
}

// IsNotNull matches column IS NOT NULL.
func IsNotNull(column string) Expr {
	return nullCheck{column: column, not: true}
}

// In matches rows whose column equals one of values. With no values it
// renders FALSE.
func In(column string, values ...interface{}) Expr {
	return inList{column: column, values: values}
}

// NotIn matches rows whose column equals none of values. With no values it
// renders TRUE.
func NotIn(column string, values ...interface{}) Expr {
	return inList{column: column, values: values, not: true}
}

// And matches rows matching all exprs. Nil and empty children are skipped;
// an And without children renders nothing.
func And(exprs ...Expr) Expr {
	return logical{"AND", exprs}
}

// Or matches rows matching any of exprs. Nil and empty children are
// skipped; an Or without children renders nothing.
func Or(exprs ...Expr) Expr {
	return logical{"OR", exprs}
}

// Not negates expr.
func Not(expr Expr) Expr {
	return negation{expr}
}

// Raw is an SQL predicate written by hand. Each "$?" in str is replaced
// with the placeholder of the next argument, in order. Raw panics if the
// number of "$?" differs from the number of arguments.
//
//	pgtable.Raw(`lower("email") = $?`, email)
func Raw(str string, args ...interface{}) Expr {
	if n := strings.Count(str, "$?"); n != len(args) {
		panic(fmt.Sprintf("pgtable: raw expression has %d placeholders but %d arguments", n, len(args)))
	}
	return rawExpr{str, args}
}

// RenderWhere renders expr and returns the predicate (without the WHERE
// keyword) and its parameters. A nil or empty expr renders "" and no
// parameters.
func RenderWhere(expr Expr) (string, []interface{}) {
	b := NewBuilder(0)
	WriteExpr(b, expr)
	return b.StringValues()
}

// WriteExpr renders expr into b and reports whether anything was written.
func WriteExpr(b *Builder, expr Expr) bool {
	if expr == nil {
		return false
	}
	return expr.writeTo(b)
}

// WriteWhere writes " WHERE <expr>" into b, or nothing if expr is empty.
func WriteWhere(b *Builder, expr Expr) {
	if isEmpty(expr) {
		return
	}
	b.WriteString(" WHERE ")
	WriteExpr(b, expr)
}

func (c comparison) writeTo(b *Builder) bool {
	b.Ident(c.column)
	b.WriteString(" " + c.operator + " ")
	b.Param(c.value)
	return true
}

func (n nullCheck) writeTo(b *Builder) bool {
	b.Ident(n.column)
	if n.not {
		b.WriteString(" IS NOT NULL")
	} else {
		b.WriteString(" IS NULL")
	}
	return true
}

func (in inList) writeTo(b *Builder) bool {
	if len(in.values) == 0 {
		if in.not {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
		return true
	}
	b.Ident(in.column)
	if in.not {
		b.WriteString(" NOT IN (")
	} else {
		b.WriteString(" IN (")
	}
	for i, v := range in.values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Param(v)
	}
	b.WriteString(")")
	return true
}

func (l logical) writeTo(b *Builder) bool {
	exprs := make([]Expr, 0, len(l.exprs))
	for _, e := range l.exprs {
		if !isEmpty(e) {
			exprs = append(exprs, e)
		}
	}
	moreThanOne := len(exprs) > 1
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(" " + l.operator + " ")
		}
		if moreThanOne {
			b.WriteString("(")
			e.writeTo(b)
			b.WriteString(")")
		} else {
			e.writeTo(b)
		}
	}
	return len(exprs) > 0
}

func (n negation) writeTo(b *Builder) bool {
	if isEmpty(n.expr) {
		return false
	}
	b.WriteString("NOT (")
	n.expr.writeTo(b)
	b.WriteString(")")
	return true
}

func (r rawExpr) writeTo(b *Builder) bool {
	if r.str == "" {
		return false
	}
	str := r.str
	for _, arg := range r.args {
		idx := strings.Index(str, "$?")
		if idx == -1 {
			break
		}
		b.WriteString(str[:idx])
		b.Param(arg)
		str = str[idx+2:]
	}
	b.WriteString(str)
	return true
}

// isEmpty reports whether expr would render nothing.
func isEmpty(expr Expr) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case logical:
		for _, child := range e.exprs {
			if !isEmpty(child) {
				return false
			}
		}
		return true
	case negation:
		return isEmpty(e.expr)
	case rawExpr:
		return e.str == ""
	}
	return false
}

func isNull(value interface{}) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
