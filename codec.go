package pgtable

import (
	"fmt"
	"reflect"
	"unsafe"
)

type (
	// Row is a single result row being decoded. pgx.Row, pgx.Rows and Rows
	// satisfy it.
	Row interface {
		Scan(dest ...interface{}) error
	}

	// RowScanner decodes a row whose values are in schema column order.
	RowScanner interface {
		ScanRow(row Row) error
	}

	// RowValuer returns values to insert, in schema column order.
	RowValuer interface {
		RowValues() []interface{}
	}

	// Codec converts between a record and a row. Values must return exactly
	// one value per schema column, in column order, and Scan must consume
	// them in the same order.
	Codec[T any] interface {
		Scan(row Row, dest *T) error
		Values(src *T) []interface{}
	}

	methodCodec[T any] struct{}

	structCodec[T any] struct {
		fields [][]int
	}
)

// CodecFor returns the codec of record type T for the given schema. If *T
// implements both RowScanner and RowValuer those methods are used.
// Otherwise T must be a struct whose fields, as found by Describe, cover
// every column of the schema; CodecFor panics if one is missing.
func CodecFor[T any](schema *Schema) Codec[T] {
	p := new(T)
	_, scanner := interface{}(p).(RowScanner)
	_, valuer := interface{}(p).(RowValuer)
	if scanner && valuer {
		return methodCodec[T]{}
	}
	info := describeType(reflect.TypeOf(p).Elem())
	byColumn := make(map[string][]int, len(info.fields))
	for i, c := range info.schema.Names() {
		byColumn[c] = info.fields[i].index
	}
	c := structCodec[T]{fields: make([][]int, schema.Len())}
	for i, name := range schema.Names() {
		index, ok := byColumn[name]
		if !ok {
			panic(fmt.Sprintf("pgtable: %T has no field for column %q", *p, name))
		}
		c.fields[i] = index
	}
	return c
}

func (methodCodec[T]) Scan(row Row, dest *T) error {
	return interface{}(dest).(RowScanner).ScanRow(row)
}

func (methodCodec[T]) Values(src *T) []interface{} {
	return interface{}(src).(RowValuer).RowValues()
}

func (c structCodec[T]) Scan(row Row, dest *T) error {
	rv := reflect.ValueOf(dest).Elem()
	pointers := make([]interface{}, len(c.fields))
	for i, index := range c.fields {
		pointers[i] = fieldAddr(rv.FieldByIndex(index))
	}
	return row.Scan(pointers...)
}

func (c structCodec[T]) Values(src *T) []interface{} {
	rv := reflect.ValueOf(src).Elem()
	values := make([]interface{}, len(c.fields))
	for i, index := range c.fields {
		values[i] = reflect.ValueOf(fieldAddr(rv.FieldByIndex(index))).Elem().Interface()
	}
	return values
}

// fieldAddr returns a pointer to an addressable field, exported or not.
func fieldAddr(value reflect.Value) interface{} {
	if value.CanInterface() {
		return value.Addr().Interface()
	}
	return reflect.NewAt(value.Type(), unsafe.Pointer(value.UnsafeAddr())).Interface()
}
