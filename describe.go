package pgtable

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// SchemaProvider can be implemented by a record type to declare its
	// schema instead of having it derived from struct fields.
	SchemaProvider interface {
		TableSchema() *Schema
	}

	// field maps one column to a struct field.
	field struct {
		name  string
		index []int
	}

	structInfo struct {
		schema *Schema
		fields []field
	}
)

var (
	structInfos sync.Map // reflect.Type => *structInfo

	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	rawJSONType = reflect.TypeOf(json.RawMessage{})
)

// Describe derives a Schema from the fields of a struct (or pointer to
// struct). Column names come from the "column" tag or from the field name
// converted with DefaultColumnNamer. Tag options after the name mark the
// column:
//
//	type User struct {
//		Id       string     `column:"id,primary"`
//		Email    string     `column:",unique"`
//		Age      *int       `column:"age,index"` // pointer: nullable
//		Note     string     `column:"note,null"`
//		Tags     []string                        // text[]
//		Code     [4]int16                        // smallint[4]
//		Balance  decimal.Decimal                 // numeric
//		Secret   string     `column:"-"`
//		Checksum []byte     `dataType:"bytea"`
//	}
//
// A field named "id" becomes the primary key if no field is marked
// primary. Embedded structs contribute their fields in place. If the type
// implements SchemaProvider, its TableSchema is returned as is. Describe
// panics if v is not a struct. Results are cached by type.
func Describe(v interface{}) *Schema {
	if p, ok := v.(SchemaProvider); ok {
		return p.TableSchema()
	}
	rt := reflect.TypeOf(v)
	if rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt != nil && reflect.PtrTo(rt).Implements(reflect.TypeOf((*SchemaProvider)(nil)).Elem()) {
		return reflect.New(rt).Interface().(SchemaProvider).TableSchema()
	}
	return describeType(rt).schema
}

// SchemaOf returns the schema of record type T, see Describe.
func SchemaOf[T any]() *Schema {
	return Describe(new(T))
}

func describeType(rt reflect.Type) *structInfo {
	if rt == nil || rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("pgtable: cannot describe %v, must be a struct", rt))
	}
	if info, ok := structInfos.Load(rt); ok {
		return info.(*structInfo)
	}
	columns, fields := parseStruct(rt, nil)
	hasPrimary := false
	for _, c := range columns {
		if c.PrimaryKey {
			hasPrimary = true
			break
		}
	}
	if !hasPrimary {
		for i := range columns {
			if columns[i].Name == "id" {
				columns[i].PrimaryKey = true
				columns[i].Nullable = false
				break
			}
		}
	}
	info := &structInfo{schema: NewSchema(columns...), fields: fields}
	actual, _ := structInfos.LoadOrStore(rt, info)
	return actual.(*structInfo)
}

func parseStruct(rt reflect.Type, parent []int) (columns []Column, fields []field) {
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		index := append(append([]int{}, parent...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("column") == "" {
			c, fs := parseStruct(f.Type, index)
			columns = append(columns, c...)
			fields = append(fields, fs...)
			continue
		}

		tag := f.Tag.Get("column")
		if tag == "-" {
			continue
		}
		columnName, options := tag, ""
		if idx := strings.Index(tag, ","); idx != -1 {
			columnName, options = tag[:idx], tag[idx+1:]
		}
		if columnName == "" {
			if f.PkgPath != "" && tag == "" {
				continue // ignore unexported field if no column specified
			}
			columnName = ToColumnName(f.Name)
		}

		column := Column{Name: columnName}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
			column.Nullable = true
		}
		if dataType := f.Tag.Get("dataType"); dataType != "" {
			t, err := ParseColumnType(dataType)
			if err != nil {
				panic(fmt.Sprintf("pgtable: field %s: %v", f.Name, err))
			}
			column.Type = t
		} else {
			column.Type = columnTypeOf(ft)
		}
		for _, option := range strings.Split(options, ",") {
			switch strings.TrimSpace(option) {
			case "primary":
				column.PrimaryKey = true
			case "unique":
				column.Unique = true
			case "index":
				column.Indexed = true
			case "null":
				column.Nullable = true
			}
		}
		if column.PrimaryKey {
			column.Nullable = false
		}
		columns = append(columns, column)
		fields = append(fields, field{name: f.Name, index: index})
	}
	return
}

// columnTypeOf maps a Go type to the column type pgx encodes it as.
func columnTypeOf(rt reflect.Type) ColumnType {
	switch rt {
	case timeType:
		return TypeOf(Timestamptz)
	case decimalType:
		return TypeOf(Numeric)
	case rawJSONType:
		return TypeOf(JSONB)
	}
	switch rt.Kind() {
	case reflect.Bool:
		return TypeOf(Boolean)
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return TypeOf(SmallInt)
	case reflect.Int32, reflect.Uint16:
		return TypeOf(Integer)
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return TypeOf(BigInt)
	case reflect.Float32:
		return TypeOf(Real)
	case reflect.Float64:
		return TypeOf(DoublePrecision)
	case reflect.String:
		return TypeOf(Text)
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return TypeOf(Bytea)
		}
		return ArrayOf(columnTypeOf(rt.Elem()).Kind)
	case reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return TypeOf(Bytea)
		}
		return FixedArrayOf(columnTypeOf(rt.Elem()).Kind, uint32(rt.Len()))
	case reflect.Map, reflect.Struct:
		return TypeOf(JSONB)
	}
	return TypeOf(Text)
}
