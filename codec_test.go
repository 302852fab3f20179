package pgtable

import (
	"errors"
	"reflect"
	"testing"
)

type (
	person struct {
		Id     string `column:"id,primary"`
		Name   *string
		Age    int32
		secret string `column:"secret"`
	}

	point struct {
		X, Y int
	}
)

func (p *point) ScanRow(row Row) error {
	return row.Scan(&p.X, &p.Y)
}

func (p *point) RowValues() []interface{} {
	return []interface{}{p.X, p.Y}
}

func TestStructCodec(t *testing.T) {
	t.Parallel()
	codec := CodecFor[person](SchemaOf[person]())
	if _, ok := codec.(structCodec[person]); !ok {
		t.Fatalf("CodecFor() = %T, want structCodec", codec)
	}

	name := "Alice"
	in := person{Id: "u1", Name: &name, Age: 30, secret: "s"}
	values := codec.Values(&in)
	if want := []interface{}{"u1", &name, int32(30), "s"}; !reflect.DeepEqual(values, want) {
		t.Errorf("Values() = %v, want %v", values, want)
	}

	var out person
	row := &fakeRows{rows: [][]interface{}{values}}
	row.Next()
	if err := codec.Scan(row, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("Scan() = %+v, want %+v", out, in)
	}

	row = &fakeRows{rows: [][]interface{}{{"u2", nil, int32(1), "x", "extra"}}}
	row.Next()
	if err := codec.Scan(row, &out); err == nil {
		t.Error("Scan() with wrong column count returned no error")
	}
}

func TestMethodCodec(t *testing.T) {
	t.Parallel()
	schema := NewSchema(
		Column{Name: "x", Type: TypeOf(BigInt)},
		Column{Name: "y", Type: TypeOf(BigInt)},
	)
	codec := CodecFor[point](schema)
	if _, ok := codec.(methodCodec[point]); !ok {
		t.Fatalf("CodecFor() = %T, want methodCodec", codec)
	}
	if got, want := codec.Values(&point{1, 2}), []interface{}{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
	var p point
	row := &fakeRows{rows: [][]interface{}{{3, 4}}}
	row.Next()
	if err := codec.Scan(row, &p); err != nil {
		t.Fatal(err)
	}
	if p != (point{3, 4}) {
		t.Errorf("Scan() = %+v, want {3 4}", p)
	}
}

func TestCodecFollowsSchemaOrder(t *testing.T) {
	t.Parallel()
	codec := CodecFor[declared](SchemaOf[declared]())
	got := codec.Values(&declared{Key: "k", Value: "v"})
	if want := []interface{}{"v", "k"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestCodecMissingField(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("CodecFor() did not panic on a column without field")
		}
	}()
	CodecFor[person](NewSchema(Column{Name: "missing", Type: TypeOf(Text)}))
}

var errScan = errors.New("scan failed")

type failingRow struct{}

func (failingRow) Scan(dest ...interface{}) error {
	return errScan
}

func TestCodecScanError(t *testing.T) {
	t.Parallel()
	var p person
	err := CodecFor[person](SchemaOf[person]()).Scan(failingRow{}, &p)
	if !errors.Is(err, errScan) {
		t.Errorf("Scan() error = %v, want %v", err, errScan)
	}
}
