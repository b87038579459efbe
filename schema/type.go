// Package schema describes table shapes: column names, their wire
// types, and the extra bookkeeping (uniqueness, indexing, defaults,
// computed values) a table enforces on insert. A column's Type
// supplies both the codec.AnyCodec used to serialize it and the
// comparator used to order it inside a B+-tree — ordering is delegated
// to the type's comparator, never to the raw encoded bytes.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pcardune/godb/codec"
)

// Type is one column data type: its wire codec, its validator, and the
// equality/ordering comparators used by table lookups and B+-tree keys.
type Type interface {
	Name() string
	Codec() codec.AnyCodec
	IsValid(v any) bool
	IsEqual(a, b any) bool
	Compare(a, b any) int
}

type stringType struct{}

// String is the UTF-8 string column type.
var String Type = stringType{}

func (stringType) Name() string          { return "string" }
func (stringType) Codec() codec.AnyCodec { return codec.Erase(codec.String) }
func (stringType) IsValid(v any) bool    { _, ok := v.(string); return ok }
func (stringType) IsEqual(a, b any) bool { return a.(string) == b.(string) }
func (stringType) Compare(a, b any) int  { return strings.Compare(a.(string), b.(string)) }

type boolType struct{}

// Bool is the boolean column type.
var Bool Type = boolType{}

func (boolType) Name() string          { return "bool" }
func (boolType) Codec() codec.AnyCodec { return codec.Erase(codec.Bool) }
func (boolType) IsValid(v any) bool    { _, ok := v.(bool); return ok }
func (boolType) IsEqual(a, b any) bool { return a.(bool) == b.(bool) }
func (boolType) Compare(a, b any) int {
	x, y := a.(bool), b.(bool)
	if x == y {
		return 0
	}
	if !x && y {
		return -1
	}
	return 1
}

type u32Type struct{}

// U32 is the fixed-width uint32 column type.
var U32 Type = u32Type{}

func (u32Type) Name() string          { return "u32" }
func (u32Type) Codec() codec.AnyCodec { return codec.Erase(codec.U32) }
func (u32Type) IsValid(v any) bool    { _, ok := v.(uint32); return ok }
func (u32Type) IsEqual(a, b any) bool { return a.(uint32) == b.(uint32) }
func (u32Type) Compare(a, b any) int  { return compareOrdered(a.(uint32), b.(uint32)) }

type i32Type struct{}

// I32 is the fixed-width int32 column type.
var I32 Type = i32Type{}

func (i32Type) Name() string          { return "i32" }
func (i32Type) Codec() codec.AnyCodec { return codec.Erase(codec.I32) }
func (i32Type) IsValid(v any) bool    { _, ok := v.(int32); return ok }
func (i32Type) IsEqual(a, b any) bool { return a.(int32) == b.(int32) }
func (i32Type) Compare(a, b any) int  { return compareOrdered(a.(int32), b.(int32)) }

type u64Type struct{}

// U64 is the fixed-width uint64 column type.
var U64 Type = u64Type{}

func (u64Type) Name() string          { return "u64" }
func (u64Type) Codec() codec.AnyCodec { return codec.Erase(codec.U64) }
func (u64Type) IsValid(v any) bool    { _, ok := v.(uint64); return ok }
func (u64Type) IsEqual(a, b any) bool { return a.(uint64) == b.(uint64) }
func (u64Type) Compare(a, b any) int  { return compareOrdered(a.(uint64), b.(uint64)) }

type i64Type struct{}

// I64 is the fixed-width int64 column type.
var I64 Type = i64Type{}

func (i64Type) Name() string          { return "i64" }
func (i64Type) Codec() codec.AnyCodec { return codec.Erase(codec.I64) }
func (i64Type) IsValid(v any) bool    { _, ok := v.(int64); return ok }
func (i64Type) IsEqual(a, b any) bool { return a.(int64) == b.(int64) }
func (i64Type) Compare(a, b any) int  { return compareOrdered(a.(int64), b.(int64)) }

type f64Type struct{}

// F64 is the fixed-width float64 column type.
var F64 Type = f64Type{}

func (f64Type) Name() string          { return "f64" }
func (f64Type) Codec() codec.AnyCodec { return codec.Erase(codec.F64) }
func (f64Type) IsValid(v any) bool    { _, ok := v.(float64); return ok }
func (f64Type) IsEqual(a, b any) bool { return a.(float64) == b.(float64) }
func (f64Type) Compare(a, b any) int  { return compareOrdered(a.(float64), b.(float64)) }

type bytesType struct{}

// Bytes is the raw-bytes column type (base64 in JSON form).
var Bytes Type = bytesType{}

func (bytesType) Name() string          { return "bytes" }
func (bytesType) Codec() codec.AnyCodec { return codec.Erase(codec.Bytes) }
func (bytesType) IsValid(v any) bool    { _, ok := v.([]byte); return ok }
func (bytesType) IsEqual(a, b any) bool { return bytes.Equal(a.([]byte), b.([]byte)) }
func (bytesType) Compare(a, b any) int  { return bytes.Compare(a.([]byte), b.([]byte)) }

type dateType struct{}

// Date is the wrapped (year,month,day) column type.
var Date Type = dateType{}

func (dateType) Name() string          { return "date" }
func (dateType) Codec() codec.AnyCodec { return codec.Erase(codec.Date) }
func (dateType) IsValid(v any) bool    { _, ok := v.(time.Time); return ok }
func (dateType) IsEqual(a, b any) bool { return a.(time.Time).Equal(b.(time.Time)) }
func (dateType) Compare(a, b any) int {
	x, y := a.(time.Time), b.(time.Time)
	switch {
	case x.Before(y):
		return -1
	case x.After(y):
		return 1
	default:
		return 0
	}
}

type timestampType struct{}

// Timestamp is the wrapped seconds-since-epoch column type.
var Timestamp Type = timestampType{}

func (timestampType) Name() string          { return "timestamp" }
func (timestampType) Codec() codec.AnyCodec { return codec.Erase(codec.Timestamp) }
func (timestampType) IsValid(v any) bool    { _, ok := v.(time.Time); return ok }
func (timestampType) IsEqual(a, b any) bool { return a.(time.Time).Equal(b.(time.Time)) }
func (timestampType) Compare(a, b any) int {
	x, y := a.(time.Time), b.(time.Time)
	switch {
	case x.Before(y):
		return -1
	case x.After(y):
		return 1
	default:
		return 0
	}
}

type jsonType struct{}

// JSON is the wrapped-as-UTF-8-string JSON column type.
var JSON Type = jsonType{}

func (jsonType) Name() string          { return "json" }
func (jsonType) Codec() codec.AnyCodec { return codec.Erase(codec.JSONValue) }
func (jsonType) IsValid(any) bool      { return true }
func (jsonType) IsEqual(a, b any) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return bytes.Equal(ab, bb)
}
func (jsonType) Compare(a, b any) int {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return bytes.Compare(ab, bb)
}

type uuidType struct{ stringType }

// UUID is a string column type; its wire shape and ordering are
// identical to a plain string. This package attaches no default-value
// factory to it: a column gets generated values only through its own
// Column.DefaultValueFactory.
var UUID Type = uuidType{}

func (uuidType) Name() string { return "uuid" }

type ulidType struct{ stringType }

// ULID is a string column type used for catalog primary keys (e.g. an
// `id ulid unique` column) — see dbfile for the factory that actually
// mints these.
var ULID Type = ulidType{}

func (ulidType) Name() string { return "ulid" }

func compareOrdered[T interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// positiveType wraps a numeric Type with an additional > 0 constraint.
type positiveType struct{ Type }

// Positive requires the column's value be strictly greater than zero,
// on top of whatever validity the inner type already demands.
func Positive(inner Type) Type { return positiveType{inner} }

func (p positiveType) Name() string { return p.Type.Name() + "+" }

func (p positiveType) IsValid(v any) bool {
	if !p.Type.IsValid(v) {
		return false
	}
	switch x := v.(type) {
	case uint8:
		return x > 0
	case uint16:
		return x > 0
	case uint32:
		return x > 0
	case uint64:
		return x > 0
	case int16:
		return x > 0
	case int32:
		return x > 0
	case int64:
		return x > 0
	case float64:
		return x > 0
	default:
		return true
	}
}

// ColumnNotFoundError reports a reference to a column absent from a
// schema.
type ColumnNotFoundError struct{ Name string }

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("schema: column %q not found", e.Name)
}
