// Package types defines the runtime value representation and row/result
// shapes shared by every storage and execution package in ruzudb.
package types

import (
	"fmt"
	"math"
)

// DataType enumerates the scalar types a column or value can carry.
type DataType int

const (
	Int64 DataType = iota
	Float32
	Float64
	Bool
	String
	// Date stores a value as days since the Unix epoch.
	Date
	// Timestamp stores a value as microseconds since the Unix epoch.
	Timestamp
)

// Name returns the type's name as used in Cypher-style DDL.
func (t DataType) Name() string {
	switch t {
	case Int64:
		return "INT64"
	case Float32:
		return "FLOAT32"
	case Float64:
		return "FLOAT64"
	case Bool:
		return "BOOL"
	case String:
		return "STRING"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

func (t DataType) String() string { return t.Name() }

// IsFixedWidth reports whether values of this type occupy a constant
// number of bytes (everything but String).
func (t DataType) IsFixedWidth() bool {
	return t != String
}

// ByteSize returns the fixed width in bytes, or 0 for String.
func (t DataType) ByteSize() int {
	switch t {
	case Int64, Float64, Timestamp:
		return 8
	case Float32, Date:
		return 4
	case Bool:
		return 1
	default:
		return 0
	}
}

// IsNumeric reports whether this type participates in arithmetic.
func (t DataType) IsNumeric() bool {
	return t == Int64 || t == Float32 || t == Float64
}

// IsOrderable reports whether this type supports relational comparison.
func (t DataType) IsOrderable() bool {
	switch t {
	case Int64, Float32, Float64, String, Date, Timestamp:
		return true
	default:
		return false
	}
}

// Value is a tagged union holding one scalar of any supported DataType,
// or the Null marker. The zero Value is Null.
type Value struct {
	typ     DataType
	isNull  bool
	i64     int64
	f32     float32
	f64     float64
	b       bool
	s       string
}

// Null is the canonical null value.
var Null = Value{isNull: true}

func NewInt64(v int64) Value     { return Value{typ: Int64, i64: v} }
func NewFloat32(v float32) Value { return Value{typ: Float32, f32: v} }
func NewFloat64(v float64) Value { return Value{typ: Float64, f64: v} }
func NewBool(v bool) Value       { return Value{typ: Bool, b: v} }
func NewString(v string) Value   { return Value{typ: String, s: v} }

// NewDate wraps a day-count-since-epoch value.
func NewDate(days int32) Value { return Value{typ: Date, i64: int64(days)} }

// NewTimestamp wraps a microseconds-since-epoch value.
func NewTimestamp(micros int64) Value { return Value{typ: Timestamp, i64: micros} }

// IsNull reports whether the value is the Null marker.
func (v Value) IsNull() bool { return v.isNull }

// DataType returns the value's type and ok=false for Null.
func (v Value) DataType() (DataType, bool) {
	if v.isNull {
		return 0, false
	}
	return v.typ, true
}

func (v Value) AsInt64() (int64, bool) {
	if v.isNull || v.typ != Int64 {
		return 0, false
	}
	return v.i64, true
}

func (v Value) AsFloat32() (float32, bool) {
	if v.isNull || v.typ != Float32 {
		return 0, false
	}
	return v.f32, true
}

func (v Value) AsFloat64() (float64, bool) {
	if v.isNull || v.typ != Float64 {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsBool() (bool, bool) {
	if v.isNull || v.typ != Bool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsString() (string, bool) {
	if v.isNull || v.typ != String {
		return "", false
	}
	return v.s, true
}

// AsDate returns the day-count-since-epoch for a Date value.
func (v Value) AsDate() (int32, bool) {
	if v.isNull || v.typ != Date {
		return 0, false
	}
	return int32(v.i64), true
}

// AsTimestamp returns the microseconds-since-epoch for a Timestamp value.
func (v Value) AsTimestamp() (int64, bool) {
	if v.isNull || v.typ != Timestamp {
		return 0, false
	}
	return v.i64, true
}

func (v Value) String() string {
	if v.isNull {
		return "NULL"
	}
	switch v.typ {
	case Int64, Date, Timestamp:
		return fmt.Sprintf("%d", v.i64)
	case Float32:
		return fmt.Sprintf("%g", v.f32)
	case Float64:
		return fmt.Sprintf("%g", v.f64)
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case String:
		return v.s
	default:
		return "?"
	}
}

// Equal reports structural equality, including type: Int64(1) != Float64(1).
func (v Value) Equal(other Value) bool {
	if v.isNull || other.isNull {
		return v.isNull == other.isNull
	}
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case Int64, Date, Timestamp:
		return v.i64 == other.i64
	case Float32:
		return v.f32 == other.f32
	case Float64:
		return v.f64 == other.f64
	case Bool:
		return v.b == other.b
	case String:
		return v.s == other.s
	default:
		return false
	}
}

// Ordering mirrors the three-way result of a comparison.
type Ordering int

const (
	Less Ordering = -1
	Equal Ordering = 0
	Greater Ordering = 1
)

// Compare returns the ordering of v relative to other, and ok=false when
// either value is null or the two types don't match exactly. Cross-type
// numeric comparisons (Int64 vs Float64) are NOT promoted here — that
// promotion is the caller's responsibility, applied at the expression
// evaluation boundary (see rowexec; vecexec does not promote and
// rejects mismatched types), matching the narrow
// same-type contract of the original comparator.
func (v Value) Compare(other Value) (Ordering, bool) {
	if v.isNull || other.isNull || v.typ != other.typ {
		return 0, false
	}
	switch v.typ {
	case Int64, Date, Timestamp:
		return compareOrdered(v.i64, other.i64), true
	case Float32:
		if math.IsNaN(float64(v.f32)) || math.IsNaN(float64(other.f32)) {
			return 0, false
		}
		return compareOrdered(v.f32, other.f32), true
	case Float64:
		if math.IsNaN(v.f64) || math.IsNaN(other.f64) {
			return 0, false
		}
		return compareOrdered(v.f64, other.f64), true
	case Bool:
		return compareOrdered(boolToInt(v.b), boolToInt(other.b)), true
	case String:
		return compareOrdered(v.s, other.s), true
	default:
		return 0, false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareOrdered[T int64 | float32 | float64 | int | string](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// PromoteForComparison widens an Int64/Float64 pair to Float64/Float64 so
// cross-type numeric literals (e.g. `age > 3.0` against an Int64 column)
// still compare meaningfully. Call this before Compare when evaluating
// user-supplied expressions; Compare itself stays strict same-type.
func PromoteForComparison(a, b Value) (Value, Value) {
	if a.isNull || b.isNull {
		return a, b
	}
	if a.typ == Int64 && b.typ == Float64 {
		return NewFloat64(float64(a.i64)), b
	}
	if a.typ == Float64 && b.typ == Int64 {
		return a, NewFloat64(float64(b.i64))
	}
	return a, b
}
