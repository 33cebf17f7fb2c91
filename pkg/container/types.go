package container

import "fmt"

// PhysicalType enumerates the storage-level types a segment can hold.
type PhysicalType int8

const (
	Int8 PhysicalType = iota
	Int16
	Int32
	Int64
	Float
	Double
	Varchar
)

// VarcharSize is the fixed slot width of a varchar entry in a block: an
// 8 byte offset and an 8 byte length into the segment's string heap.
const VarcharSize = 16

func (t PhysicalType) Size() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32:
		return 4
	case Int64:
		return 8
	case Float:
		return 4
	case Double:
		return 8
	case Varchar:
		return VarcharSize
	}
	panic("unexpected")
}

func (t PhysicalType) String() string {
	switch t {
	case Int8:
		return "INT8"
	case Int16:
		return "INT16"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int8(t))
}

// Value is a typed constant, used for filter predicates and column
// defaults.
type Value struct {
	Typ    PhysicalType
	Val    interface{}
	IsNull bool
}

func NullValue(typ PhysicalType) Value {
	return Value{Typ: typ, IsNull: true}
}

func Int32Value(v int32) Value    { return Value{Typ: Int32, Val: v} }
func Int64Value(v int64) Value    { return Value{Typ: Int64, Val: v} }
func DoubleValue(v float64) Value { return Value{Typ: Double, Val: v} }
func StringValue(v string) Value  { return Value{Typ: Varchar, Val: v} }
