package container

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// Vector is a fixed-capacity typed column slice. Col holds one of
// []int8, []int16, []int32, []int64, []float32, []float64 or []string
// depending on Typ; Nulls marks slots whose value is undefined.
type Vector struct {
	Typ   PhysicalType
	Col   interface{}
	Nulls *roaring.Bitmap
}

func NewVector(typ PhysicalType, capacity int) *Vector {
	vec := &Vector{
		Typ:   typ,
		Nulls: roaring.NewBitmap(),
	}
	switch typ {
	case Int8:
		vec.Col = make([]int8, capacity)
	case Int16:
		vec.Col = make([]int16, capacity)
	case Int32:
		vec.Col = make([]int32, capacity)
	case Int64:
		vec.Col = make([]int64, capacity)
	case Float:
		vec.Col = make([]float32, capacity)
	case Double:
		vec.Col = make([]float64, capacity)
	case Varchar:
		vec.Col = make([]string, capacity)
	default:
		panic("unexpected")
	}
	return vec
}

func (vec *Vector) Length() int {
	switch col := vec.Col.(type) {
	case []int8:
		return len(col)
	case []int16:
		return len(col)
	case []int32:
		return len(col)
	case []int64:
		return len(col)
	case []float32:
		return len(col)
	case []float64:
		return len(col)
	case []string:
		return len(col)
	}
	panic("unexpected")
}

func (vec *Vector) SetNull(i int)     { vec.Nulls.Add(uint32(i)) }
func (vec *Vector) IsNull(i int) bool { return vec.Nulls != nil && vec.Nulls.Contains(uint32(i)) }
func (vec *Vector) HasNulls() bool    { return vec.Nulls != nil && !vec.Nulls.IsEmpty() }

func (vec *Vector) Get(i int) Value {
	if vec.IsNull(i) {
		return NullValue(vec.Typ)
	}
	switch col := vec.Col.(type) {
	case []int8:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []int16:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []int32:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []int64:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []float32:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []float64:
		return Value{Typ: vec.Typ, Val: col[i]}
	case []string:
		return Value{Typ: vec.Typ, Val: col[i]}
	}
	panic("unexpected")
}

func (vec *Vector) Set(i int, v Value) {
	if v.IsNull {
		vec.SetNull(i)
		return
	}
	if vec.Nulls != nil {
		vec.Nulls.Remove(uint32(i))
	}
	switch col := vec.Col.(type) {
	case []int8:
		col[i] = v.Val.(int8)
	case []int16:
		col[i] = v.Val.(int16)
	case []int32:
		col[i] = v.Val.(int32)
	case []int64:
		col[i] = v.Val.(int64)
	case []float32:
		col[i] = v.Val.(float32)
	case []float64:
		col[i] = v.Val.(float64)
	case []string:
		col[i] = v.Val.(string)
	default:
		panic("unexpected")
	}
}

func (vec *Vector) String() string {
	return fmt.Sprintf("Vector<%s>[%d]", vec.Typ, vec.Length())
}

// SelectionVector is a list of qualifying row offsets within a vector.
type SelectionVector struct {
	sel []uint32
}

func NewSelectionVector(capacity int) *SelectionVector {
	return &SelectionVector{sel: make([]uint32, 0, capacity)}
}

// InitSequence fills the selection with 0..count-1.
func (sv *SelectionVector) InitSequence(count int) {
	sv.sel = sv.sel[:0]
	for i := 0; i < count; i++ {
		sv.sel = append(sv.sel, uint32(i))
	}
}

func (sv *SelectionVector) Count() int                 { return len(sv.sel) }
func (sv *SelectionVector) GetIndex(i int) uint32      { return sv.sel[i] }
func (sv *SelectionVector) SetIndex(i int, idx uint32) { sv.sel[i] = idx }
func (sv *SelectionVector) Append(idx uint32)          { sv.sel = append(sv.sel, idx) }
func (sv *SelectionVector) Truncate(count int)         { sv.sel = sv.sel[:count] }
func (sv *SelectionVector) Indexes() []uint32          { return sv.sel }

// Replace swaps in the contents of another selection.
func (sv *SelectionVector) Replace(o *SelectionVector) {
	sv.sel = append(sv.sel[:0], o.sel...)
}
