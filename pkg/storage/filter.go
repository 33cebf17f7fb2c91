package storage

import (
	"cmp"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/RoaringBitmap/roaring"
)

type ComparisonType int8

const (
	CompareEqual ComparisonType = iota
	CompareLessThan
	CompareLessThanEquals
	CompareGreaterThan
	CompareGreaterThanEquals
)

// TableFilter is a pushed-down predicate: column <op> constant.
type TableFilter struct {
	Comparison ComparisonType
	Constant   container.Value
}

func comparisonOp[T cmp.Ordered](comparison ComparisonType) (func(T, T) bool, error) {
	switch comparison {
	case CompareEqual:
		return func(a, b T) bool { return a == b }, nil
	case CompareLessThan:
		return func(a, b T) bool { return a < b }, nil
	case CompareLessThanEquals:
		return func(a, b T) bool { return a <= b }, nil
	case CompareGreaterThan:
		return func(a, b T) bool { return a > b }, nil
	case CompareGreaterThanEquals:
		return func(a, b T) bool { return a >= b }, nil
	}
	return nil, ErrNotImplemented
}

// filterSelectionLoop is the monomorphized inner loop over
// (type, operator, null-presence). Qualifying indexes are compacted into
// the head of sel in place.
func filterSelectionLoop[T cmp.Ordered](col []T, predicate T, sel *container.SelectionVector, approved int, nulls *roaring.Bitmap, hasNull bool, op func(T, T) bool) int {
	resultCount := 0
	if hasNull {
		for i := 0; i < approved; i++ {
			idx := sel.GetIndex(i)
			if !nulls.Contains(idx) && op(col[idx], predicate) {
				sel.SetIndex(resultCount, idx)
				resultCount++
			}
		}
	} else {
		for i := 0; i < approved; i++ {
			idx := sel.GetIndex(i)
			if op(col[idx], predicate) {
				sel.SetIndex(resultCount, idx)
				resultCount++
			}
		}
	}
	return resultCount
}

func filterSelectionType[T cmp.Ordered](col []T, constant interface{}, sel *container.SelectionVector, approved int, comparison ComparisonType, nulls *roaring.Bitmap) (int, error) {
	predicate, ok := constant.(T)
	if !ok {
		return 0, ErrInvalidType
	}
	op, err := comparisonOp[T](comparison)
	if err != nil {
		return 0, err
	}
	hasNull := nulls != nil && !nulls.IsEmpty()
	return filterSelectionLoop(col, predicate, sel, approved, nulls, hasNull, op), nil
}

// filterSelection dispatches on the column's physical type.
func filterSelection(result *container.Vector, sel *container.SelectionVector, filter TableFilter, approved int) (int, error) {
	constant := filter.Constant.Val
	nulls := result.Nulls
	switch result.Typ {
	case container.Int8:
		return filterSelectionType[int8](result.Col.([]int8), constant, sel, approved, filter.Comparison, nulls)
	case container.Int16:
		return filterSelectionType[int16](result.Col.([]int16), constant, sel, approved, filter.Comparison, nulls)
	case container.Int32:
		return filterSelectionType[int32](result.Col.([]int32), constant, sel, approved, filter.Comparison, nulls)
	case container.Int64:
		return filterSelectionType[int64](result.Col.([]int64), constant, sel, approved, filter.Comparison, nulls)
	case container.Float:
		return filterSelectionType[float32](result.Col.([]float32), constant, sel, approved, filter.Comparison, nulls)
	case container.Double:
		return filterSelectionType[float64](result.Col.([]float64), constant, sel, approved, filter.Comparison, nulls)
	case container.Varchar:
		return filterSelectionType[string](result.Col.([]string), constant, sel, approved, filter.Comparison, nulls)
	}
	return 0, ErrInvalidType
}
