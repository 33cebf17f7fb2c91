package planner

import (
	"fmt"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
)

// ColumnRef is a parsed column reference; Table is empty for unqualified
// references.
type ColumnRef struct {
	Table  string
	Column string
}

func (ref ColumnRef) String() string {
	if ref.Table == "" {
		return ref.Column
	}
	return fmt.Sprintf("%s.%s", ref.Table, ref.Column)
}

// ColumnBinding pins a column to (table binding index, column index).
type ColumnBinding struct {
	TableIndex  uint64
	ColumnIndex int
}

// BoundColumnRef is the binder's resolution of a ColumnRef. Depth above
// zero marks a correlated reference resolved in an outer scope.
type BoundColumnRef struct {
	Binding ColumnBinding
	Typ     container.PhysicalType
	Depth   int
	Table   string
	Column  string
}

func (ref *BoundColumnRef) String() string {
	return fmt.Sprintf("%s.%s[%d.%d]", ref.Table, ref.Column, ref.Binding.TableIndex, ref.Binding.ColumnIndex)
}
