package planner

import (
	"fmt"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
)

type BindingKind int8

const (
	BindingBaseTable BindingKind = iota
	BindingTableFunction
	BindingSubquery
	BindingGeneric
	BindingCTE
)

// Binding is a named reference inside a query scope: a table alias, a
// subquery alias, a table function call or a CTE, exposing columns.
type Binding struct {
	kind    BindingKind
	index   uint64
	alias   string
	names   []string
	types   []container.PhysicalType
	nameMap map[string]int
}

func newBinding(kind BindingKind, index uint64, alias string, names []string, types []container.PhysicalType) *Binding {
	if len(names) != len(types) {
		panic("unexpected")
	}
	b := &Binding{
		kind:    kind,
		index:   index,
		alias:   alias,
		names:   names,
		types:   types,
		nameMap: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := b.nameMap[name]; !ok {
			b.nameMap[name] = i
		}
	}
	return b
}

func (b *Binding) Alias() string                         { return b.alias }
func (b *Binding) Index() uint64                         { return b.index }
func (b *Binding) Kind() BindingKind                     { return b.kind }
func (b *Binding) ColumnNames() []string                 { return b.names }
func (b *Binding) ColumnTypes() []container.PhysicalType { return b.types }

func (b *Binding) HasColumn(column string) bool {
	_, ok := b.nameMap[column]
	return ok
}

// Bind resolves a column of this binding into a bound reference.
func (b *Binding) Bind(column string, depth int) (*BoundColumnRef, error) {
	idx, ok := b.nameMap[column]
	if !ok {
		return nil, fmt.Errorf("%w: table \"%s\" does not have a column named \"%s\"", ErrBinder, b.alias, column)
	}
	return &BoundColumnRef{
		Binding: ColumnBinding{TableIndex: b.index, ColumnIndex: idx},
		Typ:     b.types[idx],
		Depth:   depth,
		Table:   b.alias,
		Column:  column,
	}, nil
}
