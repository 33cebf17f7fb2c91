package planner

import (
	"errors"
	"testing"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/stretchr/testify/assert"
)

func mockContext(t *testing.T) *BindContext {
	bc := NewBindContext()
	assert.Nil(t, bc.AddBaseTable(1, "a",
		[]string{"x", "y"},
		[]container.PhysicalType{container.Int32, container.Int32}))
	assert.Nil(t, bc.AddBaseTable(2, "b",
		[]string{"y", "z"},
		[]container.PhysicalType{container.Int32, container.Varchar}))
	return bc
}

// Two base tables a(x,y) and b(y,z): unqualified y is ambiguous and the
// error names both candidates.
func TestAmbiguousColumn(t *testing.T) {
	bc := mockContext(t)

	ref, err := bc.BindColumn(ColumnRef{Column: "x"}, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), ref.Binding.TableIndex)
	assert.Equal(t, 0, ref.Binding.ColumnIndex)

	_, err = bc.BindColumn(ColumnRef{Column: "y"}, 0)
	assert.True(t, errors.Is(err, ErrBinder))
	assert.Contains(t, err.Error(), "ambiguous")
	assert.Contains(t, err.Error(), "a.y")
	assert.Contains(t, err.Error(), "b.y")

	// qualification resolves it
	ref, err = bc.BindColumn(ColumnRef{Table: "b", Column: "y"}, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), ref.Binding.TableIndex)
	assert.Equal(t, 0, ref.Binding.ColumnIndex)
}

func TestUnknownColumnSuggestions(t *testing.T) {
	bc := mockContext(t)

	_, err := bc.BindColumn(ColumnRef{Column: "zz"}, 0)
	assert.True(t, errors.Is(err, ErrBinder))
	// nearest candidate by edit distance comes first
	assert.Contains(t, err.Error(), "Candidate bindings")
	assert.Contains(t, err.Error(), "\"b.z\"")

	_, err = bc.BindColumn(ColumnRef{Table: "c", Column: "x"}, 0)
	assert.True(t, errors.Is(err, ErrBinder))
	assert.Contains(t, err.Error(), "not found in FROM clause")

	_, err = bc.BindColumn(ColumnRef{Table: "a", Column: "q"}, 0)
	assert.True(t, errors.Is(err, ErrBinder))
	assert.Contains(t, err.Error(), "does not have a column named \"q\"")
}

// Join with USING(y) hides b.y: * expands to a.x, a.y, b.z in insertion
// order.
func TestStarExpansionRespectsHidden(t *testing.T) {
	bc := mockContext(t)
	bc.HideBinding("b", "y")
	assert.True(t, bc.BindingIsHidden("b", "y"))
	assert.False(t, bc.BindingIsHidden("a", "y"))

	refs, err := bc.GenerateAllColumnExpressions("")
	assert.Nil(t, err)
	assert.Equal(t, []ColumnRef{
		{Table: "a", Column: "x"},
		{Table: "a", Column: "y"},
		{Table: "b", Column: "z"},
	}, refs)

	// the hidden column also stops counting as an ambiguity candidate
	ref, err := bc.BindColumn(ColumnRef{Column: "y"}, 0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), ref.Binding.TableIndex)

	// rel.* keeps only that relation
	refs, err = bc.GenerateAllColumnExpressions("b")
	assert.Nil(t, err)
	assert.Equal(t, []ColumnRef{{Table: "b", Column: "z"}}, refs)

	_, err = bc.GenerateAllColumnExpressions("nope")
	assert.True(t, errors.Is(err, ErrBinder))
}

func TestDuplicateAlias(t *testing.T) {
	bc := mockContext(t)
	err := bc.AddSubquery(3, "a", []string{"q"}, []container.PhysicalType{container.Int64})
	assert.True(t, errors.Is(err, ErrBinder))

	assert.Nil(t, bc.AddGenericBinding(4, "g", []string{"c0"}, []container.PhysicalType{container.Double}))
	ref, err := bc.BindColumn(ColumnRef{Column: "c0"}, 1)
	assert.Nil(t, err)
	assert.Equal(t, 1, ref.Depth)
	assert.Equal(t, container.Double, ref.Typ)
}

func TestAddContext(t *testing.T) {
	left := NewBindContext()
	assert.Nil(t, left.AddBaseTable(1, "a",
		[]string{"x", "y"},
		[]container.PhysicalType{container.Int32, container.Int32}))

	right := NewBindContext()
	assert.Nil(t, right.AddBaseTable(2, "b",
		[]string{"y", "z"},
		[]container.PhysicalType{container.Int32, container.Varchar}))
	right.HideBinding("b", "y")

	assert.Nil(t, left.AddContext(right))
	assert.Equal(t, 0, len(right.GetBindingsList()))

	refs, err := left.GenerateAllColumnExpressions("")
	assert.Nil(t, err)
	assert.Equal(t, []ColumnRef{
		{Table: "a", Column: "x"},
		{Table: "a", Column: "y"},
		{Table: "b", Column: "z"},
	}, refs)

	// merging a sibling with a clashing alias fails
	clash := NewBindContext()
	assert.Nil(t, clash.AddBaseTable(3, "a", []string{"w"}, []container.PhysicalType{container.Int8}))
	err = left.AddContext(clash)
	assert.True(t, errors.Is(err, ErrBinder))
}

func TestCTEBindings(t *testing.T) {
	bc := NewBindContext()
	assert.Nil(t, bc.AddCTEBinding(7, "cte", []string{"n"}, []container.PhysicalType{container.Int64}))
	err := bc.AddCTEBinding(8, "cte", []string{"m"}, []container.PhysicalType{container.Int64})
	assert.True(t, errors.Is(err, ErrBinder))

	// CTE bindings live outside the alias map; each lookup bumps the
	// CTE's reference count
	assert.Nil(t, bc.GetCTEBinding("nope"))
	b := bc.GetCTEBinding("cte")
	assert.NotNil(t, b)
	ref, err := b.Bind("n", 0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(7), ref.Binding.TableIndex)

	// the shared map survives a sibling merge, recursive references
	// resolve to the same binding
	sibling := NewBindContext()
	assert.Nil(t, sibling.AddContext(bc))
	_ = bc.GetCTEBinding("cte")
	assert.Equal(t, b, sibling.GetCTEBinding("cte"))
	assert.Equal(t, 3, *sibling.cteReferences["cte"])
}

func TestAliasColumnNames(t *testing.T) {
	names, err := AliasColumnNames("t", []string{"a", "b", "c"}, []string{"x"})
	assert.Nil(t, err)
	assert.Equal(t, []string{"x", "b", "c"}, names)

	names, err = AliasColumnNames("t", []string{"a", "b"}, nil)
	assert.Nil(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	_, err = AliasColumnNames("t", []string{"a"}, []string{"x", "y"})
	assert.True(t, errors.Is(err, ErrBinder))
}
