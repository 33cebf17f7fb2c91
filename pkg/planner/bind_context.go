package planner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/agnivade/levenshtein"
)

var ErrBinder = errors.New("duckdb: binder error")

// QualifiedColumn names one column of one binding.
type QualifiedColumn struct {
	Binding string
	Column  string
}

// BindContext tracks the tables and columns encountered while binding one
// query scope. Aliases own their bindings; CTE bindings sit in a separate
// shared map because the same CTE may be referenced from parallel sibling
// scopes during recursive expansion.
type BindContext struct {
	bindings      map[string]*Binding
	bindingsList  []*Binding
	hiddenColumns map[QualifiedColumn]struct{}

	cteBindings   map[string]*Binding
	cteReferences map[string]*int
}

func NewBindContext() *BindContext {
	return &BindContext{
		bindings:      make(map[string]*Binding),
		hiddenColumns: make(map[QualifiedColumn]struct{}),
		cteBindings:   make(map[string]*Binding),
		cteReferences: make(map[string]*int),
	}
}

func (bc *BindContext) addBinding(b *Binding) error {
	if _, ok := bc.bindings[b.alias]; ok {
		return fmt.Errorf("%w: duplicate alias \"%s\" in query", ErrBinder, b.alias)
	}
	bc.bindings[b.alias] = b
	bc.bindingsList = append(bc.bindingsList, b)
	return nil
}

func (bc *BindContext) AddBaseTable(index uint64, alias string, names []string, types []container.PhysicalType) error {
	return bc.addBinding(newBinding(BindingBaseTable, index, alias, names, types))
}

func (bc *BindContext) AddTableFunction(index uint64, alias string, names []string, types []container.PhysicalType) error {
	return bc.addBinding(newBinding(BindingTableFunction, index, alias, names, types))
}

func (bc *BindContext) AddSubquery(index uint64, alias string, names []string, types []container.PhysicalType) error {
	return bc.addBinding(newBinding(BindingSubquery, index, alias, names, types))
}

func (bc *BindContext) AddGenericBinding(index uint64, alias string, names []string, types []container.PhysicalType) error {
	return bc.addBinding(newBinding(BindingGeneric, index, alias, names, types))
}

// AddCTEBinding registers a CTE. The binding lives in the shared map so
// recursive references across sibling scopes resolve to the same columns.
func (bc *BindContext) AddCTEBinding(index uint64, alias string, names []string, types []container.PhysicalType) error {
	if _, ok := bc.cteBindings[alias]; ok {
		return fmt.Errorf("%w: duplicate CTE \"%s\" in query", ErrBinder, alias)
	}
	bc.cteBindings[alias] = newBinding(BindingCTE, index, alias, names, types)
	bc.cteReferences[alias] = new(int)
	return nil
}

func (bc *BindContext) GetCTEBinding(name string) *Binding {
	b, ok := bc.cteBindings[name]
	if !ok {
		return nil
	}
	if ref := bc.cteReferences[name]; ref != nil {
		*ref++
	}
	return b
}

func (bc *BindContext) GetBindingsList() []*Binding { return bc.bindingsList }

// GetBinding looks an alias up, suggesting similar aliases on a miss.
func (bc *BindContext) GetBinding(name string) (*Binding, error) {
	if b, ok := bc.bindings[name]; ok {
		return b, nil
	}
	candidates := make([]string, 0, len(bc.bindingsList))
	for _, b := range bc.bindingsList {
		candidates = append(candidates, b.alias)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return levenshtein.ComputeDistance(name, candidates[i]) < levenshtein.ComputeDistance(name, candidates[j])
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	return nil, fmt.Errorf("%w: referenced table \"%s\" not found in FROM clause! Candidate tables: %s",
		ErrBinder, name, strings.Join(candidates, ", "))
}

// GetMatchingBinding finds the unique binding owning the column. Multiple
// owners is an ambiguity error listing every candidate; no owner is an
// error carrying the most similar qualified names.
func (bc *BindContext) GetMatchingBinding(column string) (*Binding, error) {
	var matches []*Binding
	for _, b := range bc.bindingsList {
		if b.HasColumn(column) && !bc.BindingIsHidden(b.alias, column) {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		similar := bc.GetSimilarBindings(column)
		if len(similar) > 0 {
			return nil, fmt.Errorf("%w: referenced column \"%s\" not found in FROM clause! Candidate bindings: %s",
				ErrBinder, column, strings.Join(similar, ", "))
		}
		return nil, fmt.Errorf("%w: referenced column \"%s\" not found in FROM clause!", ErrBinder, column)
	default:
		names := make([]string, len(matches))
		for i, b := range matches {
			names[i] = fmt.Sprintf("\"%s.%s\"", b.alias, column)
		}
		return nil, fmt.Errorf("%w: ambiguous reference to column name \"%s\" (use: %s)",
			ErrBinder, column, strings.Join(names, " or "))
	}
}

// GetSimilarBindings ranks every qualified column by Levenshtein distance
// to the requested name and returns the top 3.
func (bc *BindContext) GetSimilarBindings(column string) []string {
	type scored struct {
		name string
		dist int
	}
	var all []scored
	for _, b := range bc.bindingsList {
		for _, name := range b.names {
			all = append(all, scored{
				name: fmt.Sprintf("\"%s.%s\"", b.alias, name),
				dist: levenshtein.ComputeDistance(column, name),
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > 3 {
		all = all[:3]
	}
	result := make([]string, len(all))
	for i, s := range all {
		result[i] = s.name
	}
	return result
}

// BindColumn resolves a column reference. Qualified references go through
// the alias; unqualified ones must match exactly one binding. depth above
// zero marks correlated resolution driven by an outer binder.
func (bc *BindContext) BindColumn(ref ColumnRef, depth int) (*BoundColumnRef, error) {
	if ref.Table != "" {
		b, err := bc.GetBinding(ref.Table)
		if err != nil {
			return nil, err
		}
		return b.Bind(ref.Column, depth)
	}
	b, err := bc.GetMatchingBinding(ref.Column)
	if err != nil {
		return nil, err
	}
	return b.Bind(ref.Column, depth)
}

// HideBinding suppresses a qualified column from star expansion, as USING
// and NATURAL joins require.
func (bc *BindContext) HideBinding(bindingName, columnName string) {
	bc.hiddenColumns[QualifiedColumn{Binding: bindingName, Column: columnName}] = struct{}{}
}

func (bc *BindContext) BindingIsHidden(bindingName, columnName string) bool {
	_, ok := bc.hiddenColumns[QualifiedColumn{Binding: bindingName, Column: columnName}]
	return ok
}

// GenerateAllColumnExpressions expands * (or relation.*) into the
// non-hidden columns of the matching bindings, in insertion order.
func (bc *BindContext) GenerateAllColumnExpressions(relation string) ([]ColumnRef, error) {
	var out []ColumnRef
	if relation != "" {
		b, err := bc.GetBinding(relation)
		if err != nil {
			return nil, err
		}
		bc.generateAllColumns(b, &out)
		return out, nil
	}
	if len(bc.bindingsList) == 0 {
		return nil, fmt.Errorf("%w: SELECT * expression without FROM clause", ErrBinder)
	}
	for _, b := range bc.bindingsList {
		bc.generateAllColumns(b, &out)
	}
	return out, nil
}

func (bc *BindContext) generateAllColumns(b *Binding, out *[]ColumnRef) {
	for _, name := range b.names {
		if bc.BindingIsHidden(b.alias, name) {
			continue
		}
		*out = append(*out, ColumnRef{Table: b.alias, Column: name})
	}
}

// AddContext merges the bindings of a sibling scope (the right side of a
// join). The sibling gives up ownership.
func (bc *BindContext) AddContext(other *BindContext) error {
	for _, b := range other.bindingsList {
		if err := bc.addBinding(b); err != nil {
			return err
		}
	}
	for qc := range other.hiddenColumns {
		bc.hiddenColumns[qc] = struct{}{}
	}
	for name, b := range other.cteBindings {
		if _, ok := bc.cteBindings[name]; !ok {
			bc.cteBindings[name] = b
			bc.cteReferences[name] = other.cteReferences[name]
		}
	}
	other.bindings = make(map[string]*Binding)
	other.bindingsList = nil
	return nil
}

// AliasColumnNames renames table columns with the given aliases, keeping
// the original names where not enough aliases are specified.
func AliasColumnNames(table string, names []string, aliases []string) ([]string, error) {
	if len(aliases) > len(names) {
		return nil, fmt.Errorf("%w: table \"%s\" has %d columns available but %d columns specified",
			ErrBinder, table, len(names), len(aliases))
	}
	result := make([]string, len(names))
	copy(result, aliases)
	copy(result[len(aliases):], names[len(aliases):])
	return result, nil
}
