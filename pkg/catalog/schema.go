package catalog

import (
	"fmt"
	"sync/atomic"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
)

// ColDef describes one column of a table. Default, when set, is the value
// materialized for rows that predate the column.
type ColDef struct {
	Name    string
	Type    container.PhysicalType
	Idx     int
	Default *container.Value
	Hidden  bool
}

type Schema struct {
	Name    string
	ColDefs []*ColDef
}

func NewEmptySchema(name string) *Schema {
	return &Schema{Name: name}
}

func (s *Schema) AppendCol(name string, typ container.PhysicalType) *Schema {
	def := &ColDef{
		Name: name,
		Type: typ,
		Idx:  len(s.ColDefs),
	}
	s.ColDefs = append(s.ColDefs, def)
	return s
}

func (s *Schema) AppendColWithDefault(name string, typ container.PhysicalType, dv container.Value) *Schema {
	s.AppendCol(name, typ)
	s.ColDefs[len(s.ColDefs)-1].Default = &dv
	return s
}

func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.ColDefs))
	for i, def := range s.ColDefs {
		names[i] = def.Name
	}
	return names
}

func (s *Schema) ColumnTypes() []container.PhysicalType {
	types := make([]container.PhysicalType, len(s.ColDefs))
	for i, def := range s.ColDefs {
		types[i] = def.Type
	}
	return types
}

// Clone returns a copy safe to extend; ALTER prepends a new table version
// carrying the extended schema while older versions keep the original.
func (s *Schema) Clone() *Schema {
	cloned := NewEmptySchema(s.Name)
	cloned.ColDefs = make([]*ColDef, len(s.ColDefs))
	for i, def := range s.ColDefs {
		c := *def
		cloned.ColDefs[i] = &c
	}
	return cloned
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema[\"%s\"][%d cols]", s.Name, len(s.ColDefs))
}

func MockSchema(colCnt int) *Schema {
	schema := NewEmptySchema("mock")
	for i := 0; i < colCnt; i++ {
		schema.AppendCol(fmt.Sprintf("mock_%d", i), container.Int32)
	}
	return schema
}

// Payload variants. Only the chain metadata is shared between kinds;
// payloads are read by kind-specific consumers.

type TableDef struct {
	Schema *Schema
}

type ViewDef struct {
	Query string
}

type SequenceDef struct {
	Start     int64
	Increment int64
	value     int64
}

func (s *SequenceDef) Next() int64 {
	return atomic.AddInt64(&s.value, s.Increment)
}

type FunctionDef struct {
	Fn interface{}
}

type IndexDef struct {
	Table   string
	Columns []string
}

// SchemaDef owns the per-kind child sets of one schema entry.
type SchemaDef struct {
	Tables          *CatalogSet
	Views           *CatalogSet
	Sequences       *CatalogSet
	ScalarFunctions *CatalogSet
	TableFunctions  *CatalogSet
	Indexes         *CatalogSet
}

func newSchemaDef() *SchemaDef {
	return &SchemaDef{
		Tables:          NewCatalogSet(),
		Views:           NewCatalogSet(),
		Sequences:       NewCatalogSet(),
		ScalarFunctions: NewCatalogSet(),
		TableFunctions:  NewCatalogSet(),
		Indexes:         NewCatalogSet(),
	}
}
