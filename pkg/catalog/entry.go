package catalog

import (
	"fmt"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
)

type EntryKind int8

const (
	KindSchema EntryKind = iota
	KindTable
	KindView
	KindSequence
	KindScalarFunction
	KindTableFunction
	KindIndex
)

var kindNames = map[EntryKind]string{
	KindSchema:         "schema",
	KindTable:          "table",
	KindView:           "view",
	KindSequence:       "sequence",
	KindScalarFunction: "scalar function",
	KindTableFunction:  "table function",
	KindIndex:          "index",
}

func (k EntryKind) String() string { return kindNames[k] }

// CatalogEntry is one version in a named entry's chain. timestamp is
// dual-range: a transaction id while uncommitted, a commit timestamp once
// committed. child links to the immediately older version (owned), parent
// back-links to the newer one. The oldest version of every chain is a dummy
// deleted node stamped 0, so readers that predate the first create observe
// "not there" instead of walking off the chain.
type CatalogEntry struct {
	ID        uint64
	name      string
	kind      EntryKind
	timestamp uint64
	deleted   bool
	child     *CatalogEntry
	parent    *CatalogEntry
	set       *CatalogSet
	payload   interface{}
}

func newDummyEntry(name string, kind EntryKind) *CatalogEntry {
	return &CatalogEntry{
		name:      name,
		kind:      kind,
		timestamp: 0,
		deleted:   true,
	}
}

func NewSchemaEntry(name string) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindSchema,
		payload: newSchemaDef(),
	}
}

func NewTableEntry(name string, schema *Schema) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindTable,
		payload: &TableDef{Schema: schema},
	}
}

func NewViewEntry(name, query string) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindView,
		payload: &ViewDef{Query: query},
	}
}

func NewSequenceEntry(name string, start, increment int64) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindSequence,
		payload: &SequenceDef{Start: start, Increment: increment, value: start},
	}
}

func NewScalarFunctionEntry(name string, fn interface{}) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindScalarFunction,
		payload: &FunctionDef{Fn: fn},
	}
}

func NewTableFunctionEntry(name string, fn interface{}) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindTableFunction,
		payload: &FunctionDef{Fn: fn},
	}
}

func NewIndexEntry(name, table string, columns []string) *CatalogEntry {
	return &CatalogEntry{
		name:    name,
		kind:    KindIndex,
		payload: &IndexDef{Table: table, Columns: columns},
	}
}

func (e *CatalogEntry) GetID() uint64       { return e.ID }
func (e *CatalogEntry) GetName() string     { return e.name }
func (e *CatalogEntry) GetKind() EntryKind  { return e.kind }
func (e *CatalogEntry) IsDeleted() bool     { return e.deleted }
func (e *CatalogEntry) GetSet() *CatalogSet { return e.set }

// GetTimestamp is only meaningful under the owning set's mutex.
func (e *CatalogEntry) GetTimestamp() uint64 { return e.timestamp }

func (e *CatalogEntry) SchemaDef() *SchemaDef {
	if e.kind != KindSchema {
		panic("unexpected")
	}
	return e.payload.(*SchemaDef)
}

func (e *CatalogEntry) TableDef() *TableDef {
	if e.kind != KindTable {
		panic("unexpected")
	}
	return e.payload.(*TableDef)
}

func (e *CatalogEntry) ViewDef() *ViewDef {
	if e.kind != KindView {
		panic("unexpected")
	}
	return e.payload.(*ViewDef)
}

func (e *CatalogEntry) SequenceDef() *SequenceDef {
	if e.kind != KindSequence {
		panic("unexpected")
	}
	return e.payload.(*SequenceDef)
}

func (e *CatalogEntry) IndexDef() *IndexDef {
	if e.kind != KindIndex {
		panic("unexpected")
	}
	return e.payload.(*IndexDef)
}

func (e *CatalogEntry) String() string {
	s := fmt.Sprintf("%s<%d>[\"%s\"][ts=%d]", e.kind, e.ID, e.name, e.timestamp)
	if e.deleted {
		s += "[D]"
	}
	return s
}

// catalogTxnEntry is the undo-buffer record for one catalog splice. It
// points at the displaced version; the transaction's own node is its
// parent.
type catalogTxnEntry struct {
	set *CatalogSet
	old *CatalogEntry
}

func (e *catalogTxnEntry) ApplyCommit(commitTS uint64) error {
	return e.set.CommitEntry(e.old, commitTS)
}

func (e *catalogTxnEntry) ApplyRollback() error {
	return e.set.Undo(e.old)
}

var _ txnif.TxnEntry = (*catalogTxnEntry)(nil)
