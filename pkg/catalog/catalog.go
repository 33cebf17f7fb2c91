package catalog

import (
	"errors"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/jiangxinmeng1/logstore/pkg/store"
	"github.com/matrixorigin/matrixone/pkg/vm/engine/aoe/storage/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicate = errors.New("duckdb: duplicate")
	ErrNotFound  = errors.New("duckdb: not found")
)

// Catalog hosts the top-level schemas set. Every schema entry owns its own
// per-kind child sets. Committed mutations are batched per transaction
// into the commit log; replay lives outside the core.
type Catalog struct {
	schemas *CatalogSet
	log     *commitLog
	ids     *common.IdAlloctor
}

// NewCatalog builds a catalog over an open logstore. A nil store disables
// commit logging. own hands the store's lifetime to the catalog.
func NewCatalog(impl store.Store, own bool) *Catalog {
	c := &Catalog{
		schemas: NewCatalogSet(),
		ids:     common.NewIdAlloctor(1),
	}
	if impl != nil {
		c.log = newCommitLog(impl, own)
	}
	c.schemas.commitHook = c.onCommitEntry
	return c
}

// MockCatalog builds a catalog over a logstore rooted at dir.
func MockCatalog(dir, name string, cfg *store.StoreCfg) *Catalog {
	impl, err := store.NewBaseStore(dir, name, cfg)
	if err != nil {
		panic(err)
	}
	return NewCatalog(impl, true)
}

func (c *Catalog) Close() error {
	if c.log == nil {
		return nil
	}
	return c.log.Close()
}

func (c *Catalog) NextID() uint64 { return c.ids.Alloc() }

// onCommitEntry runs under the owning set's mutex for every committed
// catalog version.
func (c *Catalog) onCommitEntry(node *CatalogEntry, commitTS uint64) {
	if c.log == nil {
		return
	}
	if err := c.log.Append(node, commitTS); err != nil {
		logrus.Warnf("append commit log for %s: %v", node.String(), err)
	}
}

func (c *Catalog) CreateSchemaEntry(txn txnif.AsyncTxn, name string) (*CatalogEntry, error) {
	node := NewSchemaEntry(name)
	node.ID = c.NextID()
	def := node.SchemaDef()
	def.Tables.commitHook = c.onCommitEntry
	def.Views.commitHook = c.onCommitEntry
	def.Sequences.commitHook = c.onCommitEntry
	def.ScalarFunctions.commitHook = c.onCommitEntry
	def.TableFunctions.commitHook = c.onCommitEntry
	def.Indexes.commitHook = c.onCommitEntry
	ok, err := c.schemas.CreateEntry(txn, name, node)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicate
	}
	return node, nil
}

func (c *Catalog) GetSchemaEntry(txn txnif.TxnReader, name string) (*CatalogEntry, error) {
	node := c.schemas.GetEntry(txn, name)
	if node == nil {
		return nil, ErrNotFound
	}
	return node, nil
}

func (c *Catalog) DropSchemaEntry(txn txnif.AsyncTxn, name string) error {
	ok, err := c.schemas.DropEntry(txn, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// setForKind picks the child set of a schema entry that stores the given
// kind.
func setForKind(schema *CatalogEntry, kind EntryKind) *CatalogSet {
	def := schema.SchemaDef()
	switch kind {
	case KindTable:
		return def.Tables
	case KindView:
		return def.Views
	case KindSequence:
		return def.Sequences
	case KindScalarFunction:
		return def.ScalarFunctions
	case KindTableFunction:
		return def.TableFunctions
	case KindIndex:
		return def.Indexes
	}
	panic("unexpected")
}

func (c *Catalog) CreateEntry(txn txnif.AsyncTxn, schemaName string, node *CatalogEntry) (*CatalogEntry, error) {
	schema, err := c.GetSchemaEntry(txn, schemaName)
	if err != nil {
		return nil, err
	}
	node.ID = c.NextID()
	ok, err := setForKind(schema, node.kind).CreateEntry(txn, node.name, node)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicate
	}
	return node, nil
}

func (c *Catalog) GetEntry(txn txnif.TxnReader, schemaName string, kind EntryKind, name string) (*CatalogEntry, error) {
	schema, err := c.GetSchemaEntry(txn, schemaName)
	if err != nil {
		return nil, err
	}
	node := setForKind(schema, kind).GetEntry(txn, name)
	if node == nil {
		return nil, ErrNotFound
	}
	return node, nil
}

func (c *Catalog) DropEntry(txn txnif.AsyncTxn, schemaName string, kind EntryKind, name string) error {
	schema, err := c.GetSchemaEntry(txn, schemaName)
	if err != nil {
		return err
	}
	ok, err := setForKind(schema, kind).DropEntry(txn, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) AlterEntry(txn txnif.AsyncTxn, schemaName string, node *CatalogEntry) error {
	schema, err := c.GetSchemaEntry(txn, schemaName)
	if err != nil {
		return err
	}
	ok, err := setForKind(schema, node.kind).AlterEntry(txn, node.name, node)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (c *Catalog) CreateTableEntry(txn txnif.AsyncTxn, schemaName string, schema *Schema) (*CatalogEntry, error) {
	return c.CreateEntry(txn, schemaName, NewTableEntry(schema.Name, schema))
}

func (c *Catalog) GetTableEntry(txn txnif.TxnReader, schemaName, name string) (*CatalogEntry, error) {
	return c.GetEntry(txn, schemaName, KindTable, name)
}

func (c *Catalog) DropTableEntry(txn txnif.AsyncTxn, schemaName, name string) error {
	return c.DropEntry(txn, schemaName, KindTable, name)
}

// AlterTableEntry prepends a table version carrying the new schema.
func (c *Catalog) AlterTableEntry(txn txnif.AsyncTxn, schemaName string, schema *Schema) error {
	return c.AlterEntry(txn, schemaName, NewTableEntry(schema.Name, schema))
}
