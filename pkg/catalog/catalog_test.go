package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/DingJingXiangGit/duckdb/pkg/txn/txnbase"
	"github.com/stretchr/testify/assert"
)

func initTestPath(t *testing.T) string {
	dir := filepath.Join("/tmp", t.Name())
	os.RemoveAll(dir)
	return dir
}

func mockTxnMgr(t *testing.T) *txnbase.TxnManager {
	mgr := txnbase.NewTxnManager(nil)
	mgr.Start()
	t.Cleanup(func() { mgr.Stop() })
	return mgr
}

//
// TXN1-S     TXN2-S      TXN1-C  TXN3-S TXN4-S  TXN3-C TXN5-S
//  |            |           |      |      |       |      |                 Time
// -+-+---+---+--+--+----+---+--+---+-+----+-+-----+------+-+------------------->
//    |   |   |     |    |      |     |      |              |
//    |   |   |     |    |      |     |      |            [TXN5]: GET TBL [NOTFOUND]
//    |   |   |     |    |      |     |    [TXN4]: GET TBL [OK] | DROP TBL [W-W]
//    |   |   |     |    |      |   [TXN3]: GET TBL [OK] | DROP TBL [OK]
//    |   |   |     |  [TXN2]: DROP SCHEMA [NOTFOUND]
//    |   |   |   [TXN2]: GET SCHEMA [NOTFOUND] | CREATE SCHEMA [W-W]
//    |   | [TXN1]: CREATE TBL [DUP]
//    | [TXN1]: CREATE TBL [OK] | GET TBL [OK]
//  [TXN1]: CREATE SCHEMA [OK]
func TestCreateSchema1(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	sch, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	t.Log(sch.String())

	schema := MockSchema(2)
	schema.Name = "tb1"
	tb1, err := c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	t.Log(tb1.String())

	_, err = c.GetTableEntry(txn1, "main", "tb1")
	assert.Nil(t, err)

	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Equal(t, ErrDuplicate, err)

	txn2 := txnMgr.StartTxn(nil)
	_, err = c.GetSchemaEntry(txn2, "main")
	assert.Equal(t, ErrNotFound, err)

	_, err = c.CreateSchemaEntry(txn2, "main")
	assert.Equal(t, txnif.ErrWriteWriteConflict, err)

	err = c.DropSchemaEntry(txn2, "main")
	assert.Equal(t, ErrNotFound, err)

	assert.Nil(t, txn1.Commit())

	// txn2 started before txn1 committed, still blind to it
	_, err = c.GetSchemaEntry(txn2, "main")
	assert.Equal(t, ErrNotFound, err)

	txn3 := txnMgr.StartTxn(nil)
	_, err = c.GetTableEntry(txn3, "main", "tb1")
	assert.Nil(t, err)
	err = c.DropTableEntry(txn3, "main", "tb1")
	assert.Nil(t, err)
	_, err = c.GetTableEntry(txn3, "main", "tb1")
	assert.Equal(t, ErrNotFound, err)

	txn4 := txnMgr.StartTxn(nil)
	_, err = c.GetTableEntry(txn4, "main", "tb1")
	assert.Nil(t, err)
	err = c.DropTableEntry(txn4, "main", "tb1")
	assert.Equal(t, txnif.ErrWriteWriteConflict, err)

	assert.Nil(t, txn3.Commit())

	txn5 := txnMgr.StartTxn(nil)
	_, err = c.GetTableEntry(txn5, "main", "tb1")
	assert.Equal(t, ErrNotFound, err)
}

func TestCreateDropSameTxn(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	_, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	schema := MockSchema(1)
	schema.Name = "tb1"
	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	err = c.DropTableEntry(txn1, "main", "tb1")
	assert.Nil(t, err)
	_, err = c.GetTableEntry(txn1, "main", "tb1")
	assert.Equal(t, ErrNotFound, err)

	// recreate under the same txn after our own drop
	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	_, err = c.GetTableEntry(txn1, "main", "tb1")
	assert.Nil(t, err)
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	_, err = c.GetTableEntry(txn2, "main", "tb1")
	assert.Nil(t, err)
}

func TestRollback(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	_, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	schema := MockSchema(2)
	schema.Name = "tb1"
	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	err = c.DropTableEntry(txn2, "main", "tb1")
	assert.Nil(t, err)
	_, err = c.GetTableEntry(txn2, "main", "tb1")
	assert.Equal(t, ErrNotFound, err)
	assert.Nil(t, txn2.Rollback())

	// the drop never happened
	txn3 := txnMgr.StartTxn(nil)
	tb, err := c.GetTableEntry(txn3, "main", "tb1")
	assert.Nil(t, err)
	assert.Equal(t, 2, len(tb.TableDef().Schema.ColDefs))

	// rollback of a create leaves only the dummy behind
	_, err = c.CreateTableEntry(txn3, "main", &Schema{Name: "tb2"})
	assert.Nil(t, err)
	assert.Nil(t, txn3.Rollback())

	txn4 := txnMgr.StartTxn(nil)
	_, err = c.GetTableEntry(txn4, "main", "tb2")
	assert.Equal(t, ErrNotFound, err)
	_, err = c.CreateTableEntry(txn4, "main", &Schema{Name: "tb2"})
	assert.Nil(t, err)
	assert.Nil(t, txn4.Commit())
}

// Catalog side of: BEGIN; ALTER ADD COLUMN k; ALTER ADD COLUMN l;
// ALTER ADD COLUMN m DEFAULT 3; SELECT *; ROLLBACK; SELECT *
func TestAlterRollback(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	_, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	schema := NewEmptySchema("integers")
	schema.AppendCol("i", container.Int32)
	schema.AppendCol("j", container.Int32)
	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	tb, err := c.GetTableEntry(txn2, "main", "integers")
	assert.Nil(t, err)

	altered := tb.TableDef().Schema.Clone()
	altered.AppendCol("k", container.Int32)
	assert.Nil(t, c.AlterTableEntry(txn2, "main", altered))

	altered = altered.Clone()
	altered.AppendCol("l", container.Int32)
	assert.Nil(t, c.AlterTableEntry(txn2, "main", altered))

	altered = altered.Clone()
	altered.AppendColWithDefault("m", container.Int32, container.Int32Value(3))
	assert.Nil(t, c.AlterTableEntry(txn2, "main", altered))

	// in-txn read sees all five columns
	tb, err = c.GetTableEntry(txn2, "main", "integers")
	assert.Nil(t, err)
	assert.Equal(t, []string{"i", "j", "k", "l", "m"}, tb.TableDef().Schema.ColumnNames())
	assert.NotNil(t, tb.TableDef().Schema.ColDefs[4].Default)

	// concurrent reader still sees two
	txn3 := txnMgr.StartTxn(nil)
	tb3, err := c.GetTableEntry(txn3, "main", "integers")
	assert.Nil(t, err)
	assert.Equal(t, []string{"i", "j"}, tb3.TableDef().Schema.ColumnNames())

	assert.Nil(t, txn2.Rollback())

	txn4 := txnMgr.StartTxn(nil)
	tb4, err := c.GetTableEntry(txn4, "main", "integers")
	assert.Nil(t, err)
	assert.Equal(t, []string{"i", "j"}, tb4.TableDef().Schema.ColumnNames())
}

func TestScanEntries(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	_, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	for _, name := range []string{"zz", "aa", "mm"} {
		schema := MockSchema(1)
		schema.Name = name
		_, err = c.CreateTableEntry(txn1, "main", schema)
		assert.Nil(t, err)
	}
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	sch, err := c.GetSchemaEntry(txn2, "main")
	assert.Nil(t, err)
	var names []string
	sch.SchemaDef().Tables.ScanEntries(txn2, func(entry *CatalogEntry) bool {
		names = append(names, entry.GetName())
		return true
	})
	assert.Equal(t, []string{"aa", "mm", "zz"}, names)

	// an uncommitted drop hides the entry from its own scans only
	assert.Nil(t, c.DropTableEntry(txn2, "main", "mm"))
	names = names[:0]
	sch.SchemaDef().Tables.ScanEntries(txn2, func(entry *CatalogEntry) bool {
		names = append(names, entry.GetName())
		return true
	})
	assert.Equal(t, []string{"aa", "zz"}, names)

	txn3 := txnMgr.StartTxn(nil)
	names = names[:0]
	sch.SchemaDef().Tables.ScanEntries(txn3, func(entry *CatalogEntry) bool {
		names = append(names, entry.GetName())
		return true
	})
	assert.Equal(t, []string{"aa", "mm", "zz"}, names)
}

func TestEntryKinds(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	sch, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)

	_, err = c.CreateEntry(txn1, "main", NewViewEntry("v1", "SELECT 42"))
	assert.Nil(t, err)
	_, err = c.CreateEntry(txn1, "main", NewSequenceEntry("seq", 0, 1))
	assert.Nil(t, err)
	_, err = c.CreateEntry(txn1, "main", NewScalarFunctionEntry("abs", nil))
	assert.Nil(t, err)
	_, err = c.CreateEntry(txn1, "main", NewTableFunctionEntry("range", nil))
	assert.Nil(t, err)
	_, err = c.CreateEntry(txn1, "main", NewIndexEntry("idx1", "tb1", []string{"i"}))
	assert.Nil(t, err)
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	v, err := c.GetEntry(txn2, "main", KindView, "v1")
	assert.Nil(t, err)
	assert.Equal(t, "SELECT 42", v.ViewDef().Query)

	seq, err := c.GetEntry(txn2, "main", KindSequence, "seq")
	assert.Nil(t, err)
	assert.Equal(t, int64(1), seq.SequenceDef().Next())
	assert.Equal(t, int64(2), seq.SequenceDef().Next())

	idx, err := c.GetEntry(txn2, "main", KindIndex, "idx1")
	assert.Nil(t, err)
	assert.Equal(t, "tb1", idx.IndexDef().Table)

	// kinds live in disjoint sets: a view does not shadow a table name
	def := sch.SchemaDef()
	assert.True(t, def.Views.EntryExists(txn2, "v1"))
	assert.False(t, def.Tables.EntryExists(txn2, "v1"))

	assert.Nil(t, c.DropEntry(txn2, "main", KindView, "v1"))
	assert.False(t, def.Views.EntryExists(txn2, "v1"))
	assert.Nil(t, txn2.Commit())
}

func TestVersionChainShape(t *testing.T) {
	dir := initTestPath(t)
	c := MockCatalog(dir, "mock", nil)
	defer c.Close()
	txnMgr := mockTxnMgr(t)

	txn1 := txnMgr.StartTxn(nil)
	_, err := c.CreateSchemaEntry(txn1, "main")
	assert.Nil(t, err)
	schema := MockSchema(1)
	schema.Name = "tb1"
	_, err = c.CreateTableEntry(txn1, "main", schema)
	assert.Nil(t, err)
	assert.Nil(t, txn1.Commit())

	txn2 := txnMgr.StartTxn(nil)
	sch, err := c.GetSchemaEntry(txn2, "main")
	assert.Nil(t, err)
	assert.Nil(t, c.DropTableEntry(txn2, "main", "tb1"))

	set := sch.SchemaDef().Tables
	set.mu.Lock()
	head := set.entries["tb1"]
	uncommitted := 0
	depth := 0
	var last *CatalogEntry
	for e := head; e != nil; e = e.child {
		if !txnif.IsCommitted(e.timestamp) {
			uncommitted++
		}
		if e.child != nil {
			assert.Equal(t, e, e.child.parent)
		}
		last = e
		depth++
	}
	// head: uncommitted drop -> committed create -> dummy
	assert.Equal(t, 3, depth)
	assert.Equal(t, 1, uncommitted)
	assert.True(t, last.deleted)
	assert.Equal(t, uint64(0), last.timestamp)
	assert.Nil(t, head.parent)
	set.mu.Unlock()

	assert.Nil(t, txn2.Rollback())

	set.mu.Lock()
	head = set.entries["tb1"]
	depth = 0
	for e := head; e != nil; e = e.child {
		assert.True(t, txnif.IsCommitted(e.timestamp))
		depth++
	}
	assert.Equal(t, 2, depth)
	assert.Nil(t, head.parent)
	set.mu.Unlock()
}
