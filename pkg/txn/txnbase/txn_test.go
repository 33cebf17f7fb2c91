package txnbase

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
)

type mockTxnEntry struct {
	commitTS   uint64
	rollbacked bool
	order      *[]int
	seq        int
}

func (e *mockTxnEntry) ApplyCommit(commitTS uint64) error {
	e.commitTS = commitTS
	*e.order = append(*e.order, e.seq)
	return nil
}

func (e *mockTxnEntry) ApplyRollback() error {
	e.rollbacked = true
	*e.order = append(*e.order, e.seq)
	return nil
}

func TestTxnLifecycle(t *testing.T) {
	mgr := NewTxnManager(nil)
	mgr.Start()
	defer mgr.Stop()

	txn := mgr.StartTxn(nil)
	assert.GreaterOrEqual(t, txn.GetID(), txnif.TxnIDStart)
	assert.Less(t, txn.GetStartTS(), txnif.TxnIDStart)
	assert.Equal(t, txnif.TxnStateActive, txn.GetTxnState(false))

	order := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		txn.LogTxnEntry(&mockTxnEntry{order: &order, seq: i})
	}
	err := txn.Commit()
	assert.Nil(t, err)
	assert.Equal(t, txnif.TxnStateCommitted, txn.GetTxnState(true))
	// commit walks the undo buffer forward
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Greater(t, txn.GetCommitTS(), txn.GetStartTS())
	assert.Less(t, txn.GetCommitTS(), txnif.TxnIDStart)
}

func TestTxnRollbackOrder(t *testing.T) {
	mgr := NewTxnManager(nil)
	mgr.Start()
	defer mgr.Stop()

	txn := mgr.StartTxn(nil)
	order := make([]int, 0, 3)
	entries := make([]*mockTxnEntry, 3)
	for i := range entries {
		entries[i] = &mockTxnEntry{order: &order, seq: i}
		txn.LogTxnEntry(entries[i])
	}
	err := txn.Rollback()
	assert.Nil(t, err)
	assert.Equal(t, txnif.TxnStateRollbacked, txn.GetTxnState(true))
	// rollback walks the undo buffer in reverse
	assert.Equal(t, []int{2, 1, 0}, order)
	for _, e := range entries {
		assert.True(t, e.rollbacked)
	}
}

func TestTxnIDAndTSDisjoint(t *testing.T) {
	mgr := NewTxnManager(nil)
	mgr.Start()
	defer mgr.Stop()

	var maxTS uint64
	for i := 0; i < 20; i++ {
		txn := mgr.StartTxn(nil)
		assert.True(t, txn.GetID() >= txnif.TxnIDStart)
		assert.True(t, txn.GetStartTS() < txnif.TxnIDStart)
		assert.Greater(t, txn.GetStartTS(), maxTS)
		maxTS = txn.GetStartTS()
		assert.Nil(t, txn.Commit())
		assert.Greater(t, txn.GetCommitTS(), txn.GetStartTS())
		maxTS = txn.GetCommitTS()
	}
}

func TestTxnConcurrentStart(t *testing.T) {
	mgr := NewTxnManager(nil)
	mgr.Start()
	defer mgr.Stop()

	var wg sync.WaitGroup
	var committed int32
	seen := sync.Map{}
	p, _ := ants.NewPool(10)
	defer p.Release()
	for i := 0; i < 100; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			txn := mgr.StartTxn(nil)
			if _, loaded := seen.LoadOrStore(txn.GetID(), true); loaded {
				t.Errorf("duplicate txn id %d", txn.GetID())
			}
			if err := txn.Commit(); err == nil {
				atomic.AddInt32(&committed, 1)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, int32(100), committed)
}

func TestUpdateArena(t *testing.T) {
	mgr := NewTxnManager(nil)
	mgr.Start()
	defer mgr.Stop()

	txn := mgr.StartTxn(nil).(*Txn)
	a := txn.CreateUpdateBuffer(4, 1024)
	assert.Equal(t, 4*1024, len(a))
	b := txn.CreateUpdateBuffer(8, 1024)
	assert.Equal(t, 8*1024, len(b))
	a[0] = 0xff
	b[0] = 0xee
	assert.Equal(t, byte(0xff), a[0])
	assert.Equal(t, byte(0xee), b[0])
	assert.Nil(t, txn.Rollback())
}
