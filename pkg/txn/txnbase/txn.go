package txnbase

import (
	"sync"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/sirupsen/logrus"
)

type OpType int8

const (
	OpCommit OpType = iota
	OpRollback
)

type OpTxn struct {
	Txn txnif.AsyncTxn
	Op  OpType
}

func (op *OpTxn) Repr() string {
	if op.Op == OpCommit {
		return "[Commit]" + op.Txn.Repr()
	}
	return "[Rollback]" + op.Txn.Repr()
}

var DefaultTxnFactory = func(mgr *TxnManager, id, startTS uint64, info []byte) txnif.AsyncTxn {
	return NewTxn(mgr, id, startTS, info)
}

var _ txnif.AsyncTxn = (*Txn)(nil)

type Txn struct {
	sync.WaitGroup
	*TxnCtx
	Mgr             *TxnManager
	Err             error
	DoneCond        sync.Cond
	PrepareCommitFn func(txnif.AsyncTxn) error

	entries []txnif.TxnEntry
	arena   updateArena
}

func NewTxn(mgr *TxnManager, txnID, start uint64, info []byte) *Txn {
	txn := &Txn{
		Mgr: mgr,
	}
	txn.TxnCtx = NewTxnCtx(txnID, start, info)
	txn.DoneCond = *sync.NewCond(txn)
	return txn
}

func (txn *Txn) SetError(err error) { txn.Err = err }
func (txn *Txn) GetError() error    { return txn.Err }

func (txn *Txn) SetPrepareCommitFn(fn func(txnif.AsyncTxn) error) { txn.PrepareCommitFn = fn }

// LogTxnEntry appends a back-pointer to a version node this transaction
// created. The undo buffer keeps creation order so commit can walk it
// forward and rollback in reverse.
func (txn *Txn) LogTxnEntry(entry txnif.TxnEntry) {
	txn.Lock()
	txn.entries = append(txn.entries, entry)
	txn.Unlock()
}

func (txn *Txn) CreateUpdateBuffer(typeSize, vectorSize int) []byte {
	txn.Lock()
	defer txn.Unlock()
	return txn.arena.alloc(typeSize * vectorSize)
}

func (txn *Txn) Commit() error {
	txn.Add(1)
	txn.Mgr.OnOpTxn(&OpTxn{
		Txn: txn,
		Op:  OpCommit,
	})
	txn.Wait()
	return txn.Err
}

func (txn *Txn) Rollback() error {
	txn.Add(1)
	txn.Mgr.OnOpTxn(&OpTxn{
		Txn: txn,
		Op:  OpRollback,
	})
	txn.Wait()
	return txn.Err
}

func (txn *Txn) Done() {
	txn.DoneCond.L.Lock()
	switch txn.State {
	case txnif.TxnStateCommitting:
		txn.ToCommittedLocked()
	case txnif.TxnStateRollbacking:
		txn.ToRollbackedLocked()
	default:
		panic("unexpected")
	}
	txn.WaitGroup.Done()
	txn.DoneCond.Broadcast()
	txn.DoneCond.L.Unlock()
}

func (txn *Txn) GetTxnState(waitIfCommitting bool) int32 {
	txn.RLock()
	state := txn.State
	if !waitIfCommitting {
		txn.RUnlock()
		return state
	}
	if state != txnif.TxnStateCommitting && state != txnif.TxnStateRollbacking {
		txn.RUnlock()
		return state
	}
	txn.RUnlock()
	txn.DoneCond.L.Lock()
	state = txn.State
	if state != txnif.TxnStateCommitting && state != txnif.TxnStateRollbacking {
		txn.DoneCond.L.Unlock()
		return state
	}
	txn.DoneCond.Wait()
	state = txn.State
	txn.DoneCond.L.Unlock()
	return state
}

func (txn *Txn) PrepareCommit() error {
	logrus.Debugf("Prepare Committing %d", txn.ID)
	if txn.PrepareCommitFn != nil {
		if err := txn.PrepareCommitFn(txn); err != nil {
			return err
		}
	}
	return txn.Err
}

func (txn *Txn) PrepareRollback() error {
	logrus.Debugf("Prepare Rollbacking %d", txn.ID)
	return nil
}

// ApplyCommit walks the undo buffer forward, rewriting the timestamp of
// every version node this transaction created to the commit timestamp.
// Each entry takes the owning set's or segment's lock.
func (txn *Txn) ApplyCommit() error {
	for _, entry := range txn.entries {
		if err := entry.ApplyCommit(txn.CommitTS); err != nil {
			return err
		}
	}
	return nil
}

// ApplyRollback walks the undo buffer in reverse, unsplicing every version
// node this transaction created.
func (txn *Txn) ApplyRollback() error {
	for i := len(txn.entries) - 1; i >= 0; i-- {
		if err := txn.entries[i].ApplyRollback(); err != nil {
			return err
		}
	}
	return nil
}

func (txn *Txn) WaitDone() error {
	txn.Done()
	return txn.Err
}

// updateArena hands out pre-image buffers with lifetime tied to the
// transaction. Slabs are only released when the transaction itself becomes
// unreachable.
type updateArena struct {
	slabs [][]byte
	curr  []byte
	off   int
}

const arenaSlabSize = 1 << 16

func (a *updateArena) alloc(size int) []byte {
	if size >= arenaSlabSize {
		buf := make([]byte, size)
		a.slabs = append(a.slabs, buf)
		return buf
	}
	if a.curr == nil || a.off+size > len(a.curr) {
		a.curr = make([]byte, arenaSlabSize)
		a.slabs = append(a.slabs, a.curr)
		a.off = 0
	}
	buf := a.curr[a.off : a.off+size : a.off+size]
	a.off += size
	return buf
}
