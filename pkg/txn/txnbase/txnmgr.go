package txnbase

import (
	"sync"
	"time"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/matrixorigin/matrixone/pkg/vm/engine/aoe/storage/common"
	"github.com/matrixorigin/matrixone/pkg/vm/engine/aoe/storage/logstore/sm"
	"github.com/sirupsen/logrus"
)

type TxnFactory = func(*TxnManager, uint64, uint64, []byte) txnif.AsyncTxn

// TxnManager owns the two timestamp allocators. Transaction ids are drawn
// from the range above TxnIDStart; commit timestamps stay in the low range.
// Commit and rollback requests run through a two-stage queue: the preparing
// stage assigns the commit timestamp and validates, the commit stage applies
// the undo buffer and wakes the caller.
type TxnManager struct {
	sync.RWMutex
	sm.ClosedState
	sm.StateMachine
	Active           map[uint64]txnif.AsyncTxn
	IdAlloc, TsAlloc *common.IdAlloctor
	TxnFactory       TxnFactory
}

func NewTxnManager(txnFactory TxnFactory) *TxnManager {
	if txnFactory == nil {
		txnFactory = DefaultTxnFactory
	}
	mgr := &TxnManager{
		Active:     make(map[uint64]txnif.AsyncTxn),
		IdAlloc:    common.NewIdAlloctor(1),
		TsAlloc:    common.NewIdAlloctor(1),
		TxnFactory: txnFactory,
	}
	mgr.IdAlloc.SetStart(txnif.TxnIDStart)
	pqueue := sm.NewSafeQueue(10000, 200, mgr.onPreparing)
	cqueue := sm.NewSafeQueue(10000, 200, mgr.onCommit)
	mgr.StateMachine = sm.NewStateMachine(new(sync.WaitGroup), mgr, pqueue, cqueue)
	return mgr
}

func (mgr *TxnManager) Init(prevTxnID uint64, prevTS uint64) error {
	mgr.IdAlloc.SetStart(prevTxnID)
	mgr.TsAlloc.SetStart(prevTS)
	return nil
}

func (mgr *TxnManager) StartTxn(info []byte) txnif.AsyncTxn {
	mgr.Lock()
	defer mgr.Unlock()
	txnID := mgr.IdAlloc.Alloc()
	startTS := mgr.TsAlloc.Alloc()

	txn := mgr.TxnFactory(mgr, txnID, startTS, info)
	mgr.Active[txnID] = txn
	return txn
}

func (mgr *TxnManager) GetTxn(id uint64) txnif.AsyncTxn {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.Active[id]
}

func (mgr *TxnManager) OnOpTxn(op *OpTxn) {
	mgr.EnqueueRecevied(op)
}

func (mgr *TxnManager) onPreparCommit(txn txnif.AsyncTxn) {
	txn.SetError(txn.PrepareCommit())
}

func (mgr *TxnManager) onPreparRollback(txn txnif.AsyncTxn) {
	txn.SetError(txn.PrepareRollback())
}

func (mgr *TxnManager) onPreparing(items ...interface{}) {
	for _, item := range items {
		op := item.(*OpTxn)
		mgr.Lock()
		ts := mgr.TsAlloc.Alloc()
		op.Txn.Lock()
		if op.Op == OpCommit {
			op.Txn.ToCommittingLocked(ts)
		} else {
			op.Txn.ToRollbackingLocked(ts)
		}
		op.Txn.Unlock()
		mgr.Unlock()
		if op.Op == OpCommit {
			mgr.onPreparCommit(op.Txn)
			if op.Txn.GetError() != nil {
				op.Op = OpRollback
				op.Txn.Lock()
				op.Txn.ToRollbackingLocked(ts)
				op.Txn.Unlock()
				mgr.onPreparRollback(op.Txn)
			}
		} else {
			mgr.onPreparRollback(op.Txn)
		}
		mgr.EnqueueCheckpoint(op)
	}
}

func (mgr *TxnManager) onCommit(items ...interface{}) {
	for _, item := range items {
		op := item.(*OpTxn)
		now := time.Now()
		switch op.Op {
		case OpCommit:
			if err := op.Txn.ApplyCommit(); err != nil {
				panic(err)
			}
		case OpRollback:
			if err := op.Txn.ApplyRollback(); err != nil {
				panic(err)
			}
		}
		mgr.Lock()
		delete(mgr.Active, op.Txn.GetID())
		mgr.Unlock()
		op.Txn.WaitDone()
		logrus.Debugf("%s Done, takes %s", op.Repr(), time.Since(now))
	}
}
