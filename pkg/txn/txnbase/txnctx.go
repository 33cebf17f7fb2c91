package txnbase

import (
	"fmt"
	"sync"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
)

type TxnCtx struct {
	sync.RWMutex
	ID                uint64
	StartTS, CommitTS uint64
	Info              []byte
	State             int32
}

func NewTxnCtx(id, start uint64, info []byte) *TxnCtx {
	return &TxnCtx{
		ID:       id,
		StartTS:  start,
		CommitTS: txnif.UncommitTS,
		Info:     info,
		State:    txnif.TxnStateActive,
	}
}

func (ctx *TxnCtx) Repr() string {
	return fmt.Sprintf("Txn[%d][%d->%d][%d]", ctx.ID, ctx.StartTS, ctx.CommitTS, ctx.State)
}

func (ctx *TxnCtx) String() string      { return ctx.Repr() }
func (ctx *TxnCtx) GetID() uint64       { return ctx.ID }
func (ctx *TxnCtx) GetInfo() []byte     { return ctx.Info }
func (ctx *TxnCtx) GetStartTS() uint64  { return ctx.StartTS }
func (ctx *TxnCtx) GetCommitTS() uint64 { return ctx.CommitTS }

func (ctx *TxnCtx) ToCommittingLocked(ts uint64) error {
	if ctx.State != txnif.TxnStateActive {
		return txnif.ErrTxnNotActive
	}
	if ts <= ctx.StartTS {
		panic(fmt.Sprintf("start ts %d should be less than commit ts %d", ctx.StartTS, ts))
	}
	ctx.CommitTS = ts
	ctx.State = txnif.TxnStateCommitting
	return nil
}

func (ctx *TxnCtx) ToRollbackingLocked(ts uint64) error {
	if ctx.State != txnif.TxnStateActive && ctx.State != txnif.TxnStateCommitting {
		return txnif.ErrTxnNotActive
	}
	ctx.CommitTS = ts
	ctx.State = txnif.TxnStateRollbacking
	return nil
}

func (ctx *TxnCtx) ToCommittedLocked() error {
	if ctx.State != txnif.TxnStateCommitting {
		panic("unexpected")
	}
	ctx.State = txnif.TxnStateCommitted
	return nil
}

func (ctx *TxnCtx) ToRollbackedLocked() error {
	if ctx.State != txnif.TxnStateRollbacking {
		panic("unexpected")
	}
	ctx.State = txnif.TxnStateRollbacked
	return nil
}
