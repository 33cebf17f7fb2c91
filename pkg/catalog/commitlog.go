package catalog

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/jiangxinmeng1/logstore/pkg/entry"
	"github.com/jiangxinmeng1/logstore/pkg/store"
)

// commitLog turns committed catalog versions into log entries. The commit
// queue applies one transaction at a time in timestamp order, so records
// are buffered until one with a newer timestamp arrives; each flushed
// entry then carries a whole transaction's catalog footprint under its
// commit timestamp. Replay lives outside the core.
type commitLog struct {
	sync.Mutex
	impl    store.Store
	own     bool
	pending bytes.Buffer
	count   uint32
	ts      uint64
}

func newCommitLog(impl store.Store, own bool) *commitLog {
	return &commitLog{impl: impl, own: own}
}

// Append buffers one committed version: an opcode, the length-prefixed
// name and the entry id. Called under the owning set's mutex.
func (l *commitLog) Append(node *CatalogEntry, commitTS uint64) error {
	l.Lock()
	defer l.Unlock()
	var err error
	if l.count > 0 && commitTS != l.ts {
		err = l.flushLocked()
	}
	l.ts = commitTS
	l.pending.WriteByte(byte(opCode(node.kind, node.deleted)))
	name := []byte(node.name)
	binary.Write(&l.pending, binary.BigEndian, uint16(len(name)))
	l.pending.Write(name)
	binary.Write(&l.pending, binary.BigEndian, node.ID)
	l.count++
	return err
}

func (l *commitLog) flushLocked() error {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, l.ts)
	binary.Write(&buf, binary.BigEndian, l.count)
	buf.Write(l.pending.Bytes())
	l.pending.Reset()
	l.count = 0

	e := entry.GetBase()
	e.SetType(ETTransaction)
	e.SetInfo(&entry.Info{CommitId: l.ts})
	e.Unmarshal(buf.Bytes())
	_, err := l.impl.AppendEntry(entry.GTCustomizedStart, e)
	return err
}

// Flush forces out the buffered transaction, if any.
func (l *commitLog) Flush() error {
	l.Lock()
	defer l.Unlock()
	if l.count == 0 {
		return nil
	}
	return l.flushLocked()
}

func (l *commitLog) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.own {
		return l.impl.Close()
	}
	return nil
}
