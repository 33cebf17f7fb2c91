package storage

import (
	"sync"

	"github.com/DingJingXiangGit/duckdb/pkg/buffer"
	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"
)

// Segment is a contiguous per-column storage unit covering many vectors.
// blockID identifies either an immutable disk block (below
// buffer.MaximumBlock) or a mutable in-memory block. Each vector slot of
// versions heads that vector's update chain, newest first.
type Segment struct {
	lock           sync.RWMutex
	mgr            *buffer.Manager
	blockID        uint64
	typ            container.PhysicalType
	typeSize       int
	baseOffset     uint64
	rowCount       int
	maxVectorCount int
	versions       []*UpdateInfo
	nulls          []*roaring.Bitmap
	heap           *stringHeap
}

func NewSegment(mgr *buffer.Manager, blockID uint64, typ container.PhysicalType, baseOffset uint64, rowCount int) *Segment {
	maxVectorCount := (rowCount + StandardVectorSize - 1) / StandardVectorSize
	return &Segment{
		mgr:            mgr,
		blockID:        blockID,
		typ:            typ,
		typeSize:       typ.Size(),
		baseOffset:     baseOffset,
		rowCount:       rowCount,
		maxVectorCount: maxVectorCount,
		nulls:          make([]*roaring.Bitmap, maxVectorCount),
		heap:           new(stringHeap),
	}
}

func (seg *Segment) GetBlockID() uint64 {
	seg.lock.RLock()
	defer seg.lock.RUnlock()
	return seg.blockID
}

func (seg *Segment) RowCount() int { return seg.rowCount }

func (seg *Segment) Type() container.PhysicalType { return seg.typ }

// SetNull marks a base row as null. Null maintenance belongs to the load
// path; updates never touch it.
func (seg *Segment) SetNull(row int) {
	seg.lock.Lock()
	defer seg.lock.Unlock()
	vi := row / StandardVectorSize
	if seg.nulls[vi] == nil {
		seg.nulls[vi] = roaring.NewBitmap()
	}
	seg.nulls[vi].Add(uint32(row % StandardVectorSize))
}

// vectorRowsLocked is the row count of one vector; the last vector may be
// partial.
func (seg *Segment) vectorRowsLocked(vectorIndex int) int {
	rows := seg.rowCount - vectorIndex*StandardVectorSize
	if rows > StandardVectorSize {
		rows = StandardVectorSize
	}
	return rows
}

// checkForConflicts walks the update chain. A node of the updating
// transaction is remembered for extension; a node of a concurrent writer
// is merge-intersected against the sorted ids, and any shared row is a
// write-write conflict.
func checkForConflicts(info *UpdateInfo, txn txnif.TxnReader, ids []uint64, vectorOffset uint64) (*UpdateInfo, error) {
	var node *UpdateInfo
	if info.versionNumber == txn.GetID() {
		node = info
	} else if info.versionNumber > txn.GetStartTS() {
		// both ids and info.tuples are sorted, walk them like a merge join
		i, j := 0, 0
		for i < len(ids) && j < len(info.tuples) {
			id := uint32(ids[i] - vectorOffset)
			if id == info.tuples[j] {
				return nil, txnif.ErrWriteWriteConflict
			} else if id < info.tuples[j] {
				i++
			} else {
				j++
			}
		}
	}
	if info.next != nil {
		child, err := checkForConflicts(info.next, txn, ids, vectorOffset)
		if err != nil {
			return nil, err
		}
		if node == nil {
			node = child
		}
	}
	return node, nil
}

// Update applies values to the rows named by ids, all inside one vector.
// The pre-images of the touched rows move into the transaction's update
// node so rollback can restore them; the new values land in place on the
// mutable block.
func (seg *Segment) Update(txn txnif.AsyncTxn, ids []uint64, values *container.Vector) error {
	count := len(ids)
	if count == 0 {
		return nil
	}
	for i := 1; i < count; i++ {
		if ids[i] <= ids[i-1] {
			return txnif.ErrAssertion
		}
	}

	seg.lock.Lock()
	defer seg.lock.Unlock()

	// in-place updates only run on in-memory blocks
	if seg.blockID < buffer.MaximumBlock {
		if err := seg.toTemporaryLocked(); err != nil {
			return err
		}
	}

	if seg.versions == nil {
		seg.versions = make([]*UpdateInfo, seg.maxVectorCount)
	}

	firstID := ids[0]
	if firstID < seg.baseOffset {
		return txnif.ErrAssertion
	}
	vectorIndex := int((firstID - seg.baseOffset) / StandardVectorSize)
	if vectorIndex >= seg.maxVectorCount {
		return txnif.ErrAssertion
	}
	vectorOffset := seg.baseOffset + uint64(vectorIndex)*StandardVectorSize
	if ids[count-1] >= vectorOffset+StandardVectorSize {
		// all updates must fall inside the same vector
		return txnif.ErrAssertion
	}

	var node *UpdateInfo
	if seg.versions[vectorIndex] != nil {
		var err error
		node, err = checkForConflicts(seg.versions[vectorIndex], txn, ids, vectorOffset)
		if err != nil {
			return err
		}
	}

	handle, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return err
	}
	data := handle.Buffer()

	if node == nil {
		node = seg.createUpdateInfoLocked(txn, ids, vectorIndex, vectorOffset, data)
		txn.LogTxnEntry(node)
	} else {
		seg.mergeUpdateInfoLocked(node, ids, vectorOffset, data)
	}

	for i, id := range ids {
		seg.writeValueLocked(data, int(id-seg.baseOffset), values.Get(i))
	}
	return nil
}

// createUpdateInfoLocked allocates the transaction's node for this vector,
// captures the pre-images of the named rows and prepends the node onto the
// chain. The payload buffer comes from the transaction arena.
func (seg *Segment) createUpdateInfoLocked(txn txnif.AsyncTxn, ids []uint64, vectorIndex int, vectorOffset uint64, data []byte) *UpdateInfo {
	buf := txn.CreateUpdateBuffer(seg.typeSize, StandardVectorSize)
	node := &UpdateInfo{
		versionNumber: txn.GetID(),
		segment:       seg,
		vectorIndex:   vectorIndex,
		tuples:        make([]uint32, len(ids), StandardVectorSize),
		payload:       buf[:len(ids)*seg.typeSize],
		mask:          roaring.NewBitmap(),
	}
	for i, id := range ids {
		rowInVector := uint32(id - vectorOffset)
		node.tuples[i] = rowInVector
		node.mask.Add(rowInVector)
		seg.slotImageLocked(data, int(id-seg.baseOffset), node.payloadSlot(i))
	}
	node.next = seg.versions[vectorIndex]
	if node.next != nil {
		node.next.prev = node
	}
	seg.versions[vectorIndex] = node
	return node
}

// mergeUpdateInfoLocked extends the transaction's existing node with rows
// it does not cover yet, saving their pre-images.
func (seg *Segment) mergeUpdateInfoLocked(node *UpdateInfo, ids []uint64, vectorOffset uint64, data []byte) {
	for _, id := range ids {
		rowInVector := uint32(id - vectorOffset)
		if node.covers(rowInVector) {
			continue
		}
		pos := node.searchTuple(rowInVector)
		node.insertTuple(pos, rowInVector)
		seg.slotImageLocked(data, int(id-seg.baseOffset), node.payloadSlot(pos))
	}
}

// Scan materializes the vector as seen by txn: base data first, then the
// pre-images of every version invisible to the snapshot, newest first, so
// the oldest invisible write is the one that sticks.
func (seg *Segment) Scan(txn txnif.TxnReader, vectorIndex int, result *container.Vector) error {
	seg.lock.RLock()
	defer seg.lock.RUnlock()
	return seg.scanLocked(txn, vectorIndex, result)
}

func (seg *Segment) scanLocked(txn txnif.TxnReader, vectorIndex int, result *container.Vector) error {
	if err := seg.fetchBaseDataLocked(vectorIndex, result); err != nil {
		return err
	}
	if seg.versions == nil {
		return nil
	}
	for info := seg.versions[vectorIndex]; info != nil; info = info.next {
		if txnif.VisibleTo(info.versionNumber, txn) {
			continue
		}
		for i, t := range info.tuples {
			seg.decodeSlotInto(result, int(t), info.payloadSlot(i))
		}
	}
	return nil
}

// Select filters one vector. With no outstanding versions the filters run
// directly over the base data; otherwise the vector is materialized via
// Scan first so the filters observe the snapshot.
func (seg *Segment) Select(txn txnif.TxnReader, result *container.Vector, filters []TableFilter, sel *container.SelectionVector, state *ColumnScanState) (int, error) {
	seg.lock.RLock()
	defer seg.lock.RUnlock()

	vectorIndex := state.VectorIndex
	approved := seg.vectorRowsLocked(vectorIndex)
	sel.InitSequence(approved)

	if seg.versions != nil && seg.versions[vectorIndex] != nil {
		if err := seg.scanLocked(txn, vectorIndex, result); err != nil {
			return 0, err
		}
	} else {
		if err := seg.fetchBaseDataLocked(vectorIndex, result); err != nil {
			return 0, err
		}
	}

	var err error
	for _, filter := range filters {
		if approved, err = filterSelection(result, sel, filter, approved); err != nil {
			return 0, err
		}
	}
	return approved, nil
}

// IndexScan reads base data for index construction. The shared lock is
// taken on the first vector and parked in the scan state until Release.
// Any outstanding update chain rejects the scan: indexes are only built
// over a quiescent snapshot.
func (seg *Segment) IndexScan(state *ColumnScanState, vectorIndex int, result *container.Vector) error {
	if vectorIndex == 0 {
		seg.lock.RLock()
		state.seg = seg
		state.locked = true
	}
	state.VectorIndex = vectorIndex
	if seg.hasVersionsLocked() {
		return ErrOutstandingUpdates
	}
	return seg.fetchBaseDataLocked(vectorIndex, result)
}

func (seg *Segment) hasVersionsLocked() bool {
	if seg.versions == nil {
		return false
	}
	for _, head := range seg.versions {
		if head != nil {
			return true
		}
	}
	return false
}

// FetchBaseData reads the raw base vector, no version chain consulted.
func (seg *Segment) FetchBaseData(state *ColumnScanState, vectorIndex int, result *container.Vector) error {
	if state != nil && state.locked {
		state.VectorIndex = vectorIndex
		return seg.fetchBaseDataLocked(vectorIndex, result)
	}
	seg.lock.RLock()
	defer seg.lock.RUnlock()
	return seg.fetchBaseDataLocked(vectorIndex, result)
}

func (seg *Segment) fetchBaseDataLocked(vectorIndex int, result *container.Vector) error {
	handle, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return err
	}
	data := handle.Buffer()
	rows := seg.vectorRowsLocked(vectorIndex)
	base := vectorIndex * StandardVectorSize
	result.Nulls = roaring.NewBitmap()
	for i := 0; i < rows; i++ {
		result.Set(i, seg.readValueLocked(data, base+i))
	}
	if nulls := seg.nulls[vectorIndex]; nulls != nil {
		result.Nulls = nulls.Clone()
	}
	return nil
}

// ToTemporary promotes an immutable disk block to a mutable in-memory
// block: pin the current block, allocate a fresh one, copy the contents
// and re-point the segment. Idempotent under the exclusive lock.
func (seg *Segment) ToTemporary() error {
	seg.lock.Lock()
	defer seg.lock.Unlock()
	return seg.toTemporaryLocked()
}

func (seg *Segment) toTemporaryLocked() error {
	if seg.blockID >= buffer.MaximumBlock {
		// conversion already performed by another thread
		return nil
	}
	current, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return err
	}
	handle := seg.mgr.Allocate(len(current.Buffer()))
	copy(handle.Buffer(), current.Buffer())
	logrus.Debugf("promote block %d -> %d", seg.blockID, handle.BlockID)
	seg.blockID = handle.BlockID
	return nil
}

// CommitUpdate rewrites the node's version number to the commit
// timestamp.
func (seg *Segment) CommitUpdate(node *UpdateInfo, commitTS uint64) error {
	seg.lock.Lock()
	defer seg.lock.Unlock()
	node.versionNumber = commitTS
	return nil
}

// RollbackUpdate restores the node's pre-images into the base block and
// unlinks it from the per-vector chain.
func (seg *Segment) RollbackUpdate(node *UpdateInfo) error {
	seg.lock.Lock()
	defer seg.lock.Unlock()

	handle, err := seg.mgr.Pin(seg.blockID)
	if err != nil {
		return err
	}
	data := handle.Buffer()
	base := node.vectorIndex * StandardVectorSize
	for i, t := range node.tuples {
		seg.restoreSlotLocked(data, base+int(t), node.payloadSlot(i))
	}

	if node.prev != nil {
		node.prev.next = node.next
	} else {
		seg.versions[node.vectorIndex] = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	}
	node.next = nil
	node.prev = nil
	return nil
}
