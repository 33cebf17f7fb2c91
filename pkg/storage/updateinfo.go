package storage

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/RoaringBitmap/roaring"
)

// UpdateInfo is one node in a vector's update chain. versionNumber is
// dual-range like the catalog timestamps. tuples keeps the updated row
// offsets within the vector, strictly ascending; payload packs the
// pre-image slot bytes of those rows in the same order, so rollback and
// snapshot overlays can restore them. mask mirrors tuples for O(1)
// coverage checks.
type UpdateInfo struct {
	versionNumber uint64
	segment       *Segment
	vectorIndex   int
	tuples        []uint32
	payload       []byte
	mask          *roaring.Bitmap
	next, prev    *UpdateInfo
}

func (n *UpdateInfo) GetSegment() *Segment     { return n.segment }
func (n *UpdateInfo) GetVectorIndex() int      { return n.vectorIndex }
func (n *UpdateInfo) GetVersionNumber() uint64 { return n.versionNumber }
func (n *UpdateInfo) Tuples() []uint32         { return n.tuples }

func (n *UpdateInfo) payloadSlot(i int) []byte {
	ts := n.segment.typeSize
	return n.payload[i*ts : (i+1)*ts]
}

// covers reports whether the node already holds a pre-image for the row.
func (n *UpdateInfo) covers(rowInVector uint32) bool {
	return n.mask.Contains(rowInVector)
}

// insertTuple opens slot pos for a new row, shifting tuples and payload.
func (n *UpdateInfo) insertTuple(pos int, rowInVector uint32) {
	ts := n.segment.typeSize
	count := len(n.tuples)
	n.tuples = append(n.tuples, 0)
	copy(n.tuples[pos+1:], n.tuples[pos:count])
	n.tuples[pos] = rowInVector
	n.payload = n.payload[:(count+1)*ts]
	copy(n.payload[(pos+1)*ts:], n.payload[pos*ts:count*ts])
	n.mask.Add(rowInVector)
}

// ApplyCommit rewrites the version number to the commit timestamp under
// the segment lock.
func (n *UpdateInfo) ApplyCommit(commitTS uint64) error {
	return n.segment.CommitUpdate(n, commitTS)
}

// ApplyRollback restores the pre-images into the base block and unlinks
// the node from the chain.
func (n *UpdateInfo) ApplyRollback() error {
	return n.segment.RollbackUpdate(n)
}

var _ txnif.TxnEntry = (*UpdateInfo)(nil)

// WriteTo frames the node for the log pipeline.
func (n *UpdateInfo) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(n.vectorIndex)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(n.tuples))); err != nil {
		return err
	}
	for _, t := range n.tuples {
		if err := binary.Write(w, binary.BigEndian, t); err != nil {
			return err
		}
	}
	buf, err := n.mask.ToBytes()
	if err != nil {
		return err
	}
	if err = binary.Write(w, binary.BigEndian, uint32(len(buf))); err != nil {
		return err
	}
	if _, err = w.Write(buf); err != nil {
		return err
	}
	if err = binary.Write(w, binary.BigEndian, uint32(len(n.payload))); err != nil {
		return err
	}
	_, err = w.Write(n.payload)
	return err
}

func (n *UpdateInfo) ReadFrom(r io.Reader) error {
	vi := uint32(0)
	if err := binary.Read(r, binary.BigEndian, &vi); err != nil {
		return err
	}
	n.vectorIndex = int(vi)
	cnt := uint32(0)
	if err := binary.Read(r, binary.BigEndian, &cnt); err != nil {
		return err
	}
	n.tuples = make([]uint32, cnt)
	for i := range n.tuples {
		if err := binary.Read(r, binary.BigEndian, &n.tuples[i]); err != nil {
			return err
		}
	}
	maskLen := uint32(0)
	if err := binary.Read(r, binary.BigEndian, &maskLen); err != nil {
		return err
	}
	maskBuf := make([]byte, maskLen)
	if _, err := io.ReadFull(r, maskBuf); err != nil {
		return err
	}
	n.mask = roaring.NewBitmap()
	if err := n.mask.UnmarshalBinary(maskBuf); err != nil {
		return err
	}
	payloadLen := uint32(0)
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return err
	}
	n.payload = make([]byte, payloadLen)
	_, err := io.ReadFull(r, n.payload)
	return err
}

// searchTuple locates rowInVector's position in the sorted tuples.
func (n *UpdateInfo) searchTuple(rowInVector uint32) int {
	return sort.Search(len(n.tuples), func(i int) bool {
		return n.tuples[i] >= rowInVector
	})
}
