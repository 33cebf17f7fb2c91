package storage

import (
	"github.com/DingJingXiangGit/duckdb/pkg/buffer"
	"github.com/DingJingXiangGit/duckdb/pkg/container"
	"github.com/RoaringBitmap/roaring"
)

// MockSegment materializes vals as an immutable block registered under
// blockID and wraps it in a segment, standing in for the disk load path.
func MockSegment(mgr *buffer.Manager, blockID uint64, baseOffset uint64, vals *container.Vector) *Segment {
	if blockID >= buffer.MaximumBlock {
		panic("unexpected")
	}
	rowCount := vals.Length()
	seg := NewSegment(mgr, blockID, vals.Typ, baseOffset, rowCount)
	data := make([]byte, rowCount*seg.typeSize)
	for i := 0; i < rowCount; i++ {
		if vals.IsNull(i) {
			vi := i / StandardVectorSize
			if seg.nulls[vi] == nil {
				seg.nulls[vi] = roaring.NewBitmap()
			}
			seg.nulls[vi].Add(uint32(i % StandardVectorSize))
			continue
		}
		seg.writeValueLocked(data, i, vals.Get(i))
	}
	mgr.RegisterBlock(blockID, data)
	return seg
}
