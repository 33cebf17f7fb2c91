package storage

import "errors"

// StandardVectorSize is the number of rows in one vector, the unit at
// which update chains are maintained.
const StandardVectorSize = 1024

var (
	ErrInvalidType        = errors.New("duckdb: invalid type for filter pushed down to table comparison")
	ErrNotImplemented     = errors.New("duckdb: unknown comparison type for filter pushed down to table")
	ErrOutstandingUpdates = errors.New("duckdb: cannot create index with outstanding updates")
)

// ColumnScanState carries the shared lock across the vectors of one scan.
type ColumnScanState struct {
	VectorIndex int
	seg         *Segment
	locked      bool
}

// Release drops the shared lock taken by an index scan.
func (state *ColumnScanState) Release() {
	if state.locked {
		state.seg.lock.RUnlock()
		state.locked = false
		state.seg = nil
	}
}
