package txnif

// TxnIDStart splits the timestamp domain in two. A version stamped with a
// value at or above it carries the id of an in-flight transaction; a value
// below it is a commit timestamp. The two ranges never overlap, so a single
// comparison decides whether a version is committed.
const TxnIDStart = uint64(1) << 62

const UncommitTS = ^uint64(0)

const (
	TxnStateActive int32 = iota
	TxnStateCommitting
	TxnStateRollbacking
	TxnStateCommitted
	TxnStateRollbacked
)
