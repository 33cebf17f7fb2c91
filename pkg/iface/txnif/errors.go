package txnif

import "errors"

var (
	ErrWriteWriteConflict  = errors.New("duckdb: w-w conflict error")
	ErrAssertion           = errors.New("duckdb: assertion failure")
	ErrTxnAlreadyCommitted = errors.New("duckdb: txn already committed")
	ErrTxnNotActive        = errors.New("duckdb: txn not active")
)
