package catalog

import (
	"github.com/jiangxinmeng1/logstore/pkg/entry"
)

type LogEntry = entry.Entry
type LogEntryType = entry.Type

// ETTransaction frames one committed transaction's catalog records.
const ETTransaction LogEntryType = entry.ETCustomizedStart

// OpT codes the records inside a transaction entry.
type OpT uint8

const (
	OpCreateSchema OpT = iota
	OpDropSchema
	OpCreateTable
	OpDropTable
	OpCreateView
	OpDropView
	OpCreateSequence
	OpDropSequence
	OpCreateScalarFunction
	OpDropScalarFunction
	OpCreateTableFunction
	OpDropTableFunction
	OpCreateIndex
	OpDropIndex
)

func opCode(kind EntryKind, deleted bool) OpT {
	switch kind {
	case KindSchema:
		if deleted {
			return OpDropSchema
		}
		return OpCreateSchema
	case KindTable:
		if deleted {
			return OpDropTable
		}
		return OpCreateTable
	case KindView:
		if deleted {
			return OpDropView
		}
		return OpCreateView
	case KindSequence:
		if deleted {
			return OpDropSequence
		}
		return OpCreateSequence
	case KindScalarFunction:
		if deleted {
			return OpDropScalarFunction
		}
		return OpCreateScalarFunction
	case KindTableFunction:
		if deleted {
			return OpDropTableFunction
		}
		return OpCreateTableFunction
	case KindIndex:
		if deleted {
			return OpDropIndex
		}
		return OpCreateIndex
	}
	panic("unexpected")
}
