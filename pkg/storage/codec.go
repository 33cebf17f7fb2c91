package storage

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/DingJingXiangGit/duckdb/pkg/container"
)

// stringHeap backs the varchar slots of one segment. It is append-only:
// updates write new strings and re-point the slot, so pre-images that
// reference older offsets stay valid for rollback and snapshot overlays.
type stringHeap struct {
	mu   sync.Mutex
	data []byte
}

func (h *stringHeap) append(s string) (offset uint64, length uint64) {
	h.mu.Lock()
	offset = uint64(len(h.data))
	h.data = append(h.data, s...)
	length = uint64(len(s))
	h.mu.Unlock()
	return
}

func (h *stringHeap) get(offset, length uint64) string {
	h.mu.Lock()
	s := string(h.data[offset : offset+length])
	h.mu.Unlock()
	return s
}

// readValueLocked decodes the slot of one segment row out of block bytes.
func (seg *Segment) readValueLocked(data []byte, row int) container.Value {
	off := row * seg.typeSize
	switch seg.typ {
	case container.Int8:
		return container.Value{Typ: seg.typ, Val: int8(data[off])}
	case container.Int16:
		return container.Value{Typ: seg.typ, Val: int16(binary.LittleEndian.Uint16(data[off:]))}
	case container.Int32:
		return container.Value{Typ: seg.typ, Val: int32(binary.LittleEndian.Uint32(data[off:]))}
	case container.Int64:
		return container.Value{Typ: seg.typ, Val: int64(binary.LittleEndian.Uint64(data[off:]))}
	case container.Float:
		return container.Value{Typ: seg.typ, Val: math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))}
	case container.Double:
		return container.Value{Typ: seg.typ, Val: math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))}
	case container.Varchar:
		strOff := binary.LittleEndian.Uint64(data[off:])
		strLen := binary.LittleEndian.Uint64(data[off+8:])
		return container.Value{Typ: seg.typ, Val: seg.heap.get(strOff, strLen)}
	}
	panic("unexpected")
}

// writeValueLocked encodes v into the slot of one segment row.
func (seg *Segment) writeValueLocked(data []byte, row int, v container.Value) {
	off := row * seg.typeSize
	switch seg.typ {
	case container.Int8:
		data[off] = byte(v.Val.(int8))
	case container.Int16:
		binary.LittleEndian.PutUint16(data[off:], uint16(v.Val.(int16)))
	case container.Int32:
		binary.LittleEndian.PutUint32(data[off:], uint32(v.Val.(int32)))
	case container.Int64:
		binary.LittleEndian.PutUint64(data[off:], uint64(v.Val.(int64)))
	case container.Float:
		binary.LittleEndian.PutUint32(data[off:], math.Float32bits(v.Val.(float32)))
	case container.Double:
		binary.LittleEndian.PutUint64(data[off:], math.Float64bits(v.Val.(float64)))
	case container.Varchar:
		strOff, strLen := seg.heap.append(v.Val.(string))
		binary.LittleEndian.PutUint64(data[off:], strOff)
		binary.LittleEndian.PutUint64(data[off+8:], strLen)
	default:
		panic("unexpected")
	}
}

// slotImageLocked copies the raw bytes of one slot, the unit stored as a
// pre-image in update nodes.
func (seg *Segment) slotImageLocked(data []byte, row int, dst []byte) {
	off := row * seg.typeSize
	copy(dst, data[off:off+seg.typeSize])
}

func (seg *Segment) restoreSlotLocked(data []byte, row int, img []byte) {
	off := row * seg.typeSize
	copy(data[off:off+seg.typeSize], img)
}

// decodeSlotInto interprets a raw pre-image slot and places it at index i
// of result.
func (seg *Segment) decodeSlotInto(result *container.Vector, i int, img []byte) {
	switch seg.typ {
	case container.Int8:
		result.Set(i, container.Value{Typ: seg.typ, Val: int8(img[0])})
	case container.Int16:
		result.Set(i, container.Value{Typ: seg.typ, Val: int16(binary.LittleEndian.Uint16(img))})
	case container.Int32:
		result.Set(i, container.Value{Typ: seg.typ, Val: int32(binary.LittleEndian.Uint32(img))})
	case container.Int64:
		result.Set(i, container.Value{Typ: seg.typ, Val: int64(binary.LittleEndian.Uint64(img))})
	case container.Float:
		result.Set(i, container.Value{Typ: seg.typ, Val: math.Float32frombits(binary.LittleEndian.Uint32(img))})
	case container.Double:
		result.Set(i, container.Value{Typ: seg.typ, Val: math.Float64frombits(binary.LittleEndian.Uint64(img))})
	case container.Varchar:
		strOff := binary.LittleEndian.Uint64(img)
		strLen := binary.LittleEndian.Uint64(img[8:])
		result.Set(i, container.Value{Typ: seg.typ, Val: seg.heap.get(strOff, strLen)})
	default:
		panic("unexpected")
	}
}
