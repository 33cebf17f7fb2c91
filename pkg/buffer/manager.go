package buffer

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// MaximumBlock splits the block id domain: ids below it identify immutable
// blocks loaded from disk, ids at or above it identify mutable in-memory
// blocks produced by copy-on-write promotion.
const MaximumBlock = uint64(1) << 62

var ErrBlockNotFound = errors.New("duckdb: block not found")

// Handle pins a block's contents. The core treats the bytes as opaque; the
// segment layer owns the encoding.
type Handle struct {
	BlockID uint64
	buf     []byte
}

func (h *Handle) Buffer() []byte { return h.buf }

// Manager is the in-memory buffer manager. Immutable blocks are registered
// up front (the disk loading path lives outside the core); mutable blocks
// are allocated on demand.
type Manager struct {
	mu       sync.Mutex
	blocks   map[uint64][]byte
	nextTemp uint64
}

func NewManager() *Manager {
	return &Manager{
		blocks:   make(map[uint64][]byte),
		nextTemp: MaximumBlock,
	}
}

// RegisterBlock seeds an immutable block. id must be below MaximumBlock.
func (mgr *Manager) RegisterBlock(id uint64, data []byte) {
	if id >= MaximumBlock {
		panic("unexpected")
	}
	mgr.mu.Lock()
	mgr.blocks[id] = data
	mgr.mu.Unlock()
}

func (mgr *Manager) Pin(id uint64) (*Handle, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	buf, ok := mgr.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	return &Handle{BlockID: id, buf: buf}, nil
}

// Allocate creates a fresh mutable in-memory block.
func (mgr *Manager) Allocate(size int) *Handle {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	id := mgr.nextTemp
	mgr.nextTemp++
	buf := make([]byte, size)
	mgr.blocks[id] = buf
	logrus.Debugf("Allocate in-memory block %d, size %d", id, size)
	return &Handle{BlockID: id, buf: buf}
}
