package catalog

import (
	"sync"

	"github.com/DingJingXiangGit/duckdb/pkg/iface/txnif"
	"github.com/google/btree"
)

type nameItem struct {
	name string
}

func (n *nameItem) Less(item btree.Item) bool {
	return n.name < item.(*nameItem).name
}

// CatalogSet maps names to the head of each entry's version chain. One
// mutex guards the map, the ordered name index and every chain traversal
// and splice on this set.
type CatalogSet struct {
	mu      sync.Mutex
	entries map[string]*CatalogEntry
	index   *btree.BTree

	// commitHook, when set, observes every committed version under the
	// set mutex. The catalog uses it to append commit-log entries.
	commitHook func(entry *CatalogEntry, commitTS uint64)
}

func NewCatalogSet() *CatalogSet {
	return &CatalogSet{
		entries: make(map[string]*CatalogEntry),
		index:   btree.New(4),
	}
}

// lookupLocked walks the chain from the head to the version visible to
// txn. Transaction ids sit above any start timestamp, so the committed
// check is a single comparison. The returned node may be a deleted one.
func (s *CatalogSet) lookupLocked(txn txnif.TxnReader, name string) *CatalogEntry {
	current, ok := s.entries[name]
	if !ok {
		return nil
	}
	for current.child != nil {
		if current.timestamp == txn.GetID() {
			// we created this version
			break
		}
		if current.timestamp < txn.GetStartTS() {
			// this version was committed before we started
			break
		}
		current = current.child
	}
	return current
}

// prependLocked splices node on top of head and registers the displaced
// version in the transaction's undo buffer.
func (s *CatalogSet) prependLocked(txn txnif.AsyncTxn, name string, node *CatalogEntry) {
	head := s.entries[name]
	node.timestamp = txn.GetID()
	node.set = s
	node.child = head
	head.parent = node
	s.entries[name] = node
	txn.LogTxnEntry(&catalogTxnEntry{set: s, old: head})
}

// replaceHeadLocked swaps the transaction's own uncommitted head for node,
// keeping the chain below and the already-logged undo record intact.
func (s *CatalogSet) replaceHeadLocked(txn txnif.AsyncTxn, head, node *CatalogEntry) {
	node.timestamp = txn.GetID()
	node.set = s
	node.child = head.child
	if node.child != nil {
		node.child.parent = node
	}
	node.parent = nil
	s.entries[head.name] = node
}

// CreateEntry returns false when a live committed (or own uncommitted)
// entry already holds the name. A head written by another in-flight
// transaction is a write-write conflict.
func (s *CatalogSet) CreateEntry(txn txnif.AsyncTxn, name string, entry *CatalogEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, ok := s.entries[name]
	if !ok {
		// the name has never been created: insert a dummy deleted node
		// first so transactions started before our commit still observe
		// "not there"
		dummy := newDummyEntry(name, entry.kind)
		dummy.set = s
		s.entries[name] = dummy
		s.index.ReplaceOrInsert(&nameItem{name: name})
		s.prependLocked(txn, name, entry)
		return true, nil
	}
	if !txnif.IsCommitted(head.timestamp) {
		if head.timestamp != txn.GetID() {
			return false, txnif.ErrWriteWriteConflict
		}
		if !head.deleted {
			return false, nil
		}
		s.replaceHeadLocked(txn, head, entry)
		return true, nil
	}
	if !head.deleted {
		return false, nil
	}
	s.prependLocked(txn, name, entry)
	return true, nil
}

// DropEntry prepends a deleted version. Returns false when no live entry
// is visible to txn.
func (s *CatalogSet) DropEntry(txn txnif.AsyncTxn, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vis := s.lookupLocked(txn, name)
	if vis == nil || vis.deleted {
		return false, nil
	}
	node := &CatalogEntry{
		ID:      vis.ID,
		name:    name,
		kind:    vis.kind,
		deleted: true,
		payload: vis.payload,
	}
	return s.prependOnVisibleLocked(txn, name, node)
}

// AlterEntry prepends a version with the same name and a new payload.
func (s *CatalogSet) AlterEntry(txn txnif.AsyncTxn, name string, entry *CatalogEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vis := s.lookupLocked(txn, name)
	if vis == nil || vis.deleted {
		return false, nil
	}
	entry.ID = vis.ID
	return s.prependOnVisibleLocked(txn, name, entry)
}

func (s *CatalogSet) prependOnVisibleLocked(txn txnif.AsyncTxn, name string, node *CatalogEntry) (bool, error) {
	head := s.entries[name]
	if !txnif.IsCommitted(head.timestamp) {
		if head.timestamp != txn.GetID() {
			return false, txnif.ErrWriteWriteConflict
		}
		s.replaceHeadLocked(txn, head, node)
		return true, nil
	}
	s.prependLocked(txn, name, node)
	return true, nil
}

func (s *CatalogSet) GetEntry(txn txnif.TxnReader, name string) *CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.lookupLocked(txn, name)
	if current == nil || current.deleted {
		return nil
	}
	return current
}

func (s *CatalogSet) EntryExists(txn txnif.TxnReader, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.lookupLocked(txn, name)
	return current != nil && !current.deleted
}

// ScanEntries calls fn for every live entry visible to txn, in name order.
// The set mutex is held for the duration of the scan.
func (s *CatalogSet) ScanEntries(txn txnif.TxnReader, fn func(entry *CatalogEntry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Ascend(func(item btree.Item) bool {
		current := s.lookupLocked(txn, item.(*nameItem).name)
		if current == nil || current.deleted {
			return true
		}
		return fn(current)
	})
}

// CommitEntry rewrites the timestamp of the version sitting on top of the
// displaced one. The dual-range encoding makes the visibility flip atomic
// for readers entering after the rewrite.
func (s *CatalogSet) CommitEntry(old *CatalogEntry, commitTS uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node := old.parent
	if node == nil {
		panic("unexpected")
	}
	node.timestamp = commitTS
	if s.commitHook != nil {
		s.commitHook(node, commitTS)
	}
	return nil
}

// Undo reverses the splice that displaced old. The transaction's node
// becomes unreachable.
func (s *CatalogSet) Undo(old *CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent := old.parent
	if parent == nil {
		panic("unexpected")
	}
	if parent.parent != nil {
		parent.parent.child = old
		old.parent = parent.parent
	} else {
		s.entries[old.name] = old
		old.parent = nil
	}
	return nil
}
