// Grounded in _examples/original_source/src/storage/index/index_iterator.cpp:
// a pinned-and-shared-latched current leaf plus a position within it,
// advancing across the leaf chain via next_page_id once exhausted.

package btree

import (
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// Iterator walks an index's (key, RID) pairs in ascending key order. It
// holds a shared latch and a pin on its current leaf; Close (or running off
// the end) releases both.
type Iterator struct {
	tree  *BPlusTree
	leaf  *LeafPage
	index int
}

// End reports whether the iterator has exhausted the index.
func (it *Iterator) End() bool { return it.leaf == nil }

// Current returns the key and RID the iterator is positioned at.
func (it *Iterator) Current() (key types.Value, rid *page.RID) {
	return it.leaf.PairAt(it.index, it.tree.keyType)
}

// Next advances to the following entry, crossing into the next leaf (and
// releasing the one just finished) when the current leaf is exhausted.
func (it *Iterator) Next() {
	if it.leaf == nil {
		return
	}
	it.index++
	if it.index < it.leaf.GetSize() {
		return
	}
	nextId := it.leaf.GetNextPageId()
	it.leaf.RUnlatch()
	it.tree.bpm.UnpinPage(it.leaf.GetPageId(), false)
	if !nextId.IsValid() {
		it.leaf = nil
		return
	}
	next := it.tree.asLeaf(it.tree.fetch(nextId))
	next.RLatch()
	it.leaf = next
	it.index = 0
}

// Close releases the iterator's held latch and pin without advancing. Safe
// to call on an already-exhausted iterator.
func (it *Iterator) Close() {
	if it.leaf == nil {
		return
	}
	it.leaf.RUnlatch()
	it.tree.bpm.UnpinPage(it.leaf.GetPageId(), false)
	it.leaf = nil
}
