// Grounded in
// _examples/original_source/src/storage/page/b_plus_tree_leaf_page.cpp:
// same Insert/Split/Remove/steal/concat shapes as the internal page, but
// array_[] pairs are (key, RID) and there's a next_page_id sibling pointer
// for the iterator to walk.

package btree

import (
	"unsafe"

	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

const (
	offsetNextPageId = commonHeaderSize
	leafArrayOffset  = commonHeaderSize + 4
	ridSize          = 8 // page id (4) + slot num (4)
	leafEntrySize    = keySize + ridSize
)

// LeafPage holds n (key, RID) pairs in key order plus a pointer to the next
// leaf, so a range scan can walk leaves without ever revisiting the tree.
type LeafPage struct {
	btreePage
}

func CastPageAsLeafPage(p *page.Page) *LeafPage {
	if p == nil {
		return nil
	}
	return (*LeafPage)(unsafe.Pointer(p))
}

func (lp *LeafPage) Init(pageId, parentId types.PageID, maxSize int) {
	lp.setPageType(leafPageType)
	lp.SetSize(0)
	lp.SetPageId(pageId)
	lp.SetParentPageId(parentId)
	lp.SetMaxSize(maxSize)
	lp.SetNextPageId(types.InvalidPageID)
}

func (lp *LeafPage) GetNextPageId() types.PageID {
	return types.NewPageIDFromBytes(lp.Data()[offsetNextPageId:])
}
func (lp *LeafPage) SetNextPageId(id types.PageID) { lp.Copy(offsetNextPageId, id.Serialize()) }

func leafOffset(index int) int { return leafArrayOffset + index*leafEntrySize }

func (lp *LeafPage) KeyAt(index int, keyType types.TypeID) types.Value {
	off := leafOffset(index)
	return decodeKey(lp.Data()[off:off+keySize], keyType)
}

func (lp *LeafPage) SetKeyAt(index int, key types.Value) {
	encoded := encodeKey(key)
	lp.Copy(leafOffset(index), encoded[:])
}

func (lp *LeafPage) ValueAt(index int) *page.RID {
	off := leafOffset(index) + keySize
	pageId := types.NewPageIDFromBytes(lp.Data()[off:])
	slot := uint32(types.NewUInt32FromBytes(lp.Data()[off+4:]))
	return page.NewRID(pageId, slot)
}

func (lp *LeafPage) SetValueAt(index int, rid *page.RID) {
	off := leafOffset(index) + keySize
	lp.Copy(off, rid.GetPageId().Serialize())
	lp.Copy(off+4, types.UInt32(rid.GetSlot()).Serialize())
}

func (lp *LeafPage) PairAt(index int, keyType types.TypeID) (types.Value, *page.RID) {
	return lp.KeyAt(index, keyType), lp.ValueAt(index)
}

func (lp *LeafPage) copyEntry(dst, src int) {
	copy(lp.Data()[leafOffset(dst):leafOffset(dst)+leafEntrySize], lp.Data()[leafOffset(src):leafOffset(src)+leafEntrySize])
}

// KeyIndex returns the position of the first key not less than key, i.e.
// where key belongs (whether or not it's already present).
func (lp *LeafPage) KeyIndex(key types.Value, keyType types.TypeID, cmp Comparator) int {
	sz := lp.GetSize()
	i := 0
	for i < sz && cmp(lp.KeyAt(i, keyType), key) < 0 {
		i++
	}
	return i
}

// Insert inserts (key, rid) in key order. Returns false without modifying
// the page if key is already present (unique keys only).
func (lp *LeafPage) Insert(key types.Value, rid *page.RID, keyType types.TypeID, cmp Comparator) bool {
	sz := lp.GetSize()
	i := lp.KeyIndex(key, keyType, cmp)
	if i < sz && cmp(lp.KeyAt(i, keyType), key) == 0 {
		return false
	}
	for j := sz; j > i; j-- {
		lp.copyEntry(j, j-1)
	}
	lp.SetKeyAt(i, key)
	lp.SetValueAt(i, rid)
	lp.IncreaseSize(1)
	return true
}

// SplitInto moves the upper half of this leaf's pairs into newPage and
// relinks the sibling chain; unlike an internal split, the separator key
// (newPage's first key) is retained in newPage, not discarded.
func (lp *LeafPage) SplitInto(newPage *LeafPage) {
	sz := lp.GetSize()
	mid := sz / 2
	for i := mid; i < sz; i++ {
		copy(newPage.Data()[leafOffset(i-mid):leafOffset(i-mid)+leafEntrySize], lp.Data()[leafOffset(i):leafOffset(i)+leafEntrySize])
	}
	newPage.SetSize(sz - mid)
	lp.SetSize(mid)
	newPage.SetNextPageId(lp.GetNextPageId())
	lp.SetNextPageId(newPage.GetPageId())
}

// Remove deletes key if present, reporting whether it removed anything.
func (lp *LeafPage) Remove(key types.Value, keyType types.TypeID, cmp Comparator) bool {
	sz := lp.GetSize()
	i := lp.KeyIndex(key, keyType, cmp)
	if i >= sz || cmp(lp.KeyAt(i, keyType), key) != 0 {
		return false
	}
	for j := i; j < sz-1; j++ {
		lp.copyEntry(j, j+1)
	}
	lp.IncreaseSize(-1)
	return true
}

// StealFromLeft rotates brother's last pair into this leaf's front slot.
func (lp *LeafPage) StealFromLeft(brother *LeafPage, parent *InternalPage, parentIndex int, keyType types.TypeID) {
	sz := lp.GetSize()
	for i := sz; i > 0; i-- {
		lp.copyEntry(i, i-1)
	}
	lastIdx := brother.GetSize() - 1
	copy(lp.Data()[leafOffset(0):leafOffset(0)+leafEntrySize], brother.Data()[leafOffset(lastIdx):leafOffset(lastIdx)+leafEntrySize])
	lp.IncreaseSize(1)
	brother.IncreaseSize(-1)
	key, _ := lp.PairAt(0, keyType)
	parent.SetKeyAt(parentIndex, key)
}

// StealFromRight rotates brother's first pair into this leaf's back slot.
func (lp *LeafPage) StealFromRight(brother *LeafPage, parent *InternalPage, parentIndex int, keyType types.TypeID) {
	sz := lp.GetSize()
	copy(lp.Data()[leafOffset(sz):leafOffset(sz)+leafEntrySize], brother.Data()[leafOffset(0):leafOffset(0)+leafEntrySize])
	brotherSz := brother.GetSize()
	for i := 0; i < brotherSz-1; i++ {
		brother.copyEntry(i, i+1)
	}
	lp.IncreaseSize(1)
	brother.IncreaseSize(-1)
	key, _ := brother.PairAt(0, keyType)
	parent.SetKeyAt(parentIndex, key)
}

// ConcatWith absorbs brother (the right-hand leaf) into lp and relinks past
// it in the sibling chain.
func (lp *LeafPage) ConcatWith(brother *LeafPage) {
	sz := lp.GetSize()
	brotherSz := brother.GetSize()
	for i := 0; i < brotherSz; i++ {
		copy(lp.Data()[leafOffset(sz+i):leafOffset(sz+i)+leafEntrySize], brother.Data()[leafOffset(i):leafOffset(i)+leafEntrySize])
	}
	lp.IncreaseSize(brotherSz)
	lp.SetNextPageId(brother.GetNextPageId())
	brother.SetSize(0)
}
