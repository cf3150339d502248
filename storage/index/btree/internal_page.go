// Grounded in
// _examples/original_source/src/storage/page/b_plus_tree_internal_page.cpp:
// Insert/SplitInto/GetAdjacentBrother/RemoveAt/StealFromLeft/StealFromRight/
// ConcatWith all keep the same shape, translated from the C++ array_[] of
// (key, page_id) pairs into byte-offset reads/writes over the page.

package btree

import (
	"unsafe"

	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

const internalEntrySize = keySize + 4 // key + child page id

// InternalPage holds n keys and n+1 child page ids. array_[0] has no
// meaningful key: index i's key separates children i-1 and i.
type InternalPage struct {
	btreePage
}

func CastPageAsInternalPage(p *page.Page) *InternalPage {
	if p == nil {
		return nil
	}
	return (*InternalPage)(unsafe.Pointer(p))
}

func (ip *InternalPage) Init(pageId, parentId types.PageID, maxSize int) {
	ip.setPageType(internalPageType)
	ip.SetSize(0)
	ip.SetPageId(pageId)
	ip.SetParentPageId(parentId)
	ip.SetMaxSize(maxSize)
}

func entryOffset(index int) int { return commonHeaderSize + index*internalEntrySize }

func (ip *InternalPage) KeyAt(index int, keyType types.TypeID) types.Value {
	off := entryOffset(index)
	return decodeKey(ip.Data()[off:off+keySize], keyType)
}

func (ip *InternalPage) SetKeyAt(index int, key types.Value) {
	encoded := encodeKey(key)
	ip.Copy(entryOffset(index), encoded[:])
}

func (ip *InternalPage) ValueAt(index int) types.PageID {
	off := entryOffset(index) + keySize
	return types.NewPageIDFromBytes(ip.Data()[off:])
}

func (ip *InternalPage) SetValueAt(index int, pageId types.PageID) {
	ip.Copy(entryOffset(index)+keySize, pageId.Serialize())
}

func (ip *InternalPage) copyEntry(dst, src int) {
	copy(ip.Data()[entryOffset(dst):entryOffset(dst)+internalEntrySize], ip.Data()[entryOffset(src):entryOffset(src)+internalEntrySize])
}

// LookUp returns the child page id to descend into for key: the rightmost
// separator key not greater than key, or child 0 if key precedes all of them.
func (ip *InternalPage) LookUp(key types.Value, keyType types.TypeID, cmp Comparator) types.PageID {
	i := 1
	sz := ip.GetSize()
	for i <= sz && cmp(ip.KeyAt(i, keyType), key) <= 0 {
		i++
	}
	return ip.ValueAt(i - 1)
}

// Insert places (key, pageId) in separator order. Index 0's key is never
// touched; the new entry's key always lands at some index >= 1.
func (ip *InternalPage) Insert(key types.Value, pageId types.PageID, keyType types.TypeID, cmp Comparator) {
	sz := ip.GetSize()
	i := 1
	for i <= sz && cmp(ip.KeyAt(i, keyType), key) <= 0 {
		i++
	}
	for j := sz + 1; j > i; j-- {
		ip.copyEntry(j, j-1)
	}
	ip.SetKeyAt(i, key)
	ip.SetValueAt(i, pageId)
	ip.IncreaseSize(1)
}

// SplitInto moves the upper half of this node's (key, child) pairs into
// newPage, returning the separator key that bubbles up to the parent (it is
// not retained in either half).
func (ip *InternalPage) SplitInto(newPage *InternalPage, keyType types.TypeID) types.Value {
	sz := ip.GetSize()
	mid := sz/2 + 1
	newPage.SetValueAt(0, ip.ValueAt(mid))
	for i := mid + 1; i <= sz; i++ {
		newPage.copyFromOther(i-mid, ip, i)
	}
	newPage.IncreaseSize(sz - mid)
	ip.SetSize(mid - 1)
	return ip.KeyAt(mid, keyType)
}

func (ip *InternalPage) copyFromOther(dstIndex int, src *InternalPage, srcIndex int) {
	copy(ip.Data()[entryOffset(dstIndex):entryOffset(dstIndex)+internalEntrySize], src.Data()[entryOffset(srcIndex):entryOffset(srcIndex)+internalEntrySize])
}

// GetAdjacentBrother finds the sibling to redistribute with or merge into
// when the child identified by key underflows: prefer the left sibling,
// falling back to the right one if key's child is the leftmost. index is
// the parent's own separator key position between node and brother -
// RemoveAt(index) and KeyAt(index) both refer to that same separator
// regardless of which side brother is on.
func (ip *InternalPage) GetAdjacentBrother(key types.Value, keyType types.TypeID, cmp Comparator) (index int, brotherPageId types.PageID, isLeft bool) {
	sz := ip.GetSize()
	i := 1
	for i <= sz && cmp(ip.KeyAt(i, keyType), key) <= 0 {
		i++
	}
	childIndex := i - 1
	if childIndex == 0 {
		return 1, ip.ValueAt(1), false
	}
	return childIndex, ip.ValueAt(childIndex - 1), true
}

// RemoveAt deletes the entry at index, shifting everything after it left.
func (ip *InternalPage) RemoveAt(index int) {
	sz := ip.GetSize()
	for index < sz {
		ip.copyEntry(index, index+1)
		index++
	}
	ip.IncreaseSize(-1)
}

// StealFromLeft rotates brother's last child through the parent separator
// into this node's front slot, rewriting parent's separator key to match.
func (ip *InternalPage) StealFromLeft(brother *InternalPage, parent *InternalPage, index int, keyType types.TypeID, bpm *buffer.BufferPoolManager) {
	for i := ip.GetSize() + 1; i > 0; i-- {
		ip.copyEntry(i, i-1)
	}
	ip.SetKeyAt(1, parent.KeyAt(index, keyType))
	parent.SetKeyAt(index, brother.KeyAt(brother.GetSize(), keyType))
	ip.SetValueAt(0, brother.ValueAt(brother.GetSize()))

	ip.IncreaseSize(1)
	brother.IncreaseSize(-1)

	reparentChild(bpm, ip.ValueAt(0), ip.GetPageId())
}

// StealFromRight rotates brother's first child through the parent separator
// into this node's back slot.
func (ip *InternalPage) StealFromRight(brother *InternalPage, parent *InternalPage, index int, keyType types.TypeID, bpm *buffer.BufferPoolManager) {
	ip.SetKeyAt(ip.GetSize()+1, parent.KeyAt(index, keyType))
	parent.SetKeyAt(index, brother.KeyAt(1, keyType))
	ip.SetValueAt(ip.GetSize()+1, brother.ValueAt(0))

	sz := brother.GetSize()
	for i := 0; i < sz; i++ {
		brother.copyEntry(i, i+1)
	}
	ip.IncreaseSize(1)
	brother.IncreaseSize(-1)

	reparentChild(bpm, ip.ValueAt(ip.GetSize()), ip.GetPageId())
}

// ConcatWith absorbs brother (the right-hand node) into ip, pulling the
// parent's separator key down between the two former halves and rewriting
// every moved child's parent pointer.
func (ip *InternalPage) ConcatWith(brother *InternalPage, key types.Value, bpm *buffer.BufferPoolManager) {
	sz := ip.GetSize()
	brother.SetKeyAt(0, key)
	brotherSize := brother.GetSize()
	for i := 0; i <= brotherSize; i++ {
		ip.copyFromOther(i+sz+1, brother, i)
		reparentChild(bpm, brother.ValueAt(i), ip.GetPageId())
	}
	ip.IncreaseSize(brotherSize + 1)
	brother.SetSize(0)
}

func reparentChild(bpm *buffer.BufferPoolManager, childId types.PageID, parentId types.PageID) {
	childPage := castAsBTreePage(bpm.FetchPage(childId))
	childPage.SetParentPageId(parentId)
	bpm.UnpinPage(childId, true)
}
