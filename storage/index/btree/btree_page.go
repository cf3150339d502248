// Grounded in the on-disk layout of
// _examples/original_source/src/storage/page/b_plus_tree_internal_page.cpp
// and b_plus_tree_leaf_page.cpp, re-expressed as the slotted, byte-offset
// page style this module's storage/table/table_page.go already uses instead
// of go-bustub's reinterpret_cast-over-a-template approach.

package btree

import (
	"unsafe"

	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// pageType distinguishes an internal node from a leaf in the common header.
type pageType int32

const (
	invalidPageType pageType = iota
	internalPageType
	leafPageType
)

// Common header shared by internal and leaf pages:
//
//	| page_type(4) | size(4) | max_size(4) | parent_page_id(4) | page_id(4) |
//
// Leaf pages append next_page_id(4) right after, internal pages start their
// entry array immediately.
const (
	offsetPageType      = 0
	offsetSize          = 4
	offsetMaxSize       = 8
	offsetParentPageID  = 12
	offsetPageID        = 16
	commonHeaderSize    = 20
)

// btreePage wraps the raw page bytes with the header accessors both node
// kinds share.
type btreePage struct {
	page.Page
}

func (p *btreePage) getPageType() pageType {
	return pageType(types.NewUInt32FromBytes(p.Data()[offsetPageType:]))
}
func (p *btreePage) setPageType(t pageType) {
	p.Copy(offsetPageType, types.UInt32(t).Serialize())
}

func (p *btreePage) IsLeafPage() bool { return p.getPageType() == leafPageType }

func (p *btreePage) GetSize() int { return int(int32(types.NewUInt32FromBytes(p.Data()[offsetSize:]))) }
func (p *btreePage) SetSize(size int) {
	p.Copy(offsetSize, types.Int32(int32(size)).Serialize())
}
func (p *btreePage) IncreaseSize(delta int) { p.SetSize(p.GetSize() + delta) }

func (p *btreePage) GetMaxSize() int {
	return int(int32(types.NewUInt32FromBytes(p.Data()[offsetMaxSize:])))
}
func (p *btreePage) SetMaxSize(maxSize int) {
	p.Copy(offsetMaxSize, types.Int32(int32(maxSize)).Serialize())
}

// MinSize is the spec's floor for a non-root node before it must
// redistribute or merge: ceil(max_size/2) for both leaves and internals.
func (p *btreePage) GetMinSize() int { return (p.GetMaxSize() + 1) / 2 }

func (p *btreePage) GetParentPageId() types.PageID {
	return types.NewPageIDFromBytes(p.Data()[offsetParentPageID:])
}
func (p *btreePage) SetParentPageId(id types.PageID) { p.Copy(offsetParentPageID, id.Serialize()) }

func (p *btreePage) GetPageId() types.PageID { return types.NewPageIDFromBytes(p.Data()[offsetPageID:]) }
func (p *btreePage) SetPageId(id types.PageID) { p.Copy(offsetPageID, id.Serialize()) }

func (p *btreePage) IsRootPage() bool { return p.GetParentPageId() == types.InvalidPageID }

// castAsBTreePage is how both InternalPage and LeafPage peek at a freshly
// fetched page to tell which concrete type to cast into.
func castAsBTreePage(p *page.Page) *btreePage {
	if p == nil {
		return nil
	}
	return (*btreePage)(unsafe.Pointer(p))
}
