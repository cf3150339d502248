// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package page

import (
	"sync/atomic"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/types"
)

const PageSize = common.PageSize

// Page is a frame-resident, fixed-size byte block. The buffer pool manager
// owns the backing array; everything else only ever holds a borrowed pointer
// to one, valid for as long as it keeps the page pinned.
//
// Latch is a reader-writer latch guarding concurrent access to Data while the
// page is pinned by more than one goroutine (shared for readers descending a
// B+-tree, exclusive while splitting/merging a node). It is orthogonal to
// PinCount: the latch protects in-memory bytes, the pin count protects the
// frame from eviction.
type Page struct {
	id            types.PageID
	pinCount      int32 // accessed atomically
	isDirty       bool
	isDeallocated bool
	data          *[PageSize]byte
	Latch         common.ReaderWriterLatch
}

// New wraps an existing data buffer as a page. Used by the buffer pool
// manager when installing a frame.
func New(id types.PageID, pinCount int32, isDirty bool, data *[PageSize]byte) *Page {
	return &Page{id: id, pinCount: pinCount, isDirty: isDirty, data: data, Latch: common.NewRWLatch()}
}

// NewEmpty allocates a zeroed page with pin count 1, as returned by
// BufferPoolManager.NewPage.
func NewEmpty(id types.PageID) *Page {
	return &Page{id: id, pinCount: 1, data: &[PageSize]byte{}, Latch: common.NewRWLatch()}
}

// ResetMemory clears the page's contents and deallocation marker, keeping
// its latch and identity intact. Used by the buffer pool manager when
// recycling a frame.
func (p *Page) ResetMemory() {
	*p.data = [PageSize]byte{}
	p.isDeallocated = false
}

// IncPinCount increments the pin count.
func (p *Page) IncPinCount() {
	atomic.AddInt32(&p.pinCount, 1)
}

// DecPinCount decrements the pin count, floored at zero.
func (p *Page) DecPinCount() {
	for {
		cur := atomic.LoadInt32(&p.pinCount)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&p.pinCount, cur, cur-1) {
			return
		}
	}
}

// PinCount returns the pin count.
func (p *Page) PinCount() int32 {
	return atomic.LoadInt32(&p.pinCount)
}

// SetPinCount overwrites the pin count outright. Used by the buffer pool
// manager when installing a freshly fetched or allocated page into a frame.
func (p *Page) SetPinCount(n int32) {
	atomic.StoreInt32(&p.pinCount, n)
}

// ID returns the page id.
func (p *Page) ID() types.PageID {
	return p.id
}

// SetID overwrites the page id. Used when a frame is reassigned to a
// different page.
func (p *Page) SetID(id types.PageID) {
	p.id = id
}

func (p *Page) Data() *[PageSize]byte {
	return p.data
}

// Copy writes src into the page's buffer starting at offset.
func (p *Page) Copy(offset int, src []byte) {
	copy(p.data[offset:], src)
}

func (p *Page) SetIsDirty(isDirty bool) {
	p.isDirty = isDirty
}

func (p *Page) IsDirty() bool {
	return p.isDirty
}

func (p *Page) IsDeallocated() bool {
	return p.isDeallocated
}

func (p *Page) MarkDeallocated() {
	p.isDeallocated = true
}

// WLatch/WUnlatch/RLatch/RUnlatch are the crabbing primitives B+-tree
// descent and table-heap page access use directly.
func (p *Page) WLatch()   { p.Latch.WLock() }
func (p *Page) WUnlatch() { p.Latch.WUnlock() }
func (p *Page) RLatch()   { p.Latch.RLock() }
func (p *Page) RUnlatch() { p.Latch.RUnlock() }
